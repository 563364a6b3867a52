package main

import (
	"encoding/json"
	"fmt"
	"log"

	"Memories/internal/core/blobs"
)

// genblobkey generates the HS256 key that signs /blobs URLs
//
// Usage:
//
//	go run cmd/genblobkey/main.go
//
// Store the output in BLOB_SIGNING_JWK so blob URLs stay valid across
// restarts and replicas.
func main() {
	key, err := blobs.GenerateSigningKey()
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}

	jsonData, err := json.Marshal(key)
	if err != nil {
		log.Fatalf("Failed to marshal JWK: %v", err)
	}

	fmt.Println("Add this to your .env file:")
	fmt.Println()
	fmt.Println("BLOB_SIGNING_JWK='" + string(jsonData) + "'")
	fmt.Println()
	fmt.Println("Keep this key secret and never commit it to version control.")
}
