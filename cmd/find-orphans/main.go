package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"Memories/internal/config"
	"Memories/internal/core/posts"
	"Memories/internal/stores"
)

// find-orphans reports posts whose attachment reference points at a blob the
// blob store does not hold. These are left behind when an upload fails after
// the record was created.
//
// Usage:
//
//	go run cmd/find-orphans/main.go [-concurrency 8] [-timeout 2m]
//
// Uses the same configuration as the server. Prints a JSON array and exits
// with status 1 when orphans exist.
func main() {
	concurrency := flag.Int("concurrency", 8, "parallel existence checks")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.RecordBackend == config.BackendMemory {
		log.Fatalf("RECORD_BACKEND is memory; nothing persistent to check")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	signer, err := stores.NewSigner(cfg)
	if err != nil {
		log.Fatalf("Failed to create blob URL signer: %v", err)
	}

	s, err := stores.Open(ctx, cfg, signer, nil)
	if err != nil {
		log.Fatalf("Failed to open stores: %v", err)
	}
	defer s.Close()

	if s.Checker == nil {
		log.Fatalf("Blob backend %s cannot check existence", cfg.BlobBackend)
	}

	log.Printf("Checking attachment references (%s records, %s blobs)...", cfg.RecordBackend, cfg.BlobBackend)
	orphans, err := posts.FindOrphans(ctx, s.Records, s.Checker, *concurrency)
	if err != nil {
		log.Fatalf("Failed to check attachments: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(orphans); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}

	log.Printf("Found %d orphaned attachment references", len(orphans))
	if len(orphans) > 0 {
		s.Close()
		os.Exit(1)
	}
}
