package blobs

import (
	"fmt"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// ContentCID returns the CIDv1 (raw codec, sha2-256) of data, the same form
// a PDS assigns to uploaded blobs.
func ContentCID(data []byte) (string, error) {
	c, err := cid.NewPrefixV1(cid.Raw, mh.SHA2_256).Sum(data)
	if err != nil {
		return "", fmt.Errorf("failed to compute content CID: %w", err)
	}
	return c.String(), nil
}
