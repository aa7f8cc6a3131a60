package main

import (
	"golang.org/x/crypto/sha3"

	"github.com/cool-develope/Algorand-NFTMarketplace/marketplace"
)

type registerRequest struct {
	Creator string `json:"creator"`
	marketplace.TokenInfo
}

// computeMetadataHash derives the asset's fixed 32-byte metadata hash
// from its descriptive fields, so two registrations of the same
// metadata fingerprint identically.
func computeMetadataHash(info marketplace.TokenInfo) string {
	digest := sha3.Sum256([]byte(info.UnitName + "|" + info.AssetName + "|" + info.URL))
	return string(digest[:])
}
