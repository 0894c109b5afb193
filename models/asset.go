package models

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// AssetRef identifies a unique non-fungible asset on the ledger:
// (collection creator, collection name, item name, property version).
type AssetRef struct {
	CollectionCreator string `json:"collection_creator"`
	Collection        string `json:"collection"`
	Name              string `json:"name"`
	Version           uint64 `json:"version"`
}

func (r AssetRef) Key() string {
	return fmt.Sprintf("%s::%s::%s::%d", r.CollectionCreator, r.Collection, r.Name, r.Version)
}

// CanonicalCollection normalizes a collection name so that visually identical
// names compare equal regardless of unicode composition.
func CanonicalCollection(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
