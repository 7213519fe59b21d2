package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

func HashContent(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// IsHash reports whether s looks like a HashContent result
func IsHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
