package store

import "fmt"

// MaxBlobSize caps how much a store will read or write. A sealed Discord
// token is well under 1 KiB; anything near this size is not a token blob.
const MaxBlobSize = 64 << 10

// ValidateBlobSize checks that a blob does not exceed MaxBlobSize.
func ValidateBlobSize(n int) error {
	if n > MaxBlobSize {
		return fmt.Errorf("token blob too large: %d bytes (max %d)", n, MaxBlobSize)
	}
	return nil
}
