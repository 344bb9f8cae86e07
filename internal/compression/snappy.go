package compression

import (
	"fmt"

	"github.com/golang/snappy"
)

// MaxDecodedSize bounds the output of Decompress. Cached payloads come from a
// shared store, so a corrupt header must not trigger a huge allocation.
const MaxDecodedSize = 64 << 20

// SnappyCompressor compresses cache payloads with Snappy block encoding
type SnappyCompressor struct{}

// NewSnappyCompressor creates a new Snappy compressor
func NewSnappyCompressor() *SnappyCompressor {
	return &SnappyCompressor{}
}

// Compress encodes data. Empty input is returned as is.
func (s *SnappyCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	return snappy.Encode(nil, data), nil
}

// Decompress decodes a Snappy block, refusing blocks that claim more than MaxDecodedSize
func (s *SnappyCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %w", err)
	}
	if n > MaxDecodedSize {
		return nil, fmt.Errorf("snappy decompress failed: decoded size %d exceeds limit %d", n, MaxDecodedSize)
	}

	decoded, err := snappy.Decode(make([]byte, n), data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %w", err)
	}
	return decoded, nil
}

// Algorithm returns Snappy
func (s *SnappyCompressor) Algorithm() Algorithm {
	return Snappy
}
