// Package compression frames persisted store documents with zstd.
package compression

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// minSize is the smallest document worth compressing.
const minSize = 128

var magic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor returns a compressor for the given level.
// Level 0 disables compression on write; decompression is always available so
// documents written with compression on can be read with it off.
func NewCompressor(level int) (*Compressor, error) {
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	c := &Compressor{decoder: decoder}
	if level == 0 {
		return c, nil
	}

	var encoderLevel zstd.EncoderLevel
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 2:
		encoderLevel = zstd.SpeedDefault
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		decoder.Close()
		return nil, fmt.Errorf("unsupported compression level %d", level)
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		decoder.Close()
		return nil, err
	}
	c.encoder = encoder
	return c, nil
}

func (c *Compressor) Enabled() bool { return c.encoder != nil }

// Compress frames data when enabled and when that makes it smaller.
func (c *Compressor) Compress(data []byte) []byte {
	if c.encoder == nil || len(data) < minSize {
		return data
	}

	compressed := c.encoder.EncodeAll(data, make([]byte, 0, len(data)))

	if len(compressed) >= len(data) {
		return data
	}

	return compressed
}

// Decompress unwraps a zstd frame; anything else is returned unchanged.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	if !IsCompressed(data) {
		return data, nil
	}

	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	return decompressed, nil
}

// IsCompressed reports whether data starts with the zstd frame magic number.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

func (c *Compressor) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
