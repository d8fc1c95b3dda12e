package batch

import (
	"bytes"
	"compress/gzip"
	"fmt"
)

// Compressor shrinks a flush payload before transmission.
type Compressor interface {
	// Compress returns the compressed form of payload.
	Compress(payload []byte) ([]byte, error)
}

// Gzip compresses payloads with compress/gzip.
type Gzip struct {
	// Level is a compress/gzip level; 0 means gzip.DefaultCompression.
	Level int
}

// Compress implements Compressor.
func (g Gzip) Compress(payload []byte) ([]byte, error) {
	level := g.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// CompressOrRaw applies c to payload, falling back to the raw payload when
// compression fails or is disabled. The bool reports whether the returned
// bytes are compressed.
func CompressOrRaw(c Compressor, payload []byte) ([]byte, bool) {
	if c == nil {
		return payload, false
	}
	out, err := c.Compress(payload)
	if err != nil {
		return payload, false
	}
	return out, true
}
