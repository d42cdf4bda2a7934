package stream

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"proccount/pkg/models"
)

// Compression names accepted in Config.
const (
	CompressionAuto = "auto"
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Detect sniffs the leading bytes of br without consuming them.
func Detect(br *bufio.Reader) string {
	head, _ := br.Peek(4)
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(head, lz4Magic):
		return CompressionLZ4
	case bytes.HasPrefix(head, gzipMagic):
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// decompress wraps br according to mode. The returned closer may be nil.
func decompress(br *bufio.Reader, mode string) (io.Reader, io.Closer, string, error) {
	if mode == "" || mode == CompressionAuto {
		mode = Detect(br)
	}

	switch mode {
	case CompressionNone:
		return br, nil, mode, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, mode, fmt.Errorf("%w: gzip header: %w", models.ErrParse, err)
		}
		return zr, zr, mode, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, mode, fmt.Errorf("%w: zstd reader: %w", models.ErrParse, err)
		}
		rc := zr.IOReadCloser()
		return rc, rc, mode, nil
	case CompressionLZ4:
		return lz4.NewReader(br), nil, mode, nil
	default:
		return nil, nil, mode, fmt.Errorf("unknown compression %q", mode)
	}
}
