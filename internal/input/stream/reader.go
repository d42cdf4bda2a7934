package stream

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"proccount/internal/logger"
	"proccount/pkg/models"
)

const (
	defaultBufferSize = 1 << 20
	maxDecodeBuffer   = 64 * 1024
)

// Config configures the stream reader.
type Config struct {
	Compression string
	BufferSize  int
}

// Reader yields one top-level JSON value at a time from a file of
// concatenated JSON values.
type Reader struct {
	file        *os.File
	counter     *countingReader
	decomp      io.Closer
	iter        *jsoniter.Iterator
	compression string
	records     int64
	done        bool
}

// Open opens path for streaming.
func Open(path string, cfg Config) (*Reader, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrFileAccess, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", models.ErrFileAccess, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrFileAccess, err)
	}

	r, err := newReader(f, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.file = f

	logger.Infof("Input opened: %s (size=%d compression=%s)", path, info.Size(), r.compression)
	return r, nil
}

// NewReader streams from an already open source. The caller owns src.
func NewReader(src io.Reader, cfg Config) (*Reader, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	return newReader(src, cfg)
}

func newReader(src io.Reader, cfg Config) (*Reader, error) {
	counter := &countingReader{r: src}
	br := bufio.NewReaderSize(counter, cfg.BufferSize)

	plain, closer, mode, err := decompress(br, cfg.Compression)
	if err != nil {
		return nil, err
	}

	decodeBuffer := cfg.BufferSize
	if decodeBuffer > maxDecodeBuffer {
		decodeBuffer = maxDecodeBuffer
	}

	return &Reader{
		counter:     counter,
		decomp:      closer,
		iter:        jsoniter.Parse(jsoniter.ConfigCompatibleWithStandardLibrary, plain, decodeBuffer),
		compression: mode,
	}, nil
}

// Next returns the next top-level JSON value, or io.EOF once the stream
// is exhausted. Any other error is fatal for the stream.
func (r *Reader) Next() ([]byte, error) {
	if r.done {
		return nil, io.EOF
	}

	ordinal := r.records + 1
	var raw []byte
	switch r.iter.WhatIsNext() {
	case jsoniter.InvalidValue:
		switch r.iter.Error {
		case io.EOF:
			r.done = true
			return nil, io.EOF
		case nil:
			return nil, fmt.Errorf("%w: record %d: unexpected token", models.ErrParse, ordinal)
		default:
			return nil, fmt.Errorf("%w: record %d: %w", models.ErrParse, ordinal, r.iter.Error)
		}
	case jsoniter.NumberValue:
		// Capturing a number that runs into EOF duplicates the buffer, so
		// numbers are read as text instead.
		raw = []byte(string(r.iter.ReadNumber()))
	default:
		raw = r.iter.SkipAndReturnBytes()
	}

	switch err := r.iter.Error; err {
	case nil:
	case io.EOF:
		// The value ended exactly at end of input.
		r.done = true
	default:
		return nil, fmt.Errorf("%w: record %d: %w", models.ErrParse, ordinal, err)
	}

	r.records = ordinal
	return raw, nil
}

// Records returns how many values have been returned.
func (r *Reader) Records() int64 {
	return r.records
}

// BytesRead returns the number of raw (possibly compressed) bytes consumed.
func (r *Reader) BytesRead() int64 {
	return r.counter.n.Load()
}

// Compression returns the compression mode in effect.
func (r *Reader) Compression() string {
	return r.compression
}

// Close releases the decompressor and the file.
func (r *Reader) Close() error {
	var firstErr error
	if r.decomp != nil {
		if err := r.decomp.Close(); err != nil {
			firstErr = err
		}
		r.decomp = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.file = nil
	}
	return firstErr
}

type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
