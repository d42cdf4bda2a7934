package pipeline

// Source yields one raw JSON record at a time and io.EOF at end of stream.
type Source interface {
	Next() ([]byte, error)
	BytesRead() int64
}
