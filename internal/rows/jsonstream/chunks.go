package jsonstream

import (
	"io"
)

// DefaultChunkSize is the number of bytes read from a response body at a time.
const DefaultChunkSize = 4096

// ChunkIterator yields the pieces of a response body in arrival order.
// Next returns io.EOF once the body is exhausted. The returned slice is only
// valid until the following call to Next.
type ChunkIterator interface {
	Next() ([]byte, error)
}

type readerChunks struct {
	r   io.Reader
	buf []byte
	err error
}

// ReaderChunks reads r in chunks of at most size bytes, reusing one buffer.
// A size <= 0 means DefaultChunkSize.
func ReaderChunks(r io.Reader, size int) ChunkIterator {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &readerChunks{r: r, buf: make([]byte, size)}
}

func (rc *readerChunks) Next() ([]byte, error) {
	for rc.err == nil {
		n, err := rc.r.Read(rc.buf)
		rc.err = err
		if n > 0 {
			return rc.buf[:n], nil
		}
	}
	return nil, rc.err
}

type sliceChunks struct {
	chunks []string
	next   int
}

// SliceChunks yields the given strings as chunks, one per call.
func SliceChunks(chunks ...string) ChunkIterator {
	return &sliceChunks{chunks: chunks}
}

func (sc *sliceChunks) Next() ([]byte, error) {
	if sc.next >= len(sc.chunks) {
		return nil, io.EOF
	}
	c := sc.chunks[sc.next]
	sc.next++
	return []byte(c), nil
}
