package engine

import (
	"hash"
	"hash/crc64"
	"io"
)

// ChecksumReader wraps an io.Reader to compute a CRC64 of the bytes
// read. The syncer streams every file through one of these so each
// transfer's byte count and digest can be reported without a second
// pass over the data.
type ChecksumReader struct {
	r    io.Reader
	hash hash.Hash64
	n    int64
}

// NewChecksumReader creates a ChecksumReader over r.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{
		r:    r,
		hash: crc64.New(crc64.MakeTable(crc64.ISO)),
	}
}

// Read reads from the underlying reader and updates the checksum.
func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.n += int64(n)
		cr.hash.Write(p[:n])
	}
	return n, err
}

// Checksum returns the current checksum value.
func (cr *ChecksumReader) Checksum() uint64 {
	return cr.hash.Sum64()
}

// BytesRead returns the total number of bytes read.
func (cr *ChecksumReader) BytesRead() int64 {
	return cr.n
}
