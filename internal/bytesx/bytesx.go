// Package bytesx provides functions operating on bytes.
//
// Specifically we implement these operations:
//
// 1. generating random bytes;
//
// 2. reading and writing big-endian integers;
//
// 3. flipping bits, used to simulate a noisy channel.
package bytesx

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/StupidRabbit29/Computer-Network-Data-Link-Lab/internal/runtimex"
)

// GenRandomBytes returns an array of bytes with the given size using
// a CSRNG, on success, or an error, in case of failure.
func GenRandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	_, err := rand.Read(b)
	return b, err
}

// ReadUint32 is a convenience function that reads a uint32 from a 4-byte
// buffer, returning an error if the operation failed.
func ReadUint32(buf *bytes.Buffer) (uint32, error) {
	var numBuf [4]byte
	_, err := io.ReadFull(buf, numBuf[:])
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(numBuf[:]), nil
}

// WriteUint32 is a convenience function that appends to the given buffer
// 4 bytes containing the big-endian representation of the given uint32 value.
func WriteUint32(buf *bytes.Buffer, val uint32) {
	var numBuf [4]byte
	binary.BigEndian.PutUint32(numBuf[:], val)
	buf.Write(numBuf[:])
}

// FlipBit returns a copy of b with the given bit inverted. Bit 0 is the
// most significant bit of the first byte.
func FlipBit(b []byte, bit int) []byte {
	runtimex.Assert(bit >= 0 && bit < len(b)*8, "bytesx: bit out of range")
	out := bytes.Clone(b)
	out[bit/8] ^= 0x80 >> (bit % 8)
	return out
}
