// Package shortvec implements the compact-u16 length prefix used by the
// transaction wire format for every variable length array.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

const maxEncodedBytes = 3

var (
	ErrLengthOverflow  = errors.New("length exceeds compact-u16 range")
	ErrInvalidEncoding = errors.New("invalid compact-u16 encoding")
)

// EncodeLen encodes the specified len into the writer, seven bits per byte
// with the high bit marking continuation.
func EncodeLen(w io.Writer, len int) (n int, err error) {
	if len < 0 || len > math.MaxUint16 {
		return 0, errors.Wrapf(ErrLengthOverflow, "%d", len)
	}

	var encoded [maxEncodedBytes]byte
	size := 0
	for {
		encoded[size] = byte(len & 0x7f)
		len >>= 7
		if len == 0 {
			size++
			break
		}

		encoded[size] |= 0x80
		size++
	}

	return w.Write(encoded[:size])
}

// DecodeLen decodes a compact-u16 encoded len from the reader.
func DecodeLen(r io.Reader) (val int, err error) {
	var valBuf [1]byte

	for offset := 0; offset < maxEncodedBytes; offset++ {
		if _, err := io.ReadFull(r, valBuf[:]); err != nil {
			return 0, err
		}

		val |= int(valBuf[0]&0x7f) << (offset * 7)
		if valBuf[0]&0x80 == 0 {
			// A zero byte may only appear on its own, otherwise the same
			// value would have more than one encoding
			if offset > 0 && valBuf[0] == 0 {
				return 0, errors.Wrap(ErrInvalidEncoding, "alias encoding")
			}
			if val > math.MaxUint16 {
				return 0, errors.Wrapf(ErrInvalidEncoding, "value %d overflows", val)
			}
			return val, nil
		}
	}

	return 0, errors.Wrapf(ErrInvalidEncoding, "more than %d bytes", maxEncodedBytes)
}
