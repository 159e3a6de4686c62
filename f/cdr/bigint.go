package cdr

import (
	"math/big"

	"github.com/pkg/errors"
)

// BigIntSize returns the number of bytes WriteBigInt will write for n, when the writer is at offset.
func BigIntSize(n *big.Int, offset int) int {
	return Pad(offset, Alignment) + 4 + byteLen(n)
}

// WriteBigInt writes the magnitude of n as a length prefixed big-endian byte string.
// Unlike WriteOctets there is no trailing padding; the next value does its own alignment.
func (w *Writer) WriteBigInt(n *big.Int) error {
	if n.Sign() < 0 {
		return errors.Errorf("cdr: cannot encode negative integer")
	}
	data := n.Bytes()
	w.WriteUint32(uint32(len(data)))
	w.WriteRaw(data)
	return nil
}

// ReadBigInt reads an integer written by WriteBigInt.
func (r *Reader) ReadBigInt() (*big.Int, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(r.Remaining()) {
		return nil, errors.Wrapf(ErrMalformed, "integer of length %d with %d bytes left", n, r.Remaining())
	}
	var data []byte
	if !r.s.ReadBytes(&data, int(n)) {
		return nil, errors.Wrapf(ErrMalformed, "integer at %d", r.Pos())
	}
	return new(big.Int).SetBytes(data), nil
}

// AppendBigInts appends the encoding of each integer in xs to out and returns the result.
// Alignment is relative to len(out).
func AppendBigInts(out []byte, xs ...*big.Int) ([]byte, error) {
	w := NewWriter(out)
	for _, x := range xs {
		if err := w.WriteBigInt(x); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// ParseBigInts reads exactly n integers from data.  Trailing bytes are an error.
func ParseBigInts(data []byte, n int) ([]*big.Int, error) {
	r := NewReader(data)
	ret := make([]*big.Int, n)
	for i := range ret {
		x, err := r.ReadBigInt()
		if err != nil {
			return nil, err
		}
		ret[i] = x
	}
	if r.Remaining() > 0 {
		return nil, errors.Wrapf(ErrMalformed, "%d trailing bytes after integers", r.Remaining())
	}
	return ret, nil
}

func byteLen(n *big.Int) int {
	return (n.BitLen() + 7) / 8
}
