// package cdr implements the subset of the big-endian Common Data Representation used by
// DDS security tokens: aligned integers, strings, octet sequences and arbitrary precision integers.
package cdr

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/cryptobyte"
)

// Alignment is the alignment, in bytes, applied to lengths and counts.
const Alignment = 4

// ErrMalformed is returned when data can not be decoded.
var ErrMalformed = errors.New("cdr: malformed encoding")

// Pad returns the number of padding bytes needed to bring offset to a multiple of align.
// align must be a power of 2.
func Pad(offset, align int) int {
	return (align - offset%align) & (align - 1)
}

// Writer appends CDR encoded values to a buffer.
// Alignment is computed relative to the position the Writer started at, not the start of the underlying slice.
type Writer struct {
	b     *cryptobyte.Builder
	start int
}

// NewWriter returns a Writer which appends to out.
func NewWriter(out []byte) *Writer {
	return &Writer{
		b:     cryptobyte.NewBuilder(out),
		start: len(out),
	}
}

// Len returns the number of bytes written by w.
func (w *Writer) Len() int {
	return len(w.b.BytesOrPanic()) - w.start
}

// Align writes zero bytes until the position is a multiple of align.
func (w *Writer) Align(align int) {
	if n := Pad(w.Len(), align); n > 0 {
		var zeros [8]byte
		w.b.AddBytes(zeros[:n])
	}
}

// WriteUint32 aligns, then writes x.
func (w *Writer) WriteUint32(x uint32) {
	w.Align(Alignment)
	w.b.AddUint32(x)
}

// WriteRaw writes data with no length or alignment.
func (w *Writer) WriteRaw(data []byte) {
	w.b.AddBytes(data)
}

// WriteString writes a NUL terminated string prefixed by its length, including the terminator.
func (w *Writer) WriteString(s string) {
	w.WriteUint32(uint32(len(s) + 1))
	w.b.AddBytes([]byte(s))
	w.b.AddUint8(0)
	w.Align(Alignment)
}

// WriteOctets writes data prefixed by its length and followed by padding.
func (w *Writer) WriteOctets(data []byte) {
	w.WriteUint32(uint32(len(data)))
	w.b.AddBytes(data)
	w.Align(Alignment)
}

// Bytes returns the underlying slice, including anything passed to NewWriter.
func (w *Writer) Bytes() []byte {
	return w.b.BytesOrPanic()
}

// Reader consumes CDR encoded values.
type Reader struct {
	s     cryptobyte.String
	total int
}

func NewReader(data []byte) *Reader {
	return &Reader{s: cryptobyte.String(data), total: len(data)}
}

// Pos returns the number of bytes consumed.
func (r *Reader) Pos() int {
	return r.total - len(r.s)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.s)
}

func (r *Reader) Align(align int) error {
	if !r.s.Skip(Pad(r.Pos(), align)) {
		return errors.Wrapf(ErrMalformed, "padding at %d", r.Pos())
	}
	return nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.Align(Alignment); err != nil {
		return 0, err
	}
	var x uint32
	if !r.s.ReadUint32(&x) {
		return 0, errors.Wrapf(ErrMalformed, "uint32 at %d", r.Pos())
	}
	return x, nil
}

// ReadOctets reads a length prefixed octet sequence and the padding after it.
// The returned slice aliases the input.
func (r *Reader) ReadOctets() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(r.Remaining()) {
		return nil, errors.Wrapf(ErrMalformed, "octet sequence of length %d with %d bytes left", n, r.Remaining())
	}
	var data []byte
	if !r.s.ReadBytes(&data, int(n)) {
		return nil, errors.Wrapf(ErrMalformed, "octets at %d", r.Pos())
	}
	if err := r.alignTrailing(); err != nil {
		return nil, err
	}
	return data, nil
}

func (r *Reader) ReadString() (string, error) {
	data, err := r.ReadOctets()
	if err != nil {
		return "", err
	}
	if len(data) == 0 || data[len(data)-1] != 0 {
		return "", errors.Wrapf(ErrMalformed, "string is not NUL terminated")
	}
	return string(data[:len(data)-1]), nil
}

// alignTrailing consumes padding after a variable length item.
// The final item in a buffer is allowed to omit its padding.
func (r *Reader) alignTrailing() error {
	if r.Remaining() == 0 {
		return nil
	}
	return r.Align(Alignment)
}
