// Package wire encodes the batches exchanged between ranks.
//
// Every repeated section is preceded by an unsigned varint element count so
// that a message is self-describing and never relies on transport framing.
// Node identifiers are encoded through a Codec chosen by the caller.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTruncated indicates the input ended inside a value.
	ErrTruncated = errors.New("wire: truncated input")

	// ErrTrailing indicates unread bytes after a complete message.
	ErrTrailing = errors.New("wire: trailing bytes")
)

// Writer accumulates an encoded message.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity for n bytes.
func NewWriter(n int) *Writer {
	return &Writer{buf: make([]byte, 0, n)}
}

// Uvarint appends an unsigned varint.
func (w *Writer) Uvarint(v uint64) { w.buf = binary.AppendUvarint(w.buf, v) }

// Int appends a signed varint.
func (w *Writer) Int(v int) { w.buf = binary.AppendVarint(w.buf, int64(v)) }

// Count appends an element count.
func (w *Writer) Count(n int) { w.Uvarint(uint64(n)) }

// Bool appends a single byte flag.
func (w *Writer) Bool(b bool) {
	if b {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

// Float64 appends the IEEE-754 bits of f.
func (w *Writer) Float64(f float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(f))
}

// String appends a length-prefixed string.
func (w *Writer) String(s string) {
	w.Count(len(s))
	w.buf = append(w.buf, s...)
}

// Bytes returns the encoded message.
func (w *Writer) Bytes() []byte { return w.buf }

// Reader walks an encoded message.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader { return &Reader{buf: b} }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Uvarint reads an unsigned varint.
func (r *Reader) Uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: uvarint at offset %d", ErrTruncated, r.off)
	}
	r.off += n
	return v, nil
}

// Int reads a signed varint.
func (r *Reader) Int() (int, error) {
	v, n := binary.Varint(r.buf[r.off:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: varint at offset %d", ErrTruncated, r.off)
	}
	r.off += n
	return int(v), nil
}

// Count reads an element count. Every element occupies at least one byte, so
// a count larger than the unread input is rejected before any allocation.
func (r *Reader) Count() (int, error) {
	v, err := r.Uvarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(r.Remaining()) {
		return 0, fmt.Errorf("%w: count %d exceeds %d remaining bytes", ErrTruncated, v, r.Remaining())
	}
	return int(v), nil
}

// Bool reads a single byte flag.
func (r *Reader) Bool() (bool, error) {
	if r.Remaining() < 1 {
		return false, fmt.Errorf("%w: bool at offset %d", ErrTruncated, r.off)
	}
	b := r.buf[r.off]
	r.off++
	return b != 0, nil
}

// Float64 reads eight bytes of IEEE-754 bits.
func (r *Reader) Float64() (float64, error) {
	if r.Remaining() < 8 {
		return 0, fmt.Errorf("%w: float64 at offset %d", ErrTruncated, r.off)
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return math.Float64frombits(v), nil
}

// String reads a length-prefixed string.
func (r *Reader) String() (string, error) {
	n, err := r.Count()
	if err != nil {
		return "", err
	}
	s := string(r.buf[r.off : r.off+n])
	r.off += n
	return s, nil
}

// Done fails with ErrTrailing if unread bytes remain.
func (r *Reader) Done() error {
	if n := r.Remaining(); n != 0 {
		return fmt.Errorf("%w: %d bytes", ErrTrailing, n)
	}
	return nil
}
