package wire

import (
	"encoding/binary"
	"fmt"
)

// Codec encodes one identifier type.
type Codec[T any] interface {
	// Append appends the encoding of v to dst.
	Append(dst []byte, v T) []byte

	// Decode reads one value from the front of src and returns the number of
	// bytes consumed.
	Decode(src []byte) (T, int, error)
}

// Int64 encodes int64 identifiers as zigzag varints.
var Int64 Codec[int64] = int64Codec{}

// Int encodes int identifiers as zigzag varints.
var Int Codec[int] = intCodec{}

// String encodes string identifiers with a uvarint length prefix.
var String Codec[string] = stringCodec{}

type int64Codec struct{}

func (int64Codec) Append(dst []byte, v int64) []byte { return binary.AppendVarint(dst, v) }

func (int64Codec) Decode(src []byte) (int64, int, error) {
	v, n := binary.Varint(src)
	if n <= 0 {
		return 0, 0, fmt.Errorf("%w: int64 id", ErrTruncated)
	}
	return v, n, nil
}

type intCodec struct{}

func (intCodec) Append(dst []byte, v int) []byte { return binary.AppendVarint(dst, int64(v)) }

func (intCodec) Decode(src []byte) (int, int, error) {
	v, n := binary.Varint(src)
	if n <= 0 {
		return 0, 0, fmt.Errorf("%w: int id", ErrTruncated)
	}
	return int(v), n, nil
}

type stringCodec struct{}

func (stringCodec) Append(dst []byte, v string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(v)))
	return append(dst, v...)
}

func (stringCodec) Decode(src []byte) (string, int, error) {
	l, n := binary.Uvarint(src)
	if n <= 0 || l > uint64(len(src)-n) {
		return "", 0, fmt.Errorf("%w: string id", ErrTruncated)
	}
	end := n + int(l)
	return string(src[n:end]), end, nil
}

// Put appends one identifier.
func Put[T any](w *Writer, c Codec[T], v T) {
	w.buf = c.Append(w.buf, v)
}

// PutSlice appends a count-prefixed run of identifiers.
func PutSlice[T any](w *Writer, c Codec[T], vs []T) {
	w.Count(len(vs))
	for _, v := range vs {
		Put(w, c, v)
	}
}

// Get reads one identifier.
func Get[T any](r *Reader, c Codec[T]) (T, error) {
	v, n, err := c.Decode(r.buf[r.off:])
	if err != nil {
		var zero T
		return zero, fmt.Errorf("offset %d: %w", r.off, err)
	}
	r.off += n
	return v, nil
}

// GetSlice reads a count-prefixed run of identifiers.
func GetSlice[T any](r *Reader, c Codec[T]) ([]T, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		v, err := Get(r, c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeIDs encodes a standalone count-prefixed identifier batch.
func EncodeIDs[T any](c Codec[T], ids []T) []byte {
	w := NewWriter(1 + len(ids)*2)
	PutSlice(w, c, ids)
	return w.Bytes()
}

// DecodeIDs decodes a batch produced by EncodeIDs.
func DecodeIDs[T any](c Codec[T], b []byte) ([]T, error) {
	r := NewReader(b)
	ids, err := GetSlice(r, c)
	if err != nil {
		return nil, err
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return ids, nil
}
