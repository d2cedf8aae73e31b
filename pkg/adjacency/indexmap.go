package adjacency

import "fmt"

// IndexMap maps global node identifiers to dense process-local indices.
//
// Indices are handed out in first-seen order starting at zero and are never
// reassigned until Reset. IndexMap is not safe for concurrent writers.
type IndexMap[T comparable] struct {
	toIdx map[T]int
	toID  []T
}

// NewIndexMap creates an empty IndexMap.
func NewIndexMap[T comparable]() *IndexMap[T] {
	return &IndexMap[T]{
		toIdx: make(map[T]int),
	}
}

// LocalIndexOf returns the local index of id, allocating the next free index
// if id has not been seen before.
func (m *IndexMap[T]) LocalIndexOf(id T) int {
	if idx, ok := m.toIdx[id]; ok {
		return idx
	}
	idx := len(m.toID)
	m.toIdx[id] = idx
	m.toID = append(m.toID, id)
	return idx
}

// IndexOf looks up the local index of id without allocating one.
func (m *IndexMap[T]) IndexOf(id T) (int, bool) {
	idx, ok := m.toIdx[id]
	return idx, ok
}

// GlobalIDOf returns the global identifier stored at idx.
func (m *IndexMap[T]) GlobalIDOf(idx int) (T, error) {
	if idx < 0 || idx >= len(m.toID) {
		var zero T
		return zero, fmt.Errorf("%w: %d (count %d)", ErrInvalidIndex, idx, len(m.toID))
	}
	return m.toID[idx], nil
}

// Count returns the number of distinct identifiers mapped so far.
func (m *IndexMap[T]) Count() int {
	return len(m.toID)
}

// IDs returns a copy of all identifiers in local-index order.
func (m *IndexMap[T]) IDs() []T {
	out := make([]T, len(m.toID))
	copy(out, m.toID)
	return out
}

// Reset discards every mapping.
func (m *IndexMap[T]) Reset() {
	m.toIdx = make(map[T]int)
	m.toID = nil
}
