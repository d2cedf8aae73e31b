package adjacency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexMap_AllocatesMonotonically(t *testing.T) {
	m := NewIndexMap[int64]()

	assert.Equal(t, 0, m.LocalIndexOf(40))
	assert.Equal(t, 1, m.LocalIndexOf(10))
	assert.Equal(t, 2, m.LocalIndexOf(30))
	// Existing ids keep their index.
	assert.Equal(t, 1, m.LocalIndexOf(10))
	assert.Equal(t, 3, m.Count())
	assert.Equal(t, []int64{40, 10, 30}, m.IDs())
}

func TestIndexMap_GlobalIDOf(t *testing.T) {
	m := NewIndexMap[string]()
	m.LocalIndexOf("a")
	m.LocalIndexOf("b")

	id, err := m.GlobalIDOf(1)
	require.NoError(t, err)
	assert.Equal(t, "b", id)

	_, err = m.GlobalIDOf(2)
	assert.ErrorIs(t, err, ErrInvalidIndex)

	_, err = m.GlobalIDOf(-1)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestIndexMap_IndexOfDoesNotAllocate(t *testing.T) {
	m := NewIndexMap[int]()

	_, ok := m.IndexOf(7)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Count())
}

func TestIndexMap_Reset(t *testing.T) {
	m := NewIndexMap[int]()
	m.LocalIndexOf(5)
	m.LocalIndexOf(6)

	m.Reset()

	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, m.LocalIndexOf(6))
}

func TestIndexMap_IDsIsCopy(t *testing.T) {
	m := NewIndexMap[int]()
	m.LocalIndexOf(1)

	ids := m.IDs()
	ids[0] = 99

	id, err := m.GlobalIDOf(0)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}
