// Package meshgen generates the connectivity of structured meshes as
// per-rank fragments.
package meshgen

import (
	"errors"
	"fmt"

	"github.com/ritzau/distgraph/pkg/model"
)

// ErrInvalidGrid indicates a grid that cannot be split over the requested ranks.
var ErrInvalidGrid = errors.New("meshgen: invalid grid")

// StructGrid is a structured grid of CellX by CellY by CellZ cells. Cell
// (x, y, z) has id x + CellX*(y + CellY*z), and cells sharing a face are
// neighbors.
type StructGrid struct {
	CellX int `koanf:"cellx"`
	CellY int `koanf:"celly"`
	CellZ int `koanf:"cellz"`
}

// String returns a short description such as "grid 4x4x2".
func (g StructGrid) String() string {
	return fmt.Sprintf("grid %dx%dx%d", g.CellX, g.CellY, g.CellZ)
}

// Cells returns the total number of cells.
func (g StructGrid) Cells() int { return g.CellX * g.CellY * g.CellZ }

// ID returns the node id of cell (x, y, z).
func (g StructGrid) ID(x, y, z int) int64 {
	return int64(x + g.CellX*(y+g.CellY*z))
}

// Coords is the inverse of ID.
func (g StructGrid) Coords(id int64) (x, y, z int) {
	i := int(id)
	x = i % g.CellX
	y = (i / g.CellX) % g.CellY
	z = i / (g.CellX * g.CellY)
	return x, y, z
}

// slabAxis returns the slowest varying axis with more than one cell layer
// (2 = z, 1 = y, 0 = x) and its extent.
func (g StructGrid) slabAxis() (int, int) {
	switch {
	case g.CellZ > 1:
		return 2, g.CellZ
	case g.CellY > 1:
		return 1, g.CellY
	default:
		return 0, g.CellX
	}
}

// Validate checks that every dimension is positive and that the slab axis
// has at least one layer per rank.
func (g StructGrid) Validate(ranks int) error {
	if g.CellX <= 0 || g.CellY <= 0 || g.CellZ <= 0 {
		return fmt.Errorf("%w: dimensions %dx%dx%d", ErrInvalidGrid, g.CellX, g.CellY, g.CellZ)
	}
	if ranks <= 0 {
		return fmt.Errorf("%w: %d ranks", ErrInvalidGrid, ranks)
	}
	if _, n := g.slabAxis(); n < ranks {
		return fmt.Errorf("%w: %d layers on the slab axis for %d ranks", ErrInvalidGrid, n, ranks)
	}
	return nil
}

// RankOf returns the rank whose slab contains cell id.
func (g StructGrid) RankOf(id int64, ranks int) int {
	axis, n := g.slabAxis()
	x, y, z := g.Coords(id)
	layer := [3]int{x, y, z}[axis]
	// Slab r covers layers [r*n/ranks, (r+1)*n/ranks).
	return ((layer+1)*ranks - 1) / n
}

// Fragments splits the grid into one slab per rank. Every rank claims the
// cells of its slab and the face edges leaving them, so an edge crossing a
// slab boundary is claimed once from each side.
func (g StructGrid) Fragments(ranks int) (*model.Input, error) {
	if err := g.Validate(ranks); err != nil {
		return nil, err
	}

	in := &model.Input{Source: g.String(), Fragments: make([]*model.Fragment, ranks)}
	for r := range in.Fragments {
		in.Fragments[r] = model.NewFragment(r)
	}

	steps := [6][3]int{{-1, 0, 0}, {1, 0, 0}, {0, -1, 0}, {0, 1, 0}, {0, 0, -1}, {0, 0, 1}}
	for z := 0; z < g.CellZ; z++ {
		for y := 0; y < g.CellY; y++ {
			for x := 0; x < g.CellX; x++ {
				id := g.ID(x, y, z)
				r := g.RankOf(id, ranks)
				f := in.Fragments[r]
				f.AddNode(id, r)
				for _, s := range steps {
					nx, ny, nz := x+s[0], y+s[1], z+s[2]
					if nx < 0 || ny < 0 || nz < 0 || nx >= g.CellX || ny >= g.CellY || nz >= g.CellZ {
						continue
					}
					f.AddEdge(id, g.ID(nx, ny, nz))
				}
			}
		}
	}
	return in, nil
}
