// Package mesh builds the fixed grid topology a depth camera is rendered with.
package mesh

import (
	"github.com/pkg/errors"

	"go.viam.com/holo/calibration"
)

// Vertex is one depth pixel: its camera space (x, y) at unit depth and its source pixel. Depth is
// applied per frame by the renderer.
type Vertex struct {
	X   float32
	Y   float32
	Col float32
	Row float32
}

// Mesh is a width x height vertex grid with two triangles per quad of neighboring pixels.
type Mesh struct {
	Width    int
	Height   int
	Vertices []Vertex
	Indices  []uint32
}

// Build creates the mesh for a depth sensor of the given size. Each quad with top-left vertex
// b = row*width+col becomes triangles {b, b+width+1, b+1} and {b, b+width, b+width+1}.
func Build(table *calibration.LookupTable, width, height int) (*Mesh, error) {
	if table == nil {
		return nil, calibration.ErrCalibrationMissing
	}
	if table.Width != width || table.Height != height {
		return nil, errors.Errorf("lookup table is %dx%d, expected %dx%d", table.Width, table.Height, width, height)
	}
	m := &Mesh{
		Width:    width,
		Height:   height,
		Vertices: make([]Vertex, 0, width*height),
	}
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			p := table.At(col, row)
			m.Vertices = append(m.Vertices, Vertex{X: p[0], Y: p[1], Col: float32(col), Row: float32(row)})
		}
	}
	if width < 2 || height < 2 {
		return m, nil
	}
	w := uint32(width)
	m.Indices = make([]uint32, 0, 6*(width-1)*(height-1))
	for row := 0; row < height-1; row++ {
		for col := 0; col < width-1; col++ {
			b := uint32(row)*w + uint32(col)
			m.Indices = append(m.Indices,
				b, b+w+1, b+1,
				b, b+w, b+w+1,
			)
		}
	}
	return m, nil
}

// TriangleCount returns the number of triangles in the index list.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}
