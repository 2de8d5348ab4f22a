package calibration

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Matrix4 is a 4x4 transform as written in the ensemble file: four rows of four values.
type Matrix4 [][]float64

// Dense checks the shape and returns the matrix as a gonum matrix.
func (m Matrix4) Dense() (*mat.Dense, error) {
	if len(m) != 4 {
		return nil, errors.Errorf("expected 4 rows, got %d", len(m))
	}
	data := make([]float64, 0, 16)
	for i, row := range m {
		if len(row) != 4 {
			return nil, errors.Errorf("expected 4 columns in row %d, got %d", i, len(row))
		}
		data = append(data, row...)
	}
	return mat.NewDense(4, 4, data), nil
}

// Mat4 converts the matrix to the column-major single precision form used when rendering. The
// matrix acts on column vectors, so Mat4().Mul4x1(p) is the same product as the ensemble's M * p.
func (m Matrix4) Mat4() (mgl32.Mat4, error) {
	dense, err := m.Dense()
	if err != nil {
		return mgl32.Mat4{}, err
	}
	return DenseToMat4(dense), nil
}

// DenseToMat4 converts a 4x4 gonum matrix to mgl32 storage.
func DenseToMat4(dense mat.Matrix) mgl32.Mat4 {
	var out mgl32.Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out.Set(row, col, float32(dense.At(row, col)))
		}
	}
	return out
}

// IsAffine reports whether m is an affine transform whose last row is (0, 0, 0, 1) and whose
// upper 3x3 block is invertible.
func IsAffine(m *mat.Dense) bool {
	if m.At(3, 0) != 0 || m.At(3, 1) != 0 || m.At(3, 2) != 0 || m.At(3, 3) != 1 {
		return false
	}
	return mat.Det(m.Slice(0, 3, 0, 3)) != 0
}
