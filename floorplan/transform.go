package floorplan

import (
	"math"

	"github.com/paulmach/orb"
)

// AffineMatrix for 2D transforms: x' = ax + by + tx, y' = cx + dy + ty
type AffineMatrix struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	Tx float64 `json:"tx"`
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	Ty float64 `json:"ty"`
}

// Identity returns the identity transform
func Identity() AffineMatrix {
	return AffineMatrix{A: 1, D: 1}
}

// IsIdentity reports whether m leaves every point unchanged.
func (m AffineMatrix) IsIdentity() bool {
	return m == Identity()
}

// TransformPoint applies an affine transform to a point
func TransformPoint(p Point, m AffineMatrix) Point {
	return Point{
		m.A*p[0] + m.B*p[1] + m.Tx,
		m.C*p[0] + m.D*p[1] + m.Ty,
	}
}

// TransformRing applies m to every point of r, returning a new ring.
func TransformRing(r orb.Ring, m AffineMatrix) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[i] = TransformPoint(p, m)
	}
	return out
}

// MultiplyMatrices composes two affine transforms: result = m1 * m2
// Applying result is equivalent to applying m2 first, then m1
func MultiplyMatrices(m1, m2 AffineMatrix) AffineMatrix {
	return AffineMatrix{
		A:  m1.A*m2.A + m1.B*m2.C,
		B:  m1.A*m2.B + m1.B*m2.D,
		Tx: m1.A*m2.Tx + m1.B*m2.Ty + m1.Tx,
		C:  m1.C*m2.A + m1.D*m2.C,
		D:  m1.C*m2.B + m1.D*m2.D,
		Ty: m1.C*m2.Tx + m1.D*m2.Ty + m1.Ty,
	}
}

// InvertMatrix computes the inverse of an affine transform
// Returns identity if matrix is singular (determinant ~= 0)
func InvertMatrix(m AffineMatrix) AffineMatrix {
	det := m.A*m.D - m.B*m.C
	if math.Abs(det) < 1e-10 {
		return Identity()
	}

	invDet := 1.0 / det
	return AffineMatrix{
		A:  m.D * invDet,
		B:  -m.B * invDet,
		Tx: (m.B*m.Ty - m.D*m.Tx) * invDet,
		C:  -m.C * invDet,
		D:  m.A * invDet,
		Ty: (m.C*m.Tx - m.A*m.Ty) * invDet,
	}
}

// Translation creates a translation-only transform
func Translation(tx, ty float64) AffineMatrix {
	return AffineMatrix{A: 1, Tx: tx, D: 1, Ty: ty}
}

// Scale creates a scaling transform
func Scale(sx, sy float64) AffineMatrix {
	return AffineMatrix{A: sx, D: sy}
}

// CanonicalTransform returns the uniform scale+translate that fits extent into
// [lo, hi] on both axes. The min corner maps to (lo, lo) and the longer side
// spans hi-lo. An extent already inside the range maps to identity.
func CanonicalTransform(extent orb.Bound, lo, hi float64) AffineMatrix {
	if hi <= lo {
		return Identity()
	}
	if extent.Min[0] >= lo && extent.Min[1] >= lo && extent.Max[0] <= hi && extent.Max[1] <= hi {
		return Identity()
	}

	side := math.Max(extent.Max[0]-extent.Min[0], extent.Max[1]-extent.Min[1])
	if side <= 0 {
		return Translation(lo-extent.Min[0], lo-extent.Min[1])
	}
	s := (hi - lo) / side
	return MultiplyMatrices(
		Translation(lo, lo),
		MultiplyMatrices(Scale(s, s), Translation(-extent.Min[0], -extent.Min[1])),
	)
}
