// Package geom implements the rigid-body rotations used to realize a genome
// as an atomic structure: Euler rotations about a point-set centroid and
// axis-angle (Rodrigues) rotations about an arbitrary pivot.
package geom

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrZeroAxis reports a degenerate rotation axis. It is a caller error: bond
// axes and user-supplied axes must have nonzero length.
var ErrZeroAxis = errors.New("rotation axis has zero length")

// Centroid is the unweighted mean of the points.
func Centroid(points [][3]float64) [3]float64 {
	var c [3]float64
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c[0] += p[0]
		c[1] += p[1]
		c[2] += p[2]
	}
	n := float64(len(points))
	c[0] /= n
	c[1] /= n
	c[2] /= n
	return c
}

// EulerMatrix builds the combined rotation matrix R = Rz(γ)·Ry(β)·Rx(α) from
// Euler angles in degrees, with the standard right-handed rotation about each
// axis.
func EulerMatrix(eulerDeg [3]float64) *mat.Dense {
	alpha := eulerDeg[0] * math.Pi / 180
	beta := eulerDeg[1] * math.Pi / 180
	gamma := eulerDeg[2] * math.Pi / 180

	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, math.Cos(alpha), -math.Sin(alpha),
		0, math.Sin(alpha), math.Cos(alpha),
	})
	ry := mat.NewDense(3, 3, []float64{
		math.Cos(beta), 0, math.Sin(beta),
		0, 1, 0,
		-math.Sin(beta), 0, math.Cos(beta),
	})
	rz := mat.NewDense(3, 3, []float64{
		math.Cos(gamma), -math.Sin(gamma), 0,
		math.Sin(gamma), math.Cos(gamma), 0,
		0, 0, 1,
	})

	var zy, r mat.Dense
	zy.Mul(rz, ry)
	r.Mul(&zy, rx)
	return &r
}

// RotateAboutCentroid rotates the points rigidly about their own centroid by
// the given Euler angles in degrees, composed X then Y then Z:
// p' = R·(p − c) + c with R = Rz·Ry·Rx.
func RotateAboutCentroid(points [][3]float64, eulerDeg [3]float64) [][3]float64 {
	return rotateAboutPoint(points, Centroid(points), EulerMatrix(eulerDeg))
}

// RotateAboutAxis rotates the points about the line through pivot along axis
// by angleDeg degrees, using Rodrigues' formula
// R = I + sin(θ)K + (1−cos(θ))K² with K the skew-symmetric cross-product
// matrix of the unit axis.
func RotateAboutAxis(points [][3]float64, pivot, axis [3]float64, angleDeg float64) ([][3]float64, error) {
	norm := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if norm < 1e-12 {
		return nil, ErrZeroAxis
	}
	ux := axis[0] / norm
	uy := axis[1] / norm
	uz := axis[2] / norm

	theta := angleDeg * math.Pi / 180
	sin := math.Sin(theta)
	cos := math.Cos(theta)

	k := mat.NewDense(3, 3, []float64{
		0, -uz, uy,
		uz, 0, -ux,
		-uy, ux, 0,
	})
	var k2 mat.Dense
	k2.Mul(k, k)

	r := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			identity := 0.0
			if i == j {
				identity = 1.0
			}
			r.Set(i, j, identity+sin*k.At(i, j)+(1-cos)*k2.At(i, j))
		}
	}
	return rotateAboutPoint(points, pivot, r), nil
}

func rotateAboutPoint(points [][3]float64, pivot [3]float64, r *mat.Dense) [][3]float64 {
	out := make([][3]float64, len(points))
	for i, p := range points {
		rel := mat.NewVecDense(3, []float64{p[0] - pivot[0], p[1] - pivot[1], p[2] - pivot[2]})
		var rotated mat.VecDense
		rotated.MulVec(r, rel)
		out[i] = [3]float64{
			rotated.AtVec(0) + pivot[0],
			rotated.AtVec(1) + pivot[1],
			rotated.AtVec(2) + pivot[2],
		}
	}
	return out
}
