package liegroup

import "math"

// quat is a unit quaternion (x, y, z, w).
type quat [4]float64

func quatOf(q []float64) quat { return quat{q[0], q[1], q[2], q[3]} }

func (q quat) conj() quat { return quat{-q[0], -q[1], -q[2], q[3]} }

func (q *quat) normalize() {
	n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if n == 0 {
		*q = quat{0, 0, 0, 1}
		return
	}
	for i := range q {
		q[i] /= n
	}
}

func (q quat) copyTo(dst []float64) {
	dst[0], dst[1], dst[2], dst[3] = q[0], q[1], q[2], q[3]
}

func quatMul(a, b quat) quat {
	return quat{
		a[3]*b[0] + a[0]*b[3] + a[1]*b[2] - a[2]*b[1],
		a[3]*b[1] - a[0]*b[2] + a[1]*b[3] + a[2]*b[0],
		a[3]*b[2] + a[0]*b[1] - a[1]*b[0] + a[2]*b[3],
		a[3]*b[3] - a[0]*b[0] - a[1]*b[1] - a[2]*b[2],
	}
}

// rotation fills m (row major) with the rotation matrix of the quaternion.
func (q quat) rotation(m *[9]float64) {
	x, y, z, w := q[0], q[1], q[2], q[3]
	m[0] = 1 - 2*(y*y+z*z)
	m[1] = 2 * (x*y - z*w)
	m[2] = 2 * (x*z + y*w)
	m[3] = 2 * (x*y + z*w)
	m[4] = 1 - 2*(x*x+z*z)
	m[5] = 2 * (y*z - x*w)
	m[6] = 2 * (x*z - y*w)
	m[7] = 2 * (y*z + x*w)
	m[8] = 1 - 2*(x*x+y*y)
}

// expSO3 computes the quaternion of the rotation exp([v]ₓ).
func expSO3(v []float64, out *quat) {
	theta2 := v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
	theta := math.Sqrt(theta2)
	var k float64
	if theta < 1e-8 {
		// sin(θ/2)/θ to second order
		k = 0.5 - theta2/48
	} else {
		k = math.Sin(theta/2) / theta
	}
	out[0] = k * v[0]
	out[1] = k * v[1]
	out[2] = k * v[2]
	out[3] = math.Cos(theta / 2)
}

// logSO3 computes the rotation vector of a unit quaternion, choosing the
// representative on the shortest geodesic.
func logSO3(q quat, out []float64) {
	if q[3] < 0 {
		for i := range q {
			q[i] = -q[i]
		}
	}
	n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2])
	if n < 1e-12 {
		out[0], out[1], out[2] = 2*q[0], 2*q[1], 2*q[2]
		return
	}
	theta := 2 * math.Atan2(n, q[3])
	k := theta / n
	out[0], out[1], out[2] = k*q[0], k*q[1], k*q[2]
}

// jlogInvSO3 fills m (row major) with the inverse Jacobian of the SO(3)
// logarithm evaluated at the rotation vector d: the right Jacobian inverse for
// sign = +1, the left one for sign = -1 (which equals the right one at -d).
//
//	Jr⁻¹(φ) = I + ½[φ]ₓ + (1/θ² − (1+cos θ)/(2θ sin θ)) [φ]ₓ²
func jlogInvSO3(d []float64, sign float64, m *[9]float64) {
	x, y, z := sign*d[0], sign*d[1], sign*d[2]
	theta2 := x*x + y*y + z*z
	theta := math.Sqrt(theta2)
	var c float64
	if theta < 1e-5 {
		c = 1.0/12 + theta2/720
	} else {
		c = 1/theta2 - (1+math.Cos(theta))/(2*theta*math.Sin(theta))
	}
	// I + ½[φ]ₓ + c[φ]ₓ²
	xx, yy, zz := x*x, y*y, z*z
	m[0] = 1 + c*(-yy-zz)
	m[1] = -0.5*z + c*x*y
	m[2] = 0.5*y + c*x*z
	m[3] = 0.5*z + c*x*y
	m[4] = 1 + c*(-xx-zz)
	m[5] = -0.5*x + c*y*z
	m[6] = -0.5*y + c*x*z
	m[7] = 0.5*x + c*y*z
	m[8] = 1 + c*(-xx-yy)
}

func cosSin(a float64) (float64, float64) { return math.Cos(a), math.Sin(a) }

func angleOf(c, s float64) float64 { return math.Atan2(s, c) }
