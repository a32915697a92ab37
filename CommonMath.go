package velcro

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// IsValid reports whether x is neither NaN nor infinite.
func IsValid(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func clampFloat(a, low, high float64) float64 {
	return math.Max(low, math.Min(a, high))
}

///////////////////////////////////////////////////////////////////////////////
// Vec2
///////////////////////////////////////////////////////////////////////////////

// Vec2 is a 2D column vector.
type Vec2 struct {
	X, Y float64
}

func MakeVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v *Vec2) SetZero() {
	v.X = 0.0
	v.Y = 0.0
}

func (v Vec2) Add(o Vec2) Vec2    { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2    { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Mul(s float64) Vec2 { return Vec2{s * v.X, s * v.Y} }
func (v Vec2) Neg() Vec2          { return Vec2{-v.X, -v.Y} }

func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// Cross is the 2D cross product, a scalar.
func (v Vec2) Cross(o Vec2) float64 { return v.X*o.Y - v.Y*o.X }

// CrossScalar returns v x s, a vector.
func (v Vec2) CrossScalar(s float64) Vec2 { return Vec2{s * v.Y, -s * v.X} }

// CrossSV returns s x v, a vector.
func CrossSV(s float64, v Vec2) Vec2 { return Vec2{-s * v.Y, s * v.X} }

func (v Vec2) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

func (v Vec2) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Normalize converts v into a unit vector and returns the previous length.
func (v *Vec2) Normalize() float64 {
	length := v.Length()
	if length < epsilon {
		return 0.0
	}

	inv := 1.0 / length
	v.X *= inv
	v.Y *= inv
	return length
}

func (v Vec2) Normalized() Vec2 {
	v.Normalize()
	return v
}

func (v Vec2) IsValid() bool {
	return IsValid(v.X) && IsValid(v.Y)
}

// Skew returns the perpendicular vector, the result of 1 x v.
func (v Vec2) Skew() Vec2 {
	return Vec2{-v.Y, v.X}
}

func (v Vec2) Abs() Vec2 {
	return Vec2{math.Abs(v.X), math.Abs(v.Y)}
}

func (v Vec2) Min(o Vec2) Vec2 {
	return Vec2{math.Min(v.X, o.X), math.Min(v.Y, o.Y)}
}

func (v Vec2) Max(o Vec2) Vec2 {
	return Vec2{math.Max(v.X, o.X), math.Max(v.Y, o.Y)}
}

func (v Vec2) Distance(o Vec2) float64 {
	return v.Sub(o).Length()
}

func (v Vec2) DistanceSquared(o Vec2) float64 {
	return v.Sub(o).LengthSquared()
}

///////////////////////////////////////////////////////////////////////////////
// Vec3
///////////////////////////////////////////////////////////////////////////////

// Vec3 is a 3D column vector, used by the joint solvers.
type Vec3 struct {
	X, Y, Z float64
}

func MakeVec3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v *Vec3) SetZero() {
	v.X, v.Y, v.Z = 0, 0, 0
}

func (v Vec3) Add(o Vec3) Vec3    { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3    { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Mul(s float64) Vec3 { return Vec3{s * v.X, s * v.Y, s * v.Z} }
func (v Vec3) Neg() Vec3          { return Vec3{-v.X, -v.Y, -v.Z} }
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{v.Y*o.Z - v.Z*o.Y, v.Z*o.X - v.X*o.Z, v.X*o.Y - v.Y*o.X}
}

///////////////////////////////////////////////////////////////////////////////
// Mat22 / Mat33
///////////////////////////////////////////////////////////////////////////////

// Mat22 is a 2-by-2 matrix stored in column-major order.
type Mat22 struct {
	Ex, Ey Vec2
}

func MakeMat22(a11, a12, a21, a22 float64) Mat22 {
	return Mat22{Ex: Vec2{a11, a21}, Ey: Vec2{a12, a22}}
}

func (m *Mat22) SetZero() {
	m.Ex.SetZero()
	m.Ey.SetZero()
}

func (m Mat22) gl() mgl64.Mat2 {
	return mgl64.Mat2{m.Ex.X, m.Ex.Y, m.Ey.X, m.Ey.Y}
}

func mat22FromGL(g mgl64.Mat2) Mat22 {
	return Mat22{Ex: Vec2{g[0], g[1]}, Ey: Vec2{g[2], g[3]}}
}

// Inverse returns the inverse of m, or the zero matrix when m is singular.
func (m Mat22) Inverse() Mat22 {
	return mat22FromGL(m.gl().Inv())
}

// Solve solves A * x = b, where b is a column vector. Singular matrices yield
// the zero vector.
func (m Mat22) Solve(b Vec2) Vec2 {
	x := m.gl().Inv().Mul2x1(mgl64.Vec2{b.X, b.Y})
	return Vec2{x[0], x[1]}
}

func (m Mat22) MulVec(v Vec2) Vec2 {
	return Vec2{m.Ex.X*v.X + m.Ey.X*v.Y, m.Ex.Y*v.X + m.Ey.Y*v.Y}
}

// Mat33 is a 3-by-3 matrix stored in column-major order.
type Mat33 struct {
	Ex, Ey, Ez Vec3
}

func (m *Mat33) SetZero() {
	m.Ex.SetZero()
	m.Ey.SetZero()
	m.Ez.SetZero()
}

func (m Mat33) gl() mgl64.Mat3 {
	return mgl64.Mat3{
		m.Ex.X, m.Ex.Y, m.Ex.Z,
		m.Ey.X, m.Ey.Y, m.Ey.Z,
		m.Ez.X, m.Ez.Y, m.Ez.Z,
	}
}

func (m Mat33) MulVec(v Vec3) Vec3 {
	return m.Ex.Mul(v.X).Add(m.Ey.Mul(v.Y)).Add(m.Ez.Mul(v.Z))
}

// MulVec2 multiplies the upper 2-by-2 block with v.
func (m Mat33) MulVec2(v Vec2) Vec2 {
	return Vec2{m.Ex.X*v.X + m.Ey.X*v.Y, m.Ex.Y*v.X + m.Ey.Y*v.Y}
}

// Solve33 solves A * x = b. Singular matrices yield the zero vector.
func (m Mat33) Solve33(b Vec3) Vec3 {
	x := m.gl().Inv().Mul3x1(mgl64.Vec3{b.X, b.Y, b.Z})
	return Vec3{x[0], x[1], x[2]}
}

// Solve22 solves the upper 2-by-2 block of A * x = b.
func (m Mat33) Solve22(b Vec2) Vec2 {
	return Mat22{
		Ex: Vec2{m.Ex.X, m.Ex.Y},
		Ey: Vec2{m.Ey.X, m.Ey.Y},
	}.Solve(b)
}

// Inverse22 returns the inverse of the upper 2-by-2 block as a Mat33 with a
// zeroed third row and column.
func (m Mat33) Inverse22() Mat33 {
	inv := Mat22{
		Ex: Vec2{m.Ex.X, m.Ex.Y},
		Ey: Vec2{m.Ey.X, m.Ey.Y},
	}.Inverse()

	return Mat33{
		Ex: Vec3{inv.Ex.X, inv.Ex.Y, 0},
		Ey: Vec3{inv.Ey.X, inv.Ey.Y, 0},
	}
}

// SymInverse33 returns the inverse of a symmetric matrix.
func (m Mat33) SymInverse33() Mat33 {
	g := m.gl().Inv()
	return Mat33{
		Ex: Vec3{g[0], g[1], g[2]},
		Ey: Vec3{g[3], g[4], g[5]},
		Ez: Vec3{g[6], g[7], g[8]},
	}
}

///////////////////////////////////////////////////////////////////////////////
// Rot / Transform / Sweep
///////////////////////////////////////////////////////////////////////////////

// Rot is a rotation stored as sine and cosine.
type Rot struct {
	S, C float64
}

func MakeRot(angle float64) Rot {
	return Rot{S: math.Sin(angle), C: math.Cos(angle)}
}

func IdentityRot() Rot {
	return Rot{S: 0, C: 1}
}

func (q Rot) Angle() float64 {
	return math.Atan2(q.S, q.C)
}

func (q Rot) XAxis() Vec2 { return Vec2{q.C, q.S} }
func (q Rot) YAxis() Vec2 { return Vec2{-q.S, q.C} }

// Mul composes two rotations, q * r.
func (q Rot) Mul(r Rot) Rot {
	return Rot{
		S: q.S*r.C + q.C*r.S,
		C: q.C*r.C - q.S*r.S,
	}
}

// MulT composes the inverse of q with r, transpose(q) * r.
func (q Rot) MulT(r Rot) Rot {
	return Rot{
		S: q.C*r.S - q.S*r.C,
		C: q.C*r.C + q.S*r.S,
	}
}

// MulVec rotates v.
func (q Rot) MulVec(v Vec2) Vec2 {
	return Vec2{q.C*v.X - q.S*v.Y, q.S*v.X + q.C*v.Y}
}

// MulTVec rotates v by the inverse rotation.
func (q Rot) MulTVec(v Vec2) Vec2 {
	return Vec2{q.C*v.X + q.S*v.Y, -q.S*v.X + q.C*v.Y}
}

// Transform holds a translation and a rotation.
type Transform struct {
	P Vec2
	Q Rot
}

func IdentityTransform() Transform {
	return Transform{Q: IdentityRot()}
}

func MakeTransform(position Vec2, angle float64) Transform {
	return Transform{P: position, Q: MakeRot(angle)}
}

func (t Transform) MulVec(v Vec2) Vec2 {
	return t.Q.MulVec(v).Add(t.P)
}

func (t Transform) MulTVec(v Vec2) Vec2 {
	return t.Q.MulTVec(v.Sub(t.P))
}

// Mul composes two transforms, A * B.
func (t Transform) Mul(b Transform) Transform {
	return Transform{
		Q: t.Q.Mul(b.Q),
		P: t.Q.MulVec(b.P).Add(t.P),
	}
}

// MulT composes inverse(A) * B.
func (t Transform) MulT(b Transform) Transform {
	return Transform{
		Q: t.Q.MulT(b.Q),
		P: t.Q.MulTVec(b.P.Sub(t.P)),
	}
}

// Sweep describes the motion of a body or shape for time of impact. Positions
// are of the center of mass.
type Sweep struct {
	LocalCenter Vec2
	C0, C       Vec2
	A0, A       float64

	// Fraction of the current time step in the range [0,1]. C0 and A0 are the
	// positions at Alpha0.
	Alpha0 float64
}

// Transform returns the interpolated transform at beta in [0,1], where 0
// means Alpha0.
func (s Sweep) Transform(beta float64) Transform {
	var xf Transform
	xf.P = s.C0.Mul(1.0 - beta).Add(s.C.Mul(beta))
	xf.Q = MakeRot((1.0-beta)*s.A0 + beta*s.A)
	xf.P = xf.P.Sub(xf.Q.MulVec(s.LocalCenter))
	return xf
}

// Advance moves the sweep start forward to alpha.
func (s *Sweep) Advance(alpha float64) {
	assert(s.Alpha0 < 1.0)
	beta := (alpha - s.Alpha0) / (1.0 - s.Alpha0)
	s.C0 = s.C0.Add(s.C.Sub(s.C0).Mul(beta))
	s.A0 += beta * (s.A - s.A0)
	s.Alpha0 = alpha
}

// Normalize keeps the angles in a bounded range.
func (s *Sweep) Normalize() {
	d := 2.0 * math.Pi * math.Floor(s.A0/(2.0*math.Pi))
	s.A0 -= d
	s.A -= d
}
