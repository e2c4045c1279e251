// Package p224 implements the NIST P-224 curve arithmetic used by the lock's
// SPAKE2 pairing exchange.
//
// Points are kept in Jacobian coordinates while computing and converted to
// affine coordinates at the boundaries. Every point that leaves the package
// through Decode, Affine or ScalarMult is checked against the curve equation
// y² = x³ + ax + b (mod p).
package p224

import (
	"math/big"
)

const (
	// CoordinateSize is the encoded size of one field element in bytes.
	CoordinateSize = 28

	// PointSize is the encoded size of an affine point (x || y) in bytes.
	PointSize = 2 * CoordinateSize

	// scalarBits is the number of precomputed doublings kept per base point.
	scalarBits = 224
)

// Curve parameters.
var (
	P  = mustHex("ffffffffffffffffffffffffffffffff000000000000000000000001")
	A  = mustHex("fffffffffffffffffffffffffffffffefffffffffffffffffffffffe")
	B  = mustHex("b4050a850c04b3abf54132565044b0b7d7bfd8ba270b39432355ffb4")
	Gx = mustHex("b70e0cbd6bb4bf7f321390b94a03c1d356c21122343280d6115c1d21")
	Gy = mustHex("bd376388b5f723fb4c22dfe6cd4375a05a07476444d5819985007e34")
)

var (
	one   = big.NewInt(1)
	two   = big.NewInt(2)
	three = big.NewInt(3)
	eight = big.NewInt(8)
)

// Point is an affine curve point.
type Point struct {
	X, Y *big.Int
}

// JacobianPoint represents the affine point (X/Z², Y/Z³).
// Z == 0 is the point at infinity.
type JacobianPoint struct {
	X, Y, Z *big.Int
}

// Generator returns the curve base point G.
func Generator() *Point {
	return &Point{X: new(big.Int).Set(Gx), Y: new(big.Int).Set(Gy)}
}

// NewPoint builds an affine point from big-endian coordinates and validates it.
func NewPoint(x, y []byte) (*Point, error) {
	p := &Point{X: new(big.Int).SetBytes(x), Y: new(big.Int).SetBytes(y)}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Infinity returns the point at infinity, (1, 1, 0).
func Infinity() *JacobianPoint {
	return &JacobianPoint{X: big.NewInt(1), Y: big.NewInt(1), Z: new(big.Int)}
}

// IsInfinity reports whether j is the point at infinity.
func (j *JacobianPoint) IsInfinity() bool {
	return j.Z.Sign() == 0
}

// Validate checks that p is present, reduced, and on the curve.
func (p *Point) Validate() error {
	if p == nil || p.X == nil || p.Y == nil {
		return ErrMissingCoordinate
	}
	if p.X.Sign() < 0 || p.Y.Sign() < 0 {
		return ErrNegativeCoordinate
	}
	if p.X.Cmp(P) >= 0 || p.Y.Cmp(P) >= 0 {
		return ErrCoordinateRange
	}

	// y² == x³ + ax + b
	lhs := mulMod(p.Y, p.Y)
	rhs := mulMod(mulMod(p.X, p.X), p.X)
	rhs = addMod(rhs, mulMod(A, p.X))
	rhs = addMod(rhs, B)
	if lhs.Cmp(rhs) != 0 {
		return ErrNotOnCurve
	}
	return nil
}

// Equal reports whether p and q are the same affine point.
func (p *Point) Equal(q *Point) bool {
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

// Jacobian lifts p to Jacobian coordinates with Z = 1.
func (p *Point) Jacobian() *JacobianPoint {
	return &JacobianPoint{
		X: new(big.Int).Set(p.X),
		Y: new(big.Int).Set(p.Y),
		Z: big.NewInt(1),
	}
}

// Affine converts j to affine coordinates and validates the result.
func (j *JacobianPoint) Affine() (*Point, error) {
	if j.IsInfinity() {
		return nil, ErrPointAtInfinity
	}
	zInv := new(big.Int).ModInverse(j.Z, P)
	if zInv == nil {
		return nil, ErrPointAtInfinity
	}
	zInv2 := mulMod(zInv, zInv)
	zInv3 := mulMod(zInv2, zInv)

	p := &Point{X: mulMod(j.X, zInv2), Y: mulMod(j.Y, zInv3)}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Double returns 2·j.
func Double(j *JacobianPoint) *JacobianPoint {
	if j.IsInfinity() || j.Y.Sign() == 0 {
		return Infinity()
	}

	xx := mulMod(j.X, j.X)
	yy := mulMod(j.Y, j.Y)
	yyyy := mulMod(yy, yy)
	zz := mulMod(j.Z, j.Z)

	// S = 4·X·Y²
	s := mulMod(new(big.Int).Lsh(j.X, 2), yy)
	// M = 3·X² + a·Z⁴
	m := addMod(mulMod(three, xx), mulMod(A, mulMod(zz, zz)))

	x3 := subMod(mulMod(m, m), mulMod(two, s))
	y3 := subMod(mulMod(m, subMod(s, x3)), mulMod(eight, yyyy))
	z3 := mulMod(mulMod(two, j.Y), j.Z)

	return &JacobianPoint{X: x3, Y: y3, Z: z3}
}

// Add returns a + b. Adding a point to itself doubles it and adding a point
// to its negation yields infinity.
func Add(a, b *JacobianPoint) *JacobianPoint {
	if a.IsInfinity() {
		return b.clone()
	}
	if b.IsInfinity() {
		return a.clone()
	}

	z1z1 := mulMod(a.Z, a.Z)
	z2z2 := mulMod(b.Z, b.Z)
	u1 := mulMod(a.X, z2z2)
	u2 := mulMod(b.X, z1z1)
	s1 := mulMod(mulMod(a.Y, b.Z), z2z2)
	s2 := mulMod(mulMod(b.Y, a.Z), z1z1)

	if u1.Cmp(u2) == 0 {
		if s1.Cmp(s2) == 0 {
			return Double(a)
		}
		return Infinity()
	}

	h := subMod(u2, u1)
	r := subMod(s2, s1)
	hh := mulMod(h, h)
	hhh := mulMod(h, hh)
	v := mulMod(u1, hh)

	x3 := subMod(subMod(mulMod(r, r), hhh), mulMod(two, v))
	y3 := subMod(mulMod(r, subMod(v, x3)), mulMod(s1, hhh))
	z3 := mulMod(mulMod(a.Z, b.Z), h)

	return &JacobianPoint{X: x3, Y: y3, Z: z3}
}

// Negate returns -j.
func Negate(j *JacobianPoint) *JacobianPoint {
	if j.IsInfinity() {
		return Infinity()
	}
	return &JacobianPoint{
		X: new(big.Int).Set(j.X),
		Y: subMod(new(big.Int), j.Y),
		Z: new(big.Int).Set(j.Z),
	}
}

// ScalarMult returns k·p in affine coordinates.
//
// A table of successive doublings of p is built first and the entries for
// every set bit of k are summed. Fails with ErrPointAtInfinity when the
// product is the identity (k = 0 or a multiple of the group order).
func ScalarMult(p *Point, k *big.Int) (*Point, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	switch k.Sign() {
	case -1:
		return nil, ErrNegativeScalar
	case 0:
		return nil, ErrPointAtInfinity
	}

	table := doublings(p.Jacobian(), max(scalarBits, k.BitLen()))
	acc := Infinity()
	for i := 0; i < k.BitLen(); i++ {
		if k.Bit(i) == 1 {
			acc = Add(acc, table[i])
		}
	}
	return acc.Affine()
}

// ScalarBaseMult returns k·G.
func ScalarBaseMult(k *big.Int) (*Point, error) {
	return ScalarMult(Generator(), k)
}

// AddPoints returns p + q in affine coordinates.
func AddPoints(p, q *Point) (*Point, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return Add(p.Jacobian(), q.Jacobian()).Affine()
}

// SubPoints returns p - q in affine coordinates.
func SubPoints(p, q *Point) (*Point, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return Add(p.Jacobian(), Negate(q.Jacobian())).Affine()
}

// Encode serializes p as x || y, each coordinate left-padded to 28 bytes.
func Encode(p *Point) []byte {
	out := make([]byte, PointSize)
	p.X.FillBytes(out[:CoordinateSize])
	p.Y.FillBytes(out[CoordinateSize:])
	return out
}

// Decode parses a 56-byte x || y encoding and validates the point.
func Decode(b []byte) (*Point, error) {
	if len(b) != PointSize {
		return nil, ErrInvalidEncoding
	}
	return NewPoint(b[:CoordinateSize], b[CoordinateSize:])
}

func doublings(base *JacobianPoint, n int) []*JacobianPoint {
	table := make([]*JacobianPoint, n)
	table[0] = base
	for i := 1; i < n; i++ {
		table[i] = Double(table[i-1])
	}
	return table
}

func (j *JacobianPoint) clone() *JacobianPoint {
	return &JacobianPoint{
		X: new(big.Int).Set(j.X),
		Y: new(big.Int).Set(j.Y),
		Z: new(big.Int).Set(j.Z),
	}
}

func mulMod(a, b *big.Int) *big.Int {
	r := new(big.Int).Mul(a, b)
	return r.Mod(r, P)
}

func addMod(a, b *big.Int) *big.Int {
	r := new(big.Int).Add(a, b)
	return r.Mod(r, P)
}

// subMod returns (a - b) mod p in [0, p). big.Int.Mod is Euclidean, so the
// result is never negative.
func subMod(a, b *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	return r.Mod(r, P)
}

func mustHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("p224: invalid constant " + s)
	}
	return v
}
