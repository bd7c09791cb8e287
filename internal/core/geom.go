// Package core provides fundamental types shared across the towerd packages.
// It contains no external dependencies (especially no Bubble Tea) to keep the
// pool and director logic pure and testable.
package core

import "math"

// Position is a point in world space. Levels express spawn points in these
// coordinates; the engine layer on top of towerd decides what a unit means.
type Position struct {
	X, Y float64
}

// Pos creates a position.
func Pos(x, y float64) Position {
	return Position{X: x, Y: y}
}

// DistanceTo returns the Euclidean distance to another position.
func (p Position) DistanceTo(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Rotation is a heading in degrees, counter-clockwise from +X.
type Rotation float64

// Normalized wraps the rotation into [0, 360).
func (r Rotation) Normalized() Rotation {
	deg := math.Mod(float64(r), 360)
	if deg < 0 {
		deg += 360
	}
	return Rotation(deg)
}

// Transform is a position paired with a facing, the shape spawn points take.
type Transform struct {
	Position Position
	Rotation Rotation
}

// Clamp restricts a value to be within [min, max].
func Clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// ClampF restricts a float64 value to be within [min, max].
func ClampF(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Min returns the smaller of two integers.
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of two integers.
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
