package physio

import (
	"fmt"
	"math"
)

// Point is one vertex of a piecewise-linear curve.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Curve is a piecewise-linear function defined by points sorted by X.
// Outside the first and last points the curve is flat.
type Curve []Point

// At evaluates the curve at x. An empty curve evaluates to 0.
func (c Curve) At(x float64) float64 {
	switch {
	case len(c) == 0:
		return 0
	case x <= c[0].X:
		return c[0].Y
	case x >= c[len(c)-1].X:
		return c[len(c)-1].Y
	}
	for i := 1; i < len(c); i++ {
		if x <= c[i].X {
			a, b := c[i-1], c[i]
			if b.X == a.X {
				return b.Y
			}
			return a.Y + (x-a.X)*(b.Y-a.Y)/(b.X-a.X)
		}
	}
	return c[len(c)-1].Y
}

// Validate checks that the curve has points sorted by X with finite values.
func (c Curve) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("curve has no points")
	}
	for i, p := range c {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("point %d is not finite", i)
		}
		if i > 0 && p.X < c[i-1].X {
			return fmt.Errorf("points not sorted: x[%d]=%v < x[%d]=%v", i, p.X, i-1, c[i-1].X)
		}
	}
	return nil
}

// Linear returns the two-point curve from (x0,y0) to (x1,y1).
func Linear(x0, y0, x1, y1 float64) Curve {
	return Curve{{X: x0, Y: y0}, {X: x1, Y: y1}}
}
