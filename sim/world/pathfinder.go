package world

// Pathfinder computes the waypoints between two positions. Grid and
// obstacle handling live in the host; the manager only walks the result.
type Pathfinder interface {
	// Route returns the waypoints from→to, both ends included.
	Route(from, to Point) ([]Point, error)
}

// StraightLine routes directly to the destination.
type StraightLine struct{}

// Route implements Pathfinder.
func (StraightLine) Route(from, to Point) ([]Point, error) {
	return []Point{from, to}, nil
}

// leg is one movement: waypoints walked from Start at a constant speed.
type leg struct {
	Start     int64 // ms
	Waypoints []Point
}

// positionAt returns where a walker following l is at t >= l.Start and
// whether it is still under way.
func (l leg) positionAt(t int64, speed float64) (Point, bool) {
	if len(l.Waypoints) == 0 {
		return Point{}, false
	}
	remaining := speed * float64(t-l.Start) / 1000
	for i := 1; i < len(l.Waypoints); i++ {
		a, b := l.Waypoints[i-1], l.Waypoints[i]
		d := a.Distance(b)
		if remaining < d {
			return a.Lerp(b, remaining/d), true
		}
		remaining -= d
	}
	return l.Waypoints[len(l.Waypoints)-1], false
}
