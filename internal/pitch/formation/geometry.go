package formation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pitch.report/internal/pitch"
)

// Edge is an undirected connection between two track ids, stored with
// A < B so (a, b) and (b, a) compare equal.
type Edge struct {
	A, B int
}

// NewEdge normalises the pair order.
func NewEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

// Connections links every player to its k nearest teammates. Equal
// distances go to the lower track id. The result is deduplicated and
// sorted; fewer than two players or k < 1 yields no edges.
func Connections(players []pitch.Track, k int) []Edge {
	if len(players) < 2 || k < 1 {
		return nil
	}

	type neighbour struct {
		id   int
		dist float64
	}
	set := make(map[Edge]struct{}, len(players)*k)
	ns := make([]neighbour, 0, len(players)-1)
	for i, p := range players {
		ns = ns[:0]
		for j, q := range players {
			if i == j {
				continue
			}
			ns = append(ns, neighbour{id: q.TrackID, dist: r2.Norm(r2.Sub(p.Position, q.Position))})
		}
		sort.Slice(ns, func(a, b int) bool {
			if ns[a].dist != ns[b].dist {
				return ns[a].dist < ns[b].dist
			}
			return ns[a].id < ns[b].id
		})
		for n := 0; n < k && n < len(ns); n++ {
			set[NewEdge(p.TrackID, ns[n].id)] = struct{}{}
		}
	}

	edges := make([]Edge, 0, len(set))
	for e := range set {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].A != edges[b].A {
			return edges[a].A < edges[b].A
		}
		return edges[a].B < edges[b].B
	})
	return edges
}

// ConvexHull returns the hull vertices counter-clockwise (in the
// coordinate values, x right and y up), starting from the vertex with the
// lowest x then lowest y. Collinear boundary points are dropped. Fewer
// than three distinct points, or all points on one line, yield nil.
func ConvexHull(points []pitch.Point) []pitch.Point {
	pts := make([]pitch.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != uniq[len(uniq)-1] {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) < 3 {
		return nil
	}

	hull := make([]pitch.Point, 0, 2*len(uniq))
	// Lower chain.
	for _, p := range uniq {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// Upper chain.
	lower := len(hull) + 1
	for i := len(uniq) - 2; i >= 0; i-- {
		p := uniq[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	hull = hull[:len(hull)-1] // last point repeats the first

	if len(hull) < 3 {
		return nil
	}
	return hull
}

// turn is positive for a counter-clockwise turn o->a->b.
func turn(o, a, b pitch.Point) float64 {
	return r2.Cross(r2.Sub(a, o), r2.Sub(b, o))
}

// Area returns the area enclosed by a simple polygon (shoelace formula).
func Area(polygon []pitch.Point) float64 {
	if len(polygon) < 3 {
		return 0
	}
	terms := make([]float64, len(polygon))
	for i, p := range polygon {
		terms[i] = r2.Cross(p, polygon[(i+1)%len(polygon)])
	}
	return math.Abs(floats.Sum(terms)) / 2
}

// Centroid returns the mean position, or false for no points.
func Centroid(points []pitch.Point) (pitch.Point, bool) {
	if len(points) == 0 {
		return pitch.Point{}, false
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	return pitch.Point{X: stat.Mean(xs, nil), Y: stat.Mean(ys, nil)}, true
}

// Compactness is the mean pairwise distance between points; smaller is
// more compact. Fewer than two points yields 0.
func Compactness(points []pitch.Point) float64 {
	if len(points) < 2 {
		return 0
	}
	dists := make([]float64, 0, len(points)*(len(points)-1)/2)
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			dists = append(dists, r2.Norm(r2.Sub(points[i], points[j])))
		}
	}
	return stat.Mean(dists, nil)
}
