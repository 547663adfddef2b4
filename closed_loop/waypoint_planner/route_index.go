package planner

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
)

// RouteIndex answers nearest-waypoint queries over the 2D route positions.
// It is immutable once built.
type RouteIndex struct {
	tree *kdtree.Tree
	size int
}

// NewRouteIndex builds a k-d tree over the x/y of every waypoint.
func NewRouteIndex(route []Waypoint) (*RouteIndex, error) {
	if len(route) == 0 {
		return nil, ErrEmptyRoute
	}
	pts := make(routePoints, len(route))
	for i, wp := range route {
		pts[i] = routePoint{Vec: wp.xy(), idx: i}
	}
	return &RouteIndex{tree: kdtree.New(pts, false), size: len(route)}, nil
}

// Nearest returns the route index closest to p.
func (ri *RouteIndex) Nearest(p r2.Vec) int {
	got, _ := ri.tree.Nearest(routePoint{Vec: p, idx: -1})
	return got.(routePoint).idx
}

func (ri *RouteIndex) Len() int {
	return ri.size
}

type routePoint struct {
	r2.Vec
	idx int
}

func (p routePoint) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return p.X
	}
	return p.Y
}

func (p routePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(routePoint).coord(d)
}

func (p routePoint) Dims() int { return 2 }

// Distance is the squared euclidean distance, as kdtree expects.
func (p routePoint) Distance(c kdtree.Comparable) float64 {
	d := r2.Sub(p.Vec, c.(routePoint).Vec)
	return r2.Dot(d, d)
}

type routePoints []routePoint

func (p routePoints) Index(i int) kdtree.Comparable { return p[i] }
func (p routePoints) Len() int                      { return len(p) }
func (p routePoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

func (p routePoints) Pivot(d kdtree.Dim) int {
	pl := routePlane{Dim: d, points: p}
	return kdtree.Partition(pl, kdtree.MedianOfRandoms(pl, 100))
}

// routePlane sorts points along one axis for pivot selection.
type routePlane struct {
	kdtree.Dim
	points routePoints
}

func (p routePlane) Len() int { return len(p.points) }
func (p routePlane) Less(i, j int) bool {
	return p.points[i].coord(p.Dim) < p.points[j].coord(p.Dim)
}
func (p routePlane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p routePlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
