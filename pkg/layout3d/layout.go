package layout3d

import (
	"math"
	"sort"

	"github.com/singlecellvr/scvrprep/pkg/dataset"
	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

// defaultSpan is used for z when every node shares one x/y position.
const defaultSpan = 2.0

// Point is the 3-D position of one graph node.
type Point struct {
	ID      string
	X, Y, Z float64
}

// Coords returns the point as an array indexed by axis.
func (p Point) Coords() [3]float64 { return [3]float64{p.X, p.Y, p.Z} }

// Elevate computes a 3-D position for every node. The returned points are in
// the same order as nodes. Nodes are not modified.
//
// Returns INVALID_DATASET if a position or ordering value is not finite.
func Elevate(nodes []dataset.GraphNode) ([]Point, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	for _, n := range nodes {
		if !finite(n.Position[0]) || !finite(n.Position[1]) {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "node %q has a non-finite position", n.ID)
		}
		if !finite(n.Ordering) {
			return nil, errs.New(errs.ErrCodeInvalidDataset, "node %q has a non-finite ordering value", n.ID)
		}
	}

	order := idOrder(nodes)

	xs := make([]float64, len(nodes))
	ys := make([]float64, len(nodes))
	for i, n := range nodes {
		xs[i], ys[i] = n.Position[0], n.Position[1]
	}
	span := math.Max(spanOf(xs), spanOf(ys))
	if span == 0 {
		span = defaultSpan
	}

	zs := make([]float64, len(nodes))
	lo, hi := nodes[0].Ordering, nodes[0].Ordering
	for _, n := range nodes {
		lo = math.Min(lo, n.Ordering)
		hi = math.Max(hi, n.Ordering)
	}
	if hi > lo {
		for i, n := range nodes {
			zs[i] = (n.Ordering - lo) / (hi - lo) * span
		}
	}

	center(xs, order)
	center(ys, order)
	center(zs, order)

	var extent float64
	for i := range nodes {
		extent = math.Max(extent, math.Abs(xs[i]))
		extent = math.Max(extent, math.Abs(ys[i]))
		extent = math.Max(extent, math.Abs(zs[i]))
	}

	points := make([]Point, len(nodes))
	for i, n := range nodes {
		p := Point{ID: n.ID, X: xs[i], Y: ys[i], Z: zs[i]}
		if extent > 0 {
			p.X /= extent
			p.Y /= extent
			p.Z /= extent
		}
		points[i] = p
	}
	return points, nil
}

// idOrder returns node indices sorted by node ID, ties by input position.
func idOrder(nodes []dataset.GraphNode) []int {
	idx := make([]int, len(nodes))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return nodes[idx[a]].ID < nodes[idx[b]].ID })
	return idx
}

// center subtracts the mean, summing in the given order.
func center(vals []float64, order []int) {
	var sum float64
	for _, i := range order {
		sum += vals[i]
	}
	mean := sum / float64(len(vals))
	for i := range vals {
		vals[i] -= mean
	}
}

func spanOf(vals []float64) float64 {
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return hi - lo
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
