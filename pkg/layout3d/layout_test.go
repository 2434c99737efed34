package layout3d

import (
	"math"
	"testing"

	"github.com/singlecellvr/scvrprep/pkg/dataset"
	errs "github.com/singlecellvr/scvrprep/pkg/errors"
)

const eps = 1e-9

func abc() []dataset.GraphNode {
	return []dataset.GraphNode{
		{ID: "A", Position: [2]float64{0, 0}, Ordering: 0},
		{ID: "B", Position: [2]float64{1, 0}, Ordering: 1},
		{ID: "C", Position: [2]float64{0, 1}, Ordering: 2},
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func TestElevateABC(t *testing.T) {
	points, err := Elevate(abc())
	if err != nil {
		t.Fatalf("Elevate: %v", err)
	}

	want := []Point{
		{ID: "A", X: -0.5, Y: -0.5, Z: -0.75},
		{ID: "B", X: 1, Y: -0.5, Z: 0},
		{ID: "C", X: -0.5, Y: 1, Z: 0.75},
	}
	for i, p := range points {
		w := want[i]
		if p.ID != w.ID || !near(p.X, w.X) || !near(p.Y, w.Y) || !near(p.Z, w.Z) {
			t.Errorf("point %d = %+v, want %+v", i, p, w)
		}
	}
	if !(points[0].Z < points[1].Z && points[1].Z < points[2].Z) {
		t.Errorf("z not monotonic in ordering: %v", points)
	}
}

func TestElevateProperties(t *testing.T) {
	tests := []struct {
		name  string
		nodes []dataset.GraphNode
	}{
		{"abc", abc()},
		{"wide", []dataset.GraphNode{
			{ID: "n1", Position: [2]float64{-40, 3}, Ordering: 0.1},
			{ID: "n2", Position: [2]float64{10, 5}, Ordering: 0.9},
			{ID: "n3", Position: [2]float64{60, 4}, Ordering: 0.4},
			{ID: "n4", Position: [2]float64{0, 0}, Ordering: 0.4},
		}},
		{"tall", []dataset.GraphNode{
			{ID: "x", Position: [2]float64{0, -1000}, Ordering: 5},
			{ID: "y", Position: [2]float64{1, 1000}, Ordering: -5},
		}},
		{"coincident", []dataset.GraphNode{
			{ID: "p", Position: [2]float64{3, 3}, Ordering: 1},
			{ID: "q", Position: [2]float64{3, 3}, Ordering: 2},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points, err := Elevate(tt.nodes)
			if err != nil {
				t.Fatalf("Elevate: %v", err)
			}

			var sum [3]float64
			var extent float64
			for _, p := range points {
				for axis, v := range p.Coords() {
					sum[axis] += v
					if v < -1-eps || v > 1+eps {
						t.Errorf("%s axis %d = %v outside [-1, 1]", p.ID, axis, v)
					}
					extent = math.Max(extent, math.Abs(v))
				}
			}
			for axis, s := range sum {
				if mean := s / float64(len(points)); !near(mean, 0) {
					t.Errorf("axis %d mean = %v, want 0", axis, mean)
				}
			}
			if !near(extent, 1) {
				t.Errorf("max |v| = %v, want 1", extent)
			}

			b := BoundsOf(points)
			xy := math.Max(b.Span(0), b.Span(1))
			if xy > 0 && !near(b.Span(2), xy) {
				t.Errorf("z span = %v, want x/y span %v", b.Span(2), xy)
			}
		})
	}
}

func TestElevateConstantOrdering(t *testing.T) {
	nodes := abc()
	for i := range nodes {
		nodes[i].Ordering = 7
	}
	points, err := Elevate(nodes)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range points {
		if p.Z != 0 {
			t.Errorf("%s.Z = %v, want 0", p.ID, p.Z)
		}
	}
}

func TestElevateTiesShareZ(t *testing.T) {
	nodes := []dataset.GraphNode{
		{ID: "a", Position: [2]float64{0, 0}, Ordering: 0},
		{ID: "b", Position: [2]float64{5, 1}, Ordering: 3},
		{ID: "c", Position: [2]float64{2, 9}, Ordering: 3},
		{ID: "d", Position: [2]float64{7, 7}, Ordering: 4},
	}
	points, err := Elevate(nodes)
	if err != nil {
		t.Fatal(err)
	}
	if points[1].Z != points[2].Z {
		t.Errorf("tied ordering produced z %v and %v", points[1].Z, points[2].Z)
	}
}

func TestElevateOrderIndependent(t *testing.T) {
	nodes := abc()
	reversed := []dataset.GraphNode{nodes[2], nodes[0], nodes[1]}

	a, err := Elevate(nodes)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Elevate(reversed)
	if err != nil {
		t.Fatal(err)
	}

	byID := make(map[string]Point, len(b))
	for _, p := range b {
		byID[p.ID] = p
	}
	for _, p := range a {
		if byID[p.ID] != p {
			t.Errorf("%s: %+v vs %+v", p.ID, p, byID[p.ID])
		}
	}
}

func TestElevateDoesNotMutate(t *testing.T) {
	nodes := abc()
	if _, err := Elevate(nodes); err != nil {
		t.Fatal(err)
	}
	if nodes[1].Position != [2]float64{1, 0} || nodes[2].Ordering != 2 {
		t.Errorf("input modified: %+v", nodes)
	}
}

func TestElevateErrors(t *testing.T) {
	tests := []struct {
		name string
		node dataset.GraphNode
	}{
		{"nan ordering", dataset.GraphNode{ID: "z", Ordering: math.NaN()}},
		{"inf ordering", dataset.GraphNode{ID: "z", Ordering: math.Inf(1)}},
		{"nan position", dataset.GraphNode{ID: "z", Position: [2]float64{math.NaN(), 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Elevate(append(abc(), tt.node))
			if !errs.Is(err, errs.ErrCodeInvalidDataset) {
				t.Errorf("err = %v, want INVALID_DATASET", err)
			}
		})
	}
}

func TestElevateEmpty(t *testing.T) {
	points, err := Elevate(nil)
	if err != nil || points != nil {
		t.Errorf("Elevate(nil) = %v, %v", points, err)
	}
}

func TestBounds(t *testing.T) {
	b := BoundsOf([]Point{{X: -1, Y: 2, Z: 0}, {X: 3, Y: -2, Z: 0.5}})
	if b.Min != [3]float64{-1, -2, 0} || b.Max != [3]float64{3, 2, 0.5} {
		t.Errorf("bounds = %+v", b)
	}
	if b.Span(0) != 4 || b.Center() != [3]float64{1, 0, 0.25} {
		t.Errorf("span/center = %v %v", b.Span(0), b.Center())
	}
	if BoundsOf(nil) != (Bounds{}) {
		t.Error("empty bounds should be zero")
	}
}
