package geo

import (
	"fmt"
	"testing"
)

// chain builds points with the given ids along the equator.
func chain(pts map[int64]*Point, ids ...int64) []*Point {
	out := make([]*Point, len(ids))
	for i, id := range ids {
		p, ok := pts[id]
		if !ok {
			p = NewPoint(id, nil, 0, float64(id))
			pts[id] = p
		}
		out[i] = p
	}
	return out
}

func nodeIDs(nodes []*Point) []int64 {
	out := make([]int64, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}
	return out
}

func order(n int64) []int64 {
	out := make([]int64, 0, n)
	for i := int64(1); i <= n; i++ {
		out = append(out, i)
	}
	return out
}

func TestMergeAdjacentCases(t *testing.T) {
	tags := map[string]string{"highway": "primary"}

	tests := []struct {
		name string
		l, m []int64
		want []int64
	}{
		{"end-start", []int64{1, 2, 3}, []int64{3, 4, 5}, []int64{1, 2, 3, 3, 4, 5}},
		{"start-start", []int64{3, 2, 1}, []int64{3, 4, 5}, []int64{5, 4, 3, 3, 2, 1}},
		{"start-end", []int64{3, 4, 5}, []int64{1, 2, 3}, []int64{1, 2, 3, 3, 4, 5}},
		{"end-end", []int64{1, 2, 3}, []int64{5, 4, 3}, []int64{1, 2, 3, 3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts := map[int64]*Point{}
			l := NewLine(100, tags, chain(pts, tt.l...))
			m := NewLine(200, tags, chain(pts, tt.m...))

			var removed []int64
			n := MergeAdjacent(order(5), []*Line{l, m}, func(x *Line) {
				removed = append(removed, x.ID())
			}, nil)

			if n != 1 {
				t.Fatalf("Expected 1 merge, got %d", n)
			}
			if len(removed) != 1 || removed[0] != 200 {
				t.Errorf("Expected line 200 removed, got %v", removed)
			}
			if got := nodeIDs(l.Nodes); fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Expected nodes %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMergeAdjacentAmbiguousJunction(t *testing.T) {
	tags := map[string]string{"highway": "residential"}
	pts := map[int64]*Point{}
	lines := []*Line{
		NewLine(1, tags, chain(pts, 1, 2, 3)),
		NewLine(2, tags, chain(pts, 3, 4)),
		NewLine(3, tags, chain(pts, 3, 5)),
	}

	n := MergeAdjacent(order(5), lines, nil, nil)
	if n != 0 {
		t.Errorf("Expected no merges at a three-way junction, got %d", n)
	}
}

func TestMergeAdjacentPropertyMatch(t *testing.T) {
	tests := []struct {
		name   string
		lTags  map[string]string
		mTags  map[string]string
		merged bool
	}{
		{"equal", map[string]string{"a": "1"}, map[string]string{"a": "1"}, true},
		{"different value", map[string]string{"a": "1"}, map[string]string{"a": "2"}, false},
		{"second has extra keys", map[string]string{"a": "1"}, map[string]string{"a": "1", "b": "2"}, true},
		// The second line sees the first as a candidate from its own side
		{"first has extra keys", map[string]string{"a": "1", "b": "2"}, map[string]string{"a": "1"}, true},
		{"disjoint keys", map[string]string{"a": "1"}, map[string]string{"b": "1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts := map[int64]*Point{}
			l := NewLine(1, tt.lTags, chain(pts, 1, 2))
			m := NewLine(2, tt.mTags, chain(pts, 2, 3))

			n := MergeAdjacent([]int64{2}, []*Line{l, m}, nil, nil)
			if (n == 1) != tt.merged {
				t.Errorf("Expected merged=%v, got %d merges", tt.merged, n)
			}
		})
	}
}

func TestMergeAdjacentChain(t *testing.T) {
	tags := map[string]string{"waterway": "river"}
	pts := map[int64]*Point{}
	a := NewLine(1, tags, chain(pts, 1, 2))
	b := NewLine(2, tags, chain(pts, 2, 3))
	c := NewLine(3, tags, chain(pts, 3, 4))

	n := MergeAdjacent(order(4), []*Line{a, b, c}, nil, nil)
	if n != 2 {
		t.Fatalf("Expected 2 merges, got %d", n)
	}
	want := "[1 2 2 3 3 4]"
	if got := fmt.Sprint(nodeIDs(a.Nodes)); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestMergeAdjacentIgnoresShortLines(t *testing.T) {
	pts := map[int64]*Point{}
	a := NewLine(1, nil, chain(pts, 1))
	b := NewLine(2, nil, chain(pts, 1, 2))

	if n := MergeAdjacent(order(2), []*Line{a, b}, nil, nil); n != 0 {
		t.Errorf("Expected no merges, got %d", n)
	}
}

func BenchmarkMergeAdjacent(b *testing.B) {
	tags := map[string]string{"highway": "primary"}
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		pts := map[int64]*Point{}
		lines := make([]*Line, 0, 1000)
		for j := int64(0); j < 1000; j++ {
			lines = append(lines, NewLine(j+1, tags, chain(pts, j+1, j+2)))
		}
		b.StartTimer()
		MergeAdjacent(order(1001), lines, nil, nil)
	}
}
