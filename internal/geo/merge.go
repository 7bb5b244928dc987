package geo

import (
	"github.com/beetlebugorg/osmrender/internal/logging"
)

// Mergeable is a polyline that can be joined end to end with another one
// carrying an equal property bag.
type Mergeable interface {
	MergeID() int64
	MergeNodes() []*Point
	SetMergeNodes(nodes []*Point)
	MergeProps() map[string]string
}

// MergeAdjacent joins lines that meet at an end node and carry matching
// properties. Node ids are visited in nodeOrder. At each node, a line L is
// joined with another line M ending there only if M is the single candidate
// whose bag contains all of L's keys with equal values. M is then spliced
// into L, removed, and reported through remove. The shared junction node is
// kept twice in the joined node list.
//
// Lines with fewer than two nodes take no part. If two entries share an id,
// the later one wins. MergeAdjacent returns the number of joins performed.
func MergeAdjacent[T Mergeable](nodeOrder []int64, lines []T, remove func(T), log logging.Logger) int {
	log = logging.OrNop(log)

	byID := make(map[int64]T, len(lines))
	var ids []int64
	for _, l := range lines {
		if _, dup := byID[l.MergeID()]; !dup {
			ids = append(ids, l.MergeID())
		}
		byID[l.MergeID()] = l
	}

	// End node id -> ids of the lines that start or end there.
	endRefs := make(map[int64][]int64)
	for _, id := range ids {
		nodes := byID[id].MergeNodes()
		if len(nodes) < 2 {
			continue
		}
		start, end := nodes[0].id, nodes[len(nodes)-1].id
		endRefs[start] = append(endRefs[start], id)
		if end != start {
			endRefs[end] = append(endRefs[end], id)
		}
	}

	aliases := newAliasTable()
	merged := 0

	for _, node := range nodeOrder {
		refs := endRefs[node]
		if len(refs) < 2 {
			continue
		}

		for _, ref := range refs {
			lid := aliases.find(ref)
			l, ok := byID[lid]
			if !ok {
				continue
			}
			props := l.MergeProps()

			var (
				candidate int64
				count     int
				seen      []int64
			)
			for _, ref2 := range refs {
				mid := aliases.find(ref2)
				if mid == lid || containsID(seen, mid) {
					continue
				}
				seen = append(seen, mid)
				m, ok := byID[mid]
				if !ok {
					continue
				}
				if bagContains(m.MergeProps(), props) {
					candidate = mid
					count++
				}
			}
			if count != 1 {
				continue
			}

			m := byID[candidate]
			joined, ok := splice(l.MergeNodes(), m.MergeNodes())
			if !ok {
				log.Debugf("cannot merge lines %d and %d: no shared end node", lid, candidate)
				continue
			}

			aliases.redirect(candidate, lid)
			delete(byID, candidate)
			if remove != nil {
				remove(m)
			}
			l.SetMergeNodes(joined)
			merged++
		}
	}

	return merged
}

// splice joins m onto l at their shared end node.
func splice(l, m []*Point) ([]*Point, bool) {
	if len(l) == 0 || len(m) == 0 {
		return nil, false
	}
	lFirst, lLast := l[0].id, l[len(l)-1].id
	mFirst, mLast := m[0].id, m[len(m)-1].id

	out := make([]*Point, 0, len(l)+len(m))
	switch {
	case lFirst == mFirst:
		out = append(out, Reversed(m)...)
		out = append(out, l...)
	case lLast == mFirst:
		out = append(out, l...)
		out = append(out, m...)
	case lFirst == mLast:
		out = append(out, m...)
		out = append(out, l...)
	case lLast == mLast:
		out = append(out, l...)
		out = append(out, Reversed(m)...)
	default:
		return nil, false
	}
	return out, true
}

// bagContains reports whether every key of want is in bag with an equal value.
func bagContains(bag, want map[string]string) bool {
	for k, v := range want {
		if got, ok := bag[k]; !ok || got != v {
			return false
		}
	}
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// aliasTable maps a merged-away line id to the line that absorbed it.
type aliasTable struct {
	parent map[int64]int64
}

func newAliasTable() *aliasTable {
	return &aliasTable{parent: make(map[int64]int64)}
}

func (a *aliasTable) find(id int64) int64 {
	root := id
	for {
		next, ok := a.parent[root]
		if !ok {
			break
		}
		root = next
	}
	// Path compression
	for id != root {
		next := a.parent[id]
		a.parent[id] = root
		id = next
	}
	return root
}

func (a *aliasTable) redirect(from, to int64) {
	if from != to {
		a.parent[from] = to
	}
}
