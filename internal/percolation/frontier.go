package percolation

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// frontierEntry is one invadable throat on a cluster's boundary, ordered by
// capillary entry pressure with throat id breaking ties.
type frontierEntry struct {
	pressure float64
	throat   int
}

func compareEntries(a, b interface{}) int {
	ea := a.(frontierEntry)
	eb := b.(frontierEntry)
	switch {
	case ea.pressure < eb.pressure:
		return -1
	case ea.pressure > eb.pressure:
		return 1
	case ea.throat < eb.throat:
		return -1
	case ea.throat > eb.throat:
		return 1
	}
	return 0
}

// frontier is a cluster's set of candidate throats, ordered ascending by
// (entry pressure, throat id). Entries whose throat has been invaded by any
// cluster are discarded lazily during peek/pop. The tracked set remembers
// every throat ever pushed, so a newly exposed throat is pushed at most once
// per cluster.
type frontier struct {
	tree    *redblacktree.Tree
	tracked map[int]bool
}

func newFrontier() *frontier {
	return &frontier{
		tree:    redblacktree.NewWith(compareEntries),
		tracked: make(map[int]bool),
	}
}

// push adds a throat unless this cluster already tracks it. Reports whether
// the throat was added.
func (f *frontier) push(pressure float64, throat int) bool {
	if f.tracked[throat] {
		return false
	}
	f.tracked[throat] = true
	f.tree.Put(frontierEntry{pressure: pressure, throat: throat}, nil)
	return true
}

// contains reports whether this cluster tracks the throat (whether or not it
// is still queued).
func (f *frontier) contains(throat int) bool { return f.tracked[throat] }

func (f *frontier) size() int { return f.tree.Size() }

// peekValid discards queued entries whose throat is already invaded, calling
// discard for each, until the minimum entry is still uninvaded. Returns
// false if the queue empties.
func (f *frontier) peekValid(invaded func(throat int) bool, discard func(throat int)) (frontierEntry, bool) {
	for {
		node := f.tree.Left()
		if node == nil {
			return frontierEntry{}, false
		}
		e := node.Key.(frontierEntry)
		if !invaded(e.throat) {
			return e, true
		}
		f.tree.Remove(e)
		if discard != nil {
			discard(e.throat)
		}
	}
}

// popValid is peekValid followed by removal of the returned entry.
func (f *frontier) popValid(invaded func(throat int) bool, discard func(throat int)) (frontierEntry, bool) {
	e, ok := f.peekValid(invaded, discard)
	if !ok {
		return frontierEntry{}, false
	}
	f.tree.Remove(e)
	return e, true
}

// union absorbs other into f, leaving other empty. The smaller tree is
// iterated into the larger, O(m log n). A throat queued in both frontiers
// keeps a single entry; onDup is called once for each such throat so the
// caller can undo the second cluster's bookkeeping for it.
func (f *frontier) union(other *frontier, onDup func(throat int)) {
	if other.tree.Size() > f.tree.Size() {
		f.tree, other.tree = other.tree, f.tree
		f.tracked, other.tracked = other.tracked, f.tracked
	}
	it := other.tree.Iterator()
	for it.Next() {
		e := it.Key().(frontierEntry)
		if _, queued := f.tree.Get(e); queued {
			if onDup != nil {
				onDup(e.throat)
			}
			continue
		}
		f.tree.Put(e, nil)
	}
	for t := range other.tracked {
		f.tracked[t] = true
	}
	other.tree.Clear()
	other.tracked = make(map[int]bool)
}
