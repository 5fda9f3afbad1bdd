package percolation

import (
	"errors"
	"math"
)

// ErrNoActiveClusters reports that a full round-robin cycle found no active
// cluster. The engine checks global activity before selecting, so hitting
// this is a bookkeeping bug, not a normal termination.
var ErrNoActiveClusters = errors.New("no active clusters")

// cluster is the per-cluster bookkeeping record. Volumes and flow rate are
// only maintained when timing is enabled.
type cluster struct {
	active   bool
	frontier *frontier

	poreVolume float64
	volCoef    float64
	capVolume  float64
	flowRate   float64

	hainesThroat   int
	hainesPressure float64
	hainesTime     float64
}

// clusterSet owns all clusters and the canonical-id resolution between them.
// Cluster ids are 1-based and stable for the run; after a merge the absorbed
// id resolves to the survivor through a path-compressed union-find.
type clusterSet struct {
	clusters []*cluster
	parent   []int // parent[id-1]; parent[id-1] == id at a root
	active   int
}

func newClusterSet(count int, timing bool, inletFlow float64) *clusterSet {
	cs := &clusterSet{
		clusters: make([]*cluster, count),
		parent:   make([]int, count),
		active:   count,
	}
	for i := 0; i < count; i++ {
		c := &cluster{
			active:       true,
			frontier:     newFrontier(),
			hainesThroat: -1,
		}
		if timing {
			c.flowRate = inletFlow
		}
		cs.clusters[i] = c
		cs.parent[i] = i + 1
	}
	return cs
}

func (cs *clusterSet) count() int { return len(cs.clusters) }

func (cs *clusterSet) get(id int) *cluster { return cs.clusters[id-1] }

func (cs *clusterSet) activeCount() int { return cs.active }

// resolve follows the canonical-id map to the live cluster id, compressing
// the path on the way.
func (cs *clusterSet) resolve(id int) int {
	root := id
	for cs.parent[root-1] != root {
		root = cs.parent[root-1]
	}
	for cs.parent[id-1] != root {
		id, cs.parent[id-1] = cs.parent[id-1], root
	}
	return root
}

// merge combines two distinct canonical clusters. The numerically smaller id
// survives: volumes, flow rate and frontier of the absorbed cluster fold
// into it. If either participant had already finished, the survivor is
// finished too. A throat queued on both frontiers had its volume coefficient
// counted by both clusters but keeps a single queue entry; onDup fires once
// per such throat so the survivor can give the extra contribution back.
func (cs *clusterSet) merge(a, b int, onDup func(throat int)) int {
	if a > b {
		a, b = b, a
	}
	cs.parent[b-1] = a

	surv := cs.clusters[a-1]
	old := cs.clusters[b-1]
	bothActive := surv.active && old.active

	surv.poreVolume += old.poreVolume
	surv.volCoef += old.volCoef
	surv.flowRate += old.flowRate
	surv.frontier.union(old.frontier, onDup)

	old.poreVolume = 0
	old.volCoef = 0
	old.flowRate = 0
	if old.active {
		old.active = false
		cs.active--
	}
	old.hainesTime = math.Inf(1)

	// A cluster that merges with a finished cluster is itself finished.
	if !bothActive && surv.active {
		surv.active = false
		cs.active--
		surv.hainesTime = math.Inf(1)
	}
	return a
}

// deactivate retires a cluster; its event time becomes the never-fires
// sentinel.
func (cs *clusterSet) deactivate(id int) {
	c := cs.clusters[id-1]
	if c.active {
		c.active = false
		cs.active--
	}
	c.hainesTime = math.Inf(1)
}

// nextTimed returns the cluster id with the minimum pending event time,
// lowest id winning ties. Retired clusters hold +Inf and lose to any live
// one.
func (cs *clusterSet) nextTimed() int {
	best := 1
	for id := 2; id <= len(cs.clusters); id++ {
		if cs.clusters[id-1].hainesTime < cs.clusters[best-1].hainesTime {
			best = id
		}
	}
	return best
}

// nextUntimed scans cluster ids cyclically starting just after current,
// returning the first active one. A full cycle with none active is
// ErrNoActiveClusters.
func (cs *clusterSet) nextUntimed(current int) (int, error) {
	n := len(cs.clusters)
	for i := 1; i <= n; i++ {
		id := current + i
		if id > n {
			id -= n
		}
		if cs.clusters[id-1].active {
			return id, nil
		}
	}
	return 0, ErrNoActiveClusters
}
