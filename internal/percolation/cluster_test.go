package percolation

import (
	"errors"
	"math"
	"testing"
)

func TestClusterSet_ResolveIdentityUntilMerged(t *testing.T) {
	cs := newClusterSet(3, false, 0)
	for id := 1; id <= 3; id++ {
		if got := cs.resolve(id); got != id {
			t.Errorf("resolve(%d) = %d before any merge", id, got)
		}
	}
}

func TestClusterSet_MergeSmallerIDSurvives(t *testing.T) {
	tests := []struct {
		name string
		a, b int
	}{
		{"ascending args", 1, 3},
		{"descending args", 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := newClusterSet(3, false, 0)
			surv := cs.merge(tt.a, tt.b, nil)
			if surv != 1 {
				t.Errorf("merge(%d, %d) = %d, want 1", tt.a, tt.b, surv)
			}
			if got := cs.resolve(3); got != 1 {
				t.Errorf("resolve(3) = %d, want 1", got)
			}
			if got := cs.resolve(1); got != 1 {
				t.Errorf("resolve(1) = %d, want 1", got)
			}
		})
	}
}

func TestClusterSet_ResolveChains(t *testing.T) {
	cs := newClusterSet(4, false, 0)
	cs.merge(3, 4, nil) // 4 -> 3
	cs.merge(1, 3, nil) // 3 -> 1
	if got := cs.resolve(4); got != 1 {
		t.Errorf("resolve(4) = %d, want 1 through the chain", got)
	}
}

func TestClusterSet_MergeSumsBookkeeping(t *testing.T) {
	cs := newClusterSet(2, true, 2.0)
	a, b := cs.get(1), cs.get(2)
	a.poreVolume, b.poreVolume = 1.0, 3.0
	a.volCoef, b.volCoef = 0.5, 0.25

	cs.merge(1, 2, nil)

	if a.poreVolume != 4.0 {
		t.Errorf("survivor poreVolume = %g, want 4.0", a.poreVolume)
	}
	if a.volCoef != 0.75 {
		t.Errorf("survivor volCoef = %g, want 0.75", a.volCoef)
	}
	if a.flowRate != 4.0 {
		t.Errorf("survivor flowRate = %g, want 4.0 (2 + 2)", a.flowRate)
	}
	if b.active {
		t.Error("absorbed cluster still active")
	}
	if !math.IsInf(b.hainesTime, 1) {
		t.Errorf("absorbed hainesTime = %g, want +Inf", b.hainesTime)
	}
	if !a.active {
		t.Error("survivor should stay active when both participants were active")
	}
	if cs.activeCount() != 1 {
		t.Errorf("activeCount = %d, want 1", cs.activeCount())
	}
}

func TestClusterSet_MergeSharedThroatCoefficient(t *testing.T) {
	// Both fronts queue throat 7 and each counted its coefficient, so the
	// merged sum holds it twice while the frontier keeps a single entry.
	// The duplicate callback returns the extra copy; draining the frontier
	// then leaves the coefficient balance at zero.
	cs := newClusterSet(2, true, 1.0)
	a, b := cs.get(1), cs.get(2)
	const coef = 3.0
	a.frontier.push(5.0, 7)
	a.volCoef = coef
	b.frontier.push(5.0, 7)
	b.volCoef = coef

	surv := cs.merge(1, 2, func(throat int) {
		if throat != 7 {
			t.Fatalf("duplicate throat = %d, want 7", throat)
		}
		a.volCoef -= coef
	})
	if surv != 1 {
		t.Fatalf("merge survivor = %d, want 1", surv)
	}
	if a.volCoef != coef {
		t.Errorf("volCoef after merge = %g, want %g", a.volCoef, coef)
	}
	if a.frontier.size() != 1 {
		t.Fatalf("merged frontier size = %d, want 1", a.frontier.size())
	}

	if _, ok := a.frontier.popValid(notInvaded, nil); !ok {
		t.Fatal("expected the shared throat to pop")
	}
	a.volCoef -= coef
	if a.volCoef != 0 {
		t.Errorf("volCoef after drain = %g, want 0", a.volCoef)
	}
}

func TestClusterSet_MergeWithFinishedFinishesSurvivor(t *testing.T) {
	cs := newClusterSet(2, true, 1.0)
	cs.deactivate(2)

	cs.merge(1, 2, nil)

	surv := cs.get(1)
	if surv.active {
		t.Error("survivor should be inactive after merging with a finished cluster")
	}
	if !math.IsInf(surv.hainesTime, 1) {
		t.Errorf("survivor hainesTime = %g, want +Inf", surv.hainesTime)
	}
	if cs.activeCount() != 0 {
		t.Errorf("activeCount = %d, want 0", cs.activeCount())
	}
}

func TestClusterSet_Deactivate(t *testing.T) {
	cs := newClusterSet(2, true, 1.0)
	cs.deactivate(1)
	if cs.get(1).active {
		t.Error("cluster 1 still active")
	}
	if !math.IsInf(cs.get(1).hainesTime, 1) {
		t.Error("deactivated cluster should hold the +Inf sentinel")
	}
	if cs.activeCount() != 1 {
		t.Errorf("activeCount = %d, want 1", cs.activeCount())
	}
	// Deactivating twice must not double-count.
	cs.deactivate(1)
	if cs.activeCount() != 1 {
		t.Errorf("activeCount after repeat = %d, want 1", cs.activeCount())
	}
}

func TestClusterSet_NextTimed(t *testing.T) {
	cs := newClusterSet(3, true, 1.0)
	cs.get(1).hainesTime = 5.0
	cs.get(2).hainesTime = 2.0
	cs.get(3).hainesTime = 9.0
	if got := cs.nextTimed(); got != 2 {
		t.Errorf("nextTimed = %d, want 2", got)
	}

	// Ties break toward the lowest id.
	cs.get(1).hainesTime = 2.0
	if got := cs.nextTimed(); got != 1 {
		t.Errorf("nextTimed tie = %d, want 1", got)
	}

	// Retired clusters never fire again.
	cs.deactivate(1)
	cs.deactivate(2)
	if got := cs.nextTimed(); got != 3 {
		t.Errorf("nextTimed with retirements = %d, want 3", got)
	}
}

func TestClusterSet_NextUntimed(t *testing.T) {
	cs := newClusterSet(3, false, 0)

	id, err := cs.nextUntimed(0)
	if err != nil || id != 1 {
		t.Errorf("nextUntimed(0) = %d, %v, want 1", id, err)
	}

	id, err = cs.nextUntimed(1)
	if err != nil || id != 2 {
		t.Errorf("nextUntimed(1) = %d, %v, want 2", id, err)
	}

	// Wraps around.
	id, err = cs.nextUntimed(3)
	if err != nil || id != 1 {
		t.Errorf("nextUntimed(3) = %d, %v, want 1", id, err)
	}

	// Skips inactive clusters.
	cs.deactivate(2)
	id, err = cs.nextUntimed(1)
	if err != nil || id != 3 {
		t.Errorf("nextUntimed(1) skipping 2 = %d, %v, want 3", id, err)
	}
}

func TestClusterSet_NextUntimedNoneActive(t *testing.T) {
	cs := newClusterSet(2, false, 0)
	cs.deactivate(1)
	cs.deactivate(2)
	if _, err := cs.nextUntimed(1); !errors.Is(err, ErrNoActiveClusters) {
		t.Errorf("error = %v, want ErrNoActiveClusters", err)
	}
}
