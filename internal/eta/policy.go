package eta

import "github.com/joshharrison/sprintloom/internal/rcpsp"

const eps = 1e-9

// PessimisticPolicy lets unrelated work jump the queue. Among the eligible
// tasks that can start soonest, a task that is neither the target nor one of
// its ancestors wins, the longest first (ties: CPM earliest start, then id).
// When every soonest task belongs to the target's chain the default ordering
// applies among them.
type PessimisticPolicy struct {
	Target    string
	Ancestors map[string]bool
}

func (p PessimisticPolicy) related(id string) bool {
	return id == p.Target || p.Ancestors[id]
}

// Choose implements rcpsp.Policy.
func (p PessimisticPolicy) Choose(eligible []rcpsp.Candidate) int {
	soonest := eligible[0].EarliestStart
	for _, c := range eligible[1:] {
		if c.EarliestStart < soonest {
			soonest = c.EarliestStart
		}
	}

	unrelated, related := -1, -1
	for i, c := range eligible {
		if c.EarliestStart > soonest+eps {
			continue
		}
		if p.related(c.ID) {
			if related < 0 || rcpsp.DefaultLess(c, eligible[related]) {
				related = i
			}
			continue
		}
		if unrelated < 0 || longer(c, eligible[unrelated]) {
			unrelated = i
		}
	}
	if unrelated >= 0 {
		return unrelated
	}
	return related
}

func longer(a, b rcpsp.Candidate) bool {
	if a.Duration != b.Duration {
		return a.Duration > b.Duration
	}
	if a.ES != b.ES {
		return a.ES < b.ES
	}
	return a.ID < b.ID
}
