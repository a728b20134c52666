package rcpsp

// Candidate is an eligible task offered to a Policy.
type Candidate struct {
	ID       string
	Assignee string
	Duration float64
	// EarliestStart is the feasible start given already scheduled
	// predecessors and the assignee's availability.
	EarliestStart float64
	// ES and Slack come from the CPM analysis of the scheduled graph. They
	// are meaningless when Cyclic is set.
	ES     float64
	Slack  float64
	Cyclic bool
	// Rank is the position in the cycle-broken topological order.
	Rank int
}

// Policy chooses the next task to place among the eligible candidates.
// Candidates arrive in topological order and are never empty.
type Policy interface {
	Choose(eligible []Candidate) int
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(eligible []Candidate) int

// Choose calls f.
func (f PolicyFunc) Choose(eligible []Candidate) int { return f(eligible) }

// DefaultPolicy prefers the smallest CPM earliest start, then the smallest
// slack, then the smallest id. Tasks on or behind a cycle come last.
type DefaultPolicy struct{}

// Choose implements Policy.
func (DefaultPolicy) Choose(eligible []Candidate) int {
	best := 0
	for i := 1; i < len(eligible); i++ {
		if DefaultLess(eligible[i], eligible[best]) {
			best = i
		}
	}
	return best
}

// DefaultLess is the ordering used by DefaultPolicy.
func DefaultLess(a, b Candidate) bool {
	if a.Cyclic != b.Cyclic {
		return !a.Cyclic
	}
	if a.Cyclic {
		return a.Rank < b.Rank
	}
	if a.ES != b.ES {
		return a.ES < b.ES
	}
	if a.Slack != b.Slack {
		return a.Slack < b.Slack
	}
	return a.ID < b.ID
}
