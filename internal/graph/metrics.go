package graph

// UnresolvedReasonCounts tallies the identifiers LinkReferences could not
// pin to a single owner, by reason.
func (g *Graph) UnresolvedReasonCounts() map[UnresolvedReason]int {
	counts := make(map[UnresolvedReason]int)
	if g == nil {
		return counts
	}
	for _, u := range g.Unresolved {
		reason := u.Reason
		if reason == "" {
			reason = ReasonNoCandidate
		}
		counts[reason]++
	}
	return counts
}

// FanIn returns how many components depend directly on each node.
func (g *Graph) FanIn() map[string]int {
	counts := make(map[string]int, len(g.Nodes))
	for name := range g.Nodes {
		counts[name] = 0
	}
	for _, e := range g.Edges {
		counts[e.To]++
	}
	return counts
}
