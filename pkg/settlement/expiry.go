// Copyright 2025 SP Consortium
package settlement

import "time"

// SweepExpired moves every non-terminal proposal whose ExpiresAt has
// passed to Expired, per spec §4.3. The pipeline coordinator's Run loop
// calls it on every settlement tick; grounded on the teacher's
// pkg/batch status-staleness idiom (IsBatchStalled) generalized from
// "stalled" detection to an outright terminal transition.
func (n *Negotiator) SweepExpired(now time.Time) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, p := range n.proposals {
		if terminal(p.Status) {
			continue
		}
		if now.After(p.ExpiresAt) {
			p.Status = StatusExpired
			count++
		}
	}
	return count
}
