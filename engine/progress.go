package engine

import "sync/atomic"

// Progress holds live transfer counters, cumulative across every batch a
// Client runs. Safe for concurrent reads while a batch is in flight.
type Progress struct {
	Submitted atomic.Uint64
	Copied    atomic.Uint64
	Skipped   atomic.Uint64
	Failed    atomic.Uint64
}

// Progress returns the client's live counters.
func (c *Client) Progress() *Progress {
	return &c.progress
}

func (p *Progress) record(o Outcome) {
	switch {
	case o.Failed():
		p.Failed.Add(1)
	case o.Skipped:
		p.Skipped.Add(1)
	default:
		p.Copied.Add(1)
	}
}
