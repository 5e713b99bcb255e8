package memory

import "time"

// IDGenerator issues message ids derived from wall-clock milliseconds.
// Ids are strictly increasing: when the clock has not advanced past the
// last issued id, the next id is last+1.
type IDGenerator struct {
	now  func() time.Time
	last int64
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

func (g *IDGenerator) Next() int64 {
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
