package process

import "proccount/pkg/models"

// Counter folds audit events into process node counts. It is not safe for
// concurrent use; events must be observed in stream order.
type Counter struct {
	// ids maps every identifier seen to its active flag. Keys are never removed.
	ids    map[string]bool
	events int64
	nodes  int64
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{ids: make(map[string]bool)}
}

// Observe applies one event.
func (c *Counter) Observe(event *models.AuditEvent) {
	if event == nil {
		return
	}

	id := event.SubjProcUUID
	c.declare(id)

	switch {
	case event.IsExec():
		// A first exec on a live node reuses it; any later exec counts a new node.
		if c.ids[id] {
			c.ids[id] = false
		} else {
			c.nodes++
		}
	case event.IsFork():
		c.declare(event.RetObjUUID1)
	}

	c.events++
}

func (c *Counter) declare(id string) {
	if _, ok := c.ids[id]; ok {
		return
	}
	c.ids[id] = true
	c.nodes++
}

// Known reports whether id has been seen and its active flag.
func (c *Counter) Known(id string) (active, ok bool) {
	active, ok = c.ids[id]
	return active, ok
}

// Summary returns the current counters.
func (c *Counter) Summary() models.Summary {
	return models.Summary{
		EventsProcessed:      c.events,
		ProcessNodesObserved: c.nodes,
		UniqueIDsObserved:    int64(len(c.ids)),
	}
}
