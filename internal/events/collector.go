// Package events collects concrete core.Sink implementations: an in-memory
// collector for tests, a structured-log sink, and a Prometheus metrics
// sink. The event types and the Sink interface itself live in
// matchcore/internal/core, since the event emitter is part of the core
// component's own contract (hot-path, no allocation); this package only
// supplies external consumers of that stream.
package events

import "matchcore/internal/core"

// CollectorSink accumulates every event it receives, in arrival order, for
// assertions in tests. Grounded on the teacher's
// internal/tests/orderbook_test.go style of building an expected trace and
// comparing it against what the engine actually produced.
type CollectorSink struct {
	OrderEvents []core.OrderEvent
	TradeEvents []core.TradeEvent
}

func NewCollectorSink() *CollectorSink {
	return &CollectorSink{}
}

func (c *CollectorSink) OnOrderEvent(e core.OrderEvent) {
	c.OrderEvents = append(c.OrderEvents, e)
}

func (c *CollectorSink) OnTradeEvent(e core.TradeEvent) {
	c.TradeEvents = append(c.TradeEvents, e)
}

// Reset discards all accumulated events so a single collector can be reused
// across subtests.
func (c *CollectorSink) Reset() {
	c.OrderEvents = c.OrderEvents[:0]
	c.TradeEvents = c.TradeEvents[:0]
}
