package core

// PriceLevel is the FIFO queue of resting orders at a single price on one
// side of the book, plus the aggregate bookkeeping the side tree and top_n
// snapshot need without walking the queue.
type PriceLevel struct {
	Price  uint64
	Side   Side
	Volume uint64 // sum of RemainingSize across every order in the queue
	Count  int    // number of orders in the queue

	head, tail *Order
}

// append adds order to the tail of the queue: it becomes the
// last-in-time order at this price, per price-time priority.
func (l *PriceLevel) append(o *Order) {
	o.level = l
	o.prev = l.tail
	o.next = nil
	if l.tail != nil {
		l.tail.next = o
	} else {
		l.head = o
	}
	l.tail = o
	l.Volume += o.RemainingSize
	l.Count++
}

// remove splices order out of the queue in O(1) given the order is already
// known to belong to this level (the caller looks it up via the order-id
// index first). It does not free the order; the caller decides disposal.
func (l *PriceLevel) remove(o *Order) {
	invariant(l.Count > 0, "remove called on empty price level %d", l.Price)
	invariant(l.Volume >= o.RemainingSize,
		"price level %d volume %d would underflow removing order %d (remaining=%d)",
		l.Price, l.Volume, o.OrderID, o.RemainingSize)

	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	l.Volume -= o.RemainingSize
	l.Count--
	o.prev, o.next, o.level = nil, nil, nil
}

// empty reports whether the level has no resting orders left.
func (l *PriceLevel) empty() bool {
	return l.head == nil
}

// fillHead consumes up to qty from the order at the head of the queue,
// returning the order that was (partially or fully) filled, the amount
// taken from it, and whether it was fully consumed and detached.
//
// It never looks past the head: the caller (submit_execute) calls this
// once per matched order and re-reads the new head on the next iteration,
// which is what keeps the step-by-step event ordering (maker event, taker
// event, trade event, per fill) correct.
func (l *PriceLevel) fillHead(qty uint64) (order *Order, filled uint64, exhausted bool) {
	head := l.head
	if head == nil {
		return nil, 0, false
	}

	filled = qty
	if filled > head.RemainingSize {
		filled = head.RemainingSize
	}

	invariant(l.Volume >= filled,
		"price level %d volume %d would underflow filling %d from order %d",
		l.Price, l.Volume, filled, head.OrderID)

	head.RemainingSize -= filled
	head.CumFilledSize += filled
	l.Volume -= filled

	if head.RemainingSize == 0 {
		l.remove(head)
		exhausted = true
	}

	return head, filled, exhausted
}
