package core

import (
	"fmt"
	"strings"
)

// OrderBook is a single-instrument, single-threaded price-time priority
// limit order book. Every exported method must be called from one logical
// executor at a time (see the package doc in order.go); internally it owns
// two side trees, an order-id index, two price-level indices (one per
// side) and the arenas both trees' nodes are drawn from.
type OrderBook struct {
	bids *sideTree
	asks *sideTree

	ordersByID    *uint64Map[*Order]
	bidLevelsByPx *uint64Map[*PriceLevel]
	askLevelsByPx *uint64Map[*PriceLevel]

	orders *orderPool
	levels *levelPool

	sink Sink
}

// NewOrderBook returns an empty book with events dropped until SetSink is
// called.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:          newSideTree(Bid),
		asks:          newSideTree(Ask),
		ordersByID:    newUint64Map[*Order](256),
		bidLevelsByPx: newUint64Map[*PriceLevel](64),
		askLevelsByPx: newUint64Map[*PriceLevel](64),
		orders:        &orderPool{},
		levels:        &levelPool{},
		sink:          NopSink{},
	}
}

// SetSink registers the single sink that receives every subsequent event.
// A nil sink is replaced with NopSink so the hot path never needs a nil
// check.
func (b *OrderBook) SetSink(s Sink) {
	if s == nil {
		s = NopSink{}
	}
	b.sink = s
}

func (b *OrderBook) treeAndIndex(side Side) (*sideTree, *uint64Map[*PriceLevel]) {
	if side == Bid {
		return b.bids, b.bidLevelsByPx
	}
	return b.asks, b.askLevelsByPx
}

// levelFor returns the price level at price on side, creating and
// inserting it into the tree and price index if absent.
func (b *OrderBook) levelFor(side Side, price uint64) *PriceLevel {
	tree, index := b.treeAndIndex(side)
	if l, ok := index.get(price); ok {
		return l
	}
	l := b.levels.get()
	l.Price = price
	l.Side = side
	index.put(price, l)
	tree.insert(l)
	return l
}

// evictIfEmpty removes level from its tree and price index once its queue
// is empty, recomputing the side's best if needed, and returns the level
// node to the pool.
func (b *OrderBook) evictIfEmpty(side Side, level *PriceLevel) {
	if !level.empty() {
		return
	}
	tree, index := b.treeAndIndex(side)
	tree.deleteLevel(level)
	index.remove(level.Price)
	b.levels.put(level)
}

// SubmitLimit rests a new maker order in the book. It never matches against
// crossing liquidity: every limit submission is treated as a maker order,
// per this engine's pinned resolution of the crossing-semantics open
// question. SubmitExecute is the book's only matching path, and it takes no
// limit price, so there is no price-capped (aggressive-limit) taker.
func (b *OrderBook) SubmitLimit(orderID uint64, side Side, price, size uint64) error {
	if orderID == 0 {
		return ErrInvalidOrderSize
	}
	if price == 0 {
		return ErrInvalidPrice
	}
	if size == 0 {
		return ErrInvalidOrderSize
	}
	if _, exists := b.ordersByID.get(orderID); exists {
		return ErrDuplicateOrderID
	}

	o := b.orders.get()
	o.OrderID = orderID
	o.Side = side
	o.Price = price
	o.RemainingSize = size
	o.CumFilledSize = 0
	o.originalSize = size
	o.checkSizeInvariant()

	level := b.levelFor(side, price)
	level.append(o)
	b.ordersByID.put(orderID, o)

	b.sink.OnOrderEvent(OrderEvent{
		OrderID:       o.OrderID,
		Side:          o.Side,
		Price:         o.Price,
		Status:        Created,
		FilledSize:    0,
		CumFilledSize: 0,
		RemainingSize: o.RemainingSize,
	})
	return nil
}

// SubmitExecute is a taker operation that walks the opposite side from the
// best price inward, consuming liquidity until size is filled or the
// opposite side empties. It returns the unfilled remainder (0 on a full
// fill). side is the taker's own side; it matches against the opposite
// side of the book.
//
// The call takes neither a price nor a market/limit flag: every execute
// walks the opposite side with no price bound, as a market order does (a
// market operation is this distinct function, not an order carrying
// price=0).
func (b *OrderBook) SubmitExecute(orderID uint64, side Side, size uint64) (unfilled uint64, err error) {
	if orderID == 0 || size == 0 {
		return size, ErrInvalidOrderSize
	}

	opposite := side.opposite()
	tree, _ := b.treeAndIndex(opposite)

	remaining := size
	cumFilled := uint64(0)

	if tree.best == nil {
		b.sink.OnOrderEvent(OrderEvent{
			OrderID:       orderID,
			Side:          side,
			Status:        Rejected,
			RejectReason:  RejectReasonNoLiquidity,
			RemainingSize: remaining,
		})
		return remaining, nil
	}

	for remaining > 0 && tree.best != nil {
		level := tree.best
		maker, filled, exhausted := level.fillHead(remaining)
		maker.checkSizeInvariant()
		remaining -= filled
		cumFilled += filled

		makerStatus := PartiallyFilled
		if exhausted {
			makerStatus = Filled
		}
		b.sink.OnOrderEvent(OrderEvent{
			OrderID:       maker.OrderID,
			Side:          maker.Side,
			Price:         maker.Price,
			Status:        makerStatus,
			FilledSize:    filled,
			CumFilledSize: maker.CumFilledSize,
			RemainingSize: maker.RemainingSize,
		})

		takerStatus := PartiallyFilled
		if remaining == 0 {
			takerStatus = Filled
		}
		b.sink.OnOrderEvent(OrderEvent{
			OrderID:       orderID,
			Side:          side,
			Price:         maker.Price,
			Status:        takerStatus,
			FilledSize:    filled,
			CumFilledSize: cumFilled,
			RemainingSize: remaining,
		})

		b.sink.OnTradeEvent(TradeEvent{
			Price:     maker.Price,
			Size:      filled,
			TakerSide: side,
		})

		if exhausted {
			b.ordersByID.remove(maker.OrderID)
			b.orders.put(maker)
			b.evictIfEmpty(opposite, level)
		}
	}

	if remaining > 0 {
		b.sink.OnOrderEvent(OrderEvent{
			OrderID:       orderID,
			Side:          side,
			Status:        PartiallyFilledCancelled,
			CumFilledSize: cumFilled,
			RemainingSize: remaining,
		})
	}

	return remaining, nil
}

// Cancel removes a resting order from the book in O(1), emitting Cancelled
// with its surviving cum_filled_size and remaining_size.
func (b *OrderBook) Cancel(orderID uint64) error {
	o, ok := b.ordersByID.get(orderID)
	if !ok {
		return ErrOrderNotFound
	}

	level := o.level
	side := o.Side
	level.remove(o)
	b.ordersByID.remove(orderID)
	b.evictIfEmpty(side, level)

	b.sink.OnOrderEvent(OrderEvent{
		OrderID:       o.OrderID,
		Side:          o.Side,
		Price:         o.Price,
		Status:        Cancelled,
		CumFilledSize: o.CumFilledSize,
		RemainingSize: o.RemainingSize,
	})

	b.orders.put(o)
	return nil
}

// AmendSize changes a resting order's remaining size without moving its
// queue position — a deliberate policy: size amends never cost time
// priority, even when the new size is larger than the old one.
func (b *OrderBook) AmendSize(orderID uint64, newSize uint64) error {
	if newSize == 0 {
		return ErrInvalidOrderSize
	}
	o, ok := b.ordersByID.get(orderID)
	if !ok {
		return ErrOrderNotFound
	}

	delta := int64(newSize) - int64(o.RemainingSize)
	newVolume := int64(o.level.Volume) + delta
	invariant(newVolume >= 0,
		"price level %d volume went negative amending order %d (volume=%d, delta=%d)",
		o.level.Price, orderID, o.level.Volume, delta)

	o.level.Volume = uint64(newVolume)
	o.RemainingSize = newSize
	o.originalSize = uint64(int64(o.originalSize) + delta)
	o.checkSizeInvariant()
	return nil
}

// LevelView is a read-only snapshot of one price level, returned by TopN.
type LevelView struct {
	Price  uint64
	Volume uint64
}

// TopN returns up to n levels on side in best-to-worst order.
func (b *OrderBook) TopN(side Side, n int) []LevelView {
	tree, _ := b.treeAndIndex(side)
	out := make([]LevelView, 0, n)
	tree.topN(n, func(l *PriceLevel) {
		out = append(out, LevelView{Price: l.Price, Volume: l.Volume})
	})
	return out
}

// BestPrice reports the top-of-book price on side, if the side is
// non-empty.
func (b *OrderBook) BestPrice(side Side) (uint64, bool) {
	tree, _ := b.treeAndIndex(side)
	return tree.bestPrice()
}

// Render produces the two-sided ladder: asks worst-to-best, a separator,
// then bids best-to-worst. Each line is "<price> (<volume>)". Grounded on
// original_source's orderbook_print, which renders in the same order with
// a separator line between the two sides.
func (b *OrderBook) Render() string {
	var sb strings.Builder

	asks := b.TopN(Ask, b.asks.size())
	for i := len(asks) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%d (%d)\n", asks[i].Price, asks[i].Volume)
	}

	sb.WriteString("-----------------------\n")

	for _, lv := range b.TopN(Bid, b.bids.size()) {
		fmt.Fprintf(&sb, "%d (%d)\n", lv.Price, lv.Volume)
	}

	return sb.String()
}
