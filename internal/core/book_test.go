package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Setup & Helpers --------------------------------------------------------

func newTestBook() (*OrderBook, *recordingSink) {
	book := NewOrderBook()
	sink := &recordingSink{}
	book.SetSink(sink)
	return book, sink
}

// recordingSink mirrors the shape of internal/events.CollectorSink but
// lives in-package so core's tests don't import the higher-level events
// package (core must not depend on its own consumers).
type recordingSink struct {
	orders []OrderEvent
	trades []TradeEvent
}

func (s *recordingSink) OnOrderEvent(e OrderEvent) { s.orders = append(s.orders, e) }
func (s *recordingSink) OnTradeEvent(e TradeEvent) { s.trades = append(s.trades, e) }

// --- Scenario 1: new best bid -------------------------------------------------

func TestSubmitLimit_NewBestBid(t *testing.T) {
	book, sink := newTestBook()

	require.NoError(t, book.SubmitLimit(1, Bid, 10, 1))
	require.NoError(t, book.SubmitLimit(2, Bid, 11, 1))

	best, ok := book.BestPrice(Bid)
	require.True(t, ok)
	assert.Equal(t, uint64(11), best)
	assert.Equal(t, 2, book.bids.size())

	require.Len(t, sink.orders, 2)
	assert.Equal(t, Created, sink.orders[0].Status)
	assert.Equal(t, uint64(1), sink.orders[0].OrderID)
	assert.Equal(t, Created, sink.orders[1].Status)
	assert.Equal(t, uint64(2), sink.orders[1].OrderID)
}

// --- Scenario 2: FIFO within a level ------------------------------------------

func TestSubmitExecute_FIFOWithinLevel(t *testing.T) {
	book, sink := newTestBook()

	require.NoError(t, book.SubmitLimit(1, Bid, 10, 1))
	require.NoError(t, book.SubmitLimit(2, Bid, 10, 2))
	require.NoError(t, book.SubmitLimit(3, Bid, 10, 3))

	unfilled, err := book.SubmitExecute(9, Ask, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), unfilled)

	level, ok := book.bidLevelsByPx.get(10)
	require.True(t, ok)
	assert.Equal(t, uint64(4), level.Volume)
	assert.Equal(t, 2, level.Count)
	assert.Equal(t, uint64(2), level.head.OrderID)
	assert.Equal(t, uint64(1), level.head.RemainingSize)

	require.Len(t, sink.trades, 2)
	assert.Equal(t, TradeEvent{Price: 10, Size: 1, TakerSide: Ask}, sink.trades[0])
	assert.Equal(t, TradeEvent{Price: 10, Size: 1, TakerSide: Ask}, sink.trades[1])

	// order 1 ends fully filled, order 2 partially filled.
	var o1Status, o2Status Status
	for _, e := range sink.orders {
		switch e.OrderID {
		case 1:
			o1Status = e.Status
		case 2:
			o2Status = e.Status
		}
	}
	assert.Equal(t, Filled, o1Status)
	assert.Equal(t, PartiallyFilled, o2Status)
}

// --- Scenario 3: market walk across levels ------------------------------------

func TestSubmitExecute_WalksAcrossLevels(t *testing.T) {
	book, _ := newTestBook()

	require.NoError(t, book.SubmitLimit(1, Bid, 10, 1))
	require.NoError(t, book.SubmitLimit(2, Bid, 10, 2))
	require.NoError(t, book.SubmitLimit(3, Bid, 10, 3))
	require.NoError(t, book.SubmitLimit(4, Bid, 11, 2))
	require.NoError(t, book.SubmitLimit(5, Bid, 12, 1))

	unfilled, err := book.SubmitExecute(9, Ask, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), unfilled)

	assert.Equal(t, 1, book.bids.size())
	best, ok := book.BestPrice(Bid)
	require.True(t, ok)
	assert.Equal(t, uint64(10), best)

	level, ok := book.bidLevelsByPx.get(10)
	require.True(t, ok)
	assert.Equal(t, uint64(4), level.Volume)
}

// --- Scenario 4: no liquidity --------------------------------------------------

func TestSubmitExecute_NoLiquidity(t *testing.T) {
	book, sink := newTestBook()

	unfilled, err := book.SubmitExecute(1, Bid, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), unfilled)

	require.Len(t, sink.orders, 1)
	assert.Equal(t, Rejected, sink.orders[0].Status)
	assert.Equal(t, RejectReasonNoLiquidity, sink.orders[0].RejectReason)
	assert.Equal(t, uint64(3), sink.orders[0].RemainingSize)
}

// --- Scenario 5: cancel best collapses best -----------------------------------

func TestCancel_BestCollapses(t *testing.T) {
	book, sink := newTestBook()

	require.NoError(t, book.SubmitLimit(1, Bid, 10, 1))
	require.NoError(t, book.SubmitLimit(2, Bid, 11, 1))
	require.NoError(t, book.SubmitLimit(3, Bid, 12, 1))

	require.NoError(t, book.Cancel(3))

	best, ok := book.BestPrice(Bid)
	require.True(t, ok)
	assert.Equal(t, uint64(11), best)
	assert.Equal(t, 2, book.bids.size())

	last := sink.orders[len(sink.orders)-1]
	assert.Equal(t, Cancelled, last.Status)
	assert.Equal(t, uint64(3), last.OrderID)
}

// --- Scenario 6: partial taker cancelled ---------------------------------------

func TestSubmitExecute_PartialTakerCancelled(t *testing.T) {
	book, sink := newTestBook()

	require.NoError(t, book.SubmitLimit(1, Bid, 10, 3))

	unfilled, err := book.SubmitExecute(2, Ask, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), unfilled)

	last := sink.orders[len(sink.orders)-1]
	assert.Equal(t, PartiallyFilledCancelled, last.Status)
	assert.Equal(t, uint64(3), last.CumFilledSize)
	assert.Equal(t, uint64(2), last.RemainingSize)

	_, ok := book.BestPrice(Bid)
	assert.False(t, ok)
}

// --- Property laws -------------------------------------------------------------

func TestCancelInverse(t *testing.T) {
	book, sink := newTestBook()

	require.NoError(t, book.SubmitLimit(1, Bid, 10, 5))
	require.NoError(t, book.Cancel(1))

	_, ok := book.BestPrice(Bid)
	assert.False(t, ok)
	assert.Equal(t, 0, book.bids.size())

	require.Len(t, sink.orders, 2)
	assert.Equal(t, Created, sink.orders[0].Status)
	assert.Equal(t, Cancelled, sink.orders[1].Status)
}

func TestAmendIdempotence(t *testing.T) {
	bookA, _ := newTestBook()
	bookB, _ := newTestBook()

	require.NoError(t, bookA.SubmitLimit(1, Bid, 10, 5))
	require.NoError(t, bookB.SubmitLimit(1, Bid, 10, 5))

	require.NoError(t, bookA.AmendSize(1, 8))

	require.NoError(t, bookB.AmendSize(1, 8))
	require.NoError(t, bookB.AmendSize(1, 8))

	levelA, _ := bookA.bidLevelsByPx.get(10)
	levelB, _ := bookB.bidLevelsByPx.get(10)
	assert.Equal(t, levelA.Volume, levelB.Volume)
	assert.Equal(t, levelA.head.RemainingSize, levelB.head.RemainingSize)
}

func TestAmendSize_NeverDemotesQueuePosition(t *testing.T) {
	book, _ := newTestBook()

	require.NoError(t, book.SubmitLimit(1, Bid, 10, 1))
	require.NoError(t, book.SubmitLimit(2, Bid, 10, 1))

	// Growing order 1 past order 2's size must not move it behind order 2.
	require.NoError(t, book.AmendSize(1, 100))

	level, ok := book.bidLevelsByPx.get(10)
	require.True(t, ok)
	assert.Equal(t, uint64(1), level.head.OrderID)
	assert.Equal(t, uint64(101), level.Volume)
}

// --- Failure semantics -----------------------------------------------------

func TestSubmitLimit_DuplicateOrderID(t *testing.T) {
	book, _ := newTestBook()
	require.NoError(t, book.SubmitLimit(1, Bid, 10, 1))
	err := book.SubmitLimit(1, Bid, 10, 1)
	assert.ErrorIs(t, err, ErrDuplicateOrderID)
}

func TestCancel_UnknownOrder(t *testing.T) {
	book, _ := newTestBook()
	err := book.Cancel(42)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAmendSize_UnknownOrder(t *testing.T) {
	book, _ := newTestBook()
	err := book.AmendSize(42, 5)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAmendSize_Zero(t *testing.T) {
	book, _ := newTestBook()
	require.NoError(t, book.SubmitLimit(1, Bid, 10, 1))
	err := book.AmendSize(1, 0)
	assert.ErrorIs(t, err, ErrInvalidOrderSize)
}

// --- Rendering ----------------------------------------------------------------

func TestRender_LadderFormat(t *testing.T) {
	book, _ := newTestBook()
	require.NoError(t, book.SubmitLimit(1, Bid, 10, 1))
	require.NoError(t, book.SubmitLimit(2, Ask, 11, 2))

	got := book.Render()
	want := "11 (2)\n-----------------------\n10 (1)\n"
	assert.Equal(t, want, got)
}

// --- Invariant checks via full scenario sweeps ---------------------------------

func TestBookNeverCrosses(t *testing.T) {
	book, _ := newTestBook()

	require.NoError(t, book.SubmitLimit(1, Bid, 10, 5))
	require.NoError(t, book.SubmitLimit(2, Ask, 12, 5))

	bestBid, okB := book.BestPrice(Bid)
	bestAsk, okA := book.BestPrice(Ask)
	require.True(t, okB)
	require.True(t, okA)
	assert.Less(t, bestBid, bestAsk)
}

func TestTopN_BestToWorst(t *testing.T) {
	book, _ := newTestBook()

	require.NoError(t, book.SubmitLimit(1, Bid, 10, 1))
	require.NoError(t, book.SubmitLimit(2, Bid, 12, 1))
	require.NoError(t, book.SubmitLimit(3, Bid, 11, 1))

	levels := book.TopN(Bid, 10)
	require.Len(t, levels, 3)
	assert.Equal(t, []uint64{12, 11, 10}, []uint64{levels[0].Price, levels[1].Price, levels[2].Price})
}
