package core

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replayTrace deterministically generates n messages (a mix of limit
// submits, market executes and cancels) from a fixed seed and drives them
// through book, asserting the book's structural invariants after every
// single operation. This is the property-checking half of the golden-file replay
// test; a literal byte-for-byte snapshot comparison against a checked-in
// ladder rendering is infeasible to author without running the engine to
// produce the snapshot in the first place (see DESIGN.md), so this test
// instead re-derives and checks the same invariants the golden file would
// indirectly encode.
func replayTrace(t *testing.T, n int) {
	t.Helper()
	book := NewOrderBook()
	rng := rand.New(rand.NewSource(42))

	resting := make([]uint64, 0, n)
	nextID := uint64(1)

	for i := 0; i < n; i++ {
		op := rng.Intn(10)
		switch {
		case op < 6 || len(resting) == 0:
			side := Bid
			if rng.Intn(2) == 0 {
				side = Ask
			}
			// SubmitLimit is maker-only (book.go:92) and never checks the
			// opposite side, so the generator itself must keep bids and asks
			// from ever overlapping: bids draw from [90,100), asks from
			// [100,110], a fixed gap at 100 neither side can cross into.
			var price uint64
			if side == Bid {
				price = uint64(90 + rng.Intn(10)) // 90..99
			} else {
				price = uint64(100 + rng.Intn(11)) // 100..110
			}
			size := uint64(1 + rng.Intn(20))
			id := nextID
			nextID++
			require.NoError(t, book.SubmitLimit(id, side, price, size))
			resting = append(resting, id)
		case op < 8:
			side := Bid
			if rng.Intn(2) == 0 {
				side = Ask
			}
			size := uint64(1 + rng.Intn(40))
			id := nextID
			nextID++
			_, err := book.SubmitExecute(id, side, size)
			require.NoError(t, err)
		default:
			idx := rng.Intn(len(resting))
			id := resting[idx]
			err := book.Cancel(id)
			if err == nil {
				resting = append(resting[:idx], resting[idx+1:]...)
			}
		}

		assertInvariants(t, book)
	}
}

// assertInvariants checks that no empty level is reachable from a tree, that
// each level's Volume and Count match its queue, that each tree is in price
// priority order with the best cache on its extreme level, and that the book
// does not cross. The order-id index is not checked here.
func assertInvariants(t *testing.T, book *OrderBook) {
	t.Helper()

	checkSide := func(side Side, tree *sideTree) {
		var sawAny bool
		var prevPrice uint64
		var havePrev bool
		tree.tree.Scan(func(l *PriceLevel) bool {
			sawAny = true
			assert.Greater(t, l.Count, 0, "empty level must not be reachable from the tree")

			var vol uint64
			var cnt int
			for o := l.head; o != nil; o = o.next {
				vol += o.RemainingSize
				cnt++
				assert.Equal(t, l, o.level)
			}
			assert.Equal(t, l.Volume, vol)
			assert.Equal(t, l.Count, cnt)

			if havePrev {
				if side == Bid {
					assert.Greater(t, prevPrice, l.Price)
				} else {
					assert.Less(t, prevPrice, l.Price)
				}
			}
			prevPrice = l.Price
			havePrev = true
			return true
		})

		best, ok := tree.bestPrice()
		assert.Equal(t, sawAny, ok)
		if ok {
			min, _ := tree.tree.Min()
			assert.Equal(t, min.Price, best)
		}
	}

	checkSide(Bid, book.bids)
	checkSide(Ask, book.asks)

	bestBid, okB := book.BestPrice(Bid)
	bestAsk, okA := book.BestPrice(Ask)
	if okB && okA {
		assert.Less(t, bestBid, bestAsk, "book must never cross")
	}
}

func TestReplay_100(t *testing.T)    { replayTrace(t, 100) }
func TestReplay_1000(t *testing.T)   { replayTrace(t, 1000) }
func TestReplay_10000(t *testing.T)  { replayTrace(t, 10000) }
func TestReplay_100000(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 100k-message replay in -short mode")
	}
	replayTrace(t, 100000)
}
