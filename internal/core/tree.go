package core

import "github.com/tidwall/btree"

// sideTree is one side (bid or ask) of the book: a balanced ordered
// structure of *PriceLevel keyed by price, with an incrementally maintained
// pointer to the best (top-of-book) level so submit_execute never has to
// pay a tree lookup on its hot path.
//
// Bids are ordered best (highest) price first; asks are ordered best
// (lowest) price first. Both directions are expressed with the same
// btree.BTreeG, just with an opposite comparator, following the teacher's
// own bids/asks construction in engine/orderbook.go.
type sideTree struct {
	side Side
	tree *btree.BTreeG[*PriceLevel]
	best *PriceLevel
}

func newSideTree(side Side) *sideTree {
	var less func(a, b *PriceLevel) bool
	if side == Bid {
		less = func(a, b *PriceLevel) bool { return a.Price > b.Price }
	} else {
		less = func(a, b *PriceLevel) bool { return a.Price < b.Price }
	}
	return &sideTree{
		side: side,
		tree: btree.NewBTreeG(less),
	}
}

// insert adds a new, previously-unseen price level and refreshes the best
// cache in O(log N).
//
// Both bids and asks are ordered by their comparator so that the best
// (top-of-book) level is always the tree's minimum: bids compare greatest
// price first, asks compare least price first. That means a plain Min()
// after insert/delete is all the best cache ever needs, with no separate
// per-side comparison logic.
func (t *sideTree) insert(l *PriceLevel) {
	t.tree.Set(l)
	t.refreshBest()
}

// deleteLevel removes an emptied price level from the tree and, if it was
// the best level, recomputes the new best from the tree's new minimum.
func (t *sideTree) deleteLevel(l *PriceLevel) {
	t.tree.Delete(l)
	if t.best == l {
		t.refreshBest()
	}
}

func (t *sideTree) refreshBest() {
	if min, ok := t.tree.Min(); ok {
		t.best = min
	} else {
		t.best = nil
	}
}

// get returns the level at price, if any.
func (t *sideTree) get(price uint64) (*PriceLevel, bool) {
	probe := &PriceLevel{Price: price}
	return t.tree.Get(probe)
}

// bestPrice reports the top-of-book price and whether the side is non-empty.
func (t *sideTree) bestPrice() (uint64, bool) {
	if t.best == nil {
		return 0, false
	}
	return t.best.Price, true
}

// crosses reports whether a taker at price would match against this side's
// best level: for the ask side (a bid taker matches against), best <= price;
// for the bid side (an ask taker matches against), best >= price.
func (t *sideTree) crosses(price uint64) bool {
	if t.best == nil {
		return false
	}
	if t.side == Ask {
		return t.best.Price <= price
	}
	return t.best.Price >= price
}

// topN walks at most n levels from the best price outward, in priority
// order, invoking fn with each level. Grounded on original_source's
// recursive _orderbook_top_n_bid/_ask walk, expressed with btree.BTreeG's
// iterator since that's the teacher's own dependency.
func (t *sideTree) topN(n int, fn func(*PriceLevel)) {
	count := 0
	t.tree.Scan(func(l *PriceLevel) bool {
		if count >= n {
			return false
		}
		fn(l)
		count++
		return true
	})
}

// size returns the number of distinct price levels on this side.
func (t *sideTree) size() int {
	return t.tree.Len()
}
