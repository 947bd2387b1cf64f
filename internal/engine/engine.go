// Package engine hosts one matchcore/internal/core.OrderBook per traded
// symbol and dispatches inbound messages to the right book. Generalized
// from the teacher's engine.Engine{Books map[AssetType]OrderBook}, which
// fixed a closed AssetType enum; this version keys by an arbitrary symbol
// string so the set of instruments is configuration, not compiled in.
package engine

import (
	"errors"
	"sync"

	"matchcore/internal/core"
)

// Engine owns every symbol's book. It is safe for concurrent use by
// multiple goroutines submitting to *different* symbols; two goroutines
// submitting to the *same* symbol still serialise through that symbol's
// bookHandle.mu, since core.OrderBook itself is not safe for concurrent mutation
// (the core's book is single-threaded by design).
type Engine struct {
	mu    sync.RWMutex
	books map[string]*bookHandle
	sink  core.Sink
}

type bookHandle struct {
	mu   sync.Mutex
	book *core.OrderBook
}

// ErrUnknownSymbol is returned when an operation names a symbol that was
// never registered via AddSymbol.
var ErrUnknownSymbol = errors.New("engine: unknown symbol")

// New returns an engine with no books; register each traded instrument with
// AddSymbol before routing messages to it.
func New(sink core.Sink) *Engine {
	if sink == nil {
		sink = core.NopSink{}
	}
	return &Engine{
		books: make(map[string]*bookHandle),
		sink:  sink,
	}
}

// AddSymbol registers symbol with a fresh, empty book. Calling it twice for
// the same symbol is a no-op on the second call.
func (e *Engine) AddSymbol(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.books[symbol]; ok {
		return
	}
	b := core.NewOrderBook()
	b.SetSink(e.sink)
	e.books[symbol] = &bookHandle{book: b}
}

// Symbols returns the set of currently registered symbols.
func (e *Engine) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.books))
	for s := range e.books {
		out = append(out, s)
	}
	return out
}

// withBook locks and invokes fn against symbol's book, or returns
// ErrUnknownSymbol if the symbol was never registered via AddSymbol.
func (e *Engine) withBook(symbol string, fn func(*core.OrderBook) error) error {
	e.mu.RLock()
	h, ok := e.books[symbol]
	e.mu.RUnlock()
	if !ok {
		return ErrUnknownSymbol
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.book)
}

// SubmitLimit routes a resting maker order to symbol's book.
func (e *Engine) SubmitLimit(symbol string, orderID uint64, side core.Side, price, size uint64) error {
	return e.withBook(symbol, func(b *core.OrderBook) error {
		return b.SubmitLimit(orderID, side, price, size)
	})
}

// SubmitExecute routes a taker order to symbol's book, returning the
// unfilled remainder.
func (e *Engine) SubmitExecute(symbol string, orderID uint64, side core.Side, size uint64) (uint64, error) {
	var unfilled uint64
	err := e.withBook(symbol, func(b *core.OrderBook) error {
		var innerErr error
		unfilled, innerErr = b.SubmitExecute(orderID, side, size)
		return innerErr
	})
	return unfilled, err
}

// Cancel routes a cancel request to symbol's book.
func (e *Engine) Cancel(symbol string, orderID uint64) error {
	return e.withBook(symbol, func(b *core.OrderBook) error {
		return b.Cancel(orderID)
	})
}

// AmendSize routes a size amend to symbol's book.
func (e *Engine) AmendSize(symbol string, orderID, newSize uint64) error {
	return e.withBook(symbol, func(b *core.OrderBook) error {
		return b.AmendSize(orderID, newSize)
	})
}

// Render returns the ladder rendering for symbol's book.
func (e *Engine) Render(symbol string) (string, error) {
	var out string
	err := e.withBook(symbol, func(b *core.OrderBook) error {
		out = b.Render()
		return nil
	})
	return out, err
}

// TopN returns the top n levels on side of symbol's book.
func (e *Engine) TopN(symbol string, side core.Side, n int) ([]core.LevelView, error) {
	var out []core.LevelView
	err := e.withBook(symbol, func(b *core.OrderBook) error {
		out = b.TopN(side, n)
		return nil
	})
	return out, err
}
