package core

import "errors"

// Caller errors: a rejected request, returned to the caller; no event is
// emitted on the Sink for it. Matches the teacher's sentinel
// style (ErrNotEnoughLiquidity/ErrRejection in engine/orderbook.go).
var (
	ErrDuplicateOrderID = errors.New("core: order id already resting in book")
	ErrOrderNotFound    = errors.New("core: order id not found")
	ErrInvalidOrderSize = errors.New("core: order size must be greater than zero")
	ErrInvalidPrice     = errors.New("core: limit order price must be greater than zero")
)
