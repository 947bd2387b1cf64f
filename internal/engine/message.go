package engine

import (
	"errors"

	"matchcore/internal/core"
)

// ErrUnknownMessageKind is returned by Dispatch for a MessageKind outside
// {Created, Deleted, Changed}.
var ErrUnknownMessageKind = errors.New("engine: unknown message kind")

// MessageKind distinguishes the three input message shapes the core
// accepts (spec §6): "created" covers both submit_limit and submit_execute
// depending on price, "deleted" is a cancel, "changed" is an amend.
type MessageKind int

const (
	Created MessageKind = iota
	Deleted
	Changed
)

// Message is the engine-level representation of one inbound order message,
// independent of how it arrived on the wire (see internal/net for the
// binary frame this is decoded from).
type Message struct {
	Symbol  string
	Kind    MessageKind
	OrderID uint64
	Side    core.Side
	Price   uint64 // 0 => submit_execute (market) on a Created message
	Size    uint64
}

// Dispatch routes msg to the correct engine operation per the table in
// spec §6:
//
//	kind=created, price>0, size>0  -> submit_limit
//	kind=created, price=0, size>0  -> submit_execute (market)
//	kind=deleted, order_id         -> cancel
//	kind=changed, order_id, size   -> amend_size
func (e *Engine) Dispatch(msg Message) error {
	switch msg.Kind {
	case Created:
		if msg.Price == 0 {
			_, err := e.SubmitExecute(msg.Symbol, msg.OrderID, msg.Side, msg.Size)
			return err
		}
		return e.SubmitLimit(msg.Symbol, msg.OrderID, msg.Side, msg.Price, msg.Size)
	case Deleted:
		return e.Cancel(msg.Symbol, msg.OrderID)
	case Changed:
		return e.AmendSize(msg.Symbol, msg.OrderID, msg.Size)
	default:
		return ErrUnknownMessageKind
	}
}
