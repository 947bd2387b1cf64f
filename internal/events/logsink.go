package events

import (
	"github.com/rs/zerolog/log"

	"matchcore/internal/core"
)

// LogSink writes every event as a structured log line, in the teacher's
// zerolog idiom (internal/net/server.go's log.Info()/log.Error() chains).
// Intended for the engine host and for ad-hoc debugging, not the hot test
// path — prefer CollectorSink there.
type LogSink struct{}

func NewLogSink() LogSink {
	return LogSink{}
}

func (LogSink) OnOrderEvent(e core.OrderEvent) {
	evt := log.Info()
	if e.Status == core.Rejected {
		evt = log.Warn()
	}
	evt.
		Uint64("order_id", e.OrderID).
		Str("side", e.Side.String()).
		Uint64("price", e.Price).
		Str("status", e.Status.String()).
		Uint64("filled_size", e.FilledSize).
		Uint64("cum_filled_size", e.CumFilledSize).
		Uint64("remaining_size", e.RemainingSize).
		Str("reject_reason", e.RejectReason.String()).
		Msg("order event")
}

func (LogSink) OnTradeEvent(e core.TradeEvent) {
	log.Info().
		Uint64("price", e.Price).
		Uint64("size", e.Size).
		Str("taker_side", e.TakerSide.String()).
		Msg("trade event")
}
