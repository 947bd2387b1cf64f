// Package net implements the binary wire protocol (a 2-byte type header and
// a fixed-layout body, with no length prefix) carrying
// order/cancel/amend requests in and execution/error reports out, adapted
// from the teacher's internal/net/messages.go. The frame layouts are the
// ones described in SPEC_FULL.md §6's wire protocol section; order_id
// stays the caller-supplied uint64 from internal/core throughout — the
// uuid.UUID here is a transport-level correlation id, not the order's
// identity.
package net

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"matchcore/internal/core"
	"matchcore/internal/engine"
)

var (
	ErrInvalidMessageType = errors.New("net: invalid message type")
	ErrMessageTooShort    = errors.New("net: message too short for its header")
)

// MessageType identifies the frame kind carried in a request's 2-byte
// header.
type MessageType uint16

const (
	TypeHeartbeat MessageType = iota
	TypeNewOrder
	TypeCancelOrder
	TypeAmendOrder
)

// ReportType identifies an outbound report frame.
type ReportType uint8

const (
	ReportOrderEvent ReportType = iota
	ReportTradeEvent
	ReportError
)

// Frame format constants, per SPEC_FULL.md §6:
//
//	Header: 2-byte big-endian message type.
//	NewOrder: symbol(4) + kind(1) + side(1) + price(8) + quantity(8) + ownerLen(2) + owner(n)
//	CancelOrder: symbol(4) + order_id(8)
//	AmendOrder: symbol(4) + order_id(8) + new_size(8)
//	Heartbeat: no body.
const (
	headerLen           = 2
	symbolLen           = 4
	newOrderFixedLen    = symbolLen + 1 + 1 + 8 + 8 + 2
	cancelOrderFixedLen = symbolLen + 8
	amendOrderFixedLen  = symbolLen + 8 + 8
)

// OrderKind distinguishes a limit request from a market (execute) request
// on the wire; price==0 on a NewOrder frame means market, per spec §6.
type OrderKind uint8

const (
	KindLimit OrderKind = iota
	KindMarket
)

// NewOrderFrame is a decoded submit_limit/submit_execute request.
type NewOrderFrame struct {
	CorrelationID uuid.UUID
	Symbol        string
	Kind          OrderKind
	Side          core.Side
	Price         uint64
	Quantity      uint64
	Owner         string
}

// ToMessage converts the frame into the engine's symbol-routed message,
// assigning orderID as the order's core.Order identity (distinct from the
// frame's CorrelationID, which only tracks the request/report pairing).
func (f NewOrderFrame) ToMessage(orderID uint64) engine.Message {
	return engine.Message{
		Symbol:  f.Symbol,
		Kind:    engine.Created,
		OrderID: orderID,
		Side:    f.Side,
		Price:   f.Price,
		Size:    f.Quantity,
	}
}

func parseNewOrder(body []byte) (NewOrderFrame, error) {
	if len(body) < newOrderFixedLen {
		return NewOrderFrame{}, ErrMessageTooShort
	}
	f := NewOrderFrame{CorrelationID: uuid.New()}
	f.Symbol = string(body[0:4])
	if body[4] == byte(KindMarket) {
		f.Kind = KindMarket
	} else {
		f.Kind = KindLimit
	}
	f.Side = core.Ask
	if body[5] == byte(core.Bid) {
		f.Side = core.Bid
	}
	f.Price = binary.BigEndian.Uint64(body[6:14])
	f.Quantity = binary.BigEndian.Uint64(body[14:22])
	ownerLen := int(binary.BigEndian.Uint16(body[22:24]))
	if len(body) < newOrderFixedLen+ownerLen {
		return NewOrderFrame{}, ErrMessageTooShort
	}
	f.Owner = string(body[24 : 24+ownerLen])
	return f, nil
}

// CancelOrderFrame is a decoded cancel request.
type CancelOrderFrame struct {
	Symbol  string
	OrderID uint64
}

func (f CancelOrderFrame) ToMessage() engine.Message {
	return engine.Message{Symbol: f.Symbol, Kind: engine.Deleted, OrderID: f.OrderID}
}

func parseCancelOrder(body []byte) (CancelOrderFrame, error) {
	if len(body) < cancelOrderFixedLen {
		return CancelOrderFrame{}, ErrMessageTooShort
	}
	return CancelOrderFrame{
		Symbol:  string(body[0:4]),
		OrderID: binary.BigEndian.Uint64(body[4:12]),
	}, nil
}

// AmendOrderFrame is a decoded amend_size request.
type AmendOrderFrame struct {
	Symbol  string
	OrderID uint64
	NewSize uint64
}

func (f AmendOrderFrame) ToMessage() engine.Message {
	return engine.Message{Symbol: f.Symbol, Kind: engine.Changed, OrderID: f.OrderID, Size: f.NewSize}
}

func parseAmendOrder(body []byte) (AmendOrderFrame, error) {
	if len(body) < amendOrderFixedLen {
		return AmendOrderFrame{}, ErrMessageTooShort
	}
	return AmendOrderFrame{
		Symbol:  string(body[0:4]),
		OrderID: binary.BigEndian.Uint64(body[4:12]),
		NewSize: binary.BigEndian.Uint64(body[12:20]),
	}, nil
}

// ParseRequest decodes one request frame (header + body) into the concrete
// frame type named by its header.
func ParseRequest(raw []byte) (any, error) {
	if len(raw) < headerLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(raw[0:2]))
	body := raw[2:]
	switch typeOf {
	case TypeNewOrder:
		return parseNewOrder(body)
	case TypeCancelOrder:
		return parseCancelOrder(body)
	case TypeAmendOrder:
		return parseAmendOrder(body)
	case TypeHeartbeat:
		return struct{}{}, nil
	default:
		return nil, ErrInvalidMessageType
	}
}

// reportFixedLen: type(1) + correlationID(16) + order_id(8) + side(1) +
// price(8) + status/kind(1) + filled(8) + cum_filled(8) + remaining(8) +
// reject_reason(1)
const reportFixedLen = 1 + 16 + 8 + 1 + 8 + 1 + 8 + 8 + 8 + 1

// EncodeOrderEvent serializes an order event report, echoing the
// correlation id of the request that produced it.
func EncodeOrderEvent(correlationID uuid.UUID, e core.OrderEvent) []byte {
	buf := make([]byte, reportFixedLen)
	buf[0] = byte(ReportOrderEvent)
	copy(buf[1:17], correlationID[:])
	binary.BigEndian.PutUint64(buf[17:25], e.OrderID)
	buf[25] = byte(e.Side)
	binary.BigEndian.PutUint64(buf[26:34], e.Price)
	buf[34] = byte(e.Status)
	binary.BigEndian.PutUint64(buf[35:43], e.FilledSize)
	binary.BigEndian.PutUint64(buf[43:51], e.CumFilledSize)
	binary.BigEndian.PutUint64(buf[51:59], e.RemainingSize)
	buf[59] = byte(e.RejectReason)
	return buf
}

// tradeReportFixedLen: type(1) + correlationID(16) + price(8) + size(8) + taker_side(1)
const tradeReportFixedLen = 1 + 16 + 8 + 8 + 1

// EncodeTradeEvent serializes a trade event report.
func EncodeTradeEvent(correlationID uuid.UUID, e core.TradeEvent) []byte {
	buf := make([]byte, tradeReportFixedLen)
	buf[0] = byte(ReportTradeEvent)
	copy(buf[1:17], correlationID[:])
	binary.BigEndian.PutUint64(buf[17:25], e.Price)
	binary.BigEndian.PutUint64(buf[25:33], e.Size)
	buf[33] = byte(e.TakerSide)
	return buf
}

// EncodeErrorReport serializes a transport/engine-level error, e.g. an
// unknown symbol or a malformed frame, for a client to display.
func EncodeErrorReport(correlationID uuid.UUID, err error) []byte {
	msg := fmt.Sprintf("%v", err)
	buf := make([]byte, 1+16+2+len(msg))
	buf[0] = byte(ReportError)
	copy(buf[1:17], correlationID[:])
	binary.BigEndian.PutUint16(buf[17:19], uint16(len(msg)))
	copy(buf[19:], msg)
	return buf
}
