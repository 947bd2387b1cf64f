// Command matchcli is a one-shot order ticket: it connects to a running
// matchcored, sends a single place/cancel/amend request, prints any reports
// that arrive within a short window, and exits. Adapted from the teacher's
// cmd/client/client.go (a flag-parsed, always-listening client keyed to the
// old common.AssetType/Side enums) into a cobra command set that speaks the
// current wire frames in internal/net and takes human decimal prices via
// shopspring/decimal, per SPEC_FULL.md §10/§11.
package main

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"matchcore/internal/core"
	matchnet "matchcore/internal/net"
)

// priceScale fixes the number of decimal places the CLI accepts; the core
// never interprets this scale itself (price is an opaque uint64 to it), it
// is purely a human/wire convention enforced here.
const priceScale = 4

var (
	serverAddr string
	symbol     string
	owner      string
	reportWait time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "matchcli",
		Short: "Submit a single order/cancel/amend request to a matchcored server",
	}
	root.PersistentFlags().StringVar(&serverAddr, "server", "127.0.0.1:9001", "matchcored address")
	root.PersistentFlags().StringVar(&symbol, "symbol", "AAPL", "symbol (max 4 bytes)")
	root.PersistentFlags().StringVar(&owner, "owner", "", "owner label attached to the order")
	root.PersistentFlags().DurationVar(&reportWait, "wait", 500*time.Millisecond, "how long to wait for reports before exiting")

	root.AddCommand(placeCmd(), cancelCmd(), amendCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "matchcli:", err)
		os.Exit(1)
	}
}

func placeCmd() *cobra.Command {
	var sideStr, kindStr, priceStr, qtyStr string
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place a limit or market order",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := parseKind(kindStr)
			price, err := parsePrice(kind, priceStr)
			if err != nil {
				return err
			}
			qty, err := decimal.NewFromString(qtyStr)
			if err != nil {
				return fmt.Errorf("invalid -qty %q: %w", qtyStr, err)
			}

			return sendAndListen(encodeNewOrder(padSymbol(symbol), kind, parseSide(sideStr), price, qty.BigInt().Uint64(), owner))
		},
	}
	cmd.Flags().StringVar(&sideStr, "side", "buy", "'buy' or 'sell'")
	cmd.Flags().StringVar(&kindStr, "type", "limit", "'limit' or 'market'")
	cmd.Flags().StringVar(&priceStr, "price", "100.0000", "limit price (ignored for market orders)")
	cmd.Flags().StringVar(&qtyStr, "qty", "10", "quantity")
	return cmd
}

func cancelCmd() *cobra.Command {
	var orderID uint64
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a resting order by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			buf := make([]byte, 2+4+8)
			binary.BigEndian.PutUint16(buf[0:2], uint16(matchnet.TypeCancelOrder))
			copy(buf[2:6], padSymbol(symbol))
			binary.BigEndian.PutUint64(buf[6:14], orderID)
			return sendAndListen(buf)
		},
	}
	cmd.Flags().Uint64Var(&orderID, "order-id", 0, "order id to cancel")
	return cmd
}

func amendCmd() *cobra.Command {
	var orderID uint64
	var newSizeStr string
	cmd := &cobra.Command{
		Use:   "amend",
		Short: "Amend a resting order's size",
		RunE: func(cmd *cobra.Command, args []string) error {
			newSize, err := decimal.NewFromString(newSizeStr)
			if err != nil {
				return fmt.Errorf("invalid -new-size %q: %w", newSizeStr, err)
			}
			buf := make([]byte, 2+4+8+8)
			binary.BigEndian.PutUint16(buf[0:2], uint16(matchnet.TypeAmendOrder))
			copy(buf[2:6], padSymbol(symbol))
			binary.BigEndian.PutUint64(buf[6:14], orderID)
			binary.BigEndian.PutUint64(buf[14:22], newSize.BigInt().Uint64())
			return sendAndListen(buf)
		},
	}
	cmd.Flags().Uint64Var(&orderID, "order-id", 0, "order id to amend")
	cmd.Flags().StringVar(&newSizeStr, "new-size", "0", "new resting size")
	return cmd
}

// parsePrice converts a human decimal string to the core's fixed-point
// uint64 at priceScale decimal places. Market orders carry price 0 on the
// wire regardless of what -price was given.
func parsePrice(kind matchnet.OrderKind, priceStr string) (uint64, error) {
	if kind == matchnet.KindMarket {
		return 0, nil
	}
	d, err := decimal.NewFromString(priceStr)
	if err != nil {
		return 0, fmt.Errorf("invalid -price %q: %w", priceStr, err)
	}
	scaled := d.Shift(priceScale)
	if scaled.IsNegative() {
		return 0, fmt.Errorf("-price must not be negative")
	}
	return scaled.BigInt().Uint64(), nil
}

func padSymbol(s string) string {
	b := make([]byte, 4)
	copy(b, s)
	return string(b)
}

func parseSide(s string) core.Side {
	if s == "sell" {
		return core.Ask
	}
	return core.Bid
}

func parseKind(s string) matchnet.OrderKind {
	if s == "market" {
		return matchnet.KindMarket
	}
	return matchnet.KindLimit
}

// sendAndListen writes payload to serverAddr, then drains and prints any
// report frames that arrive within reportWait before closing the
// connection — matchcli is a one-shot ticket, not a standing session like
// the teacher's client.
func sendAndListen(payload []byte) error {
	conn, err := net.Dial("tcp", serverAddr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", serverAddr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(reportWait)); err != nil {
		return err
	}

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			printReport(buf[:n])
		}
		if err != nil {
			return nil
		}
	}
}

func printReport(raw []byte) {
	if len(raw) == 0 {
		return
	}
	switch matchnet.ReportType(raw[0]) {
	case matchnet.ReportOrderEvent:
		fmt.Printf("[order] correlation=%s raw=%x\n", correlationOf(raw), raw)
	case matchnet.ReportTradeEvent:
		fmt.Printf("[trade] correlation=%s raw=%x\n", correlationOf(raw), raw)
	case matchnet.ReportError:
		if len(raw) >= 19 {
			msgLen := binary.BigEndian.Uint16(raw[17:19])
			if len(raw) >= int(19+msgLen) {
				fmt.Printf("[error] %s\n", string(raw[19:19+msgLen]))
				return
			}
		}
		fmt.Printf("[error] malformed error report: %x\n", raw)
	default:
		fmt.Printf("[unknown report] %x\n", raw)
	}
}

func correlationOf(raw []byte) uuid.UUID {
	if len(raw) < 17 {
		return uuid.Nil
	}
	var id uuid.UUID
	copy(id[:], raw[1:17])
	return id
}

// encodeNewOrder mirrors internal/net.parseNewOrder's field order; matchcli
// builds the frame bytes directly since request encoding is the client
// side of the wire protocol and parseNewOrder is unexported to internal/net.
func encodeNewOrder(symbol string, kind matchnet.OrderKind, side core.Side, price, qty uint64, owner string) []byte {
	ownerBytes := []byte(owner)
	buf := make([]byte, 2+4+1+1+8+8+2+len(ownerBytes))
	binary.BigEndian.PutUint16(buf[0:2], uint16(matchnet.TypeNewOrder))
	copy(buf[2:6], symbol)
	buf[6] = byte(kind)
	buf[7] = byte(side)
	binary.BigEndian.PutUint64(buf[8:16], price)
	binary.BigEndian.PutUint64(buf[16:24], qty)
	binary.BigEndian.PutUint16(buf[24:26], uint16(len(ownerBytes)))
	copy(buf[26:], ownerBytes)
	return buf
}
