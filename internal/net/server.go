package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchcore/internal/core"
	"matchcore/internal/engine"
	"matchcore/internal/workerpool"
)

const (
	maxRecvSize        = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Second
)

var (
	ErrImproperConversion = errors.New("net: improper type conversion")
	ErrClientDoesNotExist = errors.New("net: client does not exist")
)

// clientSession tracks one connected TCP client. Adapted from the
// teacher's ClientSession, keyed the same way (by local address string) —
// one order-ticket CLI connection per session, no reconnection/resume.
type clientSession struct {
	conn net.Conn
}

// clientMessage links a decoded request frame to the connection it arrived
// on, so replies and error reports can be routed back.
type clientMessage struct {
	clientAddress string
	correlationID uuid.UUID
	symbol        string
	engineMessage engine.Message
}

// Server is the TCP ingress/egress transport for the engine host. One
// Server fans requests from any number of client connections into a single
// *engine.Engine, which itself shards by symbol internally.
type Server struct {
	address string
	port    int
	engine  *engine.Engine

	pool   *workerpool.Pool
	cancel context.CancelFunc

	sessions     map[string]clientSession
	sessionsLock sync.Mutex
	inbox        chan clientMessage

	// routes maps an order id back to the client/correlation id that
	// submitted it, so the engine's event stream (delivered via Sink) can
	// be addressed to the right connection. Cancel/amend frames reuse the
	// route recorded at submit_limit/submit_execute time.
	routes     map[uint64]route
	routesLock sync.Mutex
}

type route struct {
	clientAddress string
	correlationID uuid.UUID
}

// New returns a server that will dispatch decoded requests to eng once Run
// is called, reading connections with the default-sized worker pool.
func New(address string, port int, eng *engine.Engine) *Server {
	return NewWithWorkers(address, port, eng, defaultNWorkers)
}

// NewWithWorkers is New with an explicit worker pool size, letting the host
// process size concurrent connection handling from configuration
// (config.Config.WorkerPoolSize) instead of the built-in default.
func NewWithWorkers(address string, port int, eng *engine.Engine, nWorkers int) *Server {
	return &Server{
		address:  address,
		port:     port,
		engine:   eng,
		pool:     workerpool.New(nWorkers),
		sessions: make(map[string]clientSession),
		inbox:    make(chan clientMessage, 1),
		routes:   make(map[uint64]route),
	}
}

// Sink returns a core.Sink that forwards every event back to the client
// connection that submitted the triggering order, keyed by the route
// recorded when that order's request frame was handled. Wire this into
// engine.New so the engine host's matching activity reaches clients over
// the transport (see cmd/matchcored).
func (s *Server) Sink() core.Sink {
	return serverSink{s}
}

type serverSink struct{ s *Server }

func (sk serverSink) OnOrderEvent(e core.OrderEvent) {
	sk.s.routesLock.Lock()
	r, ok := sk.s.routes[e.OrderID]
	if e.Status == core.Cancelled || e.Status == core.Filled || e.Status == core.PartiallyFilledCancelled {
		delete(sk.s.routes, e.OrderID)
	}
	sk.s.routesLock.Unlock()
	if !ok {
		return
	}
	sk.s.reportOrderEvent(r.clientAddress, r.correlationID, e)
}

func (sk serverSink) OnTradeEvent(core.TradeEvent) {
	// Trade events carry no order id to route by, so they are not sent to
	// any client. Order events alone are enough to ack a client's own
	// submission.
}

// Shutdown stops the running server.
func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run accepts client connections and serves them until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return err
	}
	// Closing the listener once ctx is done unblocks Accept below, so the
	// loop sees ctx.Done() and Run returns.
	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	t.Go(func() error {
		return s.sessionHandler(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Info().Str("address", conn.LocalAddr().String()).Msg("new client added")
			s.addSession(conn)
			if !s.pool.AddTask(conn) {
				log.Warn().Str("address", conn.LocalAddr().String()).Int("pending", s.pool.Pending()).Msg("worker pool saturated, rejecting connection")
				s.deleteSession(conn.LocalAddr().String())
				_ = conn.Close()
			}
		}
	}
}

// sessionHandler drains decoded requests and dispatches each to the
// engine, reporting any failure back to the originating client.
func (s *Server) sessionHandler(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.inbox:
			if err := s.handleMessage(msg); err != nil {
				log.Error().Err(err).Str("clientAddress", msg.clientAddress).Msg("error handling message")
				s.reportError(msg.clientAddress, msg.correlationID, err)
			}
		}
	}
}

func (s *Server) handleMessage(msg clientMessage) error {
	if msg.engineMessage.Kind == engine.Created {
		s.routesLock.Lock()
		s.routes[msg.engineMessage.OrderID] = route{clientAddress: msg.clientAddress, correlationID: msg.correlationID}
		s.routesLock.Unlock()
	}
	return s.engine.Dispatch(msg.engineMessage)
}

// reportOrderEvent sends a decoded order event report to the client that
// owns its correlation id. Wired as the engine host's core.Sink so every
// event the matching engine emits reaches the client that triggered it;
// see cmd/matchcored for the sink-to-server wiring.
func (s *Server) reportOrderEvent(clientAddress string, correlationID uuid.UUID, e core.OrderEvent) {
	s.write(clientAddress, EncodeOrderEvent(correlationID, e))
}

func (s *Server) reportTradeEvent(clientAddress string, correlationID uuid.UUID, e core.TradeEvent) {
	s.write(clientAddress, EncodeTradeEvent(correlationID, e))
}

func (s *Server) reportError(clientAddress string, correlationID uuid.UUID, err error) {
	s.write(clientAddress, EncodeErrorReport(correlationID, err))
}

func (s *Server) write(clientAddress string, payload []byte) {
	s.sessionsLock.Lock()
	session, ok := s.sessions[clientAddress]
	s.sessionsLock.Unlock()
	if !ok {
		log.Error().Err(ErrClientDoesNotExist).Str("clientAddress", clientAddress).Msg("unable to send report")
		return
	}
	if _, err := session.conn.Write(payload); err != nil {
		log.Error().Err(err).Str("clientAddress", clientAddress).Msg("unable to send report")
		s.deleteSession(clientAddress)
	}
}

// handleConnection reads one request off conn, decodes it, and forwards it
// to sessionHandler. Any error returned from here is fatal to the pool
// worker handling it, matching the teacher's contract.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Str("address", conn.LocalAddr().String()).Err(err).Msg("error closing connection")
		}
	}()

	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Str("address", conn.LocalAddr().String()).Err(err).Msg("failed setting deadline")
		return nil
	}

	buffer := make([]byte, maxRecvSize)
	select {
	case <-t.Dying():
		return nil
	default:
		n, err := conn.Read(buffer)
		if err != nil {
			log.Error().Err(err).Str("address", conn.LocalAddr().String()).Msg("error reading from connection")
			s.deleteSession(conn.LocalAddr().String())
			return nil
		}

		frame, err := ParseRequest(buffer[:n])
		if err != nil {
			log.Error().Err(err).Str("address", conn.LocalAddr().String()).Msg("error parsing request")
			s.deleteSession(conn.LocalAddr().String())
			return nil
		}

		if msg, ok := toClientMessage(conn.LocalAddr().String(), frame); ok {
			s.inbox <- msg
		}

		if !s.pool.AddTask(conn) {
			log.Warn().Str("address", conn.LocalAddr().String()).Int("pending", s.pool.Pending()).Msg("worker pool saturated, dropping connection")
			s.deleteSession(conn.LocalAddr().String())
			_ = conn.Close()
		}
	}
	return nil
}

// toClientMessage converts a decoded frame into the server's internal
// clientMessage, returning ok=false for frames with no engine effect
// (Heartbeat).
func toClientMessage(clientAddress string, frame any) (clientMessage, bool) {
	switch f := frame.(type) {
	case NewOrderFrame:
		return clientMessage{
			clientAddress: clientAddress,
			correlationID: f.CorrelationID,
			symbol:        f.Symbol,
			engineMessage: f.ToMessage(orderIDFromCorrelation(f.CorrelationID)),
		}, true
	case CancelOrderFrame:
		return clientMessage{clientAddress: clientAddress, symbol: f.Symbol, engineMessage: f.ToMessage()}, true
	case AmendOrderFrame:
		return clientMessage{clientAddress: clientAddress, symbol: f.Symbol, engineMessage: f.ToMessage()}, true
	default:
		return clientMessage{}, false
	}
}

// orderIDFromCorrelation derives a stable uint64 order id from a frame's
// correlation id. The core's identity space is a caller-supplied uint64
// (spec §3); the transport's uuid.UUID is a separate, wider id used only
// for request/report correlation, so this is a transport-local mapping,
// not a second source of truth for order identity.
func orderIDFromCorrelation(id uuid.UUID) uint64 {
	var v uint64
	for _, b := range id[:8] {
		v = v<<8 | uint64(b)
	}
	if v == 0 {
		v = 1
	}
	return v
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	s.sessions[conn.LocalAddr().String()] = clientSession{conn: conn}
}

func (s *Server) deleteSession(address string) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	delete(s.sessions, address)
}
