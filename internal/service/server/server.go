// Package server bridges GATT-style characteristic traffic over websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"ble_gateway/internal/codes"
	"ble_gateway/internal/sendqueue"
	"ble_gateway/internal/service/gateway"
	"ble_gateway/internal/utils/log"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

const (
	FrameResult = "result"
	FrameNotify = "notify"
)

type (
	HttpServer struct {
		dispatcher *gateway.Dispatcher
		srv        *http.Server

		ctx    context.Context
		cancel context.CancelFunc

		mu     sync.Mutex
		mapper map[*clientConn]struct{}
		wg     sync.WaitGroup
	}

	// InFrame is a write (or an indicate pull) on a characteristic. Char is
	// the operation name or the characteristic UUID.
	InFrame struct {
		Char     string `json:"char"`
		Data     string `json:"data,omitempty"`
		Indicate bool   `json:"indicate,omitempty"`
	}

	// OutFrame carries either a result code or a notification.
	OutFrame struct {
		Char    gateway.Operation `json:"char"`
		Type    string            `json:"type"`
		Code    *codes.ResultCode `json:"code,omitempty"`
		Payload []byte            `json:"payload"`
	}

	clientConn struct {
		ws         *websocket.Conn
		dispatcher *gateway.Dispatcher
		writeMu    sync.Mutex
		wg         sync.WaitGroup
	}
)

func NewHttpServer(addr string, dispatcher *gateway.Dispatcher) *HttpServer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &HttpServer{
		dispatcher: dispatcher,
		ctx:        ctx,
		cancel:     cancel,
		mapper:     make(map[*clientConn]struct{}),
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *HttpServer) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/ble", s.HandleBLE()).Methods(http.MethodGet)
	r.HandleFunc("/characteristics", s.ListCharacteristics()).Methods(http.MethodGet)
	r.HandleFunc("/health", s.Health()).Methods(http.MethodGet)
	return r
}

// Run blocks serving until Shutdown.
func (s *HttpServer) Run() error {
	log.Info("gateway listening", zap.String("addr", s.srv.Addr))
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections, closes open sockets and waits for
// their in-flight requests.
func (s *HttpServer) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.Close()
	return err
}

// Close drops every websocket and waits for their handlers to return.
func (s *HttpServer) Close() {
	s.cancel()

	s.mu.Lock()
	for c := range s.mapper {
		c.ws.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *HttpServer) HandleBLE() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if s.ctx.Err() != nil {
			http.Error(w, "server closing", http.StatusServiceUnavailable)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("websocket upgrade failed", zap.Error(err))
			return
		}

		c := &clientConn{
			ws:         ws,
			dispatcher: s.dispatcher.WithQueue(sendqueue.New()),
		}

		s.mu.Lock()
		if s.ctx.Err() != nil {
			s.mu.Unlock()
			ws.Close()
			return
		}
		s.mapper[c] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		log.Debug("client connected", zap.String("remote", r.RemoteAddr))
		go func() {
			defer s.wg.Done()
			s.processWSMessage(c)

			s.mu.Lock()
			delete(s.mapper, c)
			s.mu.Unlock()
		}()
	}
}

func (s *HttpServer) processWSMessage(c *clientConn) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer func() {
		cancel()
		c.wg.Wait()
		c.ws.Close()
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			log.Debug("client web socket closed", zap.Error(err))
			return
		}

		var in InFrame
		if err := json.Unmarshal(data, &in); err != nil {
			log.Warn("unmarshal frame failed", zap.Error(err))
			c.result("", codes.InvalidJSONInRequest, nil)
			continue
		}

		ch, ok := characteristics.lookup(in.Char)
		if !ok {
			log.Warn("unknown characteristic", zap.String("char", in.Char))
			c.result(gateway.Operation(in.Char), codes.InvalidJSONInRequest, nil)
			continue
		}

		op := ch.Name
		if in.Indicate && op == gateway.OpGetContract {
			op = gateway.OpGetContractIndicate
		}
		req := c.request(ch.Name, []byte(in.Data))

		// indicate pulls stay in order with each other
		if op == gateway.OpGetContractIndicate {
			c.dispatcher.Handle(ctx, op, req)
			continue
		}

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.dispatcher.Handle(ctx, op, req)
		}()
	}
}

func (c *clientConn) request(char gateway.Operation, input []byte) gateway.Request {
	return gateway.Request{
		Input: input,
		Respond: func(code codes.ResultCode, data []byte) {
			c.result(char, code, data)
		},
		Notify: func(data []byte) {
			c.write(OutFrame{Char: char, Type: FrameNotify, Payload: data})
		},
	}
}

func (c *clientConn) result(char gateway.Operation, code codes.ResultCode, data []byte) {
	c.write(OutFrame{Char: char, Type: FrameResult, Code: &code, Payload: data})
}

func (c *clientConn) write(f OutFrame) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(&f); err != nil {
		log.Debug("write frame failed", zap.String("char", string(f.Char)), zap.Error(err))
	}
}

func (s *HttpServer) ListCharacteristics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := json.Marshal(struct {
			Service         string           `json:"service"`
			Characteristics []Characteristic `json:"characteristics"`
		}{ServiceUUID, Characteristics()})
		if err != nil {
			log.Error("marshal characteristics failed", zap.Error(err))
			http.Error(w, "marshal characteristics failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func (s *HttpServer) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}
