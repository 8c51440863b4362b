package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vtree/pkg/component"
	"github.com/vango-dev/vtree/pkg/htmldom"
	"github.com/vango-dev/vtree/pkg/middleware"
	"github.com/vango-dev/vtree/pkg/reconcile"
	"github.com/vango-dev/vtree/pkg/snapshot"
)

// SessionParam is the query parameter naming the snapshot key of a
// WebSocket connection.
const SessionParam = "session"

const writeWait = 10 * time.Second

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get(SessionParam)
	if key != "" && s.store != nil {
		if err := snapshot.ValidateKey(key); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.config.MaxMessageSize)

	id := s.connSeq.Add(1)
	logger := s.logger.With("conn", id)
	if key != "" {
		logger = logger.With("session", key)
	}

	host := s.newHost(key, logger)
	ctx := r.Context()
	cfg := component.Config{Name: fmt.Sprintf("conn-%d", id)}
	if key != "" && s.store != nil {
		cfg.Features = []string{component.FeaturePersist}
	}
	if err := host.Initialize(ctx, cfg); err != nil {
		logger.Error("host initialize failed", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "initialize failed"),
			time.Now().Add(writeWait))
		return
	}

	s.track(id, conn)
	if s.metrics != nil {
		s.metrics.HostOpened()
	}
	defer func() {
		s.untrack(id)
		if s.metrics != nil {
			s.metrics.HostClosed()
		}
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := host.Cleanup(cleanupCtx); err != nil {
			logger.Error("host cleanup failed", "error", err)
		}
	}()

	logger.Debug("connection opened")
	if err := s.serveConn(ctx, conn, host); err != nil {
		logger.Debug("connection closed", "error", err)
		return
	}
	logger.Debug("connection closed")
}

// serveConn reads binary frames and answers each with the host reply.
// Text messages are ignored. Any message, pongs included, extends the read
// deadline by PongWait.
func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn, host *component.Host) error {
	extend := func() error {
		return conn.SetReadDeadline(time.Now().Add(s.config.PongWait))
	}
	if err := extend(); err != nil {
		return err
	}
	conn.SetPongHandler(func(string) error { return extend() })

	done := make(chan struct{})
	defer close(done)
	go s.ping(conn, done)

	for {
		msgType, data, err := conn.ReadMessage()
		if err == nil {
			err = extend()
		}
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		reply, procErr := host.ProcessMessage(ctx, data)
		if reply != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, reply); err != nil {
				return err
			}
		}
		if procErr != nil && !recoverable(procErr) {
			return procErr
		}
	}
}

// ping writes a ping every PingInterval until done is closed or a write
// fails. WriteControl is safe next to the reply writes of serveConn.
func (s *Server) ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// recoverable reports whether the connection can keep going after err.
// Every frame-level failure is answered with an error frame, so only an
// uninitialized host ends the connection.
func recoverable(err error) bool {
	return !errors.Is(err, component.ErrNotInitialized)
}

func (s *Server) newHost(key string, logger *slog.Logger) *component.Host {
	mw := make([]reconcile.Middleware, 0, len(s.middleware)+3)
	mw = append(mw, middleware.Recover(logger))
	if s.traced {
		mw = append(mw, middleware.OpenTelemetry(s.tracing...))
	}
	if s.metrics != nil {
		mw = append(mw, s.metrics.Middleware())
	}
	mw = append(mw, s.middleware...)

	opts := []component.Option{
		component.WithLogger(logger),
		component.WithMiddleware(mw...),
	}
	if s.config.BufferCapacity > 0 {
		opts = append(opts, component.WithBufferCapacity(s.config.BufferCapacity))
	}
	if key != "" && s.store != nil {
		opts = append(opts, component.WithStore(s.store, key))
	}
	return component.NewHost(func() (component.Surface, error) {
		return htmldom.NewDocument(), nil
	}, opts...)
}
