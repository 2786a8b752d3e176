package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/jsamuelsen/qa-service/internal/platform/logging"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// ServeOptions configures Serve.
type ServeOptions struct {
	// OriginPatterns lists the cross-origin hosts allowed to connect.
	OriginPatterns []string

	PingInterval time.Duration
	Logger       *slog.Logger
}

// Serve upgrades the request and streams userID's events until the client
// goes away, the request context ends, or the hub closes. The caller
// authenticates the request.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string, opts ServeOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "ws.Hub"), slog.String("user_id", userID))

	// Server read and write timeouts would otherwise outlive the hijack and
	// cut the stream. Writers that cannot clear them are left alone.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
	if err != nil {
		logger.WarnContext(r.Context(), "websocket accept failed", slog.Any("error", err))
		return
	}
	defer conn.CloseNow()

	sub := h.subscribe(userID)
	defer h.unsubscribe(sub)

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// when the peer closes.
	ctx := conn.CloseRead(r.Context())

	interval := opts.PingInterval
	if interval <= 0 {
		interval = pingInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.DebugContext(ctx, "websocket connected")

	for {
		select {
		case <-ctx.Done():
			logger.DebugContext(r.Context(), "websocket disconnected")
			return

		case frame, ok := <-sub.ch:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}

			err := write(ctx, conn, frame)
			if err != nil {
				logger.DebugContext(ctx, "websocket write failed", slog.Any("error", err))
				return
			}

			logger.Log(ctx, logging.LevelTrace, "websocket frame sent", slog.Int("bytes", len(frame)))

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()

			if err != nil {
				logger.DebugContext(ctx, "websocket ping failed", slog.Any("error", err))
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	return conn.Write(ctx, websocket.MessageText, frame)
}
