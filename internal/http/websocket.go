package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"sdfterm/raymarch/internal/frame"
	"sdfterm/raymarch/internal/logging"
)

const (
	defaultPingInterval = 30 * time.Second
	writeWait           = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SpectatorHandler upgrades the request and streams every broadcast frame to
// the client as a JSON text message.
func (h *HandlerSet) SpectatorHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.LoggerFromContext(r.Context()).With(
			logging.String("handler", "spectator"),
			logging.String("remote_addr", r.RemoteAddr),
		)
		if h.rateLimiter != nil && !h.rateLimiter.Allow(remoteHost(r)) {
			reqLogger.Warn("spectator denied: rate limit exceeded")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		subject := "anonymous"
		if h.tokens != nil {
			claims, err := h.tokens.Verify(bearerToken(r))
			if err != nil {
				reqLogger.Warn("spectator denied: invalid token", logging.Error(err))
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			subject = claims.Subject
		}
		if h.hub == nil {
			http.Error(w, "frame stream unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			reqLogger.Warn("websocket upgrade failed", logging.Error(err))
			return
		}
		spectator := subject + "@" + r.RemoteAddr
		reqLogger = reqLogger.With(logging.String("subject", subject))
		reqLogger.Info("spectator attached")
		defer h.bandwidth.Release(spectator)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		frames, unsubscribe := h.hub.Subscribe(ctx)
		defer unsubscribe()

		//1.- The reader only watches for the client going away.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		sent := h.pump(ctx, conn, spectator, frames, reqLogger)
		_ = conn.Close()
		reqLogger.Info("spectator detached", logging.Int64("frames_sent", sent))
	}
}

// pump writes frames and keepalive pings until the context ends, the hub
// closes the subscription or a write fails.
func (h *HandlerSet) pump(ctx context.Context, conn *websocket.Conn, spectator string, frames <-chan frame.Frame, logger *logging.Logger) int64 {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	var sent int64
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return sent
		case f, ok := <-frames:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "renderer stopped"), time.Now().Add(writeWait))
				return sent
			}
			payload, err := EncodeFrameJSON(f)
			if err != nil {
				logger.Error("encode spectator frame failed", logging.Error(err))
				continue
			}
			if !h.bandwidth.Spend(spectator, len(payload)) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("spectator write failed", logging.Error(err))
				return sent
			}
			sent++
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return sent
			}
		}
	}
}

// EncodeFrameJSON renders f as a protobuf Struct in its canonical JSON form.
func EncodeFrameJSON(f frame.Frame) ([]byte, error) {
	lines := f.Lines()
	rows := make([]any, len(lines))
	for i, line := range lines {
		rows[i] = line
	}
	msg, err := structpb.NewStruct(map[string]any{
		"number":     f.Number,
		"fixed_tick": f.FixedTick,
		"fps":        f.FPS,
		"width":      f.Width,
		"height":     f.Height,
		"hits":       f.Hits(),
		"lines":      rows,
	})
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(msg)
}
