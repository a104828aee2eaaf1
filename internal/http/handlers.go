// Package httpapi exposes the renderer's operational endpoints and the
// websocket spectator stream.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"sdfterm/raymarch/internal/auth"
	"sdfterm/raymarch/internal/broadcast"
	"sdfterm/raymarch/internal/frame"
	"sdfterm/raymarch/internal/logging"
)

// StatsFunc returns the render loop's aggregated timings.
type StatsFunc func() frame.Stats

// TokenVerifier validates spectator tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.TokenClaims, error)
}

// RateLimiter gates how frequently a remote host may open spectator streams.
type RateLimiter interface {
	Allow(key string) bool
}

// Options configures the HandlerSet.
type Options struct {
	Logger      *logging.Logger
	Stats       StatsFunc
	Hub         *broadcast.Hub
	Tokens      TokenVerifier
	RateLimiter RateLimiter
	Bandwidth   *BandwidthBudget
	TimeSource  func() time.Time

	// PingInterval overrides the websocket keepalive period.
	PingInterval time.Duration
}

// HandlerSet bundles the renderer HTTP handlers.
type HandlerSet struct {
	logger       *logging.Logger
	stats        StatsFunc
	hub          *broadcast.Hub
	tokens       TokenVerifier
	rateLimiter  RateLimiter
	bandwidth    *BandwidthBudget
	now          func() time.Time
	started      time.Time
	pingInterval time.Duration
}

// NewHandlerSet constructs a HandlerSet using the provided options.
func NewHandlerSet(opts Options) *HandlerSet {
	logger := opts.Logger
	if logger == nil {
		logger = logging.L()
	}
	now := opts.TimeSource
	if now == nil {
		now = time.Now
	}
	ping := opts.PingInterval
	if ping <= 0 {
		ping = defaultPingInterval
	}
	return &HandlerSet{
		logger:       logger,
		stats:        opts.Stats,
		hub:          opts.Hub,
		tokens:       opts.Tokens,
		rateLimiter:  opts.RateLimiter,
		bandwidth:    opts.Bandwidth,
		now:          now,
		started:      now(),
		pingInterval: ping,
	}
}

// Register attaches all handlers to the provided mux.
func (h *HandlerSet) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/healthz", h.HealthHandler())
	mux.HandleFunc("/stats", h.StatsHandler())
	mux.HandleFunc("/metrics", h.MetricsHandler())
	mux.HandleFunc("/frame", h.FrameHandler())
	mux.HandleFunc("/ws", h.SpectatorHandler())
}

// Handler returns a mux with every route registered, wrapped in request logging.
func (h *HandlerSet) Handler() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return logging.RequestMiddleware(h.logger)(mux)
}

// HealthHandler reports that the HTTP server is reachable.
func (h *HandlerSet) HealthHandler() http.HandlerFunc {
	type response struct {
		Status        string  `json:"status"`
		Timestamp     string  `json:"timestamp"`
		UptimeSeconds float64 `json:"uptime_seconds"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		now := h.now()
		writeJSON(w, http.StatusOK, response{
			Status:        "alive",
			Timestamp:     now.UTC().Format(time.RFC3339Nano),
			UptimeSeconds: now.Sub(h.started).Seconds(),
		})
	}
}

type renderStats struct {
	Frames          int64   `json:"frames"`
	FixedTick       int64   `json:"fixed_tick"`
	FPS             int     `json:"fps"`
	AverageRenderMs float64 `json:"average_render_ms"`
	MaxRenderMs     float64 `json:"max_render_ms"`
	LastRenderMs    float64 `json:"last_render_ms"`
	LastHits        int     `json:"last_hits"`
	SustainableFPS  float64 `json:"sustainable_fps"`
}

// StatsHandler reports render timings and spectator delivery counters as JSON.
func (h *HandlerSet) StatsHandler() http.HandlerFunc {
	type response struct {
		Render     renderStats     `json:"render"`
		Spectators broadcast.Stats `json:"spectators"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		stats := h.renderStats()
		writeJSON(w, http.StatusOK, response{
			Render: renderStats{
				Frames:          stats.Frames,
				FixedTick:       stats.FixedTick,
				FPS:             stats.LastFPS,
				AverageRenderMs: milliseconds(stats.AverageRender),
				MaxRenderMs:     milliseconds(stats.MaxRender),
				LastRenderMs:    milliseconds(stats.LastRender),
				LastHits:        stats.LastHits,
				SustainableFPS:  stats.AverageFPS(),
			},
			Spectators: h.hubStats(),
		})
	}
}

// MetricsHandler emits Prometheus compatible text metrics.
func (h *HandlerSet) MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := h.renderStats()
		hub := h.hubStats()

		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(w, "# HELP sdf_uptime_seconds Renderer uptime in seconds.\n")
		fmt.Fprintf(w, "# TYPE sdf_uptime_seconds gauge\n")
		fmt.Fprintf(w, "sdf_uptime_seconds %.0f\n", h.now().Sub(h.started).Seconds())

		fmt.Fprintf(w, "# HELP sdf_frames_total Frames rendered since start.\n")
		fmt.Fprintf(w, "# TYPE sdf_frames_total counter\n")
		fmt.Fprintf(w, "sdf_frames_total %d\n", stats.Frames)

		fmt.Fprintf(w, "# HELP sdf_fixed_tick Fixed-rate tick of the latest frame.\n")
		fmt.Fprintf(w, "# TYPE sdf_fixed_tick gauge\n")
		fmt.Fprintf(w, "sdf_fixed_tick %d\n", stats.FixedTick)

		fmt.Fprintf(w, "# HELP sdf_fps Frames completed during the previous wall-clock second.\n")
		fmt.Fprintf(w, "# TYPE sdf_fps gauge\n")
		fmt.Fprintf(w, "sdf_fps %d\n", stats.LastFPS)

		fmt.Fprintf(w, "# HELP sdf_render_seconds Render duration of a single frame.\n")
		fmt.Fprintf(w, "# TYPE sdf_render_seconds gauge\n")
		fmt.Fprintf(w, "sdf_render_seconds{stat=\"avg\"} %.6f\n", stats.AverageRender.Seconds())
		fmt.Fprintf(w, "sdf_render_seconds{stat=\"max\"} %.6f\n", stats.MaxRender.Seconds())
		fmt.Fprintf(w, "sdf_render_seconds{stat=\"last\"} %.6f\n", stats.LastRender.Seconds())

		fmt.Fprintf(w, "# HELP sdf_spectators Current spectator subscriptions.\n")
		fmt.Fprintf(w, "# TYPE sdf_spectators gauge\n")
		fmt.Fprintf(w, "sdf_spectators %d\n", hub.Subscribers)

		fmt.Fprintf(w, "# HELP sdf_spectator_frames_total Frames offered to spectators by outcome.\n")
		fmt.Fprintf(w, "# TYPE sdf_spectator_frames_total counter\n")
		fmt.Fprintf(w, "sdf_spectator_frames_total{outcome=\"delivered\"} %d\n", hub.Delivered)
		fmt.Fprintf(w, "sdf_spectator_frames_total{outcome=\"dropped\"} %d\n", hub.Dropped)

		if usage := h.bandwidth.Usage(); len(usage) > 0 {
			fmt.Fprintf(w, "# HELP sdf_spectator_bytes_per_second Observed outbound frame bytes per spectator.\n")
			fmt.Fprintf(w, "# TYPE sdf_spectator_bytes_per_second gauge\n")
			for _, sample := range usage {
				fmt.Fprintf(w, "sdf_spectator_bytes_per_second{spectator=%q} %.2f\n", sample.Spectator, sample.BytesPerSecond)
			}
			fmt.Fprintf(w, "# HELP sdf_spectator_skipped_frames_total Frames skipped because the spectator exhausted its budget.\n")
			fmt.Fprintf(w, "# TYPE sdf_spectator_skipped_frames_total counter\n")
			for _, sample := range usage {
				fmt.Fprintf(w, "sdf_spectator_skipped_frames_total{spectator=%q} %d\n", sample.Spectator, sample.FramesSkipped)
			}
		}
	}
}

// FrameHandler returns the most recent frame, as text by default or in the
// binary frame encoding when format=binary is requested.
func (h *HandlerSet) FrameHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if h.hub == nil {
			http.Error(w, "frame stream unavailable", http.StatusServiceUnavailable)
			return
		}
		latest, ok := h.hub.Latest()
		if !ok {
			http.Error(w, "no frame rendered yet", http.StatusServiceUnavailable)
			return
		}
		switch strings.ToLower(r.URL.Query().Get("format")) {
		case "", "text":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Frame-Number", fmt.Sprint(latest.Number))
			fmt.Fprint(w, strings.Join(latest.Lines(), "\n"), "\n")
		case "binary":
			payload, err := latest.MarshalBinary()
			if err != nil {
				logging.LoggerFromContext(r.Context()).Error("encode frame failed", logging.Error(err))
				http.Error(w, "failed to encode frame", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("X-Frame-Number", fmt.Sprint(latest.Number))
			_, _ = w.Write(payload)
		default:
			http.Error(w, "format must be text or binary", http.StatusBadRequest)
		}
	}
}

func (h *HandlerSet) renderStats() frame.Stats {
	if h.stats == nil {
		return frame.Stats{}
	}
	return h.stats()
}

func (h *HandlerSet) hubStats() broadcast.Stats {
	if h.hub == nil {
		return broadcast.Stats{}
	}
	return h.hub.Stats()
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}
