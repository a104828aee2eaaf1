package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sdfterm/raymarch/internal/broadcast"
	"sdfterm/raymarch/internal/frame"
	"sdfterm/raymarch/internal/logging"
	"sdfterm/raymarch/internal/shading"
)

func sampleFrame(number int64) frame.Frame {
	f := frame.NewFrame(frame.Tick{Frame: number, Fixed: number * 2}, 60, 3, 2)
	f.Set(0, 0, shading.Hit(9))
	f.Set(1, 1, shading.Hit(0))
	return f
}

func TestHealthHandlerReturnsJSON(t *testing.T) {
	fixed := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)
	now := fixed
	handlers := NewHandlerSet(Options{Logger: logging.NewTestLogger(), TimeSource: func() time.Time { return now }})
	now = now.Add(90 * time.Second)

	rr := httptest.NewRecorder()
	handlers.HealthHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var payload struct {
		Status        string  `json:"status"`
		Timestamp     string  `json:"timestamp"`
		UptimeSeconds float64 `json:"uptime_seconds"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "alive" || payload.UptimeSeconds != 90 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Timestamp != now.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp %q", payload.Timestamp)
	}
}

func TestStatsHandlerReportsRenderAndSpectators(t *testing.T) {
	hub := broadcast.NewHub(2)
	hub.ObserveFrame(sampleFrame(1))
	stats := frame.Stats{Frames: 12, AverageRender: 4 * time.Millisecond, MaxRender: 9 * time.Millisecond, LastFPS: 58, FixedTick: 30}
	handlers := NewHandlerSet(Options{Logger: logging.NewTestLogger(), Hub: hub, Stats: func() frame.Stats { return stats }})

	rr := httptest.NewRecorder()
	handlers.StatsHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))

	var payload struct {
		Render struct {
			Frames          int64   `json:"frames"`
			FPS             int     `json:"fps"`
			AverageRenderMs float64 `json:"average_render_ms"`
			SustainableFPS  float64 `json:"sustainable_fps"`
		} `json:"render"`
		Spectators broadcast.Stats `json:"spectators"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Render.Frames != 12 || payload.Render.FPS != 58 || payload.Render.AverageRenderMs != 4 {
		t.Fatalf("unexpected render stats %+v", payload.Render)
	}
	if payload.Render.SustainableFPS != 250 {
		t.Fatalf("expected sustainable fps 250, got %f", payload.Render.SustainableFPS)
	}
	if payload.Spectators.Published != 1 {
		t.Fatalf("unexpected spectator stats %+v", payload.Spectators)
	}
}

func TestMetricsHandlerOutputsPrometheusFormat(t *testing.T) {
	hub := broadcast.NewHub(1)
	_, cancel := hub.Subscribe(context.Background())
	defer cancel()
	hub.ObserveFrame(sampleFrame(1))
	hub.ObserveFrame(sampleFrame(2))
	handlers := NewHandlerSet(Options{
		Logger: logging.NewTestLogger(),
		Hub:    hub,
		Stats:  func() frame.Stats { return frame.Stats{Frames: 2, LastFPS: 60, AverageRender: 2 * time.Millisecond} },
	})

	rr := httptest.NewRecorder()
	handlers.MetricsHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rr.Body.String()
	for _, want := range []string{
		"sdf_frames_total 2",
		"sdf_fps 60",
		"sdf_render_seconds{stat=\"avg\"} 0.002000",
		"sdf_spectators 1",
		"sdf_spectator_frames_total{outcome=\"delivered\"} 1",
		"sdf_spectator_frames_total{outcome=\"dropped\"} 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics to contain %q, got:\n%s", want, body)
		}
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestFrameHandlerServesLatestFrame(t *testing.T) {
	hub := broadcast.NewHub(1)
	handlers := NewHandlerSet(Options{Logger: logging.NewTestLogger(), Hub: hub})

	rr := httptest.NewRecorder()
	handlers.FrameHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/frame", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before the first frame, got %d", rr.Code)
	}

	hub.ObserveFrame(sampleFrame(7))

	rr = httptest.NewRecorder()
	handlers.FrameHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/frame", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Body.String(); got != "00    \n      \n" {
		t.Fatalf("unexpected text frame %q", got)
	}
	if rr.Header().Get("X-Frame-Number") != "7" {
		t.Fatalf("unexpected frame number header %q", rr.Header().Get("X-Frame-Number"))
	}

	rr = httptest.NewRecorder()
	handlers.FrameHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/frame?format=binary", nil))
	var decoded frame.Frame
	if err := decoded.UnmarshalBinary(rr.Body.Bytes()); err != nil {
		t.Fatalf("decode binary frame: %v", err)
	}
	if decoded.Number != 7 || decoded.Hits() != 2 {
		t.Fatalf("unexpected decoded frame %+v", decoded)
	}

	rr = httptest.NewRecorder()
	handlers.FrameHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/frame?format=png", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handlers.FrameHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/frame", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", rr.Code)
	}
}

func TestHandlerTagsRequestID(t *testing.T) {
	handlers := NewHandlerSet(Options{Logger: logging.NewTestLogger()})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(logging.RequestIDHeader, "abc123")

	handlers.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get(logging.RequestIDHeader) != "abc123" {
		t.Fatalf("expected request id to be echoed, got %q", rr.Header().Get(logging.RequestIDHeader))
	}
}
