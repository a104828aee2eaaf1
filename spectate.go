package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"sdfterm/raymarch/internal/auth"
	"sdfterm/raymarch/internal/broadcast"
	"sdfterm/raymarch/internal/config"
	"sdfterm/raymarch/internal/frame"
	grpcstream "sdfterm/raymarch/internal/grpc"
	httpapi "sdfterm/raymarch/internal/http"
	"sdfterm/raymarch/internal/logging"
)

const (
	spectatorTokenLeeway = 2 * time.Second
	spectatorRateWindow  = time.Minute
	spectatorRateLimit   = 30
	spectatorBytesPerSec = 256 * 1024
	shutdownGrace        = 2 * time.Second
)

// startSpectators opens the configured HTTP and gRPC listeners and returns a
// func that stops both.
func startSpectators(cfg *config.Config, hub *broadcast.Hub, monitor *frame.Monitor, logger *logging.Logger) (func(), error) {
	var stops []func()
	stopAll := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}

	if cfg.WebSocketAddr != "" {
		stop, err := serveHTTP(cfg, hub, monitor, logger.With(logging.String("component", "http")))
		if err != nil {
			stopAll()
			return nil, err
		}
		stops = append(stops, stop)
	}
	if cfg.GRPCAddr != "" {
		stop, err := serveGRPC(cfg, hub, logger.With(logging.String("component", "grpc")))
		if err != nil {
			stopAll()
			return nil, err
		}
		stops = append(stops, stop)
	}
	return stopAll, nil
}

func serveHTTP(cfg *config.Config, hub *broadcast.Hub, monitor *frame.Monitor, logger *logging.Logger) (func(), error) {
	var tokens httpapi.TokenVerifier
	if cfg.SpectatorSecret != "" {
		verifier, err := auth.NewTokens(cfg.SpectatorSecret, spectatorTokenLeeway)
		if err != nil {
			return nil, err
		}
		tokens = verifier
		logger.Info("spectator token authentication enabled")
	}
	handlers := httpapi.NewHandlerSet(httpapi.Options{
		Logger:      logger,
		Stats:       monitor.Snapshot,
		Hub:         hub,
		Tokens:      tokens,
		RateLimiter: httpapi.NewKeyedLimiter(spectatorRateWindow, spectatorRateLimit, nil),
		Bandwidth:   httpapi.NewBandwidthBudget(spectatorBytesPerSec, nil),
	})

	ln, err := net.Listen("tcp", cfg.WebSocketAddr)
	if err != nil {
		return nil, err
	}
	server := &http.Server{Handler: handlers.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", logging.Error(err))
		}
	}()
	logger.Info("spectator endpoint listening", logging.String("url", listenerURL("ws", ln.Addr().String())+"/ws"))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("http shutdown incomplete", logging.Error(err))
			_ = server.Close()
		}
	}, nil
}

func serveGRPC(cfg *config.Config, hub *broadcast.Hub, logger *logging.Logger) (func(), error) {
	ln, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return nil, err
	}
	server := grpcstream.NewServer(hub, cfg.GRPCSecret, logger)
	go func() {
		if err := server.Serve(ln); err != nil {
			logger.Error("grpc server failed", logging.Error(err))
		}
	}()
	logger.Info("frame stream listening", logging.String("url", listenerURL("grpc", ln.Addr().String())))
	return server.Stop, nil
}
