package grpc

import (
	"crypto/subtle"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"sdfterm/raymarch/internal/logging"
)

// SharedSecretMetadataKey carries the spectator shared secret.
const SharedSecretMetadataKey = "x-sdf-shared-secret"

// NewServer builds a gRPC server exposing source. A non-empty secret is required
// from every stream, either in SharedSecretMetadataKey or as a bearer token.
func NewServer(source FrameSource, secret string, logger *logging.Logger, opts ...Option) *grpc.Server {
	if logger == nil {
		logger = logging.L()
	}
	interceptors := []grpc.StreamServerInterceptor{newLoggingStreamInterceptor(logger)}
	if strings.TrimSpace(secret) != "" {
		interceptors = append(interceptors, NewSharedSecretStreamInterceptor(secret))
		logger.Info("gRPC shared-secret authentication enabled")
	}
	server := grpc.NewServer(grpc.ChainStreamInterceptor(interceptors...))
	RegisterFrameStreamServer(server, NewService(source, append([]Option{WithLogger(logger)}, opts...)...))
	return server
}

// NewSharedSecretStreamInterceptor rejects streams that do not present secret.
func NewSharedSecretStreamInterceptor(secret string) grpc.StreamServerInterceptor {
	normalized := strings.TrimSpace(secret)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if normalized == "" {
			return status.Error(codes.Unauthenticated, "shared secret not configured")
		}
		md, ok := metadata.FromIncomingContext(ss.Context())
		if !ok {
			return status.Error(codes.Unauthenticated, "missing metadata")
		}
		candidate := extractSharedSecret(md)
		if candidate == "" {
			return status.Error(codes.Unauthenticated, "missing shared secret")
		}
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(normalized)) != 1 {
			return status.Error(codes.Unauthenticated, "invalid shared secret")
		}
		return handler(srv, ss)
	}
}

func extractSharedSecret(md metadata.MD) string {
	for _, value := range md.Get(SharedSecretMetadataKey) {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	for _, value := range md.Get("authorization") {
		if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
			if token := strings.TrimSpace(value[7:]); token != "" {
				return token
			}
		}
	}
	return ""
}

func newLoggingStreamInterceptor(logger *logging.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		started := time.Now()
		err := handler(srv, ss)
		fields := []logging.Field{
			logging.String("method", info.FullMethod),
			logging.Duration("duration_ms", time.Since(started)),
			logging.String("code", status.Code(err).String()),
		}
		if err != nil && status.Code(err) != codes.Canceled {
			logger.Warn("gRPC stream failed", append(fields, logging.Error(err))...)
			return err
		}
		logger.Debug("gRPC stream finished", fields...)
		return err
	}
}
