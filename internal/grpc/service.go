// Package grpc exposes rendered frames to remote spectators as a
// server-streaming gRPC service.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"sdfterm/raymarch/internal/frame"
	"sdfterm/raymarch/internal/logging"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "sdfterm.FrameStream"
	// EncodingHeader carries the compressor applied to every streamed frame.
	EncodingHeader = "x-frame-encoding"
	// StreamRateHz caps how often a single stream receives frames.
	StreamRateHz = 20

	watchMethod = "/" + ServiceName + "/Watch"
)

// FrameSource hands out frame subscriptions; broadcast.Hub satisfies it.
type FrameSource interface {
	Subscribe(ctx context.Context) (<-chan frame.Frame, func())
}

// FrameStreamServer is the server API for the FrameStream service.
type FrameStreamServer interface {
	Watch(*structpb.Struct, grpc.ServerStreamingServer[wrapperspb.BytesValue]) error
}

// FrameStreamServiceDesc describes the FrameStream service for registration and client streams.
var FrameStreamServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FrameStreamServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "sdfterm/frame_stream.proto",
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(FrameStreamServer).Watch(req, &grpc.GenericServerStream[structpb.Struct, wrapperspb.BytesValue]{ServerStream: stream})
}

// RegisterFrameStreamServer attaches srv to a gRPC server.
func RegisterFrameStreamServer(registrar grpc.ServiceRegistrar, srv FrameStreamServer) {
	registrar.RegisterService(&FrameStreamServiceDesc, srv)
}

// WatchOptions selects the payload encoding and an optional frame budget.
type WatchOptions struct {
	Encoding  string
	MaxFrames int
}

func (o WatchOptions) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"encoding":   o.Encoding,
		"max_frames": o.MaxFrames,
	})
}

func parseWatchOptions(req *structpb.Struct) (WatchOptions, error) {
	var opts WatchOptions
	if req == nil {
		return opts, nil
	}
	fields := req.GetFields()
	if value, ok := fields["encoding"]; ok {
		if _, isString := value.GetKind().(*structpb.Value_StringValue); !isString {
			return opts, errors.New("encoding must be a string")
		}
		opts.Encoding = value.GetStringValue()
	}
	if value, ok := fields["max_frames"]; ok {
		if _, isNumber := value.GetKind().(*structpb.Value_NumberValue); !isNumber {
			return opts, errors.New("max_frames must be a number")
		}
		if value.GetNumberValue() < 0 {
			return opts, errors.New("max_frames must be non-negative")
		}
		opts.MaxFrames = int(value.GetNumberValue())
	}
	return opts, nil
}

type tickerFactory func(time.Duration) (<-chan time.Time, func())

func defaultTickerFactory(interval time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(interval)
	return ticker.C, ticker.Stop
}

// Option customises the service.
type Option func(*Service)

// WithTickerFactory overrides the throttling ticker (used in tests).
func WithTickerFactory(factory tickerFactory) Option {
	return func(s *Service) {
		if factory != nil {
			s.newTicker = factory
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service streams frames from a FrameSource.
type Service struct {
	source    FrameSource
	newTicker tickerFactory
	logger    *logging.Logger
}

// NewService wires the service to its frame source.
func NewService(source FrameSource, opts ...Option) *Service {
	s := &Service{source: source, newTicker: defaultTickerFactory, logger: logging.L()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Watch sends the newest frame at most StreamRateHz times per second until the
// client leaves, the source closes or the requested frame budget is spent.
func (s *Service) Watch(req *structpb.Struct, stream grpc.ServerStreamingServer[wrapperspb.BytesValue]) error {
	if s == nil || s.source == nil {
		return status.Error(codes.FailedPrecondition, "streaming unavailable")
	}
	opts, err := parseWatchOptions(req)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	compressor, err := CompressorByName(opts.Encoding)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	//1.- Announce the encoding before the first frame so clients can decode it.
	if err := stream.SendHeader(metadata.Pairs(EncodingHeader, compressor.Name())); err != nil {
		return err
	}

	ctx := stream.Context()
	frames, cancel := s.source.Subscribe(ctx)
	defer cancel()
	tick, stop := s.newTicker(time.Second / StreamRateHz)
	defer stop()

	var (
		pending *frame.Frame
		closed  bool
		sent    int
	)
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return status.Error(codes.Canceled, "stream cancelled")
			}
			return status.Error(codes.DeadlineExceeded, "stream deadline exceeded")
		case f, ok := <-frames:
			if !ok {
				//2.- Drain the last pending frame before finishing.
				closed, frames = true, nil
				if pending == nil {
					return nil
				}
				continue
			}
			//3.- Newer frames replace an unsent one; spectators only need the latest image.
			pending = &f
		case <-tick:
			if pending == nil {
				if closed {
					return nil
				}
				continue
			}
			payload, err := pending.MarshalBinary()
			if err != nil {
				return status.Errorf(codes.Internal, "encode frame: %v", err)
			}
			compressed, err := compressor.Compress(payload)
			if err != nil {
				return status.Errorf(codes.Internal, "compress frame: %v", err)
			}
			if err := stream.Send(wrapperspb.Bytes(compressed)); err != nil {
				return err
			}
			pending = nil
			sent++
			if opts.MaxFrames > 0 && sent >= opts.MaxFrames {
				s.logger.Debug("watch budget spent", logging.Int("frames", sent))
				return nil
			}
			if closed {
				return nil
			}
		}
	}
}

// Client consumes a FrameStream service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Watcher yields decoded frames from an open Watch stream.
type Watcher struct {
	stream     grpc.ServerStreamingClient[wrapperspb.BytesValue]
	compressor Compressor
}

// Watch opens a stream with the requested options.
func (c *Client) Watch(ctx context.Context, opts WatchOptions, callOpts ...grpc.CallOption) (*Watcher, error) {
	req, err := opts.toStruct()
	if err != nil {
		return nil, err
	}
	raw, err := c.cc.NewStream(ctx, &FrameStreamServiceDesc.Streams[0], watchMethod, callOpts...)
	if err != nil {
		return nil, err
	}
	stream := &grpc.GenericClientStream[structpb.Struct, wrapperspb.BytesValue]{ClientStream: raw}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	header, err := stream.Header()
	if err != nil {
		return nil, err
	}
	encodings := header.Get(EncodingHeader)
	if len(encodings) == 0 {
		return nil, fmt.Errorf("missing %s header", EncodingHeader)
	}
	compressor, err := CompressorByName(encodings[0])
	if err != nil {
		return nil, err
	}
	return &Watcher{stream: stream, compressor: compressor}, nil
}

// Encoding reports the payload codec negotiated for the stream.
func (w *Watcher) Encoding() string { return w.compressor.Name() }

// Recv blocks for the next frame; io.EOF marks a finished stream.
func (w *Watcher) Recv() (frame.Frame, error) {
	msg, err := w.stream.Recv()
	if err != nil {
		return frame.Frame{}, err
	}
	payload, err := w.compressor.Decompress(msg.GetValue())
	if err != nil {
		return frame.Frame{}, err
	}
	var f frame.Frame
	if err := f.UnmarshalBinary(payload); err != nil {
		return frame.Frame{}, err
	}
	return f, nil
}

var _ FrameStreamServer = (*Service)(nil)
