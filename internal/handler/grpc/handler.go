package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/TomasB/ipcountry/internal/metrics"
	"github.com/TomasB/ipcountry/internal/resolver"
	"github.com/TomasB/ipcountry/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// SnapshotReader hands out references to the current database snapshot.
type SnapshotReader interface {
	Read() (*store.Ref, error)
}

// Handler implements CountryService.
type Handler struct {
	snapshots SnapshotReader
}

// NewHandler creates a new gRPC handler reading from the given snapshots.
func NewHandler(snapshots SnapshotReader) *Handler {
	return &Handler{snapshots: snapshots}
}

// Lookup resolves the requested IP address to its country code.
func (h *Handler) Lookup(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if req == nil || req.GetValue() == "" {
		metrics.LookupsTotal.WithLabelValues("grpc", metrics.OutcomeInvalidAddress).Inc()
		return nil, status.Error(codes.InvalidArgument, "ip is required")
	}
	ip := req.GetValue()

	ref, err := h.snapshots.Read()
	if err != nil {
		slog.Error("failed to acquire database", "ip", ip, "error", err)
		metrics.LookupsTotal.WithLabelValues("grpc", metrics.OutcomeUnavailable).Inc()
		if errors.Is(err, store.ErrHandleClosed) {
			return nil, status.Error(codes.Unavailable, "service unavailable")
		}
		return nil, status.Error(codes.Internal, "lookup failed")
	}
	defer ref.Release()

	country, err := resolver.Resolve(ip, ref.Database())
	switch {
	case errors.Is(err, resolver.ErrInvalidAddress):
		metrics.LookupsTotal.WithLabelValues("grpc", metrics.OutcomeInvalidAddress).Inc()
		return nil, status.Error(codes.InvalidArgument, "invalid IP address")
	case errors.Is(err, resolver.ErrNotFound):
		slog.Error("error finding IP country", "ip", ip, "error", err)
		metrics.LookupsTotal.WithLabelValues("grpc", metrics.OutcomeNotFound).Inc()
		return nil, status.Error(codes.Internal, "lookup failed")
	case err != nil:
		slog.Error("error finding IP country", "ip", ip, "error", err)
		metrics.LookupsTotal.WithLabelValues("grpc", metrics.OutcomeDatabaseFault).Inc()
		return nil, status.Error(codes.Internal, "lookup failed")
	}

	metrics.LookupsTotal.WithLabelValues("grpc", metrics.OutcomeOK).Inc()
	return wrapperspb.String(country), nil
}

// LoggingInterceptor logs each unary call with its code and duration.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		attrs := []any{
			"method", info.FullMethod,
			"code", code.String(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch code {
		case codes.OK:
			logger.Info("rpc completed", attrs...)
		case codes.InvalidArgument:
			logger.Warn("rpc completed", attrs...)
		default:
			logger.Error("rpc completed", attrs...)
		}
		return resp, err
	}
}
