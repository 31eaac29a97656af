package connectutil

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/pitabwire/frame/security"
	connectInterceptors "github.com/pitabwire/frame/security/interceptors/connect"
	securityhttp "github.com/pitabwire/frame/security/interceptors/httptor"
)

// DefaultOptions returns handler options without authentication: the JSON
// codec and request logging. Used by tests and local runs.
func DefaultOptions() []connect.HandlerOption {
	return []connect.HandlerOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithInterceptors(NewLoggingInterceptor()),
	}
}

// AuthenticatedOptions returns handler options with frame's security
// interceptor chain followed by request logging.
func AuthenticatedOptions(ctx context.Context, authenticator security.Authenticator) ([]connect.HandlerOption, error) {
	interceptors, err := connectInterceptors.DefaultList(ctx, authenticator)
	if err != nil {
		return nil, err
	}
	interceptors = append(interceptors, NewLoggingInterceptor())

	return []connect.HandlerOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithInterceptors(interceptors...),
	}, nil
}

// AuthenticatedHTTPMiddleware validates bearer tokens on REST endpoints
// using frame's authentication middleware.
func AuthenticatedHTTPMiddleware(handler http.Handler, authenticator security.Authenticator) http.Handler {
	return securityhttp.AuthenticationMiddleware(handler, authenticator)
}

// DefaultClientOptions returns client options matching DefaultOptions.
func DefaultClientOptions() []connect.ClientOption {
	return []connect.ClientOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithInterceptors(NewLoggingInterceptor()),
	}
}

type loggingInterceptor struct{}

// NewLoggingInterceptor logs every procedure with its duration and, on
// failure, the Connect code.
func NewLoggingInterceptor() connect.Interceptor {
	return loggingInterceptor{}
}

func logCall(ctx context.Context, procedure string, start time.Time, err error) {
	attrs := []any{
		slog.String("procedure", procedure),
		slog.Duration("duration", time.Since(start)),
	}
	if err == nil {
		slog.DebugContext(ctx, "rpc ok", attrs...)
		return
	}
	attrs = append(attrs,
		slog.String("code", connect.CodeOf(err).String()),
		slog.String("error", err.Error()))

	// Client mistakes are not worth a warning.
	var cerr *connect.Error
	if errors.As(err, &cerr) && (cerr.Code() == connect.CodeInvalidArgument || cerr.Code() == connect.CodeNotFound) {
		slog.InfoContext(ctx, "rpc rejected", attrs...)
		return
	}
	slog.WarnContext(ctx, "rpc error", attrs...)
}

func (loggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		logCall(ctx, req.Spec().Procedure, start, err)
		return resp, err
	}
}

func (loggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (loggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := time.Now()
		err := next(ctx, conn)
		logCall(ctx, conn.Spec().Procedure, start, err)
		return err
	}
}
