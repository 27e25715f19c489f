package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/grouporder/pkg/api"
)

// groupScoped is implemented by requests addressed to a single group.
type groupScoped interface {
	GetGroupId() string
}

// orderList is implemented by responses that return a group's orders.
type orderList interface {
	GetOrders() []*api.Order
}

// LoggingInterceptor returns a Connect interceptor that logs every RPC with
// its procedure, the group it addresses, its outcome and duration.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			attrs := []any{"procedure", req.Spec().Procedure}
			if msg, ok := req.Any().(groupScoped); ok && msg.GetGroupId() != "" {
				attrs = append(attrs, "group_id", msg.GetGroupId())
			}

			resp, err := next(ctx, req)
			attrs = append(attrs, "duration_ms", time.Since(start).Milliseconds())

			var connectErr *connect.Error
			switch {
			case err == nil:
				if count, ok := ordersCount(resp); ok {
					attrs = append(attrs, "orders_count", count)
				}
				slog.Info("RPC ok", attrs...)
			case errors.As(err, &connectErr):
				// Expected outcomes such as a missing group or a rejected draft.
				slog.Warn("RPC error", append(attrs, "code", connectErr.Code(), "error", connectErr.Message())...)
			default:
				slog.Error("RPC error", append(attrs, "error", err)...)
			}
			return resp, err
		}
	}
}

func ordersCount(resp connect.AnyResponse) (int, bool) {
	if resp == nil {
		return 0, false
	}
	msg, ok := resp.Any().(orderList)
	if !ok {
		return 0, false
	}
	return len(msg.GetOrders()), true
}
