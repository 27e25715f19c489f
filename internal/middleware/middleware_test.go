package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/grouporder/internal/metrics"
	"github.com/mmynk/grouporder/pkg/api"
)

type pingService struct {
	api.GroupServiceHandler
	fail bool
}

func (p pingService) GetMenu(ctx context.Context, req *connect.Request[api.GetMenuRequest]) (*connect.Response[api.GetMenuResponse], error) {
	if p.fail {
		return nil, connect.NewError(connect.CodeUnavailable, errors.New("down"))
	}
	return connect.NewResponse(&api.GetMenuResponse{MaxNameLength: 30}), nil
}

func (p pingService) AppendOrder(ctx context.Context, req *connect.Request[api.AppendOrderRequest]) (*connect.Response[api.AppendOrderResponse], error) {
	return connect.NewResponse(&api.AppendOrderResponse{Orders: []*api.Order{{Id: "1"}, req.Msg.Order}}), nil
}

func (p pingService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	return nil, connect.NewError(connect.CodeNotFound, errors.New("group not found"))
}

func TestLoggingInterceptorLogsGroup(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	path, handler := api.NewGroupServiceHandler(pingService{}, connect.WithInterceptors(LoggingInterceptor()))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	defer server.Close()
	client := api.NewGroupServiceClient(http.DefaultClient, server.URL)

	_, err := client.AppendOrder(context.Background(), connect.NewRequest(&api.AppendOrderRequest{
		GroupId: "g1",
		Order:   &api.Order{Id: "2", Category: "pecivo"},
	}))
	require.NoError(t, err)
	_, err = client.GetGroup(context.Background(), connect.NewRequest(&api.GetGroupRequest{GroupId: "missing"}))
	require.Error(t, err)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"msg":"RPC ok"`)
	assert.Contains(t, string(lines[0]), `"group_id":"g1"`)
	assert.Contains(t, string(lines[0]), `"orders_count":2`)
	assert.Contains(t, string(lines[1]), `"level":"WARN"`)
	assert.Contains(t, string(lines[1]), `"group_id":"missing"`)
}

func TestInterceptorsRecordRPCs(t *testing.T) {
	for _, fail := range []bool{false, true} {
		path, handler := api.NewGroupServiceHandler(pingService{fail: fail},
			connect.WithInterceptors(LoggingInterceptor(), MetricsInterceptor()),
		)
		mux := http.NewServeMux()
		mux.Handle(path, handler)
		server := httptest.NewServer(mux)

		code := "ok"
		if fail {
			code = connect.CodeUnavailable.String()
		}
		before := sampleCount(t, api.GroupServiceGetMenuProcedure, code)

		client := api.NewGroupServiceClient(http.DefaultClient, server.URL)
		_, err := client.GetMenu(context.Background(), connect.NewRequest(&api.GetMenuRequest{}))
		server.Close()

		if fail {
			assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))
		} else {
			require.NoError(t, err)
		}
		assert.Equal(t, before+1, sampleCount(t, api.GroupServiceGetMenuProcedure, code))
	}
}

func sampleCount(t *testing.T, procedure, code string) uint64 {
	t.Helper()
	var m dto.Metric
	observer := metrics.RPCDuration.WithLabelValues(procedure, code)
	require.NoError(t, observer.(prometheus.Metric).Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestCORSPreflight(t *testing.T) {
	called := false
	handler := CORS(Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/grouporder.v1.GroupService/GetMenu", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), api.InvalidFieldHeader)
}
