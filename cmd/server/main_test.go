package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/grouporder/internal/config"
	"github.com/mmynk/grouporder/internal/storage"
	"github.com/mmynk/grouporder/internal/storage/memory"
	"github.com/mmynk/grouporder/pkg/api"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>grupa</html>"), 0644); err != nil {
		t.Fatalf("failed to write index.html: %v", err)
	}
	if err := os.WriteFile(filepath.Join(staticDir, "app.js"), []byte("console.log(1)"), 0644); err != nil {
		t.Fatalf("failed to write app.js: %v", err)
	}

	server := httptest.NewServer(newHandler(storage.NewGroupStore(memory.New()), staticDir))
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestStaticRoutes(t *testing.T) {
	server := setupServer(t)

	tests := []struct {
		path     string
		wantCode int
		contains string
	}{
		{"/", http.StatusOK, "grupa"},
		{"/group/3f1c9a", http.StatusOK, "grupa"},
		{"/app.js", http.StatusOK, "console.log"},
		{"/healthz", http.StatusOK, "ok"},
		{"/grouporder.v1.Unknown/Method", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, body := get(t, server.URL+tt.path)
			if code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, code)
			}
			if !strings.Contains(body, tt.contains) {
				t.Errorf("expected body to contain %q, got %q", tt.contains, body)
			}
		})
	}
}

func TestRPCAndMetrics(t *testing.T) {
	server := setupServer(t)
	client := api.NewGroupServiceClient(http.DefaultClient, server.URL)

	resp, err := client.CreateGroup(context.Background(), connect.NewRequest(&api.CreateGroupRequest{}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	code, body := get(t, server.URL+"/api/groups/"+resp.Msg.Group.Id+"/export")
	if code != http.StatusOK || body != "" {
		t.Errorf("expected empty export, got %d %q", code, body)
	}

	code, body = get(t, server.URL+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", code)
	}
	for _, name := range []string{"grouporder_groups_created_total", "grouporder_rpc_duration_seconds"} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
}

func TestOpenBackendMemory(t *testing.T) {
	backend, err := openBackend(&config.Config{StoreDriver: config.DriverMemory})
	if err != nil {
		t.Fatalf("openBackend failed: %v", err)
	}
	defer backend.Close()

	if _, err := openBackend(&config.Config{StoreDriver: config.DriverMemory, RedisURL: "not a url"}); err == nil {
		t.Error("expected error for invalid REDIS_URL")
	}
}
