package debugserver

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/chazu/rill/value"
)

func writeChunk(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "chunk.rill")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	return path
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?path=" + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestStreamsStepsThenDone(t *testing.T) {
	path := writeChunk(t, "local a = 1\nlocal b = 2\nreturn a + b")
	srv := httptest.NewServer(Handler(value.NewHeap()))
	defer srv.Close()

	conn := dial(t, srv, path)
	defer conn.Close()

	sawStep := false
	for {
		var e event
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("expected a done event before disconnect: %v", err)
		}
		if e.Type == "step" {
			sawStep = true
			continue
		}
		if e.Type != "done" {
			t.Fatalf("expected done, got %+v", e)
		}
		break
	}
	if !sawStep {
		t.Fatalf("expected at least one step event")
	}
}

func TestReportsRuntimeError(t *testing.T) {
	path := writeChunk(t, `return "x" + 1`)
	srv := httptest.NewServer(Handler(value.NewHeap()))
	defer srv.Close()

	conn := dial(t, srv, path)
	defer conn.Close()

	for {
		var e event
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("expected an error event before disconnect: %v", err)
		}
		if e.Type == "step" {
			continue
		}
		if e.Type != "error" || e.Message == "" {
			t.Fatalf("expected a non-empty error event, got %+v", e)
		}
		break
	}
}

func TestMissingPathIsBadRequest(t *testing.T) {
	srv := httptest.NewServer(Handler(value.NewHeap()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected dial to fail without ?path=")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected HTTP 400, got %+v", resp)
	}
}
