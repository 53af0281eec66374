package server

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soar/padview/internal/gamepad"
	"github.com/soar/padview/internal/hub"
)

type stubSink struct {
	vibrate chan float64
}

func (s *stubSink) StartVibration(left, right float64, d time.Duration) { s.vibrate <- left }
func (s *stubSink) StopVibration()                                      {}

func (s *stubSink) BatteryInfo(context.Context) (gamepad.BatteryInfo, error) {
	return gamepad.BatteryInfo{Valid: true, Wired: true, Level: gamepad.BatteryWired}, nil
}

func (s *stubSink) Capabilities(context.Context) (gamepad.Capabilities, error) {
	return gamepad.Capabilities{}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, chan gamepad.Frame, *stubSink) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	h := hub.NewHub()
	go h.Run(ctx)
	frames := make(chan gamepad.Frame, 4)
	b := hub.NewBroadcaster(h, frames)
	go b.Run(ctx)

	sink := &stubSink{vibrate: make(chan float64, 1)}
	srv, err := New(h, b, sink, ":0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts, frames, sink
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestStaticAssetsMinified(t *testing.T) {
	ts, _, _ := newTestServer(t)

	tests := []struct {
		path  string
		ctype string
		file  string
	}{
		{"/", "text/html", "static/index.html"},
		{"/app.js", "javascript", "static/app.js"},
		{"/style.css", "text/css", "static/style.css"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, ts.URL+tt.path)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, tt.ctype) {
				t.Errorf("Content-Type = %q", ct)
			}
			raw, err := fs.ReadFile(staticFiles, tt.file)
			if err != nil {
				t.Fatal(err)
			}
			if len(body) == 0 || len(body) >= len(raw) {
				t.Errorf("served %d bytes, source %d; expected minified output", len(body), len(raw))
			}
		})
	}

	if resp, _ := get(t, ts.URL+"/missing.txt"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing asset status = %d", resp.StatusCode)
	}
}

func TestLoadAssetsKeepsUnknownTypes(t *testing.T) {
	fsys := fstest.MapFS{
		"icon.bin":   {Data: []byte{1, 2, 3}},
		"index.html": {Data: []byte("<html>  <body>  <p>hi</p>  </body></html>")},
	}
	assets, err := loadAssets(fsys, newMinifier())
	if err != nil {
		t.Fatal(err)
	}
	if a := assets["/icon.bin"]; string(a.body) != "\x01\x02\x03" || a.contentType != "application/octet-stream" {
		t.Errorf("icon.bin = %+v", a)
	}
	if a := assets["/index.html"]; strings.Contains(string(a.body), "  ") {
		t.Errorf("index.html not minified: %q", a.body)
	}
}

func TestWebSocketRoundTrip(t *testing.T) {
	ts, frames, sink := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg hub.WSMessage
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != hub.TypeFull {
		t.Fatalf("initial message = %+v, %v", msg, err)
	}

	frames <- gamepad.Frame{State: gamepad.GamepadState{Connected: true}}
	msg = hub.WSMessage{}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != hub.TypeDelta {
		t.Fatalf("delta message = %+v, %v", msg, err)
	}

	if err := conn.WriteJSON(hub.ClientMessage{Type: hub.CmdVibrate, Left: 0.25, Right: 0.25, DurationMs: 100}); err != nil {
		t.Fatal(err)
	}
	select {
	case left := <-sink.vibrate:
		if left != 0.25 {
			t.Errorf("left = %v", left)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("vibrate command not delivered")
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	ts, _, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	tests := []struct {
		origin string
		ok     bool
	}{
		{"", true},
		{ts.URL, true},
		{"http://attacker.example", false},
		{"http://localhost:1", false},
	}
	for _, tt := range tests {
		header := http.Header{}
		if tt.origin != "" {
			header.Set("Origin", tt.origin)
		}
		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		if tt.ok {
			if err != nil {
				t.Errorf("origin %q: dial failed: %v", tt.origin, err)
				continue
			}
			conn.Close()
			continue
		}
		if err == nil {
			conn.Close()
			t.Errorf("origin %q: connection accepted", tt.origin)
			continue
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Errorf("origin %q: resp = %v", tt.origin, resp)
		}
	}
}

func TestURL(t *testing.T) {
	s := &Server{addr: ":8080"}
	if got := s.URL(); got != "http://localhost:8080/" {
		t.Errorf("URL = %q", got)
	}
	s.addr = "127.0.0.1:9000"
	if got := s.URL(); got != "http://127.0.0.1:9000/" {
		t.Errorf("URL = %q", got)
	}
}
