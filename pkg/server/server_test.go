package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vango-dev/vtree/pkg/protocol"
	"github.com/vango-dev/vtree/pkg/server"
	"github.com/vango-dev/vtree/pkg/snapshot"
	"github.com/vango-dev/vtree/pkg/vdom"
)

func newTestServer(t *testing.T, cfg server.Config, opts ...server.Option) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(server.New(cfg, opts...))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, server.Config{})

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestDiff(t *testing.T) {
	ts := newTestServer(t, server.Config{})

	oldTree := vdom.Div(vdom.Class("a"), vdom.Text("hi"))
	newTree := vdom.Div(vdom.Class("b"), vdom.Text("hi"))
	body, err := json.Marshal(server.DiffRequest{Old: oldTree, New: newTree})
	if err != nil {
		t.Fatal(err)
	}

	resp := postJSON(t, ts.URL+"/diff", string(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got server.DiffResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	want := vdom.Diff(oldTree, newTree)
	if diff := cmp.Diff(want, got.Patches, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffIdenticalTreesReturnsEmptyList(t *testing.T) {
	ts := newTestServer(t, server.Config{})

	resp := postJSON(t, ts.URL+"/diff", `{"old":{"text":"x"},"new":{"text":"x"}}`)
	body, _ := io.ReadAll(resp.Body)
	if got := strings.TrimSpace(string(body)); got != `{"patches":[]}` {
		t.Errorf("body = %s, want empty patch list", got)
	}
}

func TestDiffBadRequests(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		want        int
	}{
		{"malformed json", `{"old":`, "application/json", http.StatusBadRequest},
		{"missing new", `{"old":{"text":"x"}}`, "application/json", http.StatusBadRequest},
		{"invalid node", `{"old":{"tag":"p","text":"x"},"new":{"text":"x"}}`, "application/json", http.StatusBadRequest},
		{"wrong content type", `{}`, "text/plain", http.StatusUnsupportedMediaType},
		{"too large", `{"old":{"text":"` + strings.Repeat("x", 256) + `"}}`, "application/json", http.StatusRequestEntityTooLarge},
	}

	ts := newTestServer(t, server.Config{MaxBodyBytes: 128})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/diff", tt.contentType, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestRender(t *testing.T) {
	ts := newTestServer(t, server.Config{})

	resp := postJSON(t, ts.URL+"/render", `{"html":"<ul><li>one</li><li>two</li></ul>"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got vdom.VNode
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	want := vdom.Ul(vdom.Li(vdom.Text("one")), vdom.Li(vdom.Text("two")))
	if !vdom.Equal(&got, want) {
		t.Errorf("tree = %+v, want %+v", &got, want)
	}
}

func TestRenderEmptyFragment(t *testing.T) {
	ts := newTestServer(t, server.Config{})

	resp := postJSON(t, ts.URL+"/render", `{"html":""}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, server.Config{})

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

// --- WebSocket ---

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", url, err)
	}
	if resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func treeMsg(t *testing.T, seq uint64, tree *vdom.VNode) []byte {
	t.Helper()
	payload, err := protocol.EncodeTreeFrame(&protocol.TreeFrame{Seq: seq, Root: tree})
	if err != nil {
		t.Fatal(err)
	}
	msg, err := protocol.NewFrame(protocol.FrameTree, payload).Encode()
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg []byte) *protocol.Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	typ, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if typ != websocket.BinaryMessage {
		t.Fatalf("message type = %d, want binary", typ)
	}
	f, err := protocol.DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	return f
}

func patchesOf(t *testing.T, f *protocol.Frame) *protocol.PatchesFrame {
	t.Helper()
	if f.Type != protocol.FramePatches {
		t.Fatalf("frame type = %s, want Patches", f.Type)
	}
	pf, err := protocol.DecodePatches(f.Payload)
	if err != nil {
		t.Fatal(err)
	}
	return pf
}

func TestWebSocketMountThenPatch(t *testing.T) {
	ts := newTestServer(t, server.Config{})
	conn := dial(t, ts, "")

	first := vdom.Div(vdom.Text("a"))
	f := roundTrip(t, conn, treeMsg(t, 1, first))
	if !f.Flags.Has(protocol.FlagMount) {
		t.Error("mount reply missing FlagMount")
	}
	pf := patchesOf(t, f)
	if pf.Seq != 1 || len(pf.Patches) != 1 || pf.Patches[0].Op != vdom.PatchReplaceNode {
		t.Errorf("mount reply = %+v, want one root ReplaceNode with seq 1", pf)
	}

	second := vdom.Div(vdom.Text("b"))
	pf = patchesOf(t, roundTrip(t, conn, treeMsg(t, 2, second)))
	want := []vdom.Patch{vdom.SetText(vdom.Path{0}, "b")}
	if diff := cmp.Diff(want, pf.Patches, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("patch reply mismatch (-want +got):\n%s", diff)
	}
}

func TestWebSocketInvalidFrame(t *testing.T) {
	ts := newTestServer(t, server.Config{})
	conn := dial(t, ts, "")

	f := roundTrip(t, conn, []byte{0xff})
	if f.Type != protocol.FrameError {
		t.Fatalf("frame type = %s, want Error", f.Type)
	}
	em, err := protocol.DecodeErrorMessage(f.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if em.Code != protocol.ErrInvalidFrame {
		t.Errorf("code = %s, want %s", em.Code, protocol.ErrInvalidFrame)
	}

	// The connection survives a bad frame.
	pf := patchesOf(t, roundTrip(t, conn, treeMsg(t, 7, vdom.P())))
	if pf.Seq != 7 {
		t.Errorf("seq = %d, want 7", pf.Seq)
	}
}

func TestWebSocketMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts := newTestServer(t, server.Config{}, server.WithMetrics(reg))

	conn := dial(t, ts, "")
	roundTrip(t, conn, treeMsg(t, 1, vdom.P()))

	if n, err := testutil.GatherAndCount(reg, "vtree_active_hosts"); err != nil || n != 1 {
		t.Fatalf("GatherAndCount(active_hosts) = %d, %v", n, err)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("vtree_active_hosts 1")) {
		t.Errorf("metrics output missing active host:\n%s", body)
	}
	if !bytes.Contains(body, []byte(`vtree_cycles_total{mode="mount",status="success"} 1`)) {
		t.Errorf("metrics output missing mount cycle:\n%s", body)
	}
}

func TestWebSocketSessionPersists(t *testing.T) {
	store := snapshot.NewMemoryStore()
	ts := newTestServer(t, server.Config{}, server.WithStore(store))

	tree := vdom.Section(vdom.H1(vdom.Text("saved")))
	conn := dial(t, ts, "?session=abc")
	roundTrip(t, conn, treeMsg(t, 1, tree))

	got, err := store.Load(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !vdom.Equal(got, tree) {
		t.Errorf("stored tree = %+v, want %+v", got, tree)
	}

	// A new connection on the same session restores the tree, so the
	// first Tree frame patches instead of mounting.
	conn.Close()
	conn2 := dial(t, ts, "?session=abc")
	f := roundTrip(t, conn2, treeMsg(t, 1, vdom.Section(vdom.H1(vdom.Text("again")))))
	if f.Flags.Has(protocol.FlagMount) {
		t.Error("restored session replied with a mount")
	}
	pf := patchesOf(t, f)
	want := []vdom.Patch{vdom.SetText(vdom.Path{0, 0}, "again")}
	if diff := cmp.Diff(want, pf.Patches, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

func TestWebSocketInvalidSession(t *testing.T) {
	ts := newTestServer(t, server.Config{}, server.WithStore(snapshot.NewMemoryStore()))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?session=a/b"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Dial() succeeded, want handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("response = %v, want 400", resp)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := server.New(server.Config{ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestShutdownClosesWebSockets(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := server.New(server.Config{ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	var conn *websocket.Conn
	deadline := time.Now().Add(5 * time.Second)
	for {
		c, resp, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
		if err == nil {
			conn = c
			if resp.Body != nil {
				resp.Body.Close()
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial never succeeded: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer conn.Close()

	roundTrip(t, conn, treeMsg(t, 1, vdom.P()))
	if got := srv.Connections(); got != 1 {
		t.Errorf("Connections() = %d, want 1", got)
	}

	cancel()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() error = %v, want going-away close", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve() error = %v", err)
	}
}

func TestSilentWebSocketDropped(t *testing.T) {
	srv := server.New(server.Config{PongWait: 150 * time.Millisecond, PingInterval: 50 * time.Millisecond})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	conn := dial(t, ts, "")

	// The client stops reading after this, so pings go unanswered.
	roundTrip(t, conn, treeMsg(t, 1, vdom.P()))
	if got := srv.Connections(); got != 1 {
		t.Fatalf("Connections() = %d, want 1", got)
	}

	deadline := time.Now().Add(3 * time.Second)
	for srv.Connections() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("silent connection was never dropped")
		}
		time.Sleep(20 * time.Millisecond)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestPongKeepsWebSocketAlive(t *testing.T) {
	srv := server.New(server.Config{PongWait: 150 * time.Millisecond, PingInterval: 30 * time.Millisecond})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	conn := dial(t, ts, "")

	// The default ping handler answers pings while this loop reads.
	frames := make(chan []byte, 4)
	go func() {
		defer close(frames)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- data
		}
	}()

	time.Sleep(500 * time.Millisecond)
	if got := srv.Connections(); got != 1 {
		t.Fatalf("Connections() = %d after idle pongs, want 1", got)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, treeMsg(t, 1, vdom.P())); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	select {
	case data, ok := <-frames:
		if !ok {
			t.Fatal("connection closed before the reply")
		}
		f, err := protocol.DecodeFrame(data)
		if err != nil {
			t.Fatal(err)
		}
		if pf := patchesOf(t, f); pf.Seq != 1 {
			t.Errorf("reply seq = %d, want 1", pf.Seq)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reply")
	}
}
