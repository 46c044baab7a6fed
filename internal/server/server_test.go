package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"islands/internal/config"
	"islands/internal/store"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Map.Width = 16
	cfg.Map.Height = 12
	cfg.Noise.Seed = 5
	cfg.Store.Retain = 2

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func post(t *testing.T, url string) generationResponse {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST %s: status %d: %s", url, resp.StatusCode, body)
	}
	var out generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func getPNG(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestPreviewBeforeGeneration(t *testing.T) {
	_, ts := newTestServer(t)
	resp, _ := getPNG(t, ts.URL+"/heightmap.png")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before generation, got %d", resp.StatusCode)
	}
}

func TestRegenerateAndPreview(t *testing.T) {
	s, ts := newTestServer(t)
	gen := post(t, ts.URL+"/regenerate")
	if gen.Generation != 1 || gen.Width != 16 || gen.Height != 12 {
		t.Fatalf("unexpected generation response %+v", gen)
	}

	for _, path := range []string{"/heightmap.png", "/colourmap.png"} {
		resp, body := getPNG(t, ts.URL+path)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
			t.Fatalf("%s: content type %q", path, ct)
		}
		img, err := png.Decode(bytes.NewReader(body))
		if err != nil {
			t.Fatalf("%s: decode: %v", path, err)
		}
		if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 12 {
			t.Fatalf("%s: bounds %v", path, b)
		}
	}

	state, ok := s.world.Latest()
	if !ok {
		t.Fatalf("no latest state")
	}
	_, body := getPNG(t, ts.URL+"/colourmap.png")
	img, _ := png.Decode(bytes.NewReader(body))
	got := color.NRGBAModel.Convert(img.At(3, 4)).(color.NRGBA)
	want := s.world.Palette().Classify(state.Grid.At(3, 4)).NRGBA()
	if got != want {
		t.Fatalf("colour pixel = %+v, want %+v", got, want)
	}
}

func TestRandomizeChangesPreview(t *testing.T) {
	_, ts := newTestServer(t)
	post(t, ts.URL+"/regenerate")
	_, before := getPNG(t, ts.URL+"/heightmap.png")
	gen := post(t, ts.URL+"/randomize")
	if gen.Generation != 2 {
		t.Fatalf("expected generation 2, got %d", gen.Generation)
	}
	_, after := getPNG(t, ts.URL+"/heightmap.png")
	if bytes.Equal(before, after) {
		t.Fatalf("heightmap unchanged after randomize")
	}
}

func TestSnapshots(t *testing.T) {
	_, ts := newTestServer(t)
	var last generationResponse
	for i := 0; i < 3; i++ {
		last = post(t, ts.URL+"/regenerate")
	}

	resp, err := http.Get(ts.URL + "/snapshots")
	if err != nil {
		t.Fatalf("GET /snapshots: %v", err)
	}
	var infos []store.Info
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode snapshots: %v", err)
	}
	resp.Body.Close()
	if len(infos) != 2 {
		t.Fatalf("expected retention to keep 2 snapshots, got %d", len(infos))
	}
	if infos[1].ID != last.Snapshot {
		t.Fatalf("latest snapshot %s not listed last: %+v", last.Snapshot, infos)
	}

	for _, kind := range []string{"heightmap", "colourmap"} {
		r, body := getPNG(t, ts.URL+"/snapshots/"+last.Snapshot.String()+"/"+kind+".png")
		if r.StatusCode != http.StatusOK {
			t.Fatalf("%s snapshot: status %d", kind, r.StatusCode)
		}
		if _, err := png.Decode(bytes.NewReader(body)); err != nil {
			t.Fatalf("%s snapshot: decode: %v", kind, err)
		}
	}

	r, _ := getPNG(t, ts.URL+"/snapshots/not-a-uuid/heightmap.png")
	if r.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", r.StatusCode)
	}
	r, _ = getPNG(t, ts.URL+"/snapshots/"+uuid.NewString()+"/heightmap.png")
	if r.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", r.StatusCode)
	}
}

func TestDegenerateFieldReturnsUnprocessable(t *testing.T) {
	cfg := config.Default()
	cfg.Map.Width = 8
	cfg.Map.Height = 8
	for i := range cfg.Noise.Layers {
		cfg.Noise.Layers[i].Weight = 0
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/regenerate", nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/regenerate", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	post(t, ts.URL+"/regenerate")
	post(t, ts.URL+"/randomize")

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`islands_generations_total{outcome="ok"} 2`,
		"islands_randomizations_total 1",
		"islands_snapshots_stored 2",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

func TestRunServesAndShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	cfg := config.Default()
	cfg.Map.Width = 8
	cfg.Map.Height = 8
	cfg.Preview.ListenAddress = addr
	cfg.Preview.ShutdownTimeout = config.Duration(time.Second)
	cfg.Store.Path = filepath.Join(t.TempDir(), "snapshots.log")

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/heightmap.png")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become ready: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
