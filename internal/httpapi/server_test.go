package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamween-app/tamween/internal/assistant"
	"github.com/tamween-app/tamween/internal/config"
	"github.com/tamween-app/tamween/internal/gemini"
	"github.com/tamween-app/tamween/internal/notes"
	"github.com/tamween-app/tamween/internal/observability"
	"github.com/tamween-app/tamween/internal/stt"
	"github.com/tamween-app/tamween/internal/tokenbroker"
)

type fakeGenerator struct {
	reply string
	err   error
	calls atomic.Int32
}

func (g *fakeGenerator) GenerateText(_ context.Context, _ gemini.TextRequest) (string, error) {
	g.calls.Add(1)
	return g.reply, g.err
}

func (g *fakeGenerator) DescribeImage(_ context.Context, _ gemini.ImageRequest) (string, error) {
	g.calls.Add(1)
	return g.reply, g.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(_ context.Context, _ stt.Clip) (string, error) {
	return f.text, f.err
}

type testServer struct {
	*httptest.Server
	handler http.Handler
	text    *fakeGenerator
	vision  *fakeGenerator
	notes   *notes.InMemoryStore
}

func newTestServer(t *testing.T, cfg config.Config, broker TokenMinter, tr stt.Transcriber) *testServer {
	t.Helper()
	if cfg.MaxAudioBytes == 0 {
		cfg.MaxAudioBytes = 1 << 20
	}
	if cfg.MaxImageBytes == 0 {
		cfg.MaxImageBytes = 1 << 20
	}
	metrics := observability.NewMetricsWith(prometheus.NewRegistry(), "test_httpapi")
	ts := &testServer{
		text:   &fakeGenerator{reply: "Sure, how can I help?"},
		vision: &fakeGenerator{reply: "A photo of a cat on a sofa."},
		notes:  notes.NewInMemoryStore(),
	}
	svc := assistant.NewService(assistant.Options{
		Text:        ts.text,
		Vision:      ts.vision,
		Transcriber: tr,
		Metrics:     metrics,
	})
	srv := New(cfg, Deps{
		Broker:    broker,
		Assistant: svc,
		Notes:     ts.notes,
		Metrics:   metrics,
	})
	ts.handler = srv.Router()
	ts.Server = httptest.NewServer(ts.handler)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decodeBody(t *testing.T, res *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthRoutes(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, nil)
	for _, path := range []string{"/", "/health"} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		body := decodeBody(t, res)
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want %d", path, res.StatusCode, http.StatusOK)
		}
		if body["status"] != "ok" {
			t.Fatalf("GET %s status field = %v, want ok", path, body["status"])
		}
		if res.Header.Get("X-Request-ID") == "" {
			t.Fatalf("GET %s missing X-Request-ID", path)
		}
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, nil)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer res.Body.Close()
	if got := res.Header.Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("X-Request-ID = %q, want %q", got, "req-123")
	}
}

func TestTokenWithoutCredentialNeverCallsUpstream(t *testing.T) {
	var upstreamCalls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		upstreamCalls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	broker := tokenbroker.New(tokenbroker.Config{URL: upstream.URL}, upstream.Client(), nil, nil)
	ts := newTestServer(t, config.Config{}, broker, nil)

	for _, path := range []string{"/api/gemini-token", "/token"} {
		res := postJSON(t, ts.URL+path, map[string]any{})
		if res.StatusCode != http.StatusInternalServerError {
			t.Fatalf("POST %s status = %d, want %d", path, res.StatusCode, http.StatusInternalServerError)
		}
		body := decodeBody(t, res)
		if body["error"] != "Missing credential" {
			t.Fatalf("POST %s error = %v, want Missing credential", path, body["error"])
		}
	}
	if n := upstreamCalls.Load(); n != 0 {
		t.Fatalf("upstream calls = %d, want 0", n)
	}
}

func TestTokenReturnsUpstreamBodyVerbatim(t *testing.T) {
	const minted = `{"name":"auth_tokens/abc","expireTime":"2026-01-01T00:30:00Z"}`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "server-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, minted)
	}))
	defer upstream.Close()

	broker := tokenbroker.New(tokenbroker.Config{APIKey: "server-key", URL: upstream.URL}, upstream.Client(), nil, nil)
	ts := newTestServer(t, config.Config{}, broker, nil)

	res := postJSON(t, ts.URL+"/api/gemini-token", map[string]any{})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if got := res.Header.Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q, want no-store", got)
	}
	raw, _ := io.ReadAll(res.Body)
	if string(raw) != minted {
		t.Fatalf("body = %s, want %s", raw, minted)
	}
}

func TestTokenSurfacesUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exhausted", http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	broker := tokenbroker.New(tokenbroker.Config{APIKey: "server-key", URL: upstream.URL}, upstream.Client(), nil, nil)
	ts := newTestServer(t, config.Config{}, broker, nil)

	res := postJSON(t, ts.URL+"/token", map[string]any{})
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusInternalServerError)
	}
	body := decodeBody(t, res)
	if msg, _ := body["error"].(string); !strings.Contains(msg, "quota exhausted") {
		t.Fatalf("error = %q, want upstream message", msg)
	}
}

func TestTextReplyWithoutActionIsNull(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, nil)

	res := postJSON(t, ts.URL+"/gemini-realtime/text", map[string]any{"text": "hello", "language": "en"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, res)
	action, present := body["action"]
	if !present || action != nil {
		t.Fatalf("action = %v (present %v), want explicit null", action, present)
	}
	if body["response"] != "Sure, how can I help?" {
		t.Fatalf("response = %v", body["response"])
	}
	if body["language"] != "en" {
		t.Fatalf("language = %v, want en", body["language"])
	}
	if _, ok := body["error"]; ok {
		t.Fatalf("error field present on success: %v", body)
	}
}

func TestTextReplyNavigates(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, nil)
	ts.text.reply = "Opening your bills now."

	res := postJSON(t, ts.URL+"/gemini-realtime/text", map[string]any{"text": "show my bills"})
	body := decodeBody(t, res)
	action, _ := body["action"].(map[string]any)
	if action["type"] != "navigate" {
		t.Fatalf("action = %v, want navigate", body["action"])
	}
	data, _ := action["data"].(map[string]any)
	if data["route"] != "/(tabs)/bills" {
		t.Fatalf("route = %v, want /(tabs)/bills", data["route"])
	}
}

func TestTextFailureReturnsApology(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, nil)
	ts.text.err = errors.New("upstream down")

	res := postJSON(t, ts.URL+"/gemini-realtime/text", map[string]any{"text": "مرحبا", "language": "ar"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, res)
	if body["error"] != true {
		t.Fatalf("error = %v, want true", body["error"])
	}
	if body["language"] != "ar" {
		t.Fatalf("language = %v, want ar", body["language"])
	}
	if body["action"] != nil {
		t.Fatalf("action = %v, want null", body["action"])
	}
}

func TestTextInvalidBodyIsApology(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, nil)

	cases := []struct {
		name string
		body string
		lang string
	}{
		{"truncated JSON", `{`, "en"},
		{"empty body", ``, "en"},
		{"empty text", `{"text":""}`, "en"},
		{"whitespace text", `{"text":"   ","language":"ar"}`, "ar"},
		{"context not a list", `{"text":"hi","context":"notalist","language":"ar"}`, "ar"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := http.Post(ts.URL+"/gemini-realtime/text", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("POST error = %v", err)
			}
			defer res.Body.Close()
			if res.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
			}
			body := decodeBody(t, res)
			if body["error"] != true {
				t.Fatalf("error = %v, want true", body["error"])
			}
			if action, ok := body["action"]; !ok || action != nil {
				t.Fatalf("action = %v (present %v), want null", action, ok)
			}
			if resp, _ := body["response"].(string); resp == "" {
				t.Fatalf("response is empty, want an apology")
			}
			if body["language"] != tc.lang {
				t.Fatalf("language = %v, want %s", body["language"], tc.lang)
			}
		})
	}
	if n := ts.text.calls.Load(); n != 0 {
		t.Fatalf("generator calls = %d, want 0", n)
	}
}

var fakePNG = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func TestImageBillNavigatesToBills(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, nil)
	ts.vision.reply = "This is an electricity bill for 25 BHD."

	res := postJSON(t, ts.URL+"/gemini-realtime/image", map[string]any{
		"imageData": "data:image/png;base64," + base64.StdEncoding.EncodeToString(fakePNG),
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, res)
	action, _ := body["action"].(map[string]any)
	data, _ := action["data"].(map[string]any)
	if action["type"] != "navigate" || data["route"] != "/(tabs)/bills" {
		t.Fatalf("action = %v, want navigate to bills", body["action"])
	}
}

func TestImageWithoutBillHasNoAction(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, nil)

	res := postJSON(t, ts.URL+"/gemini-realtime/image", map[string]any{
		"imageData": base64.StdEncoding.EncodeToString(fakePNG),
		"text":      "what is this?",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, res)
	if body["action"] != nil {
		t.Fatalf("action = %v, want null", body["action"])
	}
}

func TestImageErrors(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, nil)

	res := postJSON(t, ts.URL+"/gemini-realtime/image", map[string]any{"imageData": ""})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing image status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}

	res = postJSON(t, ts.URL+"/gemini-realtime/image", map[string]any{"imageData": "%%%not-base64%%%"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid image status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}

	ts.vision.err = errors.New("vision down")
	res = postJSON(t, ts.URL+"/gemini-realtime/image", map[string]any{
		"imageData": base64.StdEncoding.EncodeToString(fakePNG),
	})
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("vision failure status = %d, want %d", res.StatusCode, http.StatusInternalServerError)
	}
	body := decodeBody(t, res)
	if body["error"] != "Failed to analyze image" {
		t.Fatalf("error = %v", body["error"])
	}
}

func postAudio(t *testing.T, url string, clip []byte, fields map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if clip != nil {
		fw, err := mw.CreateFormFile("audio", "clip.m4a")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write(clip)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	res, err := http.Post(url, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestAudioReplyIncludesTranscription(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, fakeTranscriber{text: "add milk to my list"})
	ts.text.reply = "I'll add milk to your shopping list."

	res := postAudio(t, ts.URL+"/gemini-realtime/audio", []byte("ftyp-audio-bytes"), map[string]string{
		"context":  `["hi"]`,
		"language": "en",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, res)
	if body["transcription"] != "add milk to my list" {
		t.Fatalf("transcription = %v", body["transcription"])
	}
	action, _ := body["action"].(map[string]any)
	if action["type"] != "add_to_notes" {
		t.Fatalf("action = %v, want add_to_notes", body["action"])
	}
}

func TestAudioEmptyTranscriptionSkipsGeneration(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, fakeTranscriber{text: "  "})

	res := postAudio(t, ts.URL+"/gemini-realtime/audio", []byte("ftyp-audio-bytes"), nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
	body := decodeBody(t, res)
	if body["error"] != "Could not transcribe audio" {
		t.Fatalf("error = %v", body["error"])
	}
	if n := ts.text.calls.Load(); n != 0 {
		t.Fatalf("generator calls = %d, want 0", n)
	}
}

func TestAudioErrors(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, fakeTranscriber{err: errors.New("stt down")})

	res := postAudio(t, ts.URL+"/gemini-realtime/audio", nil, map[string]string{"language": "en"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing file status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}

	res = postAudio(t, ts.URL+"/gemini-realtime/audio", []byte("ftyp-audio-bytes"), map[string]string{"context": "not json"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid context status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}

	res = postAudio(t, ts.URL+"/gemini-realtime/audio", []byte("ftyp-audio-bytes"), nil)
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("stt failure status = %d, want %d", res.StatusCode, http.StatusInternalServerError)
	}
}

func TestAudioTooLarge(t *testing.T) {
	ts := newTestServer(t, config.Config{MaxAudioBytes: 1024}, nil, stt.NewMockProvider())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("audio", "clip.wav")
	_, _ = fw.Write(bytes.Repeat([]byte{1}, 3<<20))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/gemini-realtime/audio", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestNotesAddAndList(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, nil)

	res := postJSON(t, ts.URL+"/v1/notes", map[string]any{"items": []string{"milk", " ", "bread"}})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	res = postJSON(t, ts.URL+"/v1/notes", map[string]any{"items": []string{}})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty add status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}

	list, err := http.Get(ts.URL + "/v1/notes?limit=1")
	if err != nil {
		t.Fatalf("GET /v1/notes error = %v", err)
	}
	defer list.Body.Close()
	var out struct {
		Notes []notes.Note `json:"notes"`
	}
	if err := json.NewDecoder(list.Body).Decode(&out); err != nil {
		t.Fatalf("decode notes: %v", err)
	}
	if len(out.Notes) != 1 || out.Notes[0].Text != "bread" || out.Notes[0].Source != "api" {
		t.Fatalf("notes = %+v, want [bread from api]", out.Notes)
	}
}

func TestPerfLatencyReportsUpstreamCalls(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"name":"auth_tokens/x"}`)
	}))
	defer upstream.Close()

	metrics := observability.NewMetricsWith(prometheus.NewRegistry(), "test_perf")
	broker := tokenbroker.New(tokenbroker.Config{APIKey: "k", URL: upstream.URL}, upstream.Client(), nil, metrics)
	srv := New(config.Config{}, Deps{Broker: broker, Metrics: metrics})
	handler := srv.Router()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/token", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /token status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/perf/latency", nil))
	var snap observability.LatencySnapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Operations) != 1 || snap.Operations[0].Operation != "token_mint" {
		t.Fatalf("operations = %+v, want token_mint", snap.Operations)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, config.Config{CORSAllowedOrigins: []string{"http://localhost:8081"}}, nil, nil)

	preflight := func(origin string) *http.Response {
		req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/gemini-realtime/text", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("OPTIONS error = %v", err)
		}
		t.Cleanup(func() { res.Body.Close() })
		return res
	}

	res := preflight("http://localhost:8081")
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("allowed preflight status = %d, want %d", res.StatusCode, http.StatusNoContent)
	}
	if got := res.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:8081" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}

	res = preflight("https://evil.example")
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("denied preflight status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}
}

func TestWebSocketTextAndImage(t *testing.T) {
	ts := newTestServer(t, config.Config{}, nil, nil)
	ts.vision.reply = "Looks like a water bill."

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/gemini-realtime/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	send := func(v any) map[string]any {
		t.Helper()
		if err := conn.WriteJSON(v); err != nil {
			t.Fatalf("write: %v", err)
		}
		var out map[string]any
		if err := conn.ReadJSON(&out); err != nil {
			t.Fatalf("read: %v", err)
		}
		return out
	}

	got := send(map[string]any{"type": "text_request", "request_id": "r1", "text": "hello"})
	if got["type"] != "assistant_reply" || got["request_id"] != "r1" {
		t.Fatalf("text reply = %v", got)
	}
	if got["response"] != "Sure, how can I help?" {
		t.Fatalf("response = %v", got["response"])
	}

	got = send(map[string]any{
		"type":       "image_request",
		"request_id": "r2",
		"imageData":  base64.StdEncoding.EncodeToString(fakePNG),
	})
	action, _ := got["action"].(map[string]any)
	if got["request_id"] != "r2" || action["type"] != "navigate" {
		t.Fatalf("image reply = %v", got)
	}

	got = send(map[string]any{"type": "text_request", "request_id": "r3", "text": ""})
	if got["type"] != "error_event" || got["request_id"] != "r3" {
		t.Fatalf("empty text reply = %v, want error_event for r3", got)
	}
	if n := ts.text.calls.Load(); n != 1 {
		t.Fatalf("generator calls = %d, want 1", n)
	}

	got = send(map[string]any{"type": "bogus"})
	if got["type"] != "error_event" {
		t.Fatalf("unknown type reply = %v, want error_event", got)
	}
	if _, ok := got["request_id"]; ok {
		t.Fatalf("unknown type reply = %v, want no request_id", got)
	}
}
