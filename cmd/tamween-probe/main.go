// Command tamween-probe replays synthetic fallback turns against a running
// server and prints per-turn latency.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tamween-app/tamween/internal/protocol"
)

type options struct {
	baseURL        string
	mode           string
	language       string
	audioFile      string
	turns          int
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	texts          []string
	verbose        bool
}

var defaultUtterances = []string{
	"Add milk and eggs to my shopping list",
	"Show me my bills",
	"Any bank deals today?",
	"Where is the nearest hospital?",
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tamween-probe: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "tamween-probe: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var cfg options
	var textsRaw string
	var interTurnMS int
	var turnTimeoutMS int

	flag.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "Tamween base URL")
	flag.StringVar(&cfg.mode, "mode", "ws", "transport: ws|http|audio")
	flag.StringVar(&cfg.language, "language", "en", "language tag sent with every turn")
	flag.StringVar(&cfg.audioFile, "audio-file", "", "clip uploaded on every turn in audio mode")
	flag.IntVar(&cfg.turns, "turns", 10, "number of turns to replay")
	flag.IntVar(&interTurnMS, "inter-turn-ms", 180, "delay between turns in milliseconds")
	flag.IntVar(&turnTimeoutMS, "turn-timeout-ms", 30000, "timeout waiting for each reply in milliseconds")
	flag.StringVar(&textsRaw, "texts", "", "utterances separated by '|' (optional)")
	flag.BoolVar(&cfg.verbose, "verbose", true, "print replay progress")
	flag.Parse()

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.turns <= 0 {
		return options{}, fmt.Errorf("turns must be > 0")
	}
	switch cfg.mode {
	case "ws", "http":
	case "audio":
		if strings.TrimSpace(cfg.audioFile) == "" {
			return options{}, fmt.Errorf("audio mode needs -audio-file")
		}
	default:
		return options{}, fmt.Errorf("mode must be ws, http or audio")
	}
	if interTurnMS < 0 {
		interTurnMS = 0
	}
	if turnTimeoutMS < 1000 {
		turnTimeoutMS = 1000
	}
	cfg.interTurnDelay = time.Duration(interTurnMS) * time.Millisecond
	cfg.turnTimeout = time.Duration(turnTimeoutMS) * time.Millisecond

	cfg.texts = splitTexts(textsRaw)
	if len(cfg.texts) == 0 {
		if strings.TrimSpace(textsRaw) != "" {
			return options{}, fmt.Errorf("texts produced no non-empty utterances")
		}
		cfg.texts = append([]string(nil), defaultUtterances...)
	}
	return cfg, nil
}

func splitTexts(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, "|") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type turnFunc func(ctx context.Context, text string) (protocol.AssistantReply, error)

func run(cfg options) error {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Minute)
	defer cancel()

	httpClient := &http.Client{Timeout: cfg.turnTimeout}
	var turn turnFunc
	switch cfg.mode {
	case "ws":
		wsURL, err := wsURLFor(cfg.baseURL)
		if err != nil {
			return fmt.Errorf("build ws URL: %w", err)
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			return fmt.Errorf("open websocket: %w", err)
		}
		defer conn.Close()
		replies := make(chan protocol.AssistantReply, 32)
		readErrCh := make(chan error, 1)
		go readLoop(conn, replies, readErrCh, cfg.verbose)
		turn = func(_ context.Context, text string) (protocol.AssistantReply, error) {
			id := uuid.NewString()
			if err := conn.WriteJSON(protocol.TextRequest{
				Type: protocol.TypeTextRequest, RequestID: id, Text: text, Language: cfg.language,
			}); err != nil {
				return protocol.AssistantReply{}, err
			}
			return awaitReply(id, replies, readErrCh, cfg.turnTimeout)
		}
	case "http":
		turn = func(ctx context.Context, text string) (protocol.AssistantReply, error) {
			return postText(ctx, httpClient, cfg.baseURL, text, cfg.language)
		}
	case "audio":
		clip, err := os.ReadFile(cfg.audioFile)
		if err != nil {
			return fmt.Errorf("read audio file: %w", err)
		}
		turn = func(ctx context.Context, _ string) (protocol.AssistantReply, error) {
			return postAudio(ctx, httpClient, cfg.baseURL, filepath.Base(cfg.audioFile), clip, cfg.language)
		}
	}

	if cfg.verbose {
		fmt.Printf("tamween-probe: mode=%s turns=%d language=%s\n", cfg.mode, cfg.turns, cfg.language)
	}

	latencies := make([]time.Duration, 0, cfg.turns)
	for i := 0; i < cfg.turns; i++ {
		text := cfg.texts[i%len(cfg.texts)]
		start := time.Now()
		reply, err := turn(ctx, text)
		if err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}
		elapsed := time.Since(start)
		latencies = append(latencies, elapsed)
		if cfg.verbose {
			action := "none"
			if reply.Action != nil {
				action = string(reply.Action.Type)
			}
			fmt.Printf("tamween-probe: turn %d/%d %dms action=%s error=%v text=%q\n",
				i+1, cfg.turns, elapsed.Milliseconds(), action, reply.Error, text)
		}
		if cfg.interTurnDelay > 0 && i < cfg.turns-1 {
			time.Sleep(cfg.interTurnDelay)
		}
	}

	fmt.Printf("tamween-probe: p50=%dms p95=%dms max=%dms\n",
		percentile(latencies, 50).Milliseconds(),
		percentile(latencies, 95).Milliseconds(),
		percentile(latencies, 100).Milliseconds(),
	)
	return nil
}

func wsURLFor(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/gemini-realtime/ws"
	return u.String(), nil
}

func readLoop(conn *websocket.Conn, replies chan<- protocol.AssistantReply, readErrCh chan<- error, verbose bool) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case readErrCh <- err:
			default:
			}
			return
		}

		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case protocol.TypeAssistantReply:
			var reply protocol.AssistantReply
			if err := json.Unmarshal(data, &reply); err != nil {
				continue
			}
			select {
			case replies <- reply:
			default:
			}
		case protocol.TypeErrorEvent:
			var ev protocol.ErrorEvent
			_ = json.Unmarshal(data, &ev)
			if verbose {
				fmt.Fprintf(os.Stderr, "tamween-probe: error_event code=%s detail=%s\n", ev.Code, ev.Detail)
			}
			if ev.RequestID == "" {
				continue
			}
			select {
			case replies <- protocol.AssistantReply{Type: ev.Type, RequestID: ev.RequestID, Response: ev.Detail, Error: true}:
			default:
			}
		}
	}
}

// awaitReply drops replies to earlier timed-out turns.
func awaitReply(id string, replies <-chan protocol.AssistantReply, readErrCh <-chan error, timeout time.Duration) (protocol.AssistantReply, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case r := <-replies:
			if r.RequestID == id {
				return r, nil
			}
		case err := <-readErrCh:
			return protocol.AssistantReply{}, err
		case <-timer.C:
			return protocol.AssistantReply{}, fmt.Errorf("timeout after %s", timeout)
		}
	}
}

func postText(ctx context.Context, client *http.Client, baseURL, text, language string) (protocol.AssistantReply, error) {
	payload, err := json.Marshal(map[string]any{"text": text, "language": language})
	if err != nil {
		return protocol.AssistantReply{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/gemini-realtime/text", bytes.NewReader(payload))
	if err != nil {
		return protocol.AssistantReply{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	return doReply(client, req)
}

func postAudio(ctx context.Context, client *http.Client, baseURL, filename string, clip []byte, language string) (protocol.AssistantReply, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return protocol.AssistantReply{}, err
	}
	if _, err := fw.Write(clip); err != nil {
		return protocol.AssistantReply{}, err
	}
	if err := mw.WriteField("language", language); err != nil {
		return protocol.AssistantReply{}, err
	}
	if err := mw.Close(); err != nil {
		return protocol.AssistantReply{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/gemini-realtime/audio", &buf)
	if err != nil {
		return protocol.AssistantReply{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return doReply(client, req)
}

func doReply(client *http.Client, req *http.Request) (protocol.AssistantReply, error) {
	res, err := client.Do(req)
	if err != nil {
		return protocol.AssistantReply{}, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return protocol.AssistantReply{}, err
	}
	if res.StatusCode != http.StatusOK {
		return protocol.AssistantReply{}, fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	var out protocol.AssistantReply
	if err := json.Unmarshal(body, &out); err != nil {
		return protocol.AssistantReply{}, err
	}
	return out, nil
}

// percentile uses nearest-rank on a sorted copy.
func percentile(ds []time.Duration, p int) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), ds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
