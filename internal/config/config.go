package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains all runtime settings for the Tamween voice backend and client.
type Config struct {
	BindAddr           string
	ShutdownTimeout    time.Duration
	MetricsNamespace   string
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string
	AllowAnyOrigin     bool
	MaxAudioBytes      int64
	MaxImageBytes      int64

	GoogleAPIKey             string
	GeminiBaseURL            string
	GeminiTextModel          string
	GeminiVisionModel        string
	GeminiTokenURL           string
	GeminiTimeout            time.Duration
	GeminiBreakerFailures    int
	GeminiBreakerOpenTimeout time.Duration

	STTProvider        string
	ElevenLabsAPIKey   string
	ElevenLabsBaseURL  string
	ElevenLabsSTTModel string

	DatabaseURL string

	RTCTokenURL     string
	RTCSDPURL       string
	RTCSTUNURL      string
	RTCLanguageHint string
}

type setting struct {
	key string
	env []string
	def string
}

// Keys are dotted so an optional YAML file can nest them (app.bind_addr, gemini.api_key, ...).
var settings = []setting{
	{key: "app.bind_addr", env: []string{"APP_BIND_ADDR"}, def: ":8080"},
	{key: "app.shutdown_timeout", env: []string{"APP_SHUTDOWN_TIMEOUT"}, def: "15s"},
	{key: "app.metrics_namespace", env: []string{"APP_METRICS_NAMESPACE"}, def: "tamween"},
	{key: "app.log_level", env: []string{"APP_LOG_LEVEL"}, def: "info"},
	{key: "app.log_format", env: []string{"APP_LOG_FORMAT"}, def: "json"},
	{key: "app.cors_origins", env: []string{"APP_CORS_ORIGINS"}, def: ""},
	{key: "app.allow_any_origin", env: []string{"APP_ALLOW_ANY_ORIGIN"}, def: "false"},
	// Clips are buffered whole before transcription, keep the cap small.
	{key: "app.max_audio_bytes", env: []string{"APP_MAX_AUDIO_BYTES"}, def: strconv.Itoa(10 << 20)},
	{key: "app.max_image_bytes", env: []string{"APP_MAX_IMAGE_BYTES"}, def: strconv.Itoa(8 << 20)},

	{key: "gemini.api_key", env: []string{"GOOGLE_API_KEY", "EXPO_PUBLIC_GOOGLE_API_KEY"}, def: ""},
	{key: "gemini.base_url", env: []string{"GEMINI_BASE_URL"}, def: "https://generativelanguage.googleapis.com/"},
	{key: "gemini.text_model", env: []string{"GEMINI_TEXT_MODEL"}, def: "gemini-2.0-flash"},
	{key: "gemini.vision_model", env: []string{"GEMINI_VISION_MODEL"}, def: "gemini-2.0-flash"},
	{key: "gemini.token_url", env: []string{"GEMINI_TOKEN_URL"}, def: "https://generativelanguage.googleapis.com/v1alpha/auth_tokens"},
	{key: "gemini.timeout", env: []string{"GEMINI_TIMEOUT"}, def: "30s"},
	{key: "gemini.breaker_failures", env: []string{"GEMINI_BREAKER_FAILURES"}, def: "5"},
	{key: "gemini.breaker_open_timeout", env: []string{"GEMINI_BREAKER_OPEN_TIMEOUT"}, def: "30s"},

	{key: "stt.provider", env: []string{"STT_PROVIDER"}, def: "auto"},
	{key: "elevenlabs.api_key", env: []string{"ELEVENLABS_API_KEY"}, def: ""},
	{key: "elevenlabs.base_url", env: []string{"ELEVENLABS_BASE_URL"}, def: "https://api.elevenlabs.io"},
	{key: "elevenlabs.stt_model", env: []string{"ELEVENLABS_STT_MODEL_ID"}, def: "scribe_v1"},

	{key: "database.url", env: []string{"DATABASE_URL"}, def: ""},

	{key: "rtc.token_url", env: []string{"RTC_TOKEN_URL"}, def: "http://localhost:8080/api/gemini-token"},
	{key: "rtc.sdp_url", env: []string{"RTC_SDP_URL"}, def: ""},
	{key: "rtc.stun_url", env: []string{"RTC_STUN_URL"}, def: "stun:stun.l.google.com:19302"},
	{key: "rtc.language_hint", env: []string{"RTC_LANGUAGE_HINT"}, def: "en"},
}

// Load reads the optional config file and environment variables and applies safe defaults.
// Environment variables win over the file.
func Load() (Config, error) {
	v := viper.New()
	if path := strings.TrimSpace(os.Getenv("TAMWEEN_CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
		if err := v.BindEnv(append([]string{s.key}, s.env...)...); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", s.key, err)
		}
	}

	cfg := Config{
		BindAddr:           str(v, "app.bind_addr"),
		MetricsNamespace:   str(v, "app.metrics_namespace"),
		LogLevel:           strings.ToLower(str(v, "app.log_level")),
		LogFormat:          strings.ToLower(str(v, "app.log_format")),
		CORSAllowedOrigins: splitCSV(str(v, "app.cors_origins")),
		GoogleAPIKey:       str(v, "gemini.api_key"),
		GeminiBaseURL:      str(v, "gemini.base_url"),
		GeminiTextModel:    str(v, "gemini.text_model"),
		GeminiVisionModel:  str(v, "gemini.vision_model"),
		GeminiTokenURL:     str(v, "gemini.token_url"),
		STTProvider:        strings.ToLower(str(v, "stt.provider")),
		ElevenLabsAPIKey:   str(v, "elevenlabs.api_key"),
		ElevenLabsBaseURL:  str(v, "elevenlabs.base_url"),
		ElevenLabsSTTModel: str(v, "elevenlabs.stt_model"),
		DatabaseURL:        str(v, "database.url"),
		RTCTokenURL:        str(v, "rtc.token_url"),
		RTCSDPURL:          str(v, "rtc.sdp_url"),
		RTCSTUNURL:         str(v, "rtc.stun_url"),
		RTCLanguageHint:    str(v, "rtc.language_hint"),
	}

	var err error
	if cfg.ShutdownTimeout, err = durationFrom(v, "app.shutdown_timeout", "APP_SHUTDOWN_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.GeminiTimeout, err = durationFrom(v, "gemini.timeout", "GEMINI_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.GeminiBreakerOpenTimeout, err = durationFrom(v, "gemini.breaker_open_timeout", "GEMINI_BREAKER_OPEN_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if cfg.GeminiBreakerFailures, err = intFrom(v, "gemini.breaker_failures", "GEMINI_BREAKER_FAILURES"); err != nil {
		return Config{}, err
	}
	if cfg.AllowAnyOrigin, err = boolFrom(v, "app.allow_any_origin", "APP_ALLOW_ANY_ORIGIN"); err != nil {
		return Config{}, err
	}
	maxAudio, err := intFrom(v, "app.max_audio_bytes", "APP_MAX_AUDIO_BYTES")
	if err != nil {
		return Config{}, err
	}
	cfg.MaxAudioBytes = int64(maxAudio)
	maxImage, err := intFrom(v, "app.max_image_bytes", "APP_MAX_IMAGE_BYTES")
	if err != nil {
		return Config{}, err
	}
	cfg.MaxImageBytes = int64(maxImage)

	switch cfg.STTProvider {
	case "auto", "elevenlabs", "gemini", "mock":
	default:
		return Config{}, fmt.Errorf("STT_PROVIDER must be one of auto|elevenlabs|gemini|mock")
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("APP_LOG_FORMAT must be json or console")
	}
	if cfg.GeminiTimeout <= 0 {
		return Config{}, fmt.Errorf("GEMINI_TIMEOUT must be positive")
	}
	if cfg.GeminiBreakerFailures <= 0 {
		return Config{}, fmt.Errorf("GEMINI_BREAKER_FAILURES must be positive")
	}
	if cfg.MaxAudioBytes <= 0 {
		return Config{}, fmt.Errorf("APP_MAX_AUDIO_BYTES must be positive")
	}
	if cfg.MaxImageBytes <= 0 {
		return Config{}, fmt.Errorf("APP_MAX_IMAGE_BYTES must be positive")
	}

	return cfg, nil
}

func str(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func durationFrom(v *viper.Viper, key, name string) (time.Duration, error) {
	d, err := time.ParseDuration(str(v, key))
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", name, err)
	}
	return d, nil
}

func intFrom(v *viper.Viper, key, name string) (int, error) {
	n, err := strconv.Atoi(str(v, key))
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", name, err)
	}
	return n, nil
}

func boolFrom(v *viper.Viper, key, name string) (bool, error) {
	switch strings.ToLower(str(v, key)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off", "":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", name)
	}
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
