// Package assistant implements the stateless text, audio and image reply path.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tamween-app/tamween/internal/audio"
	"github.com/tamween-app/tamween/internal/gemini"
	"github.com/tamween-app/tamween/internal/intent"
	"github.com/tamween-app/tamween/internal/observability"
	"github.com/tamween-app/tamween/internal/policy"
	"github.com/tamween-app/tamween/internal/stt"
)

var (
	ErrNoAudio            = errors.New("no audio provided")
	ErrEmptyTranscription = errors.New("transcription is empty")
	ErrNoImage            = errors.New("no image provided")
)

type TextGenerator interface {
	GenerateText(ctx context.Context, req gemini.TextRequest) (string, error)
}

type ImageDescriber interface {
	DescribeImage(ctx context.Context, req gemini.ImageRequest) (string, error)
}

// Reply is the response envelope shared by every fallback endpoint.
type Reply struct {
	Transcription string         `json:"transcription,omitempty"`
	Response      string         `json:"response"`
	Action        *intent.Action `json:"action"`
	Language      string         `json:"language"`
	Error         bool           `json:"error,omitempty"`
}

type TextInput struct {
	Text     string
	Context  []string
	Language string
}

type AudioInput struct {
	Data     []byte
	MIMEType string
	Filename string
	Context  []string
	Language string
}

type ImageInput struct {
	Data     []byte
	MIMEType string
	Prompt   string
	Language string
}

type Options struct {
	Text        TextGenerator
	Vision      ImageDescriber
	Transcriber stt.Transcriber
	// Classifier runs over text replies. Defaults to the keyword heuristic.
	Classifier intent.Classifier
	// ImageClassifier runs over image descriptions. Defaults to bill detection.
	ImageClassifier intent.Classifier
	Logger          *zap.Logger
	Metrics         *observability.Metrics
}

// Service holds no per-conversation state; every call is independent.
type Service struct {
	text        TextGenerator
	vision      ImageDescriber
	transcriber stt.Transcriber
	classifier  intent.Classifier
	imageClass  intent.Classifier
	logger      *zap.Logger
	metrics     *observability.Metrics
}

func NewService(opts Options) *Service {
	s := &Service{
		text:        opts.Text,
		vision:      opts.Vision,
		transcriber: opts.Transcriber,
		classifier:  opts.Classifier,
		imageClass:  opts.ImageClassifier,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
	if s.classifier == nil {
		s.classifier = intent.KeywordClassifier{}
	}
	if s.imageClass == nil {
		s.imageClass = intent.BillClassifier{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Reply never fails: generation errors become a localized apology with Error set.
func (s *Service) Reply(ctx context.Context, in TextInput) Reply {
	return s.reply(ctx, "text", in)
}

func (s *Service) reply(ctx context.Context, endpoint string, in TextInput) Reply {
	lang := intent.ParseLanguage(in.Language)
	s.logger.Debug("assistant request",
		zap.String("endpoint", endpoint),
		zap.String("language", string(lang)),
		zap.String("text", policy.Redacted(in.Text)),
		zap.Int("context", len(in.Context)),
	)

	if strings.TrimSpace(in.Text) == "" {
		s.metrics.Reply(endpoint, "invalid")
		return apology(lang)
	}
	if s.text == nil {
		s.metrics.Reply(endpoint, "error")
		return apology(lang)
	}
	text, err := s.text.GenerateText(ctx, gemini.TextRequest{
		System:  textSystemPrompts[lang],
		Context: lastN(in.Context, contextWindow),
		Text:    in.Text,
	})
	if err != nil {
		s.logger.Warn("text generation failed", zap.String("endpoint", endpoint), zap.Error(err))
		s.metrics.Reply(endpoint, "error")
		return apology(lang)
	}

	action := s.classifier.Classify(intent.Input{Reply: text, UserText: in.Text, Language: lang})
	s.metrics.Reply(endpoint, outcome(action))
	return Reply{Response: text, Action: action, Language: string(lang)}
}

// ReplyToAudio transcribes the clip, then answers it like a text request.
// An empty transcription never reaches text generation.
func (s *Service) ReplyToAudio(ctx context.Context, in AudioInput) (Reply, error) {
	if len(in.Data) == 0 {
		return Reply{}, ErrNoAudio
	}
	if s.transcriber == nil {
		return Reply{}, fmt.Errorf("transcribe audio: no provider configured")
	}
	data, mimeType, err := audio.Prepare(in.Data, in.MIMEType, in.Filename)
	if err != nil {
		return Reply{}, fmt.Errorf("prepare audio: %w", err)
	}

	transcription, err := s.transcriber.Transcribe(ctx, stt.Clip{
		Data:     data,
		MIMEType: mimeType,
		Filename: in.Filename,
		Language: in.Language,
	})
	if err != nil {
		s.metrics.Reply("audio", "stt_error")
		return Reply{}, fmt.Errorf("transcribe audio: %w", err)
	}
	transcription = strings.TrimSpace(transcription)
	if transcription == "" {
		s.metrics.Reply("audio", "empty_transcription")
		return Reply{}, ErrEmptyTranscription
	}

	r := s.reply(ctx, "audio", TextInput{Text: transcription, Context: in.Context, Language: in.Language})
	r.Transcription = transcription
	return r, nil
}

// DescribeImage surfaces vision failures as errors, unlike Reply.
func (s *Service) DescribeImage(ctx context.Context, in ImageInput) (Reply, error) {
	if len(in.Data) == 0 {
		return Reply{}, ErrNoImage
	}
	if s.vision == nil {
		return Reply{}, fmt.Errorf("describe image: no provider configured")
	}
	lang := intent.ParseLanguage(in.Language)
	text, err := s.vision.DescribeImage(ctx, gemini.ImageRequest{
		System:   imageSystemPrompts[lang],
		Data:     in.Data,
		MIMEType: in.MIMEType,
		Prompt:   in.Prompt,
	})
	if err != nil {
		s.metrics.Reply("image", "error")
		return Reply{}, fmt.Errorf("describe image: %w", err)
	}

	action := s.imageClass.Classify(intent.Input{Reply: text, UserText: in.Prompt, Language: lang})
	s.metrics.Reply("image", outcome(action))
	return Reply{Response: text, Action: action, Language: string(lang)}, nil
}

func apology(lang intent.Language) Reply {
	return Reply{Response: apologies[lang], Action: nil, Language: string(lang), Error: true}
}

func outcome(action *intent.Action) string {
	if action == nil {
		return "no_action"
	}
	return string(action.Type)
}
