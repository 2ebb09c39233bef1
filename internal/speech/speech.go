// Package speech turns recorded audio into eligibility text.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/Abhay650/RakshaNeeti/internal/logger"
	"github.com/Abhay650/RakshaNeeti/internal/metrics"
	"github.com/Abhay650/RakshaNeeti/internal/utils"
)

const (
	DefaultMIMEType = "audio/wav"
	DefaultTimeout  = 30 * time.Second

	maxLogLength = 120
)

// TranscriptionError describes a failed transcription. Service never
// returns it, callers receive an empty text and ask for manual input.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribe audio: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Provider performs the remote transcription call.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type Service struct {
	provider Provider
	mimeType string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewService(provider Provider, mimeType string, timeout time.Duration, log *zap.Logger) *Service {
	if mimeType = strings.TrimSpace(mimeType); mimeType == "" {
		mimeType = DefaultMIMEType
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		provider: provider,
		mimeType: mimeType,
		timeout:  timeout,
		logger:   logger.WithFields(log),
	}
}

// Transcribe returns the text spoken in audio, or an empty string when it
// could not be recognised.
func (s *Service) Transcribe(ctx context.Context, audio []byte) string {
	return s.TranscribeAs(ctx, audio, s.mimeType)
}

// TranscribeAs is Transcribe for audio of the given mime type.
func (s *Service) TranscribeAs(ctx context.Context, audio []byte, mimeType string) string {
	if mimeType = strings.TrimSpace(mimeType); mimeType == "" {
		mimeType = s.mimeType
	}

	if len(audio) == 0 {
		return s.fail(errors.New("no audio"))
	}
	if s.provider == nil {
		return s.fail(errors.New("no speech provider configured"))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.provider.Transcribe(callCtx, audio, mimeType)
	if err != nil {
		return s.fail(err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return s.fail(errors.New("no speech recognised"))
	}

	metrics.Transcriptions.WithLabelValues(metrics.OutcomeOK).Inc()
	s.logger.Debug("transcribed audio",
		zap.Int("audio_bytes", len(audio)),
		zap.String("mime_type", mimeType),
		zap.String("text", utils.TruncateForLog(text, maxLogLength)),
	)

	return text
}

func (s *Service) fail(err error) string {
	metrics.Transcriptions.WithLabelValues(metrics.OutcomeFailed).Inc()
	s.logger.Warn("transcription failed, manual input required", zap.Error(&TranscriptionError{Err: err}))
	return ""
}

const systemPrompt = `You transcribe short voice messages in which a person describes their income or eligibility for a government health scheme.
The speaker may use English or any Indian language. Reply with the transcription in English only.
If there is no intelligible speech, reply with an empty line.`

type generator interface {
	GenerateFromParts(ctx context.Context, system string, parts ...*genai.Part) (string, error)
}

// GeminiProvider sends the audio inline to a Gemini model.
type GeminiProvider struct {
	generator generator
}

func NewGeminiProvider(g generator) *GeminiProvider {
	return &GeminiProvider{generator: g}
}

func (p *GeminiProvider) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return p.generator.GenerateFromParts(ctx, systemPrompt,
		&genai.Part{Text: "Transcribe this recording."},
		&genai.Part{InlineData: &genai.Blob{Data: audio, MIMEType: mimeType}},
	)
}
