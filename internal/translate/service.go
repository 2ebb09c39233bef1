// Package translate renders recommendation text in a regional language.
// Failures never reach the caller, the original text is returned instead.
package translate

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Abhay650/RakshaNeeti/internal/logger"
	"github.com/Abhay650/RakshaNeeti/internal/metrics"
	"github.com/Abhay650/RakshaNeeti/internal/schemes"
	"github.com/Abhay650/RakshaNeeti/internal/utils"
)

const (
	DefaultTimeout = 10 * time.Second

	SourceOriginal = "original"
	SourceProvider = "provider"
	SourceCache    = "cache"
	SourceDataset  = "dataset"

	maxLogLength = 80
)

// Provider performs the remote translation call.
type Provider interface {
	Translate(ctx context.Context, text string, language Language) (string, error)
}

type Translation struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Source   string `json:"source"`
	// Untranslated is set when Text is the original text because the
	// translation failed.
	Untranslated bool `json:"untranslated,omitempty"`
}

type SchemeTranslation struct {
	Name        Translation `json:"name"`
	Eligibility Translation `json:"eligibility"`
}

type Service struct {
	provider Provider
	cache    Cache
	timeout  time.Duration
	logger   *zap.Logger
}

// NewService creates a Service. A nil provider makes every non-English
// translation fall back to the original text, a nil cache disables caching.
func NewService(provider Provider, cache Cache, timeout time.Duration, log *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		provider: provider,
		cache:    cache,
		timeout:  timeout,
		logger:   logger.WithFields(log),
	}
}

// Translate returns text in language. It never fails: on any error the
// original text is returned with Untranslated set.
func (s *Service) Translate(ctx context.Context, text, language string) Translation {
	text = strings.TrimSpace(text)

	lang, err := ResolveLanguage(language)
	if err != nil {
		return s.fail(text, language, err)
	}

	if text == "" || lang == English {
		return Translation{Text: text, Language: lang.Name, Source: SourceOriginal}
	}

	key := cacheKey(lang.Code, text)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("translation cache read failed", zap.Error(err))
		}
		if ok {
			metrics.Translations.WithLabelValues(lang.Code, metrics.OutcomeCached).Inc()
			return Translation{Text: cached, Language: lang.Name, Source: SourceCache}
		}
	}

	if s.provider == nil {
		return s.fail(text, lang.Name, errors.New("no translation provider configured"))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	translated, err := s.provider.Translate(callCtx, text, lang)
	if err != nil {
		return s.fail(text, lang.Name, err)
	}

	translated = strings.TrimSpace(translated)
	if translated == "" {
		return s.fail(text, lang.Name, errors.New("empty translation"))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, translated); err != nil {
			s.logger.Warn("translation cache write failed", zap.Error(err))
		}
	}

	metrics.Translations.WithLabelValues(lang.Code, metrics.OutcomeOK).Inc()
	s.logger.Debug("translated",
		zap.String(logger.FieldLanguage, lang.Name),
		zap.String("text", utils.TruncateForLog(text, maxLogLength)),
		zap.String("translation", utils.TruncateForLog(translated, maxLogLength)),
	)

	return Translation{Text: translated, Language: lang.Name, Source: SourceProvider}
}

// TranslateScheme translates the name and eligibility of sc. A dataset
// column named after the language is used for the eligibility instead of
// the provider.
func (s *Service) TranslateScheme(ctx context.Context, sc *schemes.Scheme, language string) SchemeTranslation {
	out := SchemeTranslation{Name: s.Translate(ctx, sc.Name, language)}

	if lang, err := ResolveLanguage(language); err == nil && lang != English {
		if text, ok := sc.Translation(lang.Name); ok {
			out.Eligibility = Translation{Text: text, Language: lang.Name, Source: SourceDataset}
			return out
		}
	}

	out.Eligibility = s.Translate(ctx, sc.Eligibility, language)
	return out
}

func (s *Service) fail(text, language string, err error) Translation {
	terr := &TranslationError{Language: language, Err: err}

	label := "unknown"
	if lang, err := ResolveLanguage(language); err == nil {
		label = lang.Code
	}
	metrics.Translations.WithLabelValues(label, metrics.OutcomeFailed).Inc()

	s.logger.Warn("translation failed, using original text", zap.Error(terr))
	return Translation{Text: text, Language: language, Source: SourceOriginal, Untranslated: true}
}
