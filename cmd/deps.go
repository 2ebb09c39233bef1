package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Abhay650/RakshaNeeti/internal/ai/gemini"
	"github.com/Abhay650/RakshaNeeti/internal/recommend"
	"github.com/Abhay650/RakshaNeeti/internal/schemes"
	"github.com/Abhay650/RakshaNeeti/internal/secrets"
	"github.com/Abhay650/RakshaNeeti/internal/speech"
	"github.com/Abhay650/RakshaNeeti/internal/translate"
)

const geminiAPIKeyEnv = "GEMINI_API_KEY"

// deps holds the services shared by the commands.
type deps struct {
	engine      *recommend.Engine
	translator  *translate.Service
	transcriber *speech.Service
	closers     []func() error
}

func (d *deps) Close() {
	for _, closer := range d.closers {
		_ = closer()
	}
}

func buildDeps(ctx context.Context, config *Config, logger *zap.Logger) (*deps, error) {
	engine, err := loadEngine(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	d := &deps{engine: engine}

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("remote AI disabled", zap.Error(err))
	}

	var (
		translationProvider translate.Provider
		speechProvider      speech.Provider
	)
	if generator != nil {
		translationProvider = translate.NewGeminiProvider(generator)
		speechProvider = speech.NewGeminiProvider(generator)
	}

	cache, closer := newTranslationCache(ctx, config.Translation.Cache, logger)
	if closer != nil {
		d.closers = append(d.closers, closer)
	}

	d.translator = translate.NewService(translationProvider, cache, config.Translation.Timeout, logger.Named("translate"))
	d.transcriber = speech.NewService(speechProvider, config.Speech.MIMEType, config.Speech.Timeout, logger.Named("speech"))

	return d, nil
}

func loadEngine(ctx context.Context, config *Config, logger *zap.Logger) (*recommend.Engine, error) {
	dataset, err := schemes.LoadSource(ctx, config.Dataset.Source, schemes.LoadOptions{
		SkipRows: config.Dataset.SkipRows,
		Encoding: config.Dataset.Encoding,
		S3:       config.Dataset.S3,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	engine, err := recommend.New(dataset, config.Recommend, logger.Named("recommend"))
	if err != nil {
		return nil, fmt.Errorf("build recommendation engine: %w", err)
	}

	return engine, nil
}

// newGenerator returns nil without error when remote AI is disabled.
func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (*gemini.Generator, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Env:   geminiAPIKeyEnv,
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or %s)", err, geminiAPIKeyEnv)
	}

	return gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, logger.Named("gemini"))
}

// newTranslationCache falls back to the memory cache when Redis is not
// reachable.
func newTranslationCache(ctx context.Context, cfg CacheConfig, logger *zap.Logger) (translate.Cache, func() error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "none":
		return nil, nil
	case "redis":
		cache := translate.NewRedisCache(cfg.RedisConfig)
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("translation cache falls back to memory", zap.String("address", cfg.Address), zap.Error(err))
			_ = cache.Close()
			return translate.NewMemoryCache(), nil
		}
		logger.Debug("translation cache connected", zap.String("address", cfg.Address))
		return cache, cache.Close
	default:
		return translate.NewMemoryCache(), nil
	}
}
