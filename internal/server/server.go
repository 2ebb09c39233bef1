// Package server exposes the recommendation engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/Abhay650/RakshaNeeti/internal/recommend"
	"github.com/Abhay650/RakshaNeeti/internal/schemes"
	"github.com/Abhay650/RakshaNeeti/internal/translate"
)

const (
	defaultAddress         = ":8000"
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxBodyBytes    = 1 << 20
	defaultMaxAudioBytes   = 10 << 20
)

type Recommender interface {
	Recommend(ctx context.Context, q recommend.Query) (*recommend.Result, error)
	RecommendWith(ctx context.Context, strategy recommend.Strategy, q recommend.Query) (*recommend.Result, error)
	States() []string
}

type Translator interface {
	TranslateScheme(ctx context.Context, sc *schemes.Scheme, language string) translate.SchemeTranslation
}

type Transcriber interface {
	TranscribeAs(ctx context.Context, audio []byte, mimeType string) string
}

type Config struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	MaxAudioBytes   int64         `mapstructure:"max-audio-bytes"`
}

type Server struct {
	config      Config
	engine      Recommender
	translator  Translator
	transcriber Transcriber
	logger      *zap.Logger

	predictSchema *gojsonschema.Schema
	handler       http.Handler
}

// New builds the HTTP handler. translator and transcriber may be nil, the
// translation is then omitted and /transcribe answers 503.
func New(cfg Config, engine Recommender, translator Translator, transcriber Transcriber, logger *zap.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("recommendation engine is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = defaultMaxAudioBytes
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(predictRequestSchema))
	if err != nil {
		return nil, fmt.Errorf("compile predict request schema: %w", err)
	}

	s := &Server{
		config:        cfg,
		engine:        engine,
		translator:    translator,
		transcriber:   transcriber,
		logger:        logger,
		predictSchema: schema,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /predict", s.handlePredict)
	mux.HandleFunc("GET /schemes", s.handleSchemes)
	mux.HandleFunc("GET /states", s.handleStates)
	mux.HandleFunc("POST /transcribe", s.handleTranscribe)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.handler = withRequestID(s.withLogging(mux))

	return s, nil
}

func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Address, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("address", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
