// Package recommend matches a (state, income level) query against the
// scheme dataset.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Abhay650/RakshaNeeti/internal/filtering"
	"github.com/Abhay650/RakshaNeeti/internal/income"
	"github.com/Abhay650/RakshaNeeti/internal/logger"
	"github.com/Abhay650/RakshaNeeti/internal/lookup"
	"github.com/Abhay650/RakshaNeeti/internal/metrics"
	"github.com/Abhay650/RakshaNeeti/internal/schemes"
)

const (
	DefaultSeed     = 42
	DefaultTestSize = 0.2
)

type Config struct {
	Strategy Strategy `mapstructure:"strategy"`
	Seed     int64    `mapstructure:"seed"`
	// TestSize is the share of rows held out to measure lookup accuracy.
	TestSize float64 `mapstructure:"test-size"`
}

// Engine is immutable after New and safe for concurrent use.
type Engine struct {
	dataset *schemes.Schemes
	model   *lookup.Model
	config  Config
	logger  *zap.Logger
}

// New fits the lookup model on dataset.
func New(dataset *schemes.Schemes, cfg Config, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dataset.Len() == 0 {
		return nil, &schemes.EmptyDatasetError{}
	}

	strategy, err := ParseStrategy(string(cfg.Strategy))
	if err != nil {
		return nil, err
	}
	cfg.Strategy = strategy

	samples := make([]lookup.Sample, 0, dataset.Len())
	for _, sc := range dataset.Items {
		samples = append(samples, lookup.Sample{
			State:  sc.Scope,
			Income: sc.IncomeLevel.String(),
			Scheme: sc.Name,
		})
	}

	model, err := lookup.Train(samples, lookup.Options{TestSize: cfg.TestSize, Seed: cfg.Seed})
	if err != nil {
		return nil, fmt.Errorf("train lookup model: %w", err)
	}

	e := &Engine{dataset: dataset, model: model, config: cfg, logger: log}

	fields := []zap.Field{
		zap.Int("schemes", dataset.Len()),
		zap.String(logger.FieldStrategy, string(strategy)),
	}
	if accuracy, ok := model.Accuracy(); ok {
		fields = append(fields, zap.Float64("lookup_accuracy", accuracy))
	}
	log.Info("recommendation engine ready", fields...)

	return e, nil
}

// Recommend runs the configured strategy.
func (e *Engine) Recommend(ctx context.Context, q Query) (*Result, error) {
	return e.RecommendWith(ctx, e.config.Strategy, q)
}

// RecommendWith runs the given strategy. A lookup on a state or income level
// missing from the dataset is answered by the direct filter instead.
func (e *Engine) RecommendWith(ctx context.Context, strategy Strategy, q Query) (*Result, error) {
	var (
		result *Result
		err    error
	)

	switch strategy {
	case StrategyFilter, "":
		result, err = e.Filter(ctx, q)
	case StrategyText:
		result, err = e.SearchText(ctx, q)
	case StrategyLookup:
		result, err = e.Lookup(ctx, q)

		var unknown *lookup.UnknownCategoryError
		if errors.As(err, &unknown) {
			metrics.LookupFallbacks.Inc()
			e.logger.Debug("lookup fallback to filter",
				append(logger.QueryFields(q.State, q.IncomeLevel.String(), string(strategy)), zap.Error(err))...,
			)

			result, err = e.Filter(ctx, q)
			if err == nil {
				result.Fallback = unknown.Error()
			}
		}
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}

	if err != nil {
		metrics.Recommendations.WithLabelValues(string(strategy), metrics.OutcomeFailed).Inc()
		return nil, err
	}

	metrics.Recommendations.WithLabelValues(string(strategy), outcome(result)).Inc()

	e.logger.Debug("recommendation",
		append(logger.QueryFields(q.State, q.IncomeLevel.String(), string(result.Strategy)),
			zap.Int("matches", len(result.Matches)),
			zap.Bool("approximate", result.Approximate()),
		)...,
	)

	return result, nil
}

// Filter keeps schemes of the query state or National scope whose income
// level equals the query level or All. Without such schemes every scheme
// of the state and National scope is returned as approximate.
func (e *Engine) Filter(ctx context.Context, q Query) (*Result, error) {
	exact, _, err := filtering.New([]filtering.Filter{
		filtering.NewScope(q.State, true),
		filtering.NewIncome(q.IncomeLevel),
	}, e.logger).Run(ctx, e.dataset)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}

	result := &Result{Query: q, Strategy: StrategyFilter}
	if exact.Len() > 0 {
		result.Matches = matches(exact, false)
		return result, nil
	}

	scoped, _, err := filtering.New([]filtering.Filter{
		filtering.NewScope(q.State, true),
	}, e.logger).Run(ctx, e.dataset)
	if err != nil {
		return nil, fmt.Errorf("filter by scope: %w", err)
	}

	result.Matches = matches(scoped, true)
	return result, nil
}

// Lookup predicts a single scheme with the decision tree. It returns an
// *lookup.UnknownCategoryError when the state or income level never
// appeared in the dataset.
func (e *Engine) Lookup(ctx context.Context, q Query) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prediction, err := e.model.Predict(e.canonicalState(q.State), q.IncomeLevel.String())
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}

	scheme, exact := e.predictedScheme(prediction.Scheme, q)
	if scheme == nil {
		return nil, fmt.Errorf("lookup: predicted scheme %q is not in the dataset", prediction.Scheme)
	}

	return &Result{
		Query:    q,
		Strategy: StrategyLookup,
		Matches: []Match{{
			Scheme:      scheme,
			Confidence:  prediction.Confidence,
			Approximate: !exact,
		}},
	}, nil
}

// predictedScheme picks the dataset row for a predicted scheme name. A name
// can appear in several scopes, so rows matching the query scope and level
// win over rows matching the scope only, which win over the first row.
func (e *Engine) predictedScheme(name string, q Query) (*schemes.Scheme, bool) {
	var first, scoped *schemes.Scheme
	for _, sc := range e.dataset.Items {
		if sc.Name != name {
			continue
		}
		if first == nil {
			first = sc
		}
		if !sc.IsNational() && !sc.InState(q.State) {
			continue
		}
		if sc.IncomeLevel == q.IncomeLevel || sc.IncomeLevel == income.All {
			return sc, true
		}
		if scoped == nil {
			scoped = sc
		}
	}
	if scoped != nil {
		return scoped, false
	}
	return first, false
}

// SearchText keeps schemes scoped to the query state, National excluded,
// whose eligibility contains the query text. When none does, or the text is
// blank, every scheme of the state is returned as approximate.
func (e *Engine) SearchText(ctx context.Context, q Query) (*Result, error) {
	scoped, _, err := filtering.New([]filtering.Filter{
		filtering.NewScope(q.State, false),
	}, e.logger).Run(ctx, e.dataset)
	if err != nil {
		return nil, fmt.Errorf("search text: %w", err)
	}

	result := &Result{Query: q, Strategy: StrategyText, Matches: make([]Match, 0)}
	if scoped.Len() == 0 {
		return result, nil
	}
	if strings.TrimSpace(q.Text) == "" {
		result.Matches = matches(scoped, true)
		return result, nil
	}

	found, _, err := filtering.New([]filtering.Filter{
		filtering.NewEligibilityText(q.Text),
	}, e.logger).Run(ctx, scoped)
	if err != nil {
		return nil, fmt.Errorf("search text: %w", err)
	}

	if found.Len() > 0 {
		result.Matches = matches(found, false)
		return result, nil
	}

	result.Matches = matches(scoped, true)
	return result, nil
}

// StateSchemes returns every scheme scoped to state, National excluded.
func (e *Engine) StateSchemes(state string) *schemes.Schemes {
	return e.dataset.Filter(func(sc *schemes.Scheme) bool {
		return !sc.IsNational() && sc.InState(state)
	})
}

// States lists the state scopes of the dataset, National excluded.
func (e *Engine) States() []string {
	states := make([]string, 0)
	for _, s := range e.dataset.States() {
		if s != schemes.National {
			states = append(states, s)
		}
	}
	return states
}

func (e *Engine) Dataset() *schemes.Schemes { return e.dataset }

func (e *Engine) Strategy() Strategy { return e.config.Strategy }

// ModelAccuracy returns the hold-out accuracy of the lookup model and
// whether it was measured.
func (e *Engine) ModelAccuracy() (float64, bool) {
	return e.model.Accuracy()
}

// canonicalState maps state to the spelling used by the dataset so that the
// exact-match encoders accept any casing.
func (e *Engine) canonicalState(state string) string {
	state = strings.TrimSpace(state)
	for _, s := range e.model.States() {
		if strings.EqualFold(s, state) {
			return s
		}
	}
	return state
}

func outcome(r *Result) string {
	switch {
	case r.Empty():
		return metrics.OutcomeEmpty
	case r.Approximate():
		return metrics.OutcomeApproximate
	default:
		return metrics.OutcomeMatched
	}
}
