package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Abhay650/RakshaNeeti/internal/schemes"
)

// Filter represents a single filtering step applied to schemes.
type Filter interface {
	Name() string
	IsEnabled() bool
	Apply(ctx context.Context, s *schemes.Schemes) (*schemes.Schemes, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Name    string
	Initial int
	Dropped int
	Left    int
}

// Filtering runs an ordered list of filters.
type Filtering struct {
	steps  []Filter
	logger *zap.Logger
}

func New(steps []Filter, logger *zap.Logger) *Filtering {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filtering{steps: steps, logger: logger}
}

// Run executes the enabled filters sequentially. The input collection is
// never modified, every step returns a new one.
func (f *Filtering) Run(ctx context.Context, s *schemes.Schemes) (*schemes.Schemes, []Step, error) {
	steps := make([]Step, 0, len(f.steps))
	for _, filter := range f.steps {
		if err := ctx.Err(); err != nil {
			return nil, steps, err
		}

		if !filter.IsEnabled() {
			f.logger.Debug("filter disabled", zap.String("name", filter.Name()))
			continue
		}

		next, info, err := filter.Apply(ctx, s)
		if err != nil {
			return nil, steps, fmt.Errorf("%s: %w", filter.Name(), err)
		}
		info.Name = filter.Name()

		f.logger.Debug("filter step",
			zap.String("name", info.Name),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		steps = append(steps, info)
		s = next
	}

	return s, steps, nil
}

func newStep(initial, left int) Step {
	return Step{Initial: initial, Dropped: initial - left, Left: left}
}
