package filtering

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Abhay650/RakshaNeeti/internal/income"
	"github.com/Abhay650/RakshaNeeti/internal/schemes"
)

func fixture() *schemes.Schemes {
	return &schemes.Schemes{Items: []*schemes.Scheme{
		{Name: "Ayushman Bharat", Eligibility: "All BPL families", Scope: schemes.National, IncomeLevel: income.Low},
		{Name: "Arogya Karnataka", Eligibility: "Middle class families", Scope: "Karnataka", IncomeLevel: income.Middle},
		{Name: "Yeshasvini", Eligibility: "any cooperative member", Scope: "Karnataka", IncomeLevel: income.All},
		{Name: "MJPJAY", Eligibility: "BPL ration card holders", Scope: "Maharashtra", IncomeLevel: income.Low},
	}}
}

type failingFilter struct{}

func (failingFilter) Name() string    { return "failing" }
func (failingFilter) IsEnabled() bool { return true }
func (failingFilter) Apply(context.Context, *schemes.Schemes) (*schemes.Schemes, Step, error) {
	return nil, Step{}, errors.New("boom")
}

func TestRunScopeAndIncome(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	f := New([]Filter{NewScope("karnataka", true), NewIncome(income.Low)}, zap.New(core))

	got, steps, err := f.Run(context.Background(), fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := got.Names()
	if len(names) != 2 || names[0] != "Ayushman Bharat" || names[1] != "Yeshasvini" {
		t.Fatalf("unexpected schemes: %v", names)
	}

	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Name != "scope" || steps[0].Initial != 4 || steps[0].Dropped != 1 || steps[0].Left != 3 {
		t.Fatalf("unexpected scope step: %+v", steps[0])
	}
	if steps[1].Name != "income" || steps[1].Left != 2 {
		t.Fatalf("unexpected income step: %+v", steps[1])
	}

	if observed.FilterMessage("filter step").Len() != 2 {
		t.Fatalf("expected a log entry per step")
	}
}

func TestScopeWithoutNational(t *testing.T) {
	got, _, err := New([]Filter{NewScope("Karnataka", false)}, nil).Run(context.Background(), fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected only state schemes, got %v", got.Names())
	}

	got, _, err = New([]Filter{NewScope(schemes.National, false)}, nil).Run(context.Background(), fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 0 {
		t.Fatalf("expected National schemes to be excluded, got %v", got.Names())
	}
}

func TestEligibilityTextFilter(t *testing.T) {
	ctx := context.Background()

	got, _, err := New([]Filter{NewEligibilityText("  ration CARD ")}, nil).Run(ctx, fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 1 || got.Items[0].Name != "MJPJAY" {
		t.Fatalf("unexpected schemes: %v", got.Names())
	}

	blank := NewEligibilityText("   ")
	if blank.IsEnabled() {
		t.Fatalf("expected blank text filter to be disabled")
	}

	got, steps, err := New([]Filter{blank}, nil).Run(ctx, fixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 4 || len(steps) != 0 {
		t.Fatalf("expected disabled filter to be skipped, got %d schemes and %d steps", got.Len(), len(steps))
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	input := fixture()
	if _, _, err := New([]Filter{NewScope("Goa", false)}, nil).Run(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input.Len() != 4 {
		t.Fatalf("expected input to keep 4 schemes, got %d", input.Len())
	}
}

func TestRunStopsOnError(t *testing.T) {
	_, _, err := New([]Filter{failingFilter{}, NewIncome(income.Low)}, nil).Run(context.Background(), fixture())
	if err == nil || err.Error() != "failing: boom" {
		t.Fatalf("expected wrapped filter error, got %v", err)
	}
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := New([]Filter{NewIncome(income.Low)}, nil).Run(ctx, fixture()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
