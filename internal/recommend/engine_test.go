package recommend

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Abhay650/RakshaNeeti/internal/income"
	"github.com/Abhay650/RakshaNeeti/internal/lookup"
	"github.com/Abhay650/RakshaNeeti/internal/metrics"
	"github.com/Abhay650/RakshaNeeti/internal/schemes"
)

func scheme(name, eligibility, scope string) *schemes.Scheme {
	return &schemes.Scheme{
		Name:        name,
		Eligibility: eligibility,
		Scope:       scope,
		IncomeLevel: income.Classify(eligibility),
	}
}

func dataset() *schemes.Schemes {
	return &schemes.Schemes{Items: []*schemes.Scheme{
		scheme("Ayushman Bharat", "All BPL families", schemes.National),
		scheme("Arogya Karnataka", "Middle income families", "Karnataka"),
		scheme("Yeshasvini", "Any cooperative member", "Karnataka"),
		scheme("MJPJAY", "Below poverty line households", "Maharashtra"),
		scheme("CMCHIS", "Families with annual income up to 1.2 lakh", "Tamil Nadu"),
	}}
}

func newEngine(t *testing.T, data *schemes.Schemes, cfg Config) *Engine {
	t.Helper()
	e, err := New(data, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

func names(r *Result) []string {
	out := make([]string, 0, len(r.Matches))
	for _, m := range r.Matches {
		out = append(out, m.Scheme.Name)
	}
	return out
}

func TestFixtureLevels(t *testing.T) {
	want := []income.Level{income.Low, income.Middle, income.All, income.Low, income.Unknown}
	for i, sc := range dataset().Items {
		if sc.IncomeLevel != want[i] {
			t.Fatalf("%s: expected %s, got %s", sc.Name, want[i], sc.IncomeLevel)
		}
	}
}

func TestAyushmanBharatScenario(t *testing.T) {
	data := &schemes.Schemes{Items: []*schemes.Scheme{
		scheme("Ayushman Bharat", "All BPL families", schemes.National),
	}}
	e := newEngine(t, data, Config{})

	q := NewQuery("Karnataka", "BPL family, income below poverty line")
	if q.IncomeLevel != income.Low {
		t.Fatalf("expected Low, got %s", q.IncomeLevel)
	}

	result, err := e.Filter(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := names(result); !reflect.DeepEqual(got, []string{"Ayushman Bharat"}) {
		t.Fatalf("unexpected matches: %v", got)
	}
	if result.Approximate() {
		t.Fatalf("expected an exact match")
	}
}

func TestFilterIncludesNationalAndAllLevels(t *testing.T) {
	e := newEngine(t, dataset(), Config{})

	result, err := e.Filter(context.Background(), Query{State: "karnataka", IncomeLevel: income.Low})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := names(result); !reflect.DeepEqual(got, []string{"Ayushman Bharat", "Yeshasvini"}) {
		t.Fatalf("unexpected matches: %v", got)
	}
	for _, m := range result.Matches {
		if m.Approximate || m.Confidence != 1 {
			t.Fatalf("expected exact match, got %+v", m)
		}
	}
}

func TestFilterFallsBackToScope(t *testing.T) {
	e := newEngine(t, dataset(), Config{})

	result, err := e.Filter(context.Background(), Query{State: "Tamil Nadu", IncomeLevel: income.Middle})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := names(result); !reflect.DeepEqual(got, []string{"Ayushman Bharat", "CMCHIS"}) {
		t.Fatalf("unexpected matches: %v", got)
	}
	if !result.Approximate() {
		t.Fatalf("expected approximate matches")
	}
}

func TestFilterEmptyState(t *testing.T) {
	data := &schemes.Schemes{Items: []*schemes.Scheme{
		scheme("Arogya Karnataka", "Middle income families", "Karnataka"),
	}}
	e := newEngine(t, data, Config{})

	result, err := e.Filter(context.Background(), Query{State: "Goa", IncomeLevel: income.Low})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Empty() || result.Best() != nil {
		t.Fatalf("expected empty result, got %v", names(result))
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	e := newEngine(t, dataset(), Config{})
	q := NewQuery("Maharashtra", "below poverty line")

	first, err := e.Filter(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.Filter(context.Background(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %v and %v", names(first), names(second))
	}
	if e.Dataset().Len() != 5 {
		t.Fatalf("dataset was modified")
	}
}

func TestLookup(t *testing.T) {
	e := newEngine(t, dataset(), Config{Strategy: StrategyLookup, Seed: DefaultSeed, TestSize: DefaultTestSize})

	result, err := e.Lookup(context.Background(), Query{State: "maharashtra", IncomeLevel: income.Low})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	best := result.Best()
	if best == nil || best.Scheme.Name != "MJPJAY" {
		t.Fatalf("expected MJPJAY, got %v", names(result))
	}
	if best.Confidence != 1 || best.Approximate {
		t.Fatalf("expected a confident exact match, got %+v", best)
	}

	if _, ok := e.ModelAccuracy(); !ok {
		t.Fatalf("expected lookup accuracy to be measured")
	}
}

func TestLookupPicksRowInQueryState(t *testing.T) {
	data := &schemes.Schemes{Items: []*schemes.Scheme{
		scheme("Chief Minister Health Insurance", "Below poverty line households", "Karnataka"),
		scheme("Chief Minister Health Insurance", "BPL families", "Tamil Nadu"),
		scheme("Yeshasvini", "Middle income cooperative members", "Karnataka"),
	}}
	e := newEngine(t, data, Config{Strategy: StrategyLookup})

	result, err := e.Lookup(context.Background(), Query{State: "Tamil Nadu", IncomeLevel: income.Low})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	best := result.Best()
	if best == nil || best.Scheme.Name != "Chief Minister Health Insurance" {
		t.Fatalf("unexpected matches: %v", names(result))
	}
	if best.Scheme.Scope != "Tamil Nadu" {
		t.Fatalf("expected the Tamil Nadu row, got %s", best.Scheme.Scope)
	}
	if best.Approximate {
		t.Fatalf("expected an exact match, got %+v", best)
	}
}

func TestLookupUnknownState(t *testing.T) {
	e := newEngine(t, dataset(), Config{Strategy: StrategyLookup})

	_, err := e.Lookup(context.Background(), Query{State: "Goa", IncomeLevel: income.Low})

	var unknown *lookup.UnknownCategoryError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownCategoryError, got %v", err)
	}
	if unknown.Value != "Goa" {
		t.Fatalf("unexpected value: %s", unknown.Value)
	}
}

func TestRecommendLookupFallsBackToFilter(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	e, err := New(dataset(), Config{Strategy: StrategyLookup}, zap.New(core))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before := testutil.ToFloat64(metrics.LookupFallbacks)

	result, err := e.Recommend(context.Background(), Query{State: "Goa", IncomeLevel: income.Low})
	if err != nil {
		t.Fatalf("expected fallback instead of error, got %v", err)
	}

	if result.Strategy != StrategyFilter {
		t.Fatalf("expected filter strategy after fallback, got %s", result.Strategy)
	}
	if result.Fallback == "" {
		t.Fatalf("expected fallback reason")
	}
	if got := names(result); !reflect.DeepEqual(got, []string{"Ayushman Bharat"}) {
		t.Fatalf("unexpected matches: %v", got)
	}

	if after := testutil.ToFloat64(metrics.LookupFallbacks); after != before+1 {
		t.Fatalf("expected fallback counter to grow by one, got %v -> %v", before, after)
	}
	if observed.FilterMessage("lookup fallback to filter").Len() != 1 {
		t.Fatalf("expected fallback to be logged")
	}
}

func TestSearchText(t *testing.T) {
	e := newEngine(t, dataset(), Config{})
	ctx := context.Background()

	tests := []struct {
		name        string
		query       Query
		want        []string
		approximate bool
	}{
		{
			name:  "containment",
			query: Query{State: "Karnataka", Text: "COOPERATIVE"},
			want:  []string{"Yeshasvini"},
		},
		{
			name:        "no containment returns the whole state",
			query:       Query{State: "Karnataka", Text: "farmers"},
			want:        []string{"Arogya Karnataka", "Yeshasvini"},
			approximate: true,
		},
		{
			name:        "blank text keeps every state scheme as approximate",
			query:       Query{State: "Karnataka"},
			want:        []string{"Arogya Karnataka", "Yeshasvini"},
			approximate: true,
		},
		{
			name:        "whitespace text is blank",
			query:       Query{State: "Karnataka", IncomeLevel: income.Low, Text: "   "},
			want:        []string{"Arogya Karnataka", "Yeshasvini"},
			approximate: true,
		},
		{
			name:  "national schemes are not searched",
			query: Query{State: schemes.National, Text: "bpl"},
			want:  []string{},
		},
		{
			name:  "unknown state",
			query: Query{State: "Goa", Text: "bpl"},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := e.RecommendWith(ctx, StrategyText, tt.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := names(result); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if result.Approximate() != tt.approximate {
				t.Fatalf("expected approximate=%v", tt.approximate)
			}
		})
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New(&schemes.Schemes{}, Config{}, nil)
	var empty *schemes.EmptyDatasetError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyDatasetError, got %v", err)
	}

	if _, err := New(dataset(), Config{Strategy: "magic"}, nil); err == nil {
		t.Fatal("expected error for unknown strategy")
	}

	e := newEngine(t, dataset(), Config{})
	if e.Strategy() != StrategyFilter {
		t.Fatalf("expected filter as default strategy, got %s", e.Strategy())
	}
}

func TestRecommendCancelledContext(t *testing.T) {
	e := newEngine(t, dataset(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, strategy := range Strategies {
		if _, err := e.RecommendWith(ctx, strategy, NewQuery("Karnataka", "bpl")); !errors.Is(err, context.Canceled) {
			t.Fatalf("%s: expected context.Canceled, got %v", strategy, err)
		}
	}
}

func TestStates(t *testing.T) {
	e := newEngine(t, dataset(), Config{})

	want := []string{"Karnataka", "Maharashtra", "Tamil Nadu"}
	if got := e.States(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := e.StateSchemes("KARNATAKA").Len(); got != 2 {
		t.Fatalf("expected 2 Karnataka schemes, got %d", got)
	}
}

func TestParseStrategy(t *testing.T) {
	for input, want := range map[string]Strategy{"": StrategyFilter, " Lookup ": StrategyLookup, "text": StrategyText} {
		got, err := ParseStrategy(input)
		if err != nil || got != want {
			t.Fatalf("%q: expected %s, got %s (%v)", input, want, got, err)
		}
	}
	if _, err := ParseStrategy("tree"); err == nil {
		t.Fatal("expected error")
	}
}
