package kpi

import (
	"context"
	"math"
	"testing"
	"time"

	"salesdash/internal/store"
)

type fakeTotals struct {
	t   store.Totals
	err error
}

func (f fakeTotals) Totals(ctx context.Context) (store.Totals, error) {
	return f.t, f.err
}

type fakeSource struct {
	orders  int
	revenue float64
}

func (f fakeSource) Name() string { return "fake" }

func (f fakeSource) Fetch(ctx context.Context, start, end time.Time) (int, float64) {
	return f.orders, f.revenue
}

func TestBasicLocalOnly(t *testing.T) {
	agg := &Aggregator{Totals: fakeTotals{t: store.Totals{
		Turnover:      300,
		Margin:        70,
		DiscountTotal: 20,
		Orders:        2,
	}}}
	got, err := agg.Basic(context.Background())
	if err != nil {
		t.Fatalf("Basic: %v", err)
	}
	if got.Turnover != 300 || got.Orders != 2 || got.Margin != 70 || got.Discount != 20 {
		t.Errorf("Basic = %+v", got)
	}
	if got.TicketAverage != 150 {
		t.Errorf("ticket average = %v, want 150", got.TicketAverage)
	}
}

func TestBasicEmptyStoreNoDivideByZero(t *testing.T) {
	agg := &Aggregator{Totals: fakeTotals{}}
	got, err := agg.Basic(context.Background())
	if err != nil {
		t.Fatalf("Basic: %v", err)
	}
	if got.TicketAverage != 0 {
		t.Errorf("ticket average with zero orders = %v, want 0", got.TicketAverage)
	}
}

func TestBasicBlendsExternalSources(t *testing.T) {
	agg := &Aggregator{
		Totals: fakeTotals{t: store.Totals{Turnover: 100, Orders: 1}},
		Sources: []RevenueSource{
			fakeSource{orders: 3, revenue: 200},
			fakeSource{}, // failed connector: zero contribution
		},
	}
	got, err := agg.Basic(context.Background())
	if err != nil {
		t.Fatalf("Basic: %v", err)
	}
	if got.Turnover != 300 || got.Orders != 4 {
		t.Errorf("blended = %+v, want turnover 300 orders 4", got)
	}
	if math.Abs(got.TicketAverage-75) > 1e-9 {
		t.Errorf("ticket average = %v, want 75", got.TicketAverage)
	}
}

func TestClassify(t *testing.T) {
	groups := []store.GroupTotal{
		{Name: "mid", Value: 15},
		{Name: "top", Value: 80},
		{Name: "tail", Value: 5},
	}
	res := Classify(groups)
	if len(res.A) != 1 || res.A[0].Name != "top" {
		t.Errorf("tier A = %+v, want [top]", res.A)
	}
	if len(res.B) != 1 || res.B[0].Name != "mid" {
		t.Errorf("tier B = %+v, want [mid]", res.B)
	}
	if len(res.C) != 1 || res.C[0].Name != "tail" {
		t.Errorf("tier C = %+v, want [tail]", res.C)
	}
	if math.Abs(res.A[0].Ratio-0.80) > 1e-9 || math.Abs(res.B[0].Ratio-0.95) > 1e-9 {
		t.Errorf("ratios = %v / %v, want 0.80 / 0.95", res.A[0].Ratio, res.B[0].Ratio)
	}
}

func TestClassifyStableForEqualSums(t *testing.T) {
	groups := []store.GroupTotal{
		{Name: "first", Value: 10},
		{Name: "second", Value: 10},
		{Name: "third", Value: 10},
	}
	res := Classify(groups)
	var order []string
	for _, tier := range [][]ABCEntry{res.A, res.B, res.C} {
		for _, e := range tier {
			order = append(order, e.Name)
		}
	}
	want := []string{"first", "second", "third"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestClassifyZeroTotal(t *testing.T) {
	groups := []store.GroupTotal{{Name: "a", Value: 0}, {Name: "b", Value: 0}}
	res := Classify(groups)
	// degenerate: nothing gains positive share, everything lands in A at
	// ratio 0 <= 0.80 without crashing
	if len(res.A) != 2 || len(res.B) != 0 || len(res.C) != 0 {
		t.Errorf("zero-total tiers = %d/%d/%d", len(res.A), len(res.B), len(res.C))
	}
}

func TestClassifyEmpty(t *testing.T) {
	res := Classify(nil)
	if len(res.A)+len(res.B)+len(res.C) != 0 {
		t.Errorf("empty input produced entries: %+v", res)
	}
}
