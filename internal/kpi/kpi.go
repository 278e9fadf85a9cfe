// Package kpi computes the dashboard aggregates: basic KPIs blended with
// external revenue sources, and ABC (Pareto) classification.
package kpi

import (
	"context"
	"time"

	"salesdash/internal/store"
)

// RevenueSource is an external read-only commerce platform. Implementations
// must absorb every failure and report a zero contribution instead.
type RevenueSource interface {
	Name() string
	Fetch(ctx context.Context, start, end time.Time) (orders int, revenue float64)
}

// TotalsReader provides the local sales aggregates.
type TotalsReader interface {
	Totals(ctx context.Context) (store.Totals, error)
}

// Basic is the core KPI payload.
type Basic struct {
	Turnover      float64 `json:"turnover"`
	Orders        int     `json:"orders"`
	TicketAverage float64 `json:"ticket_average"`
	Margin        float64 `json:"margin"`
	Discount      float64 `json:"discount"`
}

// Aggregator blends local aggregates with external revenue sources over a
// trailing window.
type Aggregator struct {
	Totals     TotalsReader
	Sources    []RevenueSource
	WindowDays int
}

// Basic computes turnover, margin, weighted discount, order count and ticket
// average. External sources contribute over the trailing window; a source
// failure contributes zero and never fails the computation.
func (a *Aggregator) Basic(ctx context.Context) (Basic, error) {
	local, err := a.Totals.Totals(ctx)
	if err != nil {
		return Basic{}, err
	}

	turnover := local.Turnover
	orders := local.Orders

	days := a.WindowDays
	if days <= 0 {
		days = 30
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	for _, src := range a.Sources {
		extOrders, extRevenue := src.Fetch(ctx, start, end)
		orders += extOrders
		turnover += extRevenue
	}

	ticket := 0.0
	if orders > 0 {
		ticket = turnover / float64(orders)
	}
	return Basic{
		Turnover:      turnover,
		Orders:        orders,
		TicketAverage: ticket,
		Margin:        local.Margin,
		Discount:      local.DiscountTotal,
	}, nil
}
