package main

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/sweep"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true)

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		})
}

// FormatPercent renders a fraction as a signed percentage.
func FormatPercent(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "n/a"
	}

	return fmt.Sprintf("%+.2f%%", value*100)
}

// RenderRanking renders ranked outcomes, at most top rows when top is positive.
func RenderRanking(ranked []sweep.Outcome, top int) string {
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}

	t := newTable("#", "Entry", "Exit", "Return", "Trades", "Win rate", "Avg hold", "Sharpe", "Max DD")
	for i, outcome := range ranked {
		t.Row(
			fmt.Sprintf("%d", i+1),
			outcome.Combination.Entry.Name,
			outcome.Combination.Exit.Name,
			FormatPercent(outcome.TotalReturn()),
			fmt.Sprintf("%d", outcome.NumberOfTrades),
			fmt.Sprintf("%.1f%%", outcome.WinRate*100),
			fmt.Sprintf("%.1f", outcome.AverageHoldingDays),
			fmt.Sprintf("%.2f", outcome.Summary.SharpeRatio),
			FormatPercent(outcome.Summary.MaxDrawdown),
		)
	}

	return t.String()
}

// RenderImprovements renders the deltas against a baseline.
func RenderImprovements(improvements []sweep.Improvement) string {
	t := newTable("Combination", "Return Δ", "Sharpe Δ", "Max DD Δ", "Avg hold")
	for _, improvement := range improvements {
		t.Row(
			improvement.Combination.Label(),
			FormatPercent(improvement.TotalReturnDelta),
			fmt.Sprintf("%+.2f", improvement.SharpeDelta),
			FormatPercent(improvement.MaxDrawdownDelta),
			fmt.Sprintf("%.1f", improvement.AverageHoldingDays),
		)
	}

	return t.String()
}

// RenderFailures lists the combinations that could not run.
func RenderFailures(failures []sweep.Outcome) string {
	out := ErrorStyle.Render(fmt.Sprintf("%d combinations failed", len(failures)))
	for _, failure := range failures {
		out += "\n" + HelpStyle.Render(fmt.Sprintf("  %s: %v", failure.Combination.Label(), failure.Err))
	}

	return out
}
