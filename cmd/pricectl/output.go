package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/aristath/pricer/internal/modules/pricing"
	"github.com/aristath/pricer/internal/modules/pricing/domain"
	"github.com/aristath/pricer/internal/modules/pricing/guardrails"
	"github.com/aristath/pricer/internal/modules/pricing/policy"
	"github.com/aristath/pricer/internal/modules/pricing/repository"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	labelStyle = lipgloss.NewStyle().Faint(true)
	valueStyle = lipgloss.NewStyle().Bold(true)
)

// money formats a price or profit with two decimals.
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func percent(v float64) string {
	return decimal.NewFromFloat(v * 100).StringFixed(1) + "%"
}

func reasons(codes []domain.ReasonCode) string {
	if len(codes) == 0 {
		return "-"
	}
	return domain.JoinReasons(codes)
}

func field(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func printRunResult(w io.Writer, result *pricing.RunResult) {
	report := result.Report

	fmt.Fprintln(w, titleStyle.Render("Pricing run "+result.RunDate))
	field(w, "run id", result.RunID)
	field(w, "contexts", fmt.Sprint(result.Contexts))
	field(w, "recommendations", fmt.Sprint(len(report.Recommendations)))
	field(w, "skipped", fmt.Sprint(report.SkippedCount()))
	field(w, "failures", fmt.Sprint(len(report.Failures)))
	field(w, "total expected profit", money(report.Summary.TotalProfit))
	field(w, "duration", report.Duration.String())

	for _, f := range report.Failures {
		fmt.Fprintf(w, "  failed %s/%s [%s]: %s\n", f.EntityID, f.SegmentID, f.Stage, f.Error)
	}
}

func printInspection(
	w io.Writer,
	run *repository.RunRecord,
	summary *repository.StoredSummary,
	recs []repository.StoredRecommendation,
	vocabulary []domain.ReasonCode,
) {
	fmt.Fprintln(w, titleStyle.Render("Pricing run "+run.RunDate))
	field(w, "run id", run.RunID)
	field(w, "model", run.ModelName)
	field(w, "policy", run.PolicyVersion)
	field(w, "reference", run.Reference)
	field(w, "recommendations", fmt.Sprintf("%d of %d contexts (%d skipped, %d failed)",
		run.Recommendations, run.Contexts, run.Skipped, run.Failures))
	field(w, "avg price", money(summary.AvgPrice))
	field(w, "total expected units", decimal.NewFromFloat(summary.TotalUnits).StringFixed(1))
	field(w, "total expected profit", money(summary.TotalProfit))
	fmt.Fprintln(w)

	fmt.Fprintln(w, titleStyle.Render("Reason codes"))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCOUNT\tRATE")
	for _, code := range vocabulary {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", code, summary.ReasonCounts[code], percent(summary.ReasonRates[code]))
	}
	fmt.Fprintf(tw, "%s\t%d\t%s\n", "NONE", summary.NoReason, percent(summary.NoReasonRate()))
	tw.Flush()
	fmt.Fprintln(w)

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Top %d recommendations", len(recs))))
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SKU\tSEGMENT\tPRICE\tMULT\tUNITS\tPROFIT\tREASONS")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.EntityID,
			rec.SegmentID,
			money(rec.Price),
			decimal.NewFromFloat(rec.Multiplier).StringFixed(2),
			decimal.NewFromFloat(rec.ExpectedUnits).StringFixed(2),
			money(rec.ExpectedProfit),
			reasons(rec.Reasons),
		)
	}
	tw.Flush()
}

func printCheck(
	w io.Writer,
	candidate float64,
	result domain.RuleResult,
	band guardrails.DailyBand,
	hasBand bool,
	p policy.Policy,
) {
	fmt.Fprintln(w, titleStyle.Render("Guardrail check (policy "+p.Version+")"))
	field(w, "candidate", money(candidate))
	field(w, "final", money(result.FinalPrice))
	field(w, "reasons", reasons(result.Reasons))
	if hasBand {
		field(w, "daily band", fmt.Sprintf("%s to %s (%s)", money(band.Min), money(band.Max), band.Regime))
	}
	if result.FinalPrice != candidate {
		delta := decimal.NewFromFloat(result.FinalPrice).Sub(decimal.NewFromFloat(candidate))
		field(w, "adjustment", delta.StringFixed(2))
	}
}
