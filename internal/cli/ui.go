package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/dyike/FinDocHub/models"
	"github.com/dyike/FinDocHub/pkg/roi"
	"github.com/dyike/FinDocHub/pkg/tracker"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Background(lipgloss.Color("#1F2937")).
		Padding(0, 1).
		MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(1, 2).
		Width(80)

	roiPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#10B981")).
		Padding(1, 2).
		Width(80)

	// Phase styles
	idleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	pendingStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)

	succeededStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	failedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444")).
		Bold(true)

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#9CA3AF")).
		Width(22)

	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// DisplayWelcomeBanner shows the welcome banner
func DisplayWelcomeBanner() string {
	welcomeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true).
		Align(lipgloss.Center).
		Width(80)

	taglineStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3B82F6")).
		Italic(true).
		Align(lipgloss.Center).
		Width(80).
		MarginBottom(1)

	return welcomeStyle.Render("FinDocHub") + "\n" +
		taglineStyle.Render("Financial document Q&A, sentiment and market analysis") + "\n"
}

func phaseBadge(p tracker.Phase) string {
	switch p {
	case tracker.Pending:
		return pendingStyle.Render("⏳ " + p.String())
	case tracker.Succeeded:
		return succeededStyle.Render("✅ " + p.String())
	case tracker.Failed:
		return failedStyle.Render("❌ " + p.String())
	default:
		return idleStyle.Render("○ " + p.String())
	}
}

// renderState renders one tool slot: a title with the phase badge, then the
// result or the failure reason.
func renderState[T any](title string, st tracker.State[T], body func(T) string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString(" ")
	b.WriteString(phaseBadge(st.Phase()))
	b.WriteString("\n")

	switch st.Phase() {
	case tracker.Succeeded:
		res, _ := st.Result()
		b.WriteString(body(res))
	case tracker.Failed:
		b.WriteString(failedStyle.Render(describeError(st.Err())))
	case tracker.Pending:
		b.WriteString(pendingStyle.Render("Waiting for the analysis service..."))
	default:
		b.WriteString(idleStyle.Render("No request yet."))
	}
	return panelStyle.Render(b.String())
}

func describeError(err error) string {
	switch models.KindOf(err) {
	case models.KindTimeout:
		return "The analysis service did not answer in time. " + err.Error()
	case models.KindNetwork:
		return "Could not reach the analysis service. " + err.Error()
	case models.KindServiceRejected:
		return fmt.Sprintf("The analysis service returned HTTP %d. %s", models.StatusCodeOf(err), err.Error())
	case models.KindMalformed:
		return "The analysis service sent an unexpected response. " + err.Error()
	default:
		return err.Error()
	}
}

func row(label, value string) string {
	return labelStyle.Render(label) + value + "\n"
}

func renderAnswer(a models.Answer) string {
	var b strings.Builder
	b.WriteString(a.Answer)
	b.WriteString("\n\n")
	b.WriteString(row("Response time", formatSeconds(a.ResponseTimeSeconds)))
	b.WriteString(row("Accuracy", fmt.Sprintf("%.1f%%", a.AccuracyPercent)))
	b.WriteString(row("Sources", humanize.Comma(int64(a.SourceCount))))
	b.WriteString(row("Confidence", fmt.Sprintf("%.1f%%", a.Confidence*100)))
	return b.String()
}

func renderSentiment(s models.Sentiment) string {
	var b strings.Builder
	label := string(s.Label)
	switch s.Label {
	case models.SentimentPositive:
		label = positiveStyle.Render(label)
	case models.SentimentNegative:
		label = negativeStyle.Render(label)
	}
	b.WriteString(row("Sentiment", label))
	b.WriteString(row("Confidence", fmt.Sprintf("%.1f%%", s.Confidence*100)))
	b.WriteString(row("Score", fmt.Sprintf("%.2f", s.Score)))
	b.WriteString(row("Processing time", formatSeconds(s.ProcessingTimeSeconds)))
	return b.String()
}

func renderStock(s models.StockAnalysis) string {
	var b strings.Builder
	b.WriteString(row("Company", fmt.Sprintf("%s (%s)", s.Name, s.Symbol)))
	b.WriteString(row("Current price", formatPrice(s.CurrentPrice)))
	b.WriteString(row("Return", formatPercent(s.ReturnPercent)))
	b.WriteString(row("Volatility", fmt.Sprintf("%.2f%%", s.Volatility)))
	if s.MarketCap != nil {
		b.WriteString(row("Market cap", *s.MarketCap))
	}
	if s.PERatio != nil {
		b.WriteString(row("P/E ratio", fmt.Sprintf("%.2f", *s.PERatio)))
	}
	if len(s.HistoricalData) > 0 {
		b.WriteString(row("History points", humanize.Comma(int64(len(s.HistoricalData)))))
	}
	b.WriteString(row("Processing time", formatSeconds(s.ProcessingTimeSeconds)))
	return b.String()
}

func renderComparison(c models.StockComparison) string {
	var b strings.Builder
	b.WriteString(succeededStyle.Render("Winner: " + c.WinnerSymbol))
	b.WriteString(fmt.Sprintf("  (+%.2f%% performance difference)\n\n", c.PerformanceDifferencePercent))
	for _, s := range []models.StockAnalysis{c.StockA, c.StockB} {
		b.WriteString(row(s.Symbol, fmt.Sprintf("%s  %s  vol %.2f%%", formatPrice(s.CurrentPrice), formatPercent(s.ReturnPercent), s.Volatility)))
	}
	b.WriteString(row("Processing time", formatSeconds(c.ProcessingTimeSeconds)))
	return b.String()
}

func renderROI(p roi.Projection) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ROI Calculator"))
	b.WriteString("\n")
	b.WriteString(row("Team size", humanize.Comma(int64(p.Inputs.TeamSize))))
	b.WriteString(row("Hours/week per analyst", humanize.FormatFloat("#,###.##", p.Inputs.HoursPerWeekPerAnalyst)))
	b.WriteString(row("Hourly rate", "$"+humanize.FormatFloat("#,###.##", p.Inputs.HourlyRate)))
	b.WriteString("\n")

	if p.Result == nil {
		if p.Err != nil {
			b.WriteString(failedStyle.Render(p.Err.Error()))
		}
		return roiPanelStyle.Render(b.String())
	}

	r := p.Result
	b.WriteString(row("Current annual cost", formatMoney(r.CurrentAnnualCost)))
	b.WriteString(row("Service cost", formatMoney(r.ServiceCost)))
	savings := formatMoney(r.AnnualSavings)
	if r.AnnualSavings.IsPositive() {
		savings = positiveStyle.Render(savings)
	} else {
		savings = negativeStyle.Render(savings)
	}
	b.WriteString(row("Annual savings", savings))
	b.WriteString(row("ROI", r.ROIPercent.StringFixed(1)+"%"))
	if months, ok := r.BreakEven(); ok {
		b.WriteString(row("Break-even", humanize.Comma(months)+" "+plural(months, "month")))
	} else {
		b.WriteString(row("Break-even", negativeStyle.Render("never")))
	}
	return roiPanelStyle.Render(b.String())
}

func renderHealth(h models.HealthStatus, baseURL string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Service"))
	b.WriteString("\n")
	b.WriteString(row("Endpoint", baseURL))
	b.WriteString(row("Status", h.Status))
	b.WriteString(row("Version", h.Version))
	return panelStyle.Render(b.String())
}

func renderMetrics(m models.ServiceMetrics) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Service metrics"))
	b.WriteString("\n")
	b.WriteString(row("Accuracy", m.Accuracy))
	b.WriteString(row("Avg response time", m.AvgResponseTime))
	b.WriteString(row("Uptime", m.Uptime))
	b.WriteString(row("Documents processed", humanize.Comma(int64(m.DocumentsProcessed))))
	b.WriteString(row("Total queries", humanize.Comma(int64(m.TotalQueries))))
	return panelStyle.Render(b.String())
}

func renderHistory(records []models.HistoryRecord, now time.Time) string {
	if len(records) == 0 {
		return idleStyle.Render("No history yet.") + "\n"
	}
	var b strings.Builder
	for _, rec := range records {
		status := succeededStyle.Render(rec.Status)
		if rec.Status == models.HistoryStatusFailed {
			status = failedStyle.Render(rec.Status)
		}
		fmt.Fprintf(&b, "%-8s %-14s %-10s %8s  %s\n",
			rec.ID[:min(8, len(rec.ID))],
			rec.Tool,
			status,
			rec.Duration.Round(time.Millisecond),
			humanize.RelTime(rec.CreatedAt, now, "ago", "from now"),
		)
		if rec.Status == models.HistoryStatusFailed && rec.ErrorDetail != "" {
			b.WriteString("         ")
			b.WriteString(idleStyle.Render(rec.ErrorDetail))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderHistoryRecord(rec models.HistoryRecord) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("History " + rec.ID))
	b.WriteString("\n")
	b.WriteString(row("Tool", rec.Tool))
	status := succeededStyle.Render(rec.Status)
	if rec.Status == models.HistoryStatusFailed {
		status = failedStyle.Render(rec.Status)
	}
	b.WriteString(row("Status", status))
	b.WriteString(row("Created", rec.CreatedAt.Local().Format(time.DateTime)))
	b.WriteString(row("Duration", rec.Duration.Round(time.Millisecond).String()))
	if rec.ErrorKind != "" {
		b.WriteString(row("Error", string(rec.ErrorKind)))
	}
	if rec.StatusCode != 0 {
		b.WriteString(row("HTTP status", fmt.Sprint(rec.StatusCode)))
	}
	if rec.ErrorDetail != "" {
		b.WriteString(row("Detail", rec.ErrorDetail))
	}
	b.WriteString("\nRequest:\n")
	b.WriteString(indentJSON(rec.Request))
	if len(rec.Result) > 0 {
		b.WriteString("\nResult:\n")
		b.WriteString(indentJSON(rec.Result))
	}
	return b.String()
}

func indentJSON(raw []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "  ", "  "); err != nil {
		return "  " + string(raw) + "\n"
	}
	return "  " + out.String() + "\n"
}

func formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + "$" + humanize.FormatFloat("#,###.", d.Round(0).InexactFloat64())
}

func formatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func formatPercent(v float64) string {
	s := fmt.Sprintf("%+.2f%%", v)
	if v < 0 {
		return negativeStyle.Render(s)
	}
	return positiveStyle.Render(s)
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.2fs", v)
}

func plural(n int64, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
