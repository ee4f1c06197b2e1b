package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/dmoloce/stock-ta-ai/internal/model"
)

var verdictIcon = map[model.Verdict]string{
	model.VerdictBuy:     "🟢",
	model.VerdictSell:    "🔴",
	model.VerdictHold:    "🟡",
	model.VerdictUnknown: "⚪",
}

// FormatAnalysisReport renders an analysis as a Telegram HTML message.
func FormatAnalysisReport(rec *model.AnalysisRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s</b> | %s → %s\n\n",
		html.EscapeString(rec.Symbol), rec.Start.Format("2006-01-02"), rec.End.Format("2006-01-02"))
	fmt.Fprintf(&b, "Last close: %.2f (%d bars)\n", rec.LastClose, rec.Bars)
	fmt.Fprintf(&b, "Indicators: %s\n", html.EscapeString(strings.Join(rec.Indicators, ", ")))
	fmt.Fprintf(&b, "%s <b>Recommendation: %s</b>\n", verdictIcon[rec.Verdict], rec.Verdict)
	if rec.Analyst != "" {
		fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(rec.Analyst))
	}
	if rec.Response != "" {
		b.WriteString("\n")
		b.WriteString(html.EscapeString(strings.TrimSpace(rec.Response)))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatCaption is the short form used as a chart photo caption.
func FormatCaption(rec *model.AnalysisRecord) string {
	return fmt.Sprintf("%s <b>%s</b>: %s (close %.2f)",
		verdictIcon[rec.Verdict], html.EscapeString(rec.Symbol), rec.Verdict, rec.LastClose)
}

// FormatHistory lists recent analyses, newest first.
func FormatHistory(symbol string, recs []model.AnalysisRecord) string {
	if len(recs) == 0 {
		if symbol == "" {
			return "No analyses recorded yet."
		}
		return fmt.Sprintf("No analyses recorded for %s.", html.EscapeString(symbol))
	}
	var b strings.Builder
	title := "all symbols"
	if symbol != "" {
		title = symbol
	}
	fmt.Fprintf(&b, "🗂 <b>History</b> | %s\n\n", html.EscapeString(title))
	for _, r := range recs {
		fmt.Fprintf(&b, "%s %s %s %s (%.2f)\n",
			r.CreatedAt.Format("2006-01-02 15:04"), verdictIcon[r.Verdict],
			html.EscapeString(r.Symbol), r.Verdict, r.LastClose)
	}
	return b.String()
}
