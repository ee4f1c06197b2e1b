// Package analyst sends a rendered chart to a vision-capable language model
// and returns its free-text recommendation.
package analyst

import (
	"context"
	"regexp"
	"strings"

	"github.com/dmoloce/stock-ta-ai/internal/model"
)

// Prompt is the fixed instruction sent alongside the chart image.
const Prompt = `You are a stock trader specialized in technical analysis at a top financial institution.
Analyze the stock chart's technical indicators and provide a buy/sell/hold recommendation.
Base your recommendation only on the candlestick chart and the displayed technical indicators.
First provide the recommendation and then the detailed reasoning.`

// Analyst turns a chart image into a recommendation.
type Analyst interface {
	Analyze(ctx context.Context, png []byte) (string, error)
	Name() string
}

var verdictRe = regexp.MustCompile(`\b(BUY|SELL|HOLD)\b`)

// ParseVerdict returns the first buy/sell/hold word in the response. The
// response format is not enforced, so UNKNOWN is a normal result.
func ParseVerdict(text string) model.Verdict {
	m := verdictRe.FindString(strings.ToUpper(text))
	if m == "" {
		return model.VerdictUnknown
	}
	return model.Verdict(m)
}
