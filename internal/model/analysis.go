package model

import "time"

// Verdict is the recommendation extracted from the model's free text.
type Verdict string

const (
	VerdictBuy     Verdict = "BUY"
	VerdictSell    Verdict = "SELL"
	VerdictHold    Verdict = "HOLD"
	VerdictUnknown Verdict = "UNKNOWN"
)

// AnalysisRecord is one completed chart analysis.
type AnalysisRecord struct {
	ID         int64     `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Symbol     string    `json:"symbol"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Bars       int       `json:"bars"`
	LastClose  float64   `json:"last_close"`
	Indicators []string  `json:"indicators"`
	Analyst    string    `json:"analyst"`
	Verdict    Verdict   `json:"verdict"`
	Response   string    `json:"response"`
}
