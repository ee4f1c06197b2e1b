package server

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Oudwins/zog"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type fetchRequest struct {
	Ticker string `json:"ticker"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

var fetchSchema = zog.Struct(zog.Shape{
	"Ticker": zog.String().Trim().Required().Min(1).Max(16),
	"Start":  zog.String().Required().Match(dateRe, zog.Message("start must be YYYY-MM-DD")),
	"End":    zog.String().Required().Match(dateRe, zog.Message("end must be YYYY-MM-DD")),
})

type indicatorsRequest struct {
	Indicators []string `json:"indicators"`
}

var indicatorsSchema = zog.Struct(zog.Shape{
	"Indicators": zog.Slice(zog.String().Trim().Required()).Max(8),
})

type historyQuery struct {
	Ticker string `form:"ticker"`
	Limit  int    `form:"limit"`
}

var historySchema = zog.Struct(zog.Shape{
	"Ticker": zog.String().Trim().Max(16),
	"Limit":  zog.Int().GTE(0).LTE(200),
})

// issueText flattens a zog issue map into one deterministic message.
func issueText(issues zog.ZogIssueMap) string {
	keys := make([]string, 0, len(issues))
	for k := range issues {
		if !strings.HasPrefix(k, "$") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, iss := range issues[k] {
			if iss != nil {
				return fmt.Sprintf("%s: %s", k, iss.Message)
			}
		}
	}
	return "invalid request"
}
