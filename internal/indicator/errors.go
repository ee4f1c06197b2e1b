package indicator

import "fmt"

// InvalidInputError reports a structurally invalid price series.
// Index is the offending bar, or -1 when the problem is not tied to one bar.
type InvalidInputError struct {
	Index  int
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Index < 0 {
		return "invalid price series: " + e.Reason
	}
	return fmt.Sprintf("invalid price series: bar %d: %s", e.Index, e.Reason)
}

// UnknownIndicatorError reports an identifier outside the supported set.
type UnknownIndicatorError struct {
	Name string
}

func (e *UnknownIndicatorError) Error() string {
	return fmt.Sprintf("unknown indicator %q", e.Name)
}
