package vision

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseResult is either Parsed or Unparseable.
type ParseResult interface {
	isParseResult()
}

// Parsed carries a successfully decoded report.
type Parsed struct {
	Report Report
}

// Unparseable carries the raw model text that could not be decoded.
type Unparseable struct {
	Raw string
	Err error
}

func (Parsed) isParseResult()      {}
func (Unparseable) isParseResult() {}

var (
	fencePattern  = regexp.MustCompile("```(?:json)?\\s*")
	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseReport decodes model output into a Report. Markdown fences are
// stripped first; if the remainder is not a JSON object, the outermost
// {...} span is tried. It never panics and never returns nil.
func ParseReport(text string) ParseResult {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))

	var r Report
	err := json.Unmarshal([]byte(cleaned), &r)
	if err == nil {
		return Parsed{Report: r}
	}

	if match := objectPattern.FindString(cleaned); match != "" && match != cleaned {
		var fallback Report
		if ferr := json.Unmarshal([]byte(match), &fallback); ferr == nil {
			return Parsed{Report: fallback}
		}
	}
	return Unparseable{Raw: text, Err: err}
}

// reportFromText is the provider-side helper: Parsed yields the report,
// Unparseable becomes an error that keeps the raw text.
func reportFromText(provider, text string) (*Report, error) {
	switch res := ParseReport(text).(type) {
	case Parsed:
		return &res.Report, nil
	case Unparseable:
		return nil, WrapError(provider, &UnparseableError{Raw: truncate(res.Raw, 300), Err: res.Err})
	}
	return nil, WrapError(provider, ErrEmptyResponse)
}

// truncate shortens a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
