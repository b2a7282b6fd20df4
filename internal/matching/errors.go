package matching

// Stages recorded in report error markers when a matcher call fails.
const (
	StageMatcherCall   = "matcher_call"
	StageResponseParse = "response_parse"
)

// ParseError reports a matcher response that could not be turned into
// results.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return "parse error: " + e.Message + ": " + e.Cause.Error()
	}
	return "parse error: " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
