// Package postcheck implements the generate/validate/retry loop wrapped
// around every stage call. A stage produces a raw result, a post-processor
// converts and judges it, and the engine decides whether another attempt can
// improve the outcome.
package postcheck

// IssueKind names a class of output-quality problem.
type IssueKind string

const (
	// IssueCorruptedRange flags a time range the stage mangled (start after
	// end, absurd duration). Another attempt may produce a clean range.
	IssueCorruptedRange IssueKind = "corrupted_range"
	// IssueTimestampRegression flags an isolated timestamp going backwards.
	// Retrying cannot fix an isolated anomaly, so it is terminal.
	IssueTimestampRegression IssueKind = "timestamp_regression"
	// IssueEmptyOutput flags a stage returning nothing for a non-empty input.
	IssueEmptyOutput IssueKind = "empty_output"
	// IssueMalformedPayload flags output the adapter could not interpret.
	IssueMalformedPayload IssueKind = "malformed_payload"
)

// Issue is one detected problem with a stage's output.
type Issue struct {
	Kind      IssueKind
	Message   string
	Retryable bool
	// SegmentID points at the affected segment when the issue is local.
	SegmentID int64
}

// Result is the verdict on one attempt's output. A fresh Result is produced
// on every attempt and never persisted.
type Result struct {
	Valid  bool
	Issues []Issue
}

// Retryable reports whether another attempt could improve the result: true
// iff at least one issue is retryable.
func (r Result) Retryable() bool {
	for _, issue := range r.Issues {
		if issue.Retryable {
			return true
		}
	}
	return false
}

// OK returns a valid result with no issues.
func OK() Result {
	return Result{Valid: true}
}

// Invalid returns an invalid result carrying the given issues.
func Invalid(issues ...Issue) Result {
	return Result{Issues: issues}
}
