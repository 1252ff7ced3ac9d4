package postcheck

import (
	"context"
	"log/slog"

	"miosub/internal/logging"
)

// GenerateFunc produces one raw attempt. Errors are terminal for the stage
// call and propagate unchanged.
type GenerateFunc[TRaw any] func(ctx context.Context) (TRaw, error)

// PostProcessFunc converts a raw result and judges it. finalAttempt tells the
// post-processor whether destructive issue markers may be applied to the
// output; on earlier attempts the output may still be discarded for a retry,
// so markers must be withheld.
type PostProcessFunc[TRaw, TOut any] func(ctx context.Context, raw TRaw, finalAttempt bool) (TOut, Result, error)

// Outcome is the engine's return value. Check may describe an invalid result:
// exhausting the retry budget is not an error, and callers inspect Check to
// decide how to surface residual issues.
type Outcome[TOut any] struct {
	Output   TOut
	Check    Result
	Attempts int
}

// Run executes generate and postProcess up to maxRetries+1 times, stopping
// early once the result is valid or no remaining issue is retryable. The last
// attempt's output is returned unmodified on exhaustion ("last, not best").
func Run[TRaw, TOut any](
	ctx context.Context,
	logger *slog.Logger,
	name string,
	maxRetries int,
	generate GenerateFunc[TRaw],
	postProcess PostProcessFunc[TRaw, TOut],
) (Outcome[TOut], error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	var outcome Outcome[TOut]
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		raw, err := generate(ctx)
		if err != nil {
			return outcome, err
		}

		finalAttempt := attempt == maxRetries
		output, check, err := postProcess(ctx, raw, finalAttempt)
		if err != nil {
			return outcome, err
		}

		outcome = Outcome[TOut]{Output: output, Check: check, Attempts: attempt + 1}
		if check.Valid || !check.Retryable() {
			return outcome, nil
		}
		if finalAttempt {
			logger.Warn("postcheck budget exhausted, keeping last result",
				logging.String("operation", name),
				logging.Int(logging.FieldAttempt, attempt),
				logging.Int("issues", len(check.Issues)),
			)
			return outcome, nil
		}

		logger.Info("postcheck failed, retrying",
			logging.String("operation", name),
			logging.String(logging.FieldEventType, "postcheck_retry"),
			logging.Int(logging.FieldAttempt, attempt),
			logging.String("first_issue", firstIssue(check)),
		)
	}
	return outcome, nil
}

func firstIssue(check Result) string {
	if len(check.Issues) == 0 {
		return ""
	}
	return string(check.Issues[0].Kind)
}
