package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry wires the error reporter. A blank DSN leaves the hub without a
// client and every capture becomes a no-op.
func InitSentry(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	})
}

// CaptureError forwards an unexpected failure to Sentry.
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// FlushSentry drains buffered events, bounded by timeout. Called once on
// shutdown.
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}
