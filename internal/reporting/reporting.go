package reporting

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/getsentry/sentry-go"
	"quiz-progress-service/internal/logging"
)

var uuidRx = regexp.MustCompile(`[0-9a-f]{8}-?([0-9a-f]{4}-?){3}[0-9a-f]{12}`)

func sanitizeError(err string) string {
	return uuidRx.ReplaceAllString(err, "<uuid>")
}

// Init configures Sentry. With an empty DSN reporting only logs. The returned
// flush function drains buffered events on shutdown.
func Init(dsn, environment string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return nil, err
	}
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// Report logs err and forwards it to Sentry when configured. It never fails.
func Report(ctx context.Context, err error, extras ...map[string]string) {
	if err == nil {
		err = errors.New("no error provided")
	}
	logging.FromContext(ctx).ErrorContext(ctx,
		"reporting error",
		slog.String("error", err.Error()),
		slog.Any("extras", extras),
	)

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for _, extra := range extras {
			for key, value := range extra {
				scope.SetExtra(key, value)
			}
		}
		scope.SetFingerprint([]string{"{{ default }}", sanitizeError(err.Error())})
		hub.CaptureException(err)
	})
}

// StorageFailure adapts Report to the progress store's failure hook.
func StorageFailure(userID string) func(ctx context.Context, op string, err error) {
	return func(ctx context.Context, op string, err error) {
		Report(ctx, err, map[string]string{"op": op, "userId": userID})
	}
}
