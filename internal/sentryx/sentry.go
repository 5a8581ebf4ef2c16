package sentryx

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

var (
	initOnce sync.Once
	enabled  bool
)

// Init configures the Sentry client. An empty DSN leaves reporting disabled.
func Init(service, dsn, environment string) error {
	var initErr error
	initOnce.Do(func() {
		if dsn == "" {
			return
		}

		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			Environment:      environment,
			ServerName:       service,
			AttachStacktrace: true,
		}); err != nil {
			initErr = fmt.Errorf("sentry init: %w", err)
			return
		}
		enabled = true
	})
	return initErr
}

// Enabled reports whether events are being sent.
func Enabled() bool {
	return enabled
}

func CaptureError(err error, message string, args ...any) {
	if !enabled {
		return
	}
	if err == nil {
		return
	}

	msg := message
	if len(args) > 0 {
		msg = fmt.Sprintf(message, args...)
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		if msg != "" {
			scope.SetTag("log_message", msg)
		}
		sentry.CaptureException(err)
	})
}

func CaptureMessage(level sentry.Level, message string, args ...any) {
	if !enabled {
		return
	}
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		sentry.CaptureMessage(message)
	})
}

// CaptureRequestPanic reports a recovered handler panic with request context.
func CaptureRequestPanic(r *http.Request, rec any, stack []byte) {
	if !enabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelFatal)
		scope.SetRequest(r)
		scope.SetContext("panic", sentry.Context{"stack": string(stack)})
		sentry.CaptureMessage(fmt.Sprintf("http panic method=%s path=%s panic=%v", r.Method, r.URL.Path, rec))
	})
}

func Flush(timeout time.Duration) {
	if !enabled {
		return
	}
	sentry.Flush(timeout)
}
