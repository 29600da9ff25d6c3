package services

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// sequence returns a generator yielding values in order, repeating the last one.
func sequence(values ...string) (func() string, *int) {
	calls := 0
	return func() string {
		v := values[min(calls, len(values)-1)]
		calls++
		return v
	}, &calls
}
