package refresh

import (
	"github.com/robfig/cron/v3"

	"github.com/teemow/senderwatch/internal/logging"
)

// cronLogger routes cron's internal logging to a logging.Logger. Scheduling
// chatter goes to debug level.
type cronLogger struct {
	logger logging.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, logging.Err(err))...)
}
