package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

// leveledLogger routes stripe-go's internal logging into the service logger.
type leveledLogger struct {
	logg *logger.Logger
}

var _ stripe.LeveledLoggerInterface = leveledLogger{}

func newLeveledLogger(logg *logger.Logger) stripe.LeveledLoggerInterface {
	if logg == nil {
		return &stripe.LeveledLogger{Level: stripe.LevelNull}
	}
	return leveledLogger{logg: logg}
}

func (l leveledLogger) ctx() context.Context {
	return l.logg.WithField(context.Background(), "component", "stripe")
}

func (l leveledLogger) Debugf(format string, v ...interface{}) {
	l.logg.Debug(l.ctx(), fmt.Sprintf(format, v...))
}

func (l leveledLogger) Infof(format string, v ...interface{}) {
	l.logg.Debug(l.ctx(), fmt.Sprintf(format, v...))
}

func (l leveledLogger) Warnf(format string, v ...interface{}) {
	l.logg.Warn(l.ctx(), fmt.Sprintf(format, v...))
}

func (l leveledLogger) Errorf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.logg.Error(l.ctx(), "stripe request failed", errors.New(msg))
}
