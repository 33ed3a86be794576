package alert

import (
	"context"

	"github.com/rs/zerolog"
)

// LogMailer only records what would have been sent.
type LogMailer struct {
	logger *zerolog.Logger
}

func NewLogMailer(logger *zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, to string, template Template, locals Locals) error {
	m.logger.Info().
		Str("to", to).
		Str("template", string(template)).
		Str("monitor", locals.AppName).
		Msg("alert email")
	return nil
}
