package mail

import (
	"context"
	"log/slog"
)

// LogSender records deliveries to the log instead of sending them. It
// stands in for SMTP when no server is configured, keeping the rest of the
// dispatch path identical in development.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.logger.Info("mail delivery skipped, smtp disabled", "to", to, "subject", subject)
	return nil
}
