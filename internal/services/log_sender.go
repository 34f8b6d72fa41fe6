package services

import "log/slog"

// LogSender stands in for SMTP in development. Only the envelope is logged;
// bodies can carry reset links.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(to string, subject string, _ string) error {
	s.logger.Info("email not sent, smtp disabled", "to", to, "subject", subject)
	return nil
}
