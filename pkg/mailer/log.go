package mailer

import (
	"context"
	"strings"

	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
)

// LogSender records messages in the log instead of delivering them. Used in development.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	if _, err := Build(m); err != nil {
		return err
	}
	if s.logg == nil {
		return nil
	}
	names := make([]string, 0, len(m.Attachments))
	size := 0
	for _, att := range m.Attachments {
		names = append(names, att.Filename)
		size += len(att.Content)
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"to":               strings.Join(m.To, ","),
		"reply_to":         m.ReplyTo,
		"subject":          m.Subject,
		"attachments":      strings.Join(names, ","),
		"attachment_bytes": size,
	})
	s.logg.Info(ctx, "mail.log_driver.sent")
	return nil
}
