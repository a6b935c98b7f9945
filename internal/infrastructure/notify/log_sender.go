package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/shulepay/backend/internal/domain/notification"
)

// LogSender writes notifications to the application log instead of a
// provider. Used in development and when SMS delivery is disabled; the
// notification rows are still persisted and marked sent.
type LogSender struct {
	channel notification.Channel
	logger  *zap.Logger
}

// NewLogSender creates a log sender for the given channel
func NewLogSender(channel notification.Channel, logger *zap.Logger) *LogSender {
	return &LogSender{channel: channel, logger: logger}
}

// Channel returns the channel this sender stands in for
func (s *LogSender) Channel() notification.Channel {
	return s.channel
}

// Send logs the notification
func (s *LogSender) Send(ctx context.Context, n *notification.Notification) error {
	s.logger.Info("notification delivered to log",
		zap.String("channel", string(s.channel)),
		zap.String("event_type", string(n.EventType)),
		zap.String("student_id", n.StudentID.String()),
		zap.String("phone", n.RecipientPhone.Local()),
		zap.String("title", n.Title),
		zap.String("message", n.Message))
	return nil
}

var _ notification.Sender = (*LogSender)(nil)
