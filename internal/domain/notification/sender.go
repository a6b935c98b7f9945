package notification

import "context"

// Sender delivers a notification over one channel. Implementations wrap
// concrete providers (SMS gateway, SMTP relay) and are selected by channel
// at dispatch time, injected rather than looked up from global settings.
type Sender interface {
	// Channel returns the channel this sender delivers on
	Channel() Channel
	// Send delivers the notification. An error marks the row failed; it is
	// never retried automatically.
	Send(ctx context.Context, n *Notification) error
}
