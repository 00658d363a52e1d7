package dispatch

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Receipt is what a channel reports for one message
type Receipt struct {
	Delivered bool
	ID        string
	Error     string
}

// Channel delivers a text message to an international-format phone number.
// A non-nil error or an undelivered receipt both count as a failure.
type Channel interface {
	Send(ctx context.Context, phone, text string) (Receipt, error)
}

// ChannelFunc adapts a function to Channel
type ChannelFunc func(ctx context.Context, phone, text string) (Receipt, error)

// Send calls f.
func (f ChannelFunc) Send(ctx context.Context, phone, text string) (Receipt, error) {
	return f(ctx, phone, text)
}

// LogChannel writes messages to the log instead of sending them. It is
// used when no messaging provider is configured and for dry runs.
type LogChannel struct {
	log *logrus.Logger
}

var _ Channel = (*LogChannel)(nil)

// NewLogChannel creates a log-only channel
func NewLogChannel(log *logrus.Logger) *LogChannel {
	return &LogChannel{log: log}
}

// Send logs the message and reports it delivered.
func (c *LogChannel) Send(_ context.Context, phone, text string) (Receipt, error) {
	id := "log-" + uuid.NewString()
	c.log.WithFields(logrus.Fields{
		"phone":      phone,
		"message_id": id,
	}).Infof("Reminder (not sent):\n%s", text)
	return Receipt{Delivered: true, ID: id}, nil
}
