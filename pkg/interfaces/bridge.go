package interfaces

import "context"

// MessageHandler answers a message posted on a bridge channel. A non-nil
// error is delivered to the sender as a null reply.
type MessageHandler func(ctx context.Context, message string) (string, error)

// MessageSender posts a message on a channel and waits for the single reply.
type MessageSender interface {
	Send(ctx context.Context, channelID, message string) (string, error)
}

// MessageRegistrar registers channel handlers with the host.
type MessageRegistrar interface {
	OnMessage(channelID string, handler MessageHandler)
}
