package bot

import (
	"context"

	"codeberg.org/mutker/sensorbot/internal/errors"
)

const (
	// ErrGatewayNetwork marks a transient connectivity failure; the
	// startup handshake retries these.
	ErrGatewayNetwork = errors.ErrorCode("gateway_network_error")
	// ErrGatewayAuth marks a credential rejection; fatal, retrying
	// cannot help.
	ErrGatewayAuth = errors.ErrorCode("gateway_auth_error")
	ErrGatewaySend = errors.ErrorCode("gateway_send_failed")
)

// Message is an inbound text message from the chat transport.
type Message struct {
	SenderID   int64
	SenderName string
	ChatID     int64
	Text       string
}

// Callback is an inline-menu selection. Data carries the range token
// of the chosen button. The gateway requires every callback to be
// acknowledged promptly, independent of processing outcome.
type Callback struct {
	ID       string
	SenderID int64
	ChatID   int64
	Data     string
}

// Button is one inline-menu choice: a label shown to the user and the
// payload delivered back in the selection callback.
type Button struct {
	Label string
	Data  string
}

// Gateway is the outbound side of the chat transport.
type Gateway interface {
	// Probe checks connectivity and credentials. Network failures are
	// reported with ErrGatewayNetwork, credential rejections with
	// ErrGatewayAuth.
	Probe(ctx context.Context) error

	SendText(ctx context.Context, chatID int64, text string) error
	SendMenu(ctx context.Context, chatID int64, text string, rows [][]Button) error
	SendPhoto(ctx context.Context, chatID int64, path, caption string) error
	AckCallback(ctx context.Context, callbackID string) error
}

// Handler consumes inbound gateway events. Implementations must not
// let a single event failure take down the receive loop.
type Handler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandleCallback(ctx context.Context, cb Callback)
}
