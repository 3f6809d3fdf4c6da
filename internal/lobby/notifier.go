package lobby

import "context"

// Presentation selects which rendering of a lobby the Notifier should show.
// A Pending lobby keeps the waiting presentation; the force-start offer is a
// separate prompt.
type Presentation int

const (
	PresentWaiting Presentation = iota
	PresentReadyCheck
	PresentActive
)

// MessageHandle identifies a rendered lobby message so it can later be
// replaced or deleted. Opaque to the core beyond equality.
type MessageHandle struct {
	ChannelID string
	MessageID string
}

func (h MessageHandle) IsZero() bool {
	return h.MessageID == ""
}

// Notifier is the external presentation collaborator. Every call is
// best-effort: the Coordinator never rolls back a state change because a
// notification failed.
type Notifier interface {
	// RenderLobby replaces prev (when set) with a fresh rendering of the
	// lobby in channelID and returns the handle of the new message.
	RenderLobby(ctx context.Context, lob *Lobby, view Presentation, channelID string, prev MessageHandle) (MessageHandle, error)

	// OfferForceStart prompts the channel with an accept/decline choice for
	// starting the lobby below capacity.
	OfferForceStart(ctx context.Context, lob *Lobby, channelID string, roster []*Participant) error

	// SendChannelMessage posts a plain side message to the lobby's channel.
	SendChannelMessage(ctx context.Context, channelID string, text string) error

	// SendDirectMessage delivers a private message, reporting delivery.
	SendDirectMessage(ctx context.Context, userID string, text string) bool

	// NotifyLobbyStarted delivers the richer start notification to one
	// player, reporting delivery like SendDirectMessage.
	NotifyLobbyStarted(ctx context.Context, lob *Lobby, channelID string, userID string) bool

	// IsLatestMessage reports whether handle is still the most recent message
	// in its channel, used by the bump refresher to avoid re-posting into an
	// already visible lobby message.
	IsLatestMessage(ctx context.Context, handle MessageHandle) bool

	// DeleteMessage removes a previously rendered message.
	DeleteMessage(ctx context.Context, handle MessageHandle) error
}
