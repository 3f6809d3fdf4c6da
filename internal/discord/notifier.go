package discord

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/fivestack/lobbybot/internal/lobby"
	"github.com/fivestack/lobbybot/pkg/log"
)

// lobbyButtons builds the action rows for a lobby presentation.
func lobbyButtons(lobbyID int, view lobby.Presentation) []discordgo.MessageComponent {
	switch view {
	case lobby.PresentReadyCheck:
		return []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Ready!", Style: discordgo.PrimaryButton, CustomID: buttonID(actionReady, lobbyID)},
				discordgo.Button{Label: "Not Ready!", Style: discordgo.DangerButton, CustomID: buttonID(actionNotReady, lobbyID)},
				discordgo.Button{Label: "Cancel Ready Check", Style: discordgo.SecondaryButton, CustomID: buttonID(actionCancelCheck, lobbyID)},
			}},
		}
	case lobby.PresentActive:
		return []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Join as Player", Style: discordgo.PrimaryButton, CustomID: buttonID(actionJoin, lobbyID)},
				discordgo.Button{Label: "Join as Filler", Style: discordgo.SecondaryButton, CustomID: buttonID(actionFill, lobbyID)},
				discordgo.Button{Label: "Leave Lobby", Style: discordgo.DangerButton, CustomID: buttonID(actionLeave, lobbyID)},
			}},
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Close Lobby", Style: discordgo.DangerButton, CustomID: buttonID(actionClose, lobbyID)},
			}},
		}
	default:
		return []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Join as Player", Style: discordgo.PrimaryButton, CustomID: buttonID(actionJoin, lobbyID)},
				discordgo.Button{Label: "Join as Filler", Style: discordgo.SecondaryButton, CustomID: buttonID(actionFill, lobbyID)},
				discordgo.Button{Label: "Leave Lobby", Style: discordgo.DangerButton, CustomID: buttonID(actionLeave, lobbyID)},
			}},
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Start Lobby", Style: discordgo.SuccessButton, CustomID: buttonID(actionStart, lobbyID)},
				discordgo.Button{Label: "Ready Check", Style: discordgo.PrimaryButton, CustomID: buttonID(actionReadyCheck, lobbyID)},
				discordgo.Button{Label: "Close Lobby", Style: discordgo.DangerButton, CustomID: buttonID(actionClose, lobbyID)},
			}},
		}
	}
}

// RenderLobby posts a fresh lobby message and removes the superseded one.
// Posting new instead of editing keeps the lobby near the bottom of the
// channel where people look for it.
func (bot *Bot) RenderLobby(_ context.Context, lob *lobby.Lobby, view lobby.Presentation, channelID string, prev lobby.MessageHandle) (lobby.MessageHandle, error) {
	if !bot.isReady.Load() {
		return prev, ErrDiscordSend
	}

	bot.renderLimit.Take()

	sent, errSend := bot.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{lobbyEmbed(lob, view, bot.images.Random(), lob.ReadyDeadline)},
		Components: lobbyButtons(lob.ID, view),
	})
	if errSend != nil {
		return prev, errors.Join(errSend, ErrDiscordSend)
	}

	if !prev.IsZero() {
		if errDelete := bot.session.ChannelMessageDelete(prev.ChannelID, prev.MessageID); errDelete != nil {
			slog.Debug("Failed to delete superseded lobby message", log.ErrAttr(errDelete))
		}
	}

	return lobby.MessageHandle{ChannelID: channelID, MessageID: sent.ID}, nil
}

func (bot *Bot) OfferForceStart(_ context.Context, lob *lobby.Lobby, channelID string, roster []*lobby.Participant) error {
	if !bot.isReady.Load() {
		return ErrDiscordSend
	}

	_, errSend := bot.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{forceStartEmbed(lob, roster)},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Start Anyway", Style: discordgo.SuccessButton, CustomID: buttonID(actionForceAccept, lob.ID)},
				discordgo.Button{Label: "Keep Waiting", Style: discordgo.SecondaryButton, CustomID: buttonID(actionForceDecline, lob.ID)},
			}},
		},
	})
	if errSend != nil {
		return errors.Join(errSend, ErrDiscordSend)
	}

	return nil
}

func (bot *Bot) SendChannelMessage(_ context.Context, channelID string, text string) error {
	if !bot.isReady.Load() {
		return ErrDiscordSend
	}

	if _, errSend := bot.session.ChannelMessageSend(channelID, text); errSend != nil {
		return errors.Join(errSend, ErrDiscordSend)
	}

	return nil
}

// SendDirectMessage delivers a DM, reporting delivery. Users can disable
// DMs, so failure here is common and non-fatal.
func (bot *Bot) SendDirectMessage(_ context.Context, userID string, text string) bool {
	if !bot.isReady.Load() {
		return false
	}

	channel, errChannel := bot.session.UserChannelCreate(userID)
	if errChannel != nil {
		return false
	}

	_, errSend := bot.session.ChannelMessageSend(channel.ID, text)

	return errSend == nil
}

// NotifyLobbyStarted sends the start embed, including a jump link back to the
// lobby channel, to one player.
func (bot *Bot) NotifyLobbyStarted(_ context.Context, lob *lobby.Lobby, channelID string, userID string) bool {
	if !bot.isReady.Load() {
		return false
	}

	channel, errChannel := bot.session.UserChannelCreate(userID)
	if errChannel != nil {
		return false
	}

	_, errSend := bot.session.ChannelMessageSendEmbed(channel.ID, startDMEmbed(lob, bot.images.Random(), bot.guildID, channelID))

	return errSend == nil
}

func (bot *Bot) IsLatestMessage(_ context.Context, handle lobby.MessageHandle) bool {
	if !bot.isReady.Load() {
		return true
	}

	messages, errMessages := bot.session.ChannelMessages(handle.ChannelID, 1, "", "", "")
	if errMessages != nil || len(messages) == 0 {
		return true
	}

	return messages[0].ID == handle.MessageID
}

func (bot *Bot) DeleteMessage(_ context.Context, handle lobby.MessageHandle) error {
	if !bot.isReady.Load() {
		return ErrDiscordSend
	}

	if errDelete := bot.session.ChannelMessageDelete(handle.ChannelID, handle.MessageID); errDelete != nil {
		return errors.Join(errDelete, ErrDiscordSend)
	}

	return nil
}
