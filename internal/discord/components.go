package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/fivestack/lobbybot/internal/lobby"
	"github.com/fivestack/lobbybot/pkg/log"
)

// onComponent handles every button press. Each reply is ephemeral; the
// shared lobby message is re-rendered by the coordinator itself.
func (bot *Bot) onComponent(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	data := interaction.MessageComponentData()

	action, lobbyID, valid := parseButtonID(data.CustomID)
	if !valid {
		return
	}

	userID := interactionUserID(interaction)
	if userID == "" {
		return
	}

	slog.Debug("Lobby button pressed",
		slog.Int("lobby_id", lobbyID), slog.String("user_id", userID), slog.String("action", string(action)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	var reply string

	switch action {
	case actionJoin:
		reply = joinReply(bot.coordinator.Join(ctx, lobbyID, userID, false, false), false)
	case actionFill:
		reply = joinReply(bot.coordinator.Join(ctx, lobbyID, userID, true, false), true)
	case actionLeave:
		reply = leaveReply(bot.coordinator.Leave(ctx, lobbyID, userID))
	case actionStart:
		reply = startReply(bot.coordinator.Start(ctx, lobbyID, userID, false))
	case actionForceAccept:
		if !bot.coordinator.ForceStartDecision(ctx, lobbyID, userID, true) {
			reply = "Only lobby members can decide that."
		}
	case actionForceDecline:
		if !bot.coordinator.ForceStartDecision(ctx, lobbyID, userID, false) {
			reply = "Only lobby members can decide that."
		}
	case actionReadyCheck:
		if errBegin := bot.coordinator.BeginReadyCheck(ctx, lobbyID, userID); errBegin != nil {
			reply = "Could not start a ready check: " + errBegin.Error()
		}
	case actionReady:
		reply = readyReply(bot.coordinator.Ready(ctx, lobbyID, userID))
	case actionNotReady:
		reply = notReadyReply(bot.coordinator.Unready(ctx, lobbyID, userID))
	case actionCancelCheck:
		if errCancel := bot.coordinator.CancelReadyCheck(ctx, lobbyID, userID); errCancel != nil {
			reply = "Could not cancel the ready check: " + errCancel.Error()
		}
	case actionClose:
		bot.handleCloseButton(ctx, session, interaction, lobbyID, userID)

		return
	case actionCloseYes, actionCloseNo:
		bot.handleCloseConfirmation(ctx, session, interaction, lobbyID, userID, action == actionCloseYes)

		return
	}

	bot.componentReply(session, interaction, reply)
}

// handleCloseButton closes the lobby when the owner asks; anyone else gets
// an owner confirmation prompt instead.
func (bot *Bot) handleCloseButton(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, lobbyID int, userID string) {
	lob, found := bot.coordinator.ByID(lobbyID)
	if !found {
		bot.componentReply(session, interaction, "This lobby is already over.")

		return
	}

	if lob.OwnerID == userID {
		bot.coordinator.Close(ctx, userID)
		bot.componentReply(session, interaction, "")

		return
	}

	bot.componentReply(session, interaction, "")

	_, errSend := session.ChannelMessageSendComplex(interaction.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s> wants to close <@%s>'s lobby. <@%s>, confirm?", userID, lob.OwnerID, lob.OwnerID),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "✅", Style: discordgo.SecondaryButton, CustomID: buttonID(actionCloseYes, lobbyID)},
				discordgo.Button{Label: "❌", Style: discordgo.SecondaryButton, CustomID: buttonID(actionCloseNo, lobbyID)},
			}},
		},
	})
	if errSend != nil {
		slog.Warn("Failed to send close confirmation", log.ErrAttr(errSend), slog.Int("lobby_id", lobbyID))
	}
}

// handleCloseConfirmation resolves an owner confirmation prompt. Only the
// owner's press counts; the prompt message is replaced with the outcome.
func (bot *Bot) handleCloseConfirmation(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, lobbyID int, userID string, confirmed bool) {
	lob, found := bot.coordinator.ByID(lobbyID)
	if !found {
		bot.updateComponentMessage(session, interaction, "This lobby is already over.")

		return
	}

	if lob.OwnerID != userID {
		bot.componentReply(session, interaction, "Only the lobby owner can confirm this.")

		return
	}

	if !confirmed {
		bot.updateComponentMessage(session, interaction, "Close request denied.")

		return
	}

	bot.coordinator.Close(ctx, lob.OwnerID)
	bot.updateComponentMessage(session, interaction, "Lobby closed.")
}

// componentReply acknowledges a button press. An empty reply just dismisses
// the interaction without posting anything.
func (bot *Bot) componentReply(session *discordgo.Session, interaction *discordgo.InteractionCreate, reply string) {
	var response *discordgo.InteractionResponse

	if reply == "" {
		response = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		}
	} else {
		response = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: reply,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}
	}

	if errRespond := session.InteractionRespond(interaction.Interaction, response); errRespond != nil {
		slog.Error("Failed to respond to component interaction", log.ErrAttr(errRespond))
	}
}

// updateComponentMessage replaces the pressed message, stripping its buttons.
func (bot *Bot) updateComponentMessage(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string) {
	if errRespond := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	}); errRespond != nil {
		slog.Error("Failed to update component message", log.ErrAttr(errRespond))
	}
}

func joinReply(result lobby.AddResult, asFiller bool) string {
	switch result {
	case lobby.AddSuccess:
		if asFiller {
			return "You joined as a filler!"
		}

		return "You joined the lobby!"
	case lobby.AddAlreadyInLobby:
		return "You're already in this lobby."
	case lobby.AddLobbyFull:
		return "This lobby is full! Try joining as a filler."
	case lobby.AddLobbyInReadyCheck:
		return "A ready check is in progress, answer it instead."
	default:
		return "This lobby is already over."
	}
}

func leaveReply(result lobby.RemoveResult) string {
	switch result {
	case lobby.RemovedPlayer, lobby.RemovedFiller, lobby.RemoveLobbyEmpty:
		return "You left the lobby."
	case lobby.RemoveNotInLobby:
		return "You're not in this lobby."
	case lobby.RemoveLobbyInReadyCheck:
		return "A ready check is in progress, answer Not Ready instead."
	default:
		return "This lobby is already over."
	}
}

func startReply(outcome lobby.StartOutcome) string {
	switch outcome {
	case lobby.StartActivated, lobby.StartOffered:
		return ""
	case lobby.StartAlreadyPending:
		return "The lobby is already starting, answer the force start prompt."
	case lobby.StartNotParticipant:
		return "Join the lobby before starting it."
	default:
		return "This lobby is already over."
	}
}

func readyReply(result lobby.ReadyResult) string {
	switch result {
	case lobby.ReadyPlayer, lobby.ReadyFiller:
		return ""
	case lobby.ReadyAlreadyReady:
		return "You already answered ready."
	default:
		return "There is no ready check running for you."
	}
}

func notReadyReply(result lobby.ReadyResult) string {
	switch result {
	case lobby.ReadyPlayer, lobby.ReadyFiller:
		return ""
	case lobby.ReadyAlreadyNotReady:
		return "You already answered not ready."
	default:
		return "There is no ready check running for you."
	}
}
