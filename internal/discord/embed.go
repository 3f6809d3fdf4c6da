package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	embed "github.com/leighmacdonald/discordgo-embed"

	"github.com/fivestack/lobbybot/internal/lobby"
)

const (
	ColourSuccess = 302673
	ColourInfo    = 3581519
	ColourWarn    = 14327864
	ColourError   = 13631488
)

// gameEmojis maps game name aliases to a display emoji for the embed title.
//
//nolint:gochecknoglobals
var gameEmojis = map[string]string{
	"val":       "🔫",
	"valorant":  "🔫",
	"league":    "🧙",
	"lol":       "🧙",
	"flex":      "🧙",
	"deadlock":  "🔒",
	"overwatch": "🦸",
}

func gameEmoji(game string) string {
	if emoji, found := gameEmojis[strings.ToLower(game)]; found {
		return emoji
	}

	return "🎮"
}

func NewEmbed(args ...string) *embed.Embed {
	newEmbed := embed.NewEmbed()

	if len(args) == 2 { //nolint:gomnd
		newEmbed = newEmbed.SetTitle(args[0]).SetDescription(args[1])
	} else if len(args) == 1 {
		newEmbed = newEmbed.SetTitle(args[0])
	}

	return newEmbed
}

func timeDisplay(lob *lobby.Lobby) string {
	if lob.IsActive() {
		return fmt.Sprintf("Started at <t:%d:t>", lob.StartedAt.Unix())
	}

	if lob.IsASAP() {
		return fmt.Sprintf("ASAP (Created at <t:%d:t>)", lob.CreatedAt.Unix())
	}

	return fmt.Sprintf("<t:%d:t> (<t:%d:R>)", lob.ScheduledAt.Unix(), lob.ScheduledAt.Unix())
}

func playerLines(participants []*lobby.Participant, withReady bool) string {
	if len(participants) == 0 {
		return "None"
	}

	var lines []string

	for _, participant := range participants {
		line := ""

		if withReady {
			switch {
			case participant.IsReady():
				line += "✅ "
			case participant.IsNotReady():
				line += "❌ "
			default:
				line += "🤔 "
			}
		}

		line += "<@" + participant.ID + ">"

		if participant.Forced {
			line += " (force added)"
		}

		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// lobbyEmbed renders the main lobby message for any presentation.
func lobbyEmbed(lob *lobby.Lobby, view lobby.Presentation, imageURL string, readyDeadline time.Time) *discordgo.MessageEmbed {
	var (
		colour    int
		title     = fmt.Sprintf("%s %s", gameEmoji(lob.Game), lob.Game)
		desc      string
		author    = fmt.Sprintf("<@%s>'s Lobby", lob.OwnerID)
		footer    = fmt.Sprintf("Lobby ID: %d", lob.ID)
		withReady bool
	)

	switch view {
	case lobby.PresentActive:
		colour = ColourError
		desc = "🕒 " + timeDisplay(lob)
		author = fmt.Sprintf("<@%s>'s Active Lobby", lob.OwnerID)
	case lobby.PresentReadyCheck:
		colour = ColourWarn
		title += " - Ready Check"
		desc = fmt.Sprintf("⏳ Time Left: <t:%d:R>", readyDeadline.Unix())
		footer += " • Players that don't ready up may be replaced by ready fillers."
		withReady = true
	default:
		colour = ColourInfo
		desc = "🕒 " + timeDisplay(lob)
	}

	msg := NewEmbed(title).
		SetColor(colour).
		SetDescription(desc).
		SetAuthor(author).
		SetFooter(footer)

	msg.AddField(fmt.Sprintf("👥 Players (%d/%d)", len(lob.Players()), lob.MaxPlayers), playerLines(lob.Players(), withReady))
	msg.AddField("🧩 Fillers", playerLines(lob.Fillers(), withReady))
	msg.InlineAllFields()

	if imageURL != "" {
		msg.SetImage(imageURL)
	}

	return msg.MessageEmbed
}

// startDMEmbed is the private notification sent to each player on start.
func startDMEmbed(lob *lobby.Lobby, imageURL string, guildID string, channelID string) *discordgo.MessageEmbed {
	desc := fmt.Sprintf("<@%s>'s %s lobby is starting now!", lob.OwnerID, lob.Game)
	if guildID != "" && channelID != "" {
		desc += fmt.Sprintf("\n[Jump to lobby channel](https://discord.com/channels/%s/%s)", guildID, channelID)
	}

	msg := NewEmbed().
		SetColor(ColourSuccess).
		SetDescription(desc).
		SetFooter("Originally scheduled for")

	scheduled := lob.ScheduledAt
	if lob.IsASAP() {
		scheduled = lob.CreatedAt
	}

	msg.Timestamp = scheduled.Format(time.RFC3339)

	if imageURL != "" {
		msg.SetImage(imageURL)
	}

	return msg.MessageEmbed
}

// forceStartEmbed prompts for starting below capacity.
func forceStartEmbed(lob *lobby.Lobby, roster []*lobby.Participant) *discordgo.MessageEmbed {
	return NewEmbed("Not enough players!").
		SetColor(ColourWarn).
		SetDescription(fmt.Sprintf("Only %d of %d spots are filled. Start anyway?", len(roster), lob.MaxPlayers)).
		SetFooter(fmt.Sprintf("Lobby ID: %d", lob.ID)).
		MessageEmbed
}

// overviewEmbed lists every live lobby.
func overviewEmbed(lobbies []*lobby.Lobby) *discordgo.MessageEmbed {
	msg := NewEmbed("Active Lobbies").SetColor(ColourInfo)

	if len(lobbies) == 0 {
		msg.SetDescription("There are no active lobbies right now.")

		return msg.MessageEmbed
	}

	msg.SetDescription("Here are the currently active lobbies:")

	for _, lob := range lobbies {
		when := "ASAP"
		if !lob.IsASAP() {
			when = fmt.Sprintf("<t:%d:t>", lob.ScheduledAt.Unix())
		}

		msg.AddField(
			fmt.Sprintf("%s %s (ID: %d)", gameEmoji(lob.Game), lob.Game, lob.ID),
			fmt.Sprintf("Owner: <@%s> • %s • Players: %d/%d • Fillers: %d",
				lob.OwnerID, when, len(lob.Players()), lob.MaxPlayers, len(lob.Fillers())))
	}

	return msg.MessageEmbed
}
