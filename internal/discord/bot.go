package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/ratelimit"

	"github.com/fivestack/lobbybot/internal/config"
	"github.com/fivestack/lobbybot/internal/images"
	"github.com/fivestack/lobbybot/internal/lobby"
	"github.com/fivestack/lobbybot/internal/timezone"
	"github.com/fivestack/lobbybot/pkg/log"
)

type SlashCommandHandler func(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error)

// Bot owns the discord session and routes every interaction into the lobby
// coordinator. It also implements lobby.Notifier so the coordinator can
// render lobbies and push notifications back out.
type Bot struct {
	session         *discordgo.Session
	isReady         atomic.Bool
	token           string
	appID           string
	guildID         string
	version         string
	defaultGame     string
	defaultMaxSize  int
	coordinator     *lobby.Coordinator
	timezones       *timezone.Store
	images          *images.Store
	commands        []*discordgo.ApplicationCommand
	commandHandlers map[Cmd]SlashCommandHandler

	// renderLimit keeps lobby re-renders under the discord message rate
	// limit; renders are frequent during join bursts and bump cycles.
	renderLimit ratelimit.Limiter
}

func New(conf config.DiscordConfig, general config.GeneralConfig, timezones *timezone.Store, imagePool *images.Store, version string) (*Bot, error) {
	if conf.Token == "" || conf.AppID == "" || conf.GuildID == "" {
		return nil, ErrDiscordConfig
	}

	bot := &Bot{
		token:           conf.Token,
		appID:           conf.AppID,
		guildID:         conf.GuildID,
		version:         version,
		defaultGame:     general.Game,
		defaultMaxSize:  general.MaxPlayers,
		timezones:       timezones,
		images:          imagePool,
		commandHandlers: map[Cmd]SlashCommandHandler{},
		renderLimit:     ratelimit.New(1, ratelimit.Per(time.Second)),
	}

	bot.registerDefaultHandlers()

	return bot, nil
}

// BindCoordinator attaches the coordinator after construction. The bot and
// the coordinator reference each other, so one side has to bind late.
func (bot *Bot) BindCoordinator(coordinator *lobby.Coordinator) {
	bot.coordinator = coordinator
}

func (bot *Bot) RegisterHandler(cmd Cmd, handler SlashCommandHandler) error {
	if _, found := bot.commandHandlers[cmd]; found {
		return ErrDuplicateCommand
	}

	bot.commandHandlers[cmd] = handler

	return nil
}

func (bot *Bot) Start(_ context.Context) error {
	session, errNewSession := discordgo.New("Bot " + bot.token)
	if errNewSession != nil {
		return errors.Join(errNewSession, ErrDiscordCreate)
	}

	session.UserAgent = "lobbybot (https://github.com/fivestack/lobbybot)"
	session.Identify.Intents |= discordgo.IntentsGuildMessages
	session.Identify.Intents |= discordgo.IntentsGuildVoiceStates
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onConnect)
	session.AddHandler(bot.onDisconnect)
	session.AddHandler(bot.onInteractionCreate)
	session.AddHandler(bot.onVoiceStateUpdate)

	bot.session = session

	if errSessionOpen := session.Open(); errSessionOpen != nil {
		return errors.Join(errSessionOpen, ErrDiscordOpen)
	}

	return nil
}

func (bot *Bot) Shutdown() {
	if bot.session != nil {
		defer log.Closer(bot.session)
	}
}

func (bot *Bot) onReady(session *discordgo.Session, _ *discordgo.Ready) {
	slog.Info("Discord state changed", slog.String("state", "ready"), slog.String("username",
		fmt.Sprintf("%v#%v", session.State.User.Username, session.State.User.Discriminator)))
}

func (bot *Bot) onConnect(_ *discordgo.Session, _ *discordgo.Connect) {
	if errRegister := bot.registerSlashCommands(); errRegister != nil {
		slog.Error("Failed to register discord slash commands", log.ErrAttr(errRegister))
	}

	slog.Info("Discord state changed", slog.String("state", "connected"))

	bot.isReady.Store(true)
}

func (bot *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	bot.isReady.Store(false)

	slog.Info("Discord state changed", slog.String("state", "disconnected"))
}

func (bot *Bot) onVoiceStateUpdate(_ *discordgo.Session, update *discordgo.VoiceStateUpdate) {
	bot.coordinator.VoiceStateUpdate(context.Background(), update.UserID, update.ChannelID)
}

// onInteractionCreate routes slash commands and button presses. Slash
// commands get the deferred-response treatment since discord times out
// interactions within a few seconds.
func (bot *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	switch interaction.Type { //nolint:exhaustive
	case discordgo.InteractionApplicationCommand:
		bot.onSlashCommand(session, interaction)
	case discordgo.InteractionMessageComponent:
		bot.onComponent(session, interaction)
	}
}

func (bot *Bot) onSlashCommand(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	var (
		data    = interaction.ApplicationCommandData()
		command = Cmd(data.Name)
	)

	handler, handlerFound := bot.commandHandlers[command]
	if !handlerFound {
		return
	}

	initialResponse := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	}

	if errRespond := session.InteractionRespond(interaction.Interaction, initialResponse); errRespond != nil {
		slog.Error("Failed sending initial response for interaction", log.ErrAttr(errRespond))

		return
	}

	commandCtx, cancelCommand := context.WithTimeout(context.Background(), time.Second*30)
	defer cancelCommand()

	response, errHandleCommand := handler(commandCtx, session, interaction)
	if errHandleCommand != nil || response == nil {
		response = NewEmbed("Error").
			SetColor(ColourError).
			SetDescription(errDescription(errHandleCommand)).
			MessageEmbed
	}

	embeds := []*discordgo.MessageEmbed{response}
	if _, errEdit := session.InteractionResponseEdit(interaction.Interaction, &discordgo.WebhookEdit{
		Embeds: &embeds,
	}); errEdit != nil {
		slog.Error("Failed sending response for interaction", log.ErrAttr(errEdit))
	}
}

func errDescription(err error) string {
	if err == nil {
		return ErrCommandFailed.Error()
	}

	return err.Error()
}

func interactionUserID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}

	if interaction.User != nil {
		return interaction.User.ID
	}

	return ""
}
