package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/fivestack/lobbybot/internal/lobby"
	"github.com/fivestack/lobbybot/internal/timezone"
)

type CommandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

// OptionMap flattens the slash command options into a simple map.
func OptionMap(options []*discordgo.ApplicationCommandInteractionDataOption) CommandOptions {
	optionM := make(CommandOptions, len(options))
	for _, opt := range options {
		optionM[opt.Name] = opt
	}

	return optionM
}

func (opts CommandOptions) String(key string) string {
	root, found := opts[key]
	if !found {
		return ""
	}

	val, ok := root.Value.(string)
	if !ok {
		return ""
	}

	return val
}

func (opts CommandOptions) Int(key string, fallback int) int {
	root, found := opts[key]
	if !found {
		return fallback
	}

	val, ok := root.Value.(float64)
	if !ok {
		return fallback
	}

	return int(val)
}

func (bot *Bot) registerDefaultHandlers() {
	handlers := map[Cmd]SlashCommandHandler{
		CmdLobby:       bot.onLobby,
		CmdFlexNow:     bot.onFlexNow,
		CmdClose:       bot.onClose,
		CmdEditTime:    bot.onEditTime,
		CmdShow:        bot.onShow,
		CmdBump:        bot.onBump,
		CmdForceAdd:    bot.onForceAdd,
		CmdForceRemove: bot.onForceRemove,
		CmdSet:         bot.onSet,
		CmdAddImage:    bot.onAddImage,
		CmdRemoveImage: bot.onRemoveImage,
		CmdPing:        bot.onPing,
		CmdVersion:     bot.onVersion,
	}

	for cmd, handler := range handlers {
		if errRegister := bot.RegisterHandler(cmd, handler); errRegister != nil {
			slog.Error("Failed to register command handler", slog.String("command", string(cmd)))
		}
	}
}

//nolint:funlen
func (bot *Bot) registerSlashCommands() error {
	optTime := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        OptTime,
		Description: "What time the lobby starts, eg 4PM, 4:20PM or asap/now",
		Required:    true,
	}
	optLobbySize := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        OptLobbySize,
		Description: "Max number of players in the lobby",
		Required:    false,
	}
	optGame := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        OptGame,
		Description: "The game being played",
		Required:    false,
	}
	optPlayer := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        OptPlayer,
		Description: "The player",
		Required:    true,
	}

	var timezoneChoices []*discordgo.ApplicationCommandOptionChoice
	for alias := range timezone.Aliases {
		timezoneChoices = append(timezoneChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  alias,
			Value: alias,
		})
	}

	slashCommands := []*discordgo.ApplicationCommand{
		{
			Name:        string(CmdLobby),
			Description: "Starts a new lobby",
			Options: []*discordgo.ApplicationCommandOption{
				optTime,
				optLobbySize,
				optGame,
			},
		},
		{
			Name:        string(CmdFlexNow),
			Description: "Starts a new flex lobby right now",
			Options: []*discordgo.ApplicationCommandOption{
				optLobbySize,
			},
		},
		{
			Name:        string(CmdClose),
			Description: "Closes your lobby",
		},
		{
			Name:        string(CmdEditTime),
			Description: "Change the start time of your waiting lobby",
			Options: []*discordgo.ApplicationCommandOption{
				optTime,
			},
		},
		{
			Name:        string(CmdShow),
			Description: "Lists all active lobbies",
		},
		{
			Name:        string(CmdBump),
			Description: "Bump your own (or someone else's) lobby",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        OptOwner,
					Description: "The lobby owner",
					Required:    false,
				},
			},
		},
		{
			Name:        string(CmdForceAdd),
			Description: "Force adds a user to your owned lobby",
			Options: []*discordgo.ApplicationCommandOption{
				optPlayer,
			},
		},
		{
			Name:        string(CmdForceRemove),
			Description: "Force removes a user from your owned lobby",
			Options: []*discordgo.ApplicationCommandOption{
				optPlayer,
			},
		},
		{
			Name:        string(CmdSet),
			Description: "Set your time zone",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        OptTimezone,
					Description: "Your time zone",
					Required:    true,
					Choices:     timezoneChoices,
				},
			},
		},
		{
			Name:        string(CmdAddImage),
			Description: "Submit an image to the lobby image pool",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        OptURL,
					Description: "Image url",
					Required:    true,
				},
			},
		},
		{
			Name:        string(CmdRemoveImage),
			Description: "Remove an image from the lobby image pool",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        OptURL,
					Description: "Image url",
					Required:    true,
				},
			},
		},
		{
			Name:        string(CmdPing),
			Description: "Pong!",
		},
		{
			Name:        string(CmdVersion),
			Description: "What version is the bot running?",
		},
	}

	commands, errBulk := bot.session.ApplicationCommandBulkOverwrite(bot.appID, bot.guildID, slashCommands)
	if errBulk != nil {
		return errors.Join(errBulk, ErrDiscordOverwriteCommands)
	}

	bot.commands = commands

	slog.Debug("Registered discord commands", slog.Int("count", len(slashCommands)))

	return nil
}

func successEmbed(text string) *discordgo.MessageEmbed {
	return NewEmbed().SetColor(ColourSuccess).SetDescription(text).MessageEmbed
}

func (bot *Bot) createLobby(ctx context.Context, interaction *discordgo.InteractionCreate, timeInput string, maxPlayers int, game string) (*discordgo.MessageEmbed, error) {
	userID := interactionUserID(interaction)

	zone, errZone := bot.timezones.Get(userID)
	if errZone != nil {
		if errors.Is(errZone, timezone.ErrTimezoneNotSet) {
			return nil, fmt.Errorf("%w: use /set to set your timezone first", errZone)
		}

		return nil, errZone
	}

	scheduledAt, errParse := bot.timezones.ParseTimeInput(timeInput, zone)
	if errParse != nil {
		return nil, fmt.Errorf("%w: use [hour]:[minutes][AM|PM], [hour][AM|PM] or asap/now", timezone.ErrInvalidTime)
	}

	lob, errCreate := bot.coordinator.Create(ctx, userID, interaction.ChannelID, scheduledAt, maxPlayers, game)
	if errCreate != nil {
		if errors.Is(errCreate, lobby.ErrOwnerHasLobby) {
			return nil, fmt.Errorf("%w: close it with /close first", errCreate)
		}

		return nil, errCreate
	}

	return successEmbed(fmt.Sprintf("Lobby %d created!", lob.ID)), nil
}

func (bot *Bot) onLobby(ctx context.Context, _ *discordgo.Session, interaction *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error) {
	opts := OptionMap(interaction.ApplicationCommandData().Options)

	game := opts.String(OptGame)
	if game == "" {
		game = bot.defaultGame
	}

	return bot.createLobby(ctx, interaction, opts.String(OptTime), opts.Int(OptLobbySize, bot.defaultMaxSize), game)
}

func (bot *Bot) onFlexNow(ctx context.Context, _ *discordgo.Session, interaction *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error) {
	opts := OptionMap(interaction.ApplicationCommandData().Options)

	return bot.createLobby(ctx, interaction, "now", opts.Int(OptLobbySize, bot.defaultMaxSize), "flex")
}

func (bot *Bot) onClose(ctx context.Context, _ *discordgo.Session, interaction *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error) {
	if !bot.coordinator.Close(ctx, interactionUserID(interaction)) {
		return nil, lobby.ErrUnknownLobby
	}

	return successEmbed("Your lobby has been closed."), nil
}

func (bot *Bot) onEditTime(ctx context.Context, _ *discordgo.Session, interaction *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error) {
	opts := OptionMap(interaction.ApplicationCommandData().Options)
	userID := interactionUserID(interaction)

	zone, errZone := bot.timezones.Get(userID)
	if errZone != nil {
		if errors.Is(errZone, timezone.ErrTimezoneNotSet) {
			return nil, fmt.Errorf("%w: use /set to set your timezone first", errZone)
		}

		return nil, errZone
	}

	scheduledAt, errParse := bot.timezones.ParseTimeInput(opts.String(OptTime), zone)
	if errParse != nil {
		return nil, fmt.Errorf("%w: use [hour]:[minutes][AM|PM], [hour][AM|PM] or asap/now", timezone.ErrInvalidTime)
	}

	if !bot.coordinator.EditTime(ctx, userID, scheduledAt) {
		return nil, fmt.Errorf("%w: only a waiting lobby can be rescheduled", lobby.ErrUnknownLobby)
	}

	return successEmbed("Lobby time updated."), nil
}

func (bot *Bot) onShow(_ context.Context, _ *discordgo.Session, _ *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error) {
	return overviewEmbed(bot.coordinator.ListActive()), nil
}

func (bot *Bot) onBump(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error) {
	opts := OptionMap(interaction.ApplicationCommandData().Options)

	ownerID := interactionUserID(interaction)
	if opt, found := opts[OptOwner]; found {
		ownerID = opt.UserValue(session).ID
	}

	if !bot.coordinator.Bump(ctx, ownerID) {
		return nil, lobby.ErrUnknownLobby
	}

	return successEmbed("Lobby bumped."), nil
}

func (bot *Bot) onForceAdd(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error) {
	opts := OptionMap(interaction.ApplicationCommandData().Options)

	lob, found := bot.coordinator.ByOwner(interactionUserID(interaction))
	if !found {
		return nil, lobby.ErrUnknownLobby
	}

	target := opts[OptPlayer].UserValue(session)

	result := bot.coordinator.Join(ctx, lob.ID, target.ID, false, true)
	if result != lobby.AddSuccess {
		return nil, fmt.Errorf("%w: %s", ErrCommandFailed, joinReply(result, false))
	}

	return successEmbed(fmt.Sprintf("Force added <@%s> to your lobby.", target.ID)), nil
}

func (bot *Bot) onForceRemove(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error) {
	opts := OptionMap(interaction.ApplicationCommandData().Options)

	lob, found := bot.coordinator.ByOwner(interactionUserID(interaction))
	if !found {
		return nil, lobby.ErrUnknownLobby
	}

	target := opts[OptPlayer].UserValue(session)

	result := bot.coordinator.Leave(ctx, lob.ID, target.ID)
	if result == lobby.RemoveNotInLobby || result == lobby.RemoveLobbyCompleted || result == lobby.RemoveLobbyInReadyCheck {
		return nil, fmt.Errorf("%w: %s", ErrCommandFailed, leaveReply(result))
	}

	return successEmbed(fmt.Sprintf("Force removed <@%s> from your lobby.", target.ID)), nil
}

func (bot *Bot) onSet(_ context.Context, _ *discordgo.Session, interaction *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error) {
	opts := OptionMap(interaction.ApplicationCommandData().Options)

	if errSet := bot.timezones.Set(interactionUserID(interaction), opts.String(OptTimezone)); errSet != nil {
		return nil, errSet
	}

	return successEmbed("Your timezone has been set successfully."), nil
}

func (bot *Bot) onAddImage(ctx context.Context, _ *discordgo.Session, interaction *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error) {
	if errAdd := bot.images.Add(ctx, OptionMap(interaction.ApplicationCommandData().Options).String(OptURL), interactionUserID(interaction)); errAdd != nil {
		return nil, errAdd
	}

	return successEmbed("Image added to the pool."), nil
}

func (bot *Bot) onRemoveImage(_ context.Context, _ *discordgo.Session, interaction *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error) {
	if errRemove := bot.images.Remove(OptionMap(interaction.ApplicationCommandData().Options).String(OptURL)); errRemove != nil {
		return nil, errRemove
	}

	return successEmbed("Image removed from the pool."), nil
}

func (bot *Bot) onPing(_ context.Context, _ *discordgo.Session, _ *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error) {
	return successEmbed("Pong!"), nil
}

func (bot *Bot) onVersion(_ context.Context, _ *discordgo.Session, _ *discordgo.InteractionCreate) (*discordgo.MessageEmbed, error) {
	return successEmbed(bot.version), nil
}
