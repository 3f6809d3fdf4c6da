// Package discord is the presentation layer of the bot: slash commands,
// lobby message rendering and button interactions.
package discord

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrDiscordConfig            = errors.New("discord config invalid, missing token, app_id or guild_id")
	ErrDiscordCreate            = errors.New("failed to connect to discord")
	ErrDiscordOpen              = errors.New("failed to open discord connection")
	ErrDiscordOverwriteCommands = errors.New("failed to bulk overwrite discord commands")
	ErrDiscordSend              = errors.New("failed to send discord message")
	ErrCommandFailed            = errors.New("command failed")
	ErrDuplicateCommand         = errors.New("duplicate command registration")
)

type Cmd string

const (
	CmdLobby       Cmd = "lobby"
	CmdFlexNow     Cmd = "flexnow"
	CmdClose       Cmd = "close"
	CmdEditTime    Cmd = "edittime"
	CmdShow        Cmd = "show"
	CmdBump        Cmd = "bump"
	CmdForceAdd    Cmd = "forceadd"
	CmdForceRemove Cmd = "forceremove"
	CmdSet         Cmd = "set"
	CmdAddImage    Cmd = "addimage"
	CmdRemoveImage Cmd = "removeimage"
	CmdPing        Cmd = "ping"
	CmdVersion     Cmd = "version"
)

const (
	OptTime      = "time"
	OptLobbySize = "lobby_size"
	OptGame      = "game"
	OptOwner     = "owner"
	OptPlayer    = "player"
	OptTimezone  = "timezone"
	OptURL       = "url"
)

// Button actions embedded in component custom ids. The full id is
// "lobby:<action>:<lobby id>" so a stateless handler can route any press
// back to the right lobby.
type buttonAction string

const (
	actionJoin         buttonAction = "join"
	actionFill         buttonAction = "fill"
	actionLeave        buttonAction = "leave"
	actionStart        buttonAction = "start"
	actionReadyCheck   buttonAction = "readycheck"
	actionClose        buttonAction = "close"
	actionForceAccept  buttonAction = "forceyes"
	actionForceDecline buttonAction = "forceno"
	actionReady        buttonAction = "ready"
	actionNotReady     buttonAction = "notready"
	actionCancelCheck  buttonAction = "cancelcheck"
	actionCloseYes     buttonAction = "closeyes"
	actionCloseNo      buttonAction = "closeno"
)

func buttonID(action buttonAction, lobbyID int) string {
	return fmt.Sprintf("lobby:%s:%d", action, lobbyID)
}

func parseButtonID(customID string) (buttonAction, int, bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 || parts[0] != "lobby" {
		return "", 0, false
	}

	lobbyID, errParse := strconv.Atoi(parts[2])
	if errParse != nil {
		return "", 0, false
	}

	return buttonAction(parts[1]), lobbyID, true
}
