package lobby

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fivestack/lobbybot/internal/metrics"
	"github.com/fivestack/lobbybot/pkg/log"
)

// Settings holds every tunable window of the lobby lifecycle. The voice
// quorum policy is deliberately configurable; the observed behaviour of the
// bot changed between iterations and no single constant is authoritative.
type Settings struct {
	ForceStartWindow   time.Duration
	ReadyCheckWindow   time.Duration
	BumpInterval       time.Duration
	FillerInviteWindow time.Duration
	ASAPCloseAfter     time.Duration
	ScheduledGrace     time.Duration
	ActiveCloseAfter   time.Duration
	QuorumFraction     float64
	QuorumSmallGroup   int
	BumpChannelID      string
}

func DefaultSettings() Settings {
	return Settings{
		ForceStartWindow:   time.Minute,
		ReadyCheckWindow:   time.Minute * 5,
		BumpInterval:       time.Minute * 5,
		FillerInviteWindow: time.Minute * 5,
		ASAPCloseAfter:     time.Hour * 6,
		ScheduledGrace:     time.Hour * 3,
		ActiveCloseAfter:   time.Hour * 6,
		QuorumFraction:     0.5,
		QuorumSmallGroup:   3,
	}
}

// StartOutcome tells the caller how a start request resolved so it can answer
// the user.
type StartOutcome int

const (
	StartActivated StartOutcome = iota
	StartOffered
	StartAlreadyPending
	StartNotParticipant
	StartLobbyCompleted
	StartLobbyNotFound
)

// view is the per-lobby presentation state: what to render, where the last
// rendered message lives and the cancel handles of every pending timer.
type view struct {
	channelID    string
	presentation Presentation
	msg          MessageHandle
	bump         bool

	cancelAutoClose  CancelFunc
	cancelForceStart CancelFunc
	cancelReadyCheck CancelFunc
	cancelInvite     CancelFunc
	invitedFiller    string
}

// Coordinator turns the pure lobby state machine into a live service. It owns
// every timer and is the only caller of Lobby mutations; a single mutex
// serializes all lobby operations, so user requests and fired timers are
// processed one at a time in arrival order. Timer callbacks re-check lobby
// state before acting and silently stand down when a user action got there
// first.
type Coordinator struct {
	mu       sync.Mutex
	registry *Registry
	notifier Notifier
	clock    Clock
	settings Settings
	views    map[int]*view
}

func NewCoordinator(registry *Registry, notifier Notifier, clock Clock, settings Settings) *Coordinator {
	return &Coordinator{
		registry: registry,
		notifier: notifier,
		clock:    clock,
		settings: settings,
		views:    map[int]*view{},
	}
}

// Create opens a new lobby for ownerID in channelID, renders it and arms its
// auto-close deadline. Lobbies created in the designated bump channel also
// get the periodic visibility refresher.
func (c *Coordinator) Create(ctx context.Context, ownerID string, channelID string, scheduledAt time.Time, maxPlayers int, game string) (*Lobby, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, errCreate := c.registry.CreateLobby(ownerID, scheduledAt, maxPlayers, game)
	if errCreate != nil {
		return nil, errCreate
	}

	c.views[lob.ID] = &view{
		channelID:    channelID,
		presentation: PresentWaiting,
		bump:         channelID != "" && channelID == c.settings.BumpChannelID,
	}

	c.render(ctx, lob)
	c.scheduleAutoClose(lob, Waiting, c.closeDeadline(lob))

	if c.views[lob.ID].bump {
		c.scheduleBump(lob.ID)
	}

	metrics.LobbiesCreated.Inc()

	return lob, nil
}

// Join adds userID to the lobby as a player or filler. A successful player
// join into an active lobby claims any outstanding filler invitation.
func (c *Coordinator) Join(ctx context.Context, lobbyID int, userID string, asFiller bool, forced bool) AddResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByID(lobbyID)
	if !found {
		return AddLobbyCompleted
	}

	var result AddResult
	if asFiller {
		result = lob.AddFiller(userID, forced)
	} else {
		result = lob.AddPlayer(userID, forced)
	}

	if result != AddSuccess {
		return result
	}

	v := c.views[lob.ID]
	if !asFiller && v.invitedFiller != "" {
		v.invitedFiller = ""
		cancel(&v.cancelInvite)
	}

	c.render(ctx, lob)

	return result
}

// Leave removes userID from the lobby. Removing the last participant closes
// the lobby; a player dropping out of an active lobby triggers the filler
// invitation flow.
func (c *Coordinator) Leave(ctx context.Context, lobbyID int, userID string) RemoveResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByID(lobbyID)
	if !found {
		return RemoveLobbyCompleted
	}

	result := lob.RemoveParticipant(userID)

	switch result {
	case RemovedPlayer:
		c.render(ctx, lob)

		if lob.IsActive() {
			c.inviteFiller(ctx, lob)
		}
	case RemovedFiller:
		c.render(ctx, lob)
	case RemoveLobbyEmpty:
		c.closeLobby(ctx, lob, "Lobby is closing as the last participant left.")
	}

	return result
}

// Start attempts to start the lobby, offering a force start when it is short
// of players.
func (c *Coordinator) Start(ctx context.Context, lobbyID int, userID string, force bool) StartOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByID(lobbyID)
	if !found {
		return StartLobbyNotFound
	}

	if lob.IsCompleted() {
		return StartLobbyCompleted
	}

	if !lob.InLobby(userID) {
		return StartNotParticipant
	}

	if !force && lob.State() == Pending {
		return StartAlreadyPending
	}

	started, roster := lob.Start(force)
	if started {
		c.activate(ctx, lob)

		return StartActivated
	}

	v := c.views[lob.ID]
	cancel(&v.cancelForceStart)
	v.cancelForceStart = c.clock.After(c.settings.ForceStartWindow, func() {
		c.forceStartExpired(lobbyID)
	})

	if errOffer := c.notifier.OfferForceStart(ctx, lob, v.channelID, roster); errOffer != nil {
		slog.Warn("Failed to send force start offer", log.ErrAttr(errOffer), slog.Int("lobby_id", lob.ID))
	}

	return StartOffered
}

// ForceStartDecision resolves an open force-start offer. Either answer
// cancels the decision timer.
func (c *Coordinator) ForceStartDecision(ctx context.Context, lobbyID int, userID string, accept bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByID(lobbyID)
	if !found || lob.IsCompleted() || !lob.InLobby(userID) {
		return false
	}

	v := c.views[lob.ID]
	cancel(&v.cancelForceStart)

	if !accept {
		lob.ResetPending()
		c.sendChannel(ctx, lob, "Did not force start. The lobby is still waiting for more players.")
		c.render(ctx, lob)

		return true
	}

	if started, _ := lob.Start(true); started {
		c.activate(ctx, lob)
	}

	return true
}

// forceStartExpired fires when nobody answered the force-start offer. A
// lobby that already moved on is left alone.
func (c *Coordinator) forceStartExpired(lobbyID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByID(lobbyID)
	if !found || lob.State() != Pending {
		return
	}

	ctx := context.Background()

	lob.ResetPending()
	c.sendChannel(ctx, lob, "Force start expired. The lobby is still waiting for more players.")
	c.render(ctx, lob)
}

// BeginReadyCheck snapshots the tentative final roster and opens the
// confirmation window, notifying every player directly.
func (c *Coordinator) BeginReadyCheck(ctx context.Context, lobbyID int, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByID(lobbyID)
	if !found {
		return ErrUnknownLobby
	}

	if !lob.InLobby(userID) {
		return ErrNotParticipant
	}

	if errStart := lob.StartReadyCheck(); errStart != nil {
		return errStart
	}

	v := c.views[lob.ID]
	v.presentation = PresentReadyCheck
	// Supersedes any open force-start offer.
	cancel(&v.cancelForceStart)
	cancel(&v.cancelReadyCheck)
	v.cancelReadyCheck = c.clock.After(c.settings.ReadyCheckWindow, func() {
		c.readyCheckExpired(lobbyID)
	})

	deadline := c.clock.Now().Add(c.settings.ReadyCheckWindow)
	lob.ReadyDeadline = deadline

	c.render(ctx, lob)

	for _, player := range lob.Players() {
		c.sendDM(ctx, player.ID, fmt.Sprintf("%s's %s lobby ready check has started! The deadline to respond is <t:%d:R>.",
			mention(lob.OwnerID), lob.Game, deadline.Unix()))
	}

	metrics.ReadyChecksStarted.Inc()

	return nil
}

// Ready records an affirmative ready-check answer and activates the lobby
// once everyone answered.
func (c *Coordinator) Ready(ctx context.Context, lobbyID int, userID string) ReadyResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByID(lobbyID)
	if !found || lob.State() != ReadyCheck {
		return ReadyNotInLobby
	}

	result := lob.ReadyUp(userID)
	if result != ReadyPlayer && result != ReadyFiller {
		return result
	}

	if lob.AllReady(false) {
		c.startFromReadyCheck(ctx, lob)
	} else {
		c.render(ctx, lob)
	}

	return result
}

// Unready records a negative answer. A declining player with no fillers to
// cover ends the check immediately; otherwise the fillers are pinged for a
// replacement.
func (c *Coordinator) Unready(ctx context.Context, lobbyID int, userID string) ReadyResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByID(lobbyID)
	if !found || lob.State() != ReadyCheck {
		return ReadyNotInLobby
	}

	result := lob.Unready(userID)

	switch result {
	case ReadyPlayer:
		if len(lob.Fillers()) == 0 {
			c.endReadyCheck(ctx, lob)

			if !lob.IsCompleted() {
				c.sendChannel(ctx, lob, fmt.Sprintf("Not enough players were ready after %s declined. Lobby is returning to waiting state.", mention(userID)))
			}

			return result
		}

		if lob.AllReady(false) {
			c.startFromReadyCheck(ctx, lob)

			return result
		}

		c.render(ctx, lob)

		var mentions []string
		for _, filler := range lob.Fillers() {
			mentions = append(mentions, mention(filler.ID))
		}

		c.sendChannel(ctx, lob, fmt.Sprintf("Player %s is not ready! This lobby needs a filler! %s",
			mention(userID), strings.Join(mentions, " ")))

		for _, filler := range lob.Fillers() {
			if !filler.IsPendingReady() {
				continue
			}

			c.sendDM(ctx, filler.ID, fmt.Sprintf("%s's %s lobby is about to start and needs fillers!", mention(lob.OwnerID), lob.Game))
		}
	case ReadyFiller:
		c.render(ctx, lob)
	}

	return result
}

// CancelReadyCheck abandons an open ready check and returns the lobby to
// waiting.
func (c *Coordinator) CancelReadyCheck(ctx context.Context, lobbyID int, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByID(lobbyID)
	if !found || lob.State() != ReadyCheck {
		return ErrUnknownLobby
	}

	if !lob.InLobby(userID) {
		return ErrNotParticipant
	}

	c.endReadyCheck(ctx, lob)

	return nil
}

// readyCheckExpired fires when the confirmation window closes. Anyone still
// pending counts as declined: enough ready fillers means the lobby starts
// without them, otherwise the check is abandoned.
func (c *Coordinator) readyCheckExpired(lobbyID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByID(lobbyID)
	if !found || lob.State() != ReadyCheck {
		return
	}

	ctx := context.Background()

	if lob.AllReady(true) {
		c.sendChannel(ctx, lob, "Ready check timing out... Any pending or declined players are being replaced with ready fillers.")
		c.startFromReadyCheck(ctx, lob)

		return
	}

	c.sendChannel(ctx, lob, "Ready check timing out... Not enough players were ready! Lobby is returning to waiting for more players.")
	c.endReadyCheck(ctx, lob)
}

func (c *Coordinator) startFromReadyCheck(ctx context.Context, lob *Lobby) {
	v := c.views[lob.ID]
	cancel(&v.cancelReadyCheck)

	if errStart := lob.StartFromReadyCheck(); errStart != nil {
		slog.Error("Failed to start lobby from ready check", log.ErrAttr(errStart), slog.Int("lobby_id", lob.ID))

		return
	}

	c.activate(ctx, lob)
}

func (c *Coordinator) endReadyCheck(ctx context.Context, lob *Lobby) {
	v := c.views[lob.ID]
	cancel(&v.cancelReadyCheck)

	if empty := lob.EndReadyCheck(); empty {
		c.closeLobby(ctx, lob, fmt.Sprintf("%s's lobby is closing as there are no players or fillers ready to play.", mention(lob.OwnerID)))

		return
	}

	v.presentation = PresentWaiting
	c.scheduleAutoClose(lob, Waiting, c.closeDeadline(lob))
	c.render(ctx, lob)
}

// Close shuts down the owner's lobby on request.
func (c *Coordinator) Close(ctx context.Context, ownerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByOwner(ownerID)
	if !found {
		return false
	}

	c.closeLobby(ctx, lob, "")

	return true
}

// Bump re-renders the owner's lobby message on demand.
func (c *Coordinator) Bump(ctx context.Context, ownerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByOwner(ownerID)
	if !found {
		return false
	}

	c.render(ctx, lob)

	return true
}

// EditTime moves a waiting lobby to a new scheduled time and re-arms its
// auto-close deadline. The superseded timer becomes a stale no-op.
func (c *Coordinator) EditTime(ctx context.Context, ownerID string, scheduledAt time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByOwner(ownerID)
	if !found || lob.State() != Waiting {
		return false
	}

	lob.EditTime(scheduledAt)
	c.scheduleAutoClose(lob, Waiting, c.closeDeadline(lob))
	c.render(ctx, lob)

	return true
}

// ListActive returns every live lobby.
func (c *Coordinator) ListActive() []*Lobby {
	return c.registry.Active()
}

// ByOwner looks up the owner's live lobby.
func (c *Coordinator) ByOwner(ownerID string) (*Lobby, bool) {
	return c.registry.ByOwner(ownerID)
}

// ByID looks up a live lobby by its id.
func (c *Coordinator) ByID(lobbyID int) (*Lobby, bool) {
	return c.registry.ByID(lobbyID)
}

// ByParticipant returns every lobby the user currently participates in.
func (c *Coordinator) ByParticipant(userID string, activeOnly bool) []*Lobby {
	return c.registry.ByParticipant(userID, activeOnly)
}

// VoiceStateUpdate records a presence change for every lobby the user is in
// and evaluates the voice auto-close heuristic for active ones. The check
// only arms once every current player has been in voice since activation,
// and only evaluates when someone leaves a channel.
func (c *Coordinator) VoiceStateUpdate(ctx context.Context, userID string, channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, lob := range c.registry.ByParticipant(userID, false) {
		lob.SetVoicePresence(userID, channelID)

		if !lob.IsActive() || channelID != "" {
			continue
		}

		if !lob.AllPlayersJoinedVoice() {
			continue
		}

		threshold := c.voiceThreshold(len(lob.Players()))
		stillActive := false

		for _, occupants := range lob.VoiceOccupancy() {
			if float64(occupants) >= threshold {
				stillActive = true

				break
			}
		}

		if !stillActive {
			slog.Info("Auto-closing lobby, players left voice", slog.Int("lobby_id", lob.ID))
			c.closeLobby(ctx, lob, fmt.Sprintf("%s's lobby is closing because most players left voice!", mention(lob.OwnerID)))
		}
	}
}

// voiceThreshold is the per-channel occupancy a lobby needs to stay open.
// Small groups only need a single remaining occupant; larger ones a fraction
// of the current player count.
func (c *Coordinator) voiceThreshold(players int) float64 {
	if players > c.settings.QuorumSmallGroup {
		return float64(players) * c.settings.QuorumFraction
	}

	return 1
}

// activate finalizes a start: active presentation, fresh auto-close window,
// voice baseline latch, announcements and player DMs.
func (c *Coordinator) activate(ctx context.Context, lob *Lobby) {
	v := c.views[lob.ID]
	v.presentation = PresentActive

	c.scheduleAutoClose(lob, Active, c.settings.ActiveCloseAfter)

	lob.LatchVoiceBaseline()

	var mentions []string
	for _, player := range lob.Players() {
		mentions = append(mentions, mention(player.ID))
	}

	c.sendChannel(ctx, lob, fmt.Sprintf("%s %s's %s lobby is starting now!", strings.Join(mentions, " "), mention(lob.OwnerID), lob.Game))
	c.render(ctx, lob)

	for _, player := range lob.Players() {
		if delivered := c.notifier.NotifyLobbyStarted(ctx, lob, v.channelID, player.ID); !delivered {
			slog.Warn("Failed to deliver start notification", slog.String("user_id", player.ID), slog.Int("lobby_id", lob.ID))
		}
	}

	metrics.LobbiesStarted.Inc()
}

// inviteFiller offers an opened slot to the earliest joined filler. If they
// have not claimed it when the window closes the slot is broadcast to every
// filler.
func (c *Coordinator) inviteFiller(ctx context.Context, lob *Lobby) {
	fillers := lob.Fillers()
	if len(fillers) == 0 {
		c.sendChannel(ctx, lob, "There are no fillers! This lobby needs fillers!")

		return
	}

	v := c.views[lob.ID]
	invited := fillers[0]
	v.invitedFiller = invited.ID

	c.sendChannel(ctx, lob, fmt.Sprintf("A player dropped out! %s, a spot is open for you.", mention(invited.ID)))
	c.sendDM(ctx, invited.ID, fmt.Sprintf("A spot opened up in %s's %s lobby! Claim it before someone else does.", mention(lob.OwnerID), lob.Game))

	lobbyID := lob.ID

	cancel(&v.cancelInvite)
	v.cancelInvite = c.clock.After(c.settings.FillerInviteWindow, func() {
		c.fillerInviteExpired(lobbyID)
	})
}

// fillerInviteExpired broadcasts the still-open slot to all fillers once the
// invited one failed to claim it.
func (c *Coordinator) fillerInviteExpired(lobbyID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByID(lobbyID)
	if !found || !lob.IsActive() || lob.IsFull() {
		return
	}

	v := c.views[lob.ID]
	if v.invitedFiller == "" {
		return
	}

	ctx := context.Background()

	parts := []string{fmt.Sprintf("%s declined their spot. Anyone is free to join.", mention(v.invitedFiller))}
	for _, filler := range lob.Fillers() {
		parts = append(parts, mention(filler.ID))
	}

	v.invitedFiller = ""
	c.sendChannel(ctx, lob, strings.Join(parts, " "))
}

// scheduleBump re-renders the lobby message periodically while newer channel
// traffic has buried it, until the lobby completes.
func (c *Coordinator) scheduleBump(lobbyID int) {
	c.clock.After(c.settings.BumpInterval, func() {
		c.bumpExpired(lobbyID)
	})
}

func (c *Coordinator) bumpExpired(lobbyID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByID(lobbyID)
	if !found || lob.IsCompleted() {
		return
	}

	ctx := context.Background()

	v := c.views[lob.ID]
	if v.msg.IsZero() || !c.notifier.IsLatestMessage(ctx, v.msg) {
		c.render(ctx, lob)
	}

	c.scheduleBump(lobbyID)
}

// closeDeadline computes how long a waiting lobby may live: a fixed window
// for ASAP lobbies, the scheduled time plus a grace buffer otherwise.
func (c *Coordinator) closeDeadline(lob *Lobby) time.Duration {
	if lob.IsASAP() {
		return c.settings.ASAPCloseAfter
	}

	return lob.ScheduledAt.Sub(c.clock.Now()) + c.settings.ScheduledGrace
}

// scheduleAutoClose arms the lobby's deadline. The fired callback compares
// the recorded expected state with the current one so a superseded timer
// degrades to a no-op, but an explicit cancel handle is kept for manual
// close.
func (c *Coordinator) scheduleAutoClose(lob *Lobby, expect State, after time.Duration) {
	v := c.views[lob.ID]
	lobbyID := lob.ID

	cancel(&v.cancelAutoClose)
	v.cancelAutoClose = c.clock.After(after, func() {
		c.autoCloseExpired(lobbyID, expect)
	})
}

func (c *Coordinator) autoCloseExpired(lobbyID int, expect State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lob, found := c.registry.ByID(lobbyID)
	if !found || lob.State() != expect {
		return
	}

	ctx := context.Background()

	slog.Info("Auto-closing lobby, deadline reached", slog.Int("lobby_id", lob.ID), slog.String("state", lob.State().String()))

	text := fmt.Sprintf("%s's lobby timing out. Closing lobby.", mention(lob.OwnerID))
	if lob.IsActive() {
		text = fmt.Sprintf("%s's lobby timing out. You've been playing for a while. Touch some grass.", mention(lob.OwnerID))
	}

	c.closeLobby(ctx, lob, text)
}

// closeLobby is the single path out of the registry: cancels every timer,
// removes the rendered message and ends the lobby. A non-empty text is
// posted to the channel first.
func (c *Coordinator) closeLobby(ctx context.Context, lob *Lobby, text string) {
	if text != "" {
		c.sendChannel(ctx, lob, text)
	}

	v := c.views[lob.ID]
	if v != nil {
		cancel(&v.cancelAutoClose)
		cancel(&v.cancelForceStart)
		cancel(&v.cancelReadyCheck)
		cancel(&v.cancelInvite)

		if !v.msg.IsZero() {
			if errDelete := c.notifier.DeleteMessage(ctx, v.msg); errDelete != nil {
				slog.Warn("Failed to delete lobby message", log.ErrAttr(errDelete), slog.Int("lobby_id", lob.ID))
			}
		}

		delete(c.views, lob.ID)
	}

	c.registry.CloseLobby(lob.OwnerID)

	metrics.LobbiesClosed.Inc()
}

// render replaces the lobby message with a fresh one. Failures are logged
// and never undo the state change that triggered the render.
func (c *Coordinator) render(ctx context.Context, lob *Lobby) {
	v := c.views[lob.ID]
	if v == nil {
		return
	}

	handle, errRender := c.notifier.RenderLobby(ctx, lob, v.presentation, v.channelID, v.msg)
	if errRender != nil {
		slog.Warn("Failed to render lobby", log.ErrAttr(errRender), slog.Int("lobby_id", lob.ID))

		return
	}

	v.msg = handle
}

func (c *Coordinator) sendChannel(ctx context.Context, lob *Lobby, text string) {
	v := c.views[lob.ID]
	if v == nil {
		return
	}

	if errSend := c.notifier.SendChannelMessage(ctx, v.channelID, text); errSend != nil {
		slog.Warn("Failed to send channel message", log.ErrAttr(errSend), slog.Int("lobby_id", lob.ID))
	}
}

func (c *Coordinator) sendDM(ctx context.Context, userID string, text string) {
	if delivered := c.notifier.SendDirectMessage(ctx, userID, text); !delivered {
		slog.Warn("Failed to deliver direct message", slog.String("user_id", userID))
	}
}

func mention(id string) string {
	return "<@" + id + ">"
}

// cancel stops a timer through its handle and clears it.
func cancel(fn *CancelFunc) {
	if *fn != nil {
		(*fn)()
		*fn = nil
	}
}
