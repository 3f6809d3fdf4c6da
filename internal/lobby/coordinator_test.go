package lobby_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fivestack/lobbybot/internal/lobby"
)

type fakeTimer struct {
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

// fakeClock drives the coordinator's deadlines manually. Timers fire
// synchronously inside advance, in deadline order.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.June, 1, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) After(d time.Duration, fn func()) lobby.CancelFunc {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &fakeTimer{deadline: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, timer)

	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()

		if timer.fired || timer.stopped {
			return false
		}

		timer.stopped = true

		return true
	}
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()

	for {
		timer := c.nextDue()
		if timer == nil {
			return
		}

		timer.fn()
	}
}

func (c *fakeClock) nextDue() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due *fakeTimer

	for _, timer := range c.timers {
		if timer.fired || timer.stopped || timer.deadline.After(c.now) {
			continue
		}

		if due == nil || timer.deadline.Before(due.deadline) {
			due = timer
		}
	}

	if due != nil {
		due.fired = true
	}

	return due
}

type renderCall struct {
	lobbyID      int
	presentation lobby.Presentation
	prev         lobby.MessageHandle
}

// fakeNotifier records every presentation call the coordinator makes.
type fakeNotifier struct {
	mu          sync.Mutex
	nextMsgID   int
	renders     []renderCall
	channelMsgs []string
	dms         map[string][]string
	offers      int
	deleted     []lobby.MessageHandle
	latest      bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{dms: map[string][]string{}, latest: true}
}

func (n *fakeNotifier) RenderLobby(_ context.Context, lob *lobby.Lobby, view lobby.Presentation, channelID string, prev lobby.MessageHandle) (lobby.MessageHandle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextMsgID++
	n.renders = append(n.renders, renderCall{lobbyID: lob.ID, presentation: view, prev: prev})

	return lobby.MessageHandle{ChannelID: channelID, MessageID: strings.Repeat("m", n.nextMsgID)}, nil
}

func (n *fakeNotifier) OfferForceStart(_ context.Context, _ *lobby.Lobby, _ string, _ []*lobby.Participant) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.offers++

	return nil
}

func (n *fakeNotifier) SendChannelMessage(_ context.Context, _ string, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.channelMsgs = append(n.channelMsgs, text)

	return nil
}

func (n *fakeNotifier) SendDirectMessage(_ context.Context, userID string, text string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.dms[userID] = append(n.dms[userID], text)

	return true
}

func (n *fakeNotifier) NotifyLobbyStarted(_ context.Context, lob *lobby.Lobby, _ string, userID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.dms[userID] = append(n.dms[userID], lob.Game+" lobby is starting now")

	return true
}

func (n *fakeNotifier) IsLatestMessage(_ context.Context, _ lobby.MessageHandle) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.latest
}

func (n *fakeNotifier) DeleteMessage(_ context.Context, handle lobby.MessageHandle) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.deleted = append(n.deleted, handle)

	return nil
}

func (n *fakeNotifier) renderCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.renders)
}

func (n *fakeNotifier) hasChannelMsg(substr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, msg := range n.channelMsgs {
		if strings.Contains(msg, substr) {
			return true
		}
	}

	return false
}

func (n *fakeNotifier) setLatest(latest bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.latest = latest
}

func newTestCoordinator(t *testing.T) (*lobby.Coordinator, *lobby.Registry, *fakeClock, *fakeNotifier) {
	t.Helper()

	clock := newFakeClock()
	notifier := newFakeNotifier()
	registry := lobby.NewRegistry(clock.Now)

	settings := lobby.DefaultSettings()
	settings.BumpChannelID = "bump-channel"

	return lobby.NewCoordinator(registry, notifier, clock, settings), registry, clock, notifier
}

func TestCreateRendersAndAutoCloses(t *testing.T) {
	ctx := context.Background()
	coordinator, registry, clock, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 5, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, 1, notifier.renderCount())

	clock.advance(lobby.DefaultSettings().ASAPCloseAfter)

	_, found := registry.ByOwner("owner")
	require.False(t, found)
	require.True(t, notifier.hasChannelMsg("timing out"))
	require.Len(t, notifier.deleted, 1)
	require.True(t, lob.IsCompleted())
}

func TestScheduledCloseDeadline(t *testing.T) {
	ctx := context.Background()
	coordinator, registry, clock, notifier := newTestCoordinator(t)

	scheduledAt := clock.Now().Add(time.Hour * 2)

	_, errCreate := coordinator.Create(ctx, "owner", "general", scheduledAt, 5, "valorant")
	require.NoError(t, errCreate)

	// Scheduled time plus the grace buffer, not the ASAP window.
	clock.advance(time.Hour*4 + time.Minute*59)

	_, found := registry.ByOwner("owner")
	require.True(t, found)

	clock.advance(time.Minute * 2)

	_, found = registry.ByOwner("owner")
	require.False(t, found)
	require.True(t, notifier.hasChannelMsg("timing out"))
}

func TestActiveLobbyAutoCloses(t *testing.T) {
	ctx := context.Background()
	coordinator, registry, clock, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 1, "valorant")
	require.NoError(t, errCreate)

	require.Equal(t, lobby.StartActivated, coordinator.Start(ctx, lob.ID, "owner", false))
	require.True(t, lob.IsActive())
	require.True(t, notifier.hasChannelMsg("starting now"))

	clock.advance(lobby.DefaultSettings().ActiveCloseAfter)

	_, found := registry.ByOwner("owner")
	require.False(t, found)
	require.True(t, notifier.hasChannelMsg("Touch some grass"))
}

func TestStartGuards(t *testing.T) {
	ctx := context.Background()
	coordinator, _, _, _ := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 3, "valorant")
	require.NoError(t, errCreate)

	require.Equal(t, lobby.StartLobbyNotFound, coordinator.Start(ctx, lob.ID+1, "owner", false))
	require.Equal(t, lobby.StartNotParticipant, coordinator.Start(ctx, lob.ID, "stranger", false))
}

func TestForceStartOfferDeclined(t *testing.T) {
	ctx := context.Background()
	coordinator, _, _, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 3, "valorant")
	require.NoError(t, errCreate)

	require.Equal(t, lobby.StartOffered, coordinator.Start(ctx, lob.ID, "owner", false))
	require.Equal(t, 1, notifier.offers)
	require.Equal(t, lobby.Pending, lob.State())

	require.Equal(t, lobby.StartAlreadyPending, coordinator.Start(ctx, lob.ID, "owner", false))

	require.True(t, coordinator.ForceStartDecision(ctx, lob.ID, "owner", false))
	require.Equal(t, lobby.Waiting, lob.State())
	require.True(t, notifier.hasChannelMsg("Did not force start"))
}

func TestForceStartOfferAccepted(t *testing.T) {
	ctx := context.Background()
	coordinator, _, _, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 3, "valorant")
	require.NoError(t, errCreate)

	require.Equal(t, lobby.StartOffered, coordinator.Start(ctx, lob.ID, "owner", false))
	require.True(t, coordinator.ForceStartDecision(ctx, lob.ID, "owner", true))

	require.True(t, lob.IsActive())
	require.True(t, notifier.hasChannelMsg("starting now"))
	require.Len(t, notifier.dms["owner"], 1)
}

func TestForceStartOfferExpires(t *testing.T) {
	ctx := context.Background()
	coordinator, _, clock, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 3, "valorant")
	require.NoError(t, errCreate)

	require.Equal(t, lobby.StartOffered, coordinator.Start(ctx, lob.ID, "owner", false))

	clock.advance(lobby.DefaultSettings().ForceStartWindow)

	require.Equal(t, lobby.Waiting, lob.State())
	require.True(t, notifier.hasChannelMsg("Force start expired"))
}

func TestReadyCheckSupersedesForceStartOffer(t *testing.T) {
	ctx := context.Background()
	coordinator, _, clock, _ := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 3, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "f1", true, false))

	require.Equal(t, lobby.StartOffered, coordinator.Start(ctx, lob.ID, "owner", false))
	require.Equal(t, lobby.Pending, lob.State())

	require.NoError(t, coordinator.BeginReadyCheck(ctx, lob.ID, "owner"))
	require.Equal(t, lobby.ReadyCheck, lob.State())
	require.Len(t, lob.Players(), 2)
	require.Empty(t, lob.Fillers())

	// The abandoned force-start window must not disturb the check.
	clock.advance(lobby.DefaultSettings().ForceStartWindow)
	require.Equal(t, lobby.ReadyCheck, lob.State())
}

func TestReadyCheckAllReadyActivates(t *testing.T) {
	ctx := context.Background()
	coordinator, _, clock, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 2, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "p1", false, false))

	require.NoError(t, coordinator.BeginReadyCheck(ctx, lob.ID, "owner"))
	require.Equal(t, lobby.ReadyCheck, lob.State())
	require.Equal(t, clock.Now().Add(lobby.DefaultSettings().ReadyCheckWindow), lob.ReadyDeadline)
	require.Len(t, notifier.dms["owner"], 1)
	require.Len(t, notifier.dms["p1"], 1)

	require.Equal(t, lobby.ReadyPlayer, coordinator.Ready(ctx, lob.ID, "owner"))
	require.Equal(t, lobby.ReadyCheck, lob.State())

	require.Equal(t, lobby.ReadyPlayer, coordinator.Ready(ctx, lob.ID, "p1"))
	require.True(t, lob.IsActive())
	require.True(t, notifier.hasChannelMsg("starting now"))

	// The superseded ready-check timer must not fire into the active lobby.
	clock.advance(lobby.DefaultSettings().ReadyCheckWindow)
	require.True(t, lob.IsActive())
}

func TestReadyCheckDeclineWithoutFillersEnds(t *testing.T) {
	ctx := context.Background()
	coordinator, _, _, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 2, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "p1", false, false))

	require.NoError(t, coordinator.BeginReadyCheck(ctx, lob.ID, "owner"))
	require.Equal(t, lobby.ReadyPlayer, coordinator.Unready(ctx, lob.ID, "p1"))

	require.Equal(t, lobby.Waiting, lob.State())
	require.False(t, lob.InLobby("p1"))
	require.True(t, notifier.hasChannelMsg("Not enough players were ready"))
}

func TestReadyCheckDeclinePingsFillers(t *testing.T) {
	ctx := context.Background()
	coordinator, _, _, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 3, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "p1", false, false))
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "p2", false, false))
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "f1", true, false))

	require.NoError(t, coordinator.BeginReadyCheck(ctx, lob.ID, "owner"))
	require.Equal(t, lobby.ReadyPlayer, coordinator.Unready(ctx, lob.ID, "p1"))

	require.Equal(t, lobby.ReadyCheck, lob.State())
	require.True(t, notifier.hasChannelMsg("needs a filler"))
	require.Len(t, notifier.dms["f1"], 1)
}

func TestReadyCheckTimeoutCoveredByFiller(t *testing.T) {
	ctx := context.Background()
	coordinator, _, clock, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 2, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "p1", false, false))
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "f1", true, false))

	require.NoError(t, coordinator.BeginReadyCheck(ctx, lob.ID, "owner"))
	require.Equal(t, lobby.ReadyPlayer, coordinator.Ready(ctx, lob.ID, "owner"))
	require.Equal(t, lobby.ReadyFiller, coordinator.Ready(ctx, lob.ID, "f1"))

	// p1 never answers.
	clock.advance(lobby.DefaultSettings().ReadyCheckWindow)

	require.True(t, lob.IsActive())
	require.True(t, notifier.hasChannelMsg("replaced with ready fillers"))

	players := lob.Players()
	require.Len(t, players, 2)
	require.Equal(t, "owner", players[0].ID)
	require.Equal(t, "f1", players[1].ID)

	// The silent player is demoted, not dropped.
	fillers := lob.Fillers()
	require.Len(t, fillers, 1)
	require.Equal(t, "p1", fillers[0].ID)
}

func TestReadyCheckTimeoutWithoutCoverEnds(t *testing.T) {
	ctx := context.Background()
	coordinator, _, clock, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 2, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "p1", false, false))

	require.NoError(t, coordinator.BeginReadyCheck(ctx, lob.ID, "owner"))
	require.Equal(t, lobby.ReadyPlayer, coordinator.Ready(ctx, lob.ID, "owner"))

	clock.advance(lobby.DefaultSettings().ReadyCheckWindow)

	require.Equal(t, lobby.Waiting, lob.State())
	require.True(t, lob.InLobby("p1"))
	require.True(t, notifier.hasChannelMsg("Not enough players were ready"))
}

func TestCancelReadyCheck(t *testing.T) {
	ctx := context.Background()
	coordinator, _, clock, _ := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 2, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "p1", false, false))

	require.NoError(t, coordinator.BeginReadyCheck(ctx, lob.ID, "owner"))
	require.NoError(t, coordinator.CancelReadyCheck(ctx, lob.ID, "owner"))
	require.Equal(t, lobby.Waiting, lob.State())

	// The cancelled window must not fire later.
	clock.advance(lobby.DefaultSettings().ReadyCheckWindow)
	require.Equal(t, lobby.Waiting, lob.State())
}

func TestLeaveLastParticipantCloses(t *testing.T) {
	ctx := context.Background()
	coordinator, registry, _, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 5, "valorant")
	require.NoError(t, errCreate)

	require.Equal(t, lobby.RemoveLobbyEmpty, coordinator.Leave(ctx, lob.ID, "owner"))

	_, found := registry.ByOwner("owner")
	require.False(t, found)
	require.True(t, notifier.hasChannelMsg("last participant left"))
}

func TestActiveLeaveInvitesFiller(t *testing.T) {
	ctx := context.Background()
	coordinator, _, clock, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 2, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "p1", false, false))
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "f1", true, false))
	require.Equal(t, lobby.StartActivated, coordinator.Start(ctx, lob.ID, "owner", false))

	require.Equal(t, lobby.RemovedPlayer, coordinator.Leave(ctx, lob.ID, "p1"))
	require.True(t, notifier.hasChannelMsg("a spot is open for you"))
	require.Len(t, notifier.dms["f1"], 1)

	// The invited filler claims the slot; the invite window must go quiet.
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "f1", false, false))
	clock.advance(lobby.DefaultSettings().FillerInviteWindow)
	require.False(t, notifier.hasChannelMsg("declined their spot"))
}

func TestFillerInviteExpires(t *testing.T) {
	ctx := context.Background()
	coordinator, _, clock, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 2, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "p1", false, false))
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "f1", true, false))
	require.Equal(t, lobby.StartActivated, coordinator.Start(ctx, lob.ID, "owner", false))

	require.Equal(t, lobby.RemovedPlayer, coordinator.Leave(ctx, lob.ID, "p1"))

	clock.advance(lobby.DefaultSettings().FillerInviteWindow)
	require.True(t, notifier.hasChannelMsg("declined their spot"))
}

func TestActiveLeaveWithoutFillers(t *testing.T) {
	ctx := context.Background()
	coordinator, _, _, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 2, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "p1", false, false))
	require.Equal(t, lobby.StartActivated, coordinator.Start(ctx, lob.ID, "owner", false))

	require.Equal(t, lobby.RemovedPlayer, coordinator.Leave(ctx, lob.ID, "p1"))
	require.True(t, notifier.hasChannelMsg("This lobby needs fillers"))
}

func TestVoiceQuorumCloses(t *testing.T) {
	ctx := context.Background()
	coordinator, registry, _, notifier := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 4, "valorant")
	require.NoError(t, errCreate)

	for _, id := range []string{"p1", "p2", "p3"} {
		require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, id, false, false))
	}

	require.Equal(t, lobby.StartActivated, coordinator.Start(ctx, lob.ID, "owner", false))

	for _, id := range []string{"owner", "p1", "p2", "p3"} {
		coordinator.VoiceStateUpdate(ctx, id, "voice-1")
	}

	// Half of four players still in voice keeps the lobby open.
	coordinator.VoiceStateUpdate(ctx, "p1", "")
	coordinator.VoiceStateUpdate(ctx, "p2", "")

	_, found := registry.ByOwner("owner")
	require.True(t, found)

	coordinator.VoiceStateUpdate(ctx, "p3", "")

	_, found = registry.ByOwner("owner")
	require.False(t, found)
	require.True(t, notifier.hasChannelMsg("most players left voice"))
}

func TestVoiceQuorumIgnoresSmallGroups(t *testing.T) {
	ctx := context.Background()
	coordinator, registry, _, _ := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 2, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "p1", false, false))
	require.Equal(t, lobby.StartActivated, coordinator.Start(ctx, lob.ID, "owner", false))

	coordinator.VoiceStateUpdate(ctx, "owner", "voice-1")
	coordinator.VoiceStateUpdate(ctx, "p1", "voice-1")

	// A single remaining occupant is enough for a small group.
	coordinator.VoiceStateUpdate(ctx, "p1", "")

	_, found := registry.ByOwner("owner")
	require.True(t, found)

	coordinator.VoiceStateUpdate(ctx, "owner", "")

	_, found = registry.ByOwner("owner")
	require.False(t, found)
}

func TestVoiceQuorumWaitsForEveryone(t *testing.T) {
	ctx := context.Background()
	coordinator, registry, _, _ := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 2, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "p1", false, false))
	require.Equal(t, lobby.StartActivated, coordinator.Start(ctx, lob.ID, "owner", false))

	// p1 never joined voice, so the heuristic stays dormant.
	coordinator.VoiceStateUpdate(ctx, "owner", "voice-1")
	coordinator.VoiceStateUpdate(ctx, "owner", "")

	_, found := registry.ByOwner("owner")
	require.True(t, found)
}

func TestBumpRefreshesBuriedMessage(t *testing.T) {
	ctx := context.Background()
	coordinator, _, clock, notifier := newTestCoordinator(t)

	_, errCreate := coordinator.Create(ctx, "owner", "bump-channel", time.Time{}, 5, "valorant")
	require.NoError(t, errCreate)
	require.Equal(t, 1, notifier.renderCount())

	notifier.setLatest(false)
	clock.advance(lobby.DefaultSettings().BumpInterval)
	require.Equal(t, 2, notifier.renderCount())

	// A still-visible message is left alone.
	notifier.setLatest(true)
	clock.advance(lobby.DefaultSettings().BumpInterval)
	require.Equal(t, 2, notifier.renderCount())
}

func TestManualBump(t *testing.T) {
	ctx := context.Background()
	coordinator, _, _, notifier := newTestCoordinator(t)

	_, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 5, "valorant")
	require.NoError(t, errCreate)

	require.True(t, coordinator.Bump(ctx, "owner"))
	require.Equal(t, 2, notifier.renderCount())
	require.False(t, coordinator.Bump(ctx, "stranger"))
}

func TestEditTimeReschedulesAutoClose(t *testing.T) {
	ctx := context.Background()
	coordinator, registry, clock, _ := newTestCoordinator(t)

	_, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 5, "valorant")
	require.NoError(t, errCreate)

	require.True(t, coordinator.EditTime(ctx, "owner", clock.Now().Add(time.Hour*12)))

	// The original ASAP deadline has been superseded.
	clock.advance(lobby.DefaultSettings().ASAPCloseAfter)

	_, found := registry.ByOwner("owner")
	require.True(t, found)

	clock.advance(time.Hour * 12)

	_, found = registry.ByOwner("owner")
	require.False(t, found)

	require.False(t, coordinator.EditTime(ctx, "owner", clock.Now()))
}

func TestCloseDeletesRenderedMessage(t *testing.T) {
	ctx := context.Background()
	coordinator, registry, _, notifier := newTestCoordinator(t)

	_, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 5, "valorant")
	require.NoError(t, errCreate)

	require.True(t, coordinator.Close(ctx, "owner"))
	require.Len(t, notifier.deleted, 1)

	_, found := registry.ByOwner("owner")
	require.False(t, found)
	require.False(t, coordinator.Close(ctx, "owner"))
}

func TestJoinClaimsLobbyByID(t *testing.T) {
	ctx := context.Background()
	coordinator, _, _, _ := newTestCoordinator(t)

	lob, errCreate := coordinator.Create(ctx, "owner", "general", time.Time{}, 5, "valorant")
	require.NoError(t, errCreate)

	require.Equal(t, lobby.AddSuccess, coordinator.Join(ctx, lob.ID, "p1", false, false))
	require.Equal(t, lobby.AddAlreadyInLobby, coordinator.Join(ctx, lob.ID, "p1", false, false))
	require.Equal(t, lobby.AddLobbyCompleted, coordinator.Join(ctx, lob.ID+1, "p2", false, false))

	byParticipant := coordinator.ByParticipant("p1", false)
	require.Len(t, byParticipant, 1)
	require.Equal(t, lob.ID, byParticipant[0].ID)
}
