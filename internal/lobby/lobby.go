package lobby

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Lobby owns one roster (players + fillers) and one state machine instance.
// It is purely synchronous: no I/O, no timers, no locks. All mutation happens
// through its methods from a single logical thread of control; the Coordinator
// provides that serialization.
type Lobby struct {
	ID          int
	OwnerID     string
	ScheduledAt time.Time // zero value means "ASAP"
	MaxPlayers  int
	Game        string
	CreatedAt   time.Time
	StartedAt   time.Time // zero until the lobby first becomes Active

	// ReadyDeadline is when the current ready check window closes. Set by the
	// Coordinator for display purposes only; the timer itself lives there.
	ReadyDeadline time.Time

	state   State
	players []*Participant
	fillers []*Participant

	now func() time.Time
}

func newLobby(id int, ownerID string, scheduledAt time.Time, maxPlayers int, game string, now func() time.Time) *Lobby {
	return &Lobby{
		ID:          id,
		OwnerID:     ownerID,
		ScheduledAt: scheduledAt,
		MaxPlayers:  maxPlayers,
		Game:        game,
		CreatedAt:   now(),
		state:       Waiting,
		players:     []*Participant{newParticipant(ownerID, false)},
		fillers:     []*Participant{},
		now:         now,
	}
}

func (l *Lobby) State() State {
	return l.state
}

func (l *Lobby) IsActive() bool {
	return l.state == Active
}

func (l *Lobby) IsCompleted() bool {
	return l.state == Completed
}

// IsASAP reports whether the lobby was scheduled to start as soon as possible
// rather than at a concrete time.
func (l *Lobby) IsASAP() bool {
	return l.ScheduledAt.IsZero()
}

func (l *Lobby) IsFull() bool {
	return len(l.players) >= l.MaxPlayers
}

func (l *Lobby) canTransition(next State) bool {
	return slices.Contains(transitions[l.state], next)
}

// transition moves the state machine. An illegal transition indicates a
// Coordinator bug, never bad user input, so it fails loudly and leaves the
// state untouched.
func (l *Lobby) transition(next State) error {
	if !l.canTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, next)
	}

	l.state = next

	return nil
}

// Players returns the roster entries counted toward capacity, in join order.
func (l *Lobby) Players() []*Participant {
	return slices.Clone(l.players)
}

// Fillers returns the backup entries, in join order. Earliest joined is
// promoted first.
func (l *Lobby) Fillers() []*Participant {
	return slices.Clone(l.fillers)
}

// Participants returns players followed by fillers.
func (l *Lobby) Participants() []*Participant {
	return append(l.Players(), l.fillers...)
}

func (l *Lobby) IsPlayer(id string) bool {
	return l.findPlayer(id) != nil
}

func (l *Lobby) InLobby(id string) bool {
	return l.findPlayer(id) != nil || l.findFiller(id) != nil
}

func (l *Lobby) findPlayer(id string) *Participant {
	for _, p := range l.players {
		if p.ID == id {
			return p
		}
	}

	return nil
}

func (l *Lobby) findFiller(id string) *Participant {
	for _, f := range l.fillers {
		if f.ID == id {
			return f
		}
	}

	return nil
}

func (l *Lobby) findParticipant(id string) *Participant {
	if p := l.findPlayer(id); p != nil {
		return p
	}

	return l.findFiller(id)
}

// EditTime changes the scheduled time of the lobby. The caller is responsible
// for rescheduling any deadline derived from the old value.
func (l *Lobby) EditTime(scheduledAt time.Time) {
	l.ScheduledAt = scheduledAt
}

// AddPlayer adds id to the player list. A participant already in the filler
// list is moved, keeping their readiness and voice snapshot and taking the new
// forced flag.
func (l *Lobby) AddPlayer(id string, forced bool) AddResult {
	if l.state == Completed {
		return AddLobbyCompleted
	}

	if l.state == ReadyCheck {
		return AddLobbyInReadyCheck
	}

	if l.IsPlayer(id) {
		return AddAlreadyInLobby
	}

	if len(l.players) >= l.MaxPlayers {
		return AddLobbyFull
	}

	participant := l.findFiller(id)
	if participant != nil {
		l.fillers = slices.DeleteFunc(l.fillers, func(f *Participant) bool { return f.ID == id })
		participant.Forced = forced
	} else {
		participant = newParticipant(id, forced)
	}

	l.players = append(l.players, participant)

	return AddSuccess
}

// AddFiller adds id to the filler list. Moving an existing player into the
// fillers is a demotion and still succeeds.
func (l *Lobby) AddFiller(id string, forced bool) AddResult {
	if l.state == Completed {
		return AddLobbyCompleted
	}

	if l.state == ReadyCheck {
		return AddLobbyInReadyCheck
	}

	if l.findFiller(id) != nil {
		return AddAlreadyInLobby
	}

	participant := l.findPlayer(id)
	if participant != nil {
		l.players = slices.DeleteFunc(l.players, func(p *Participant) bool { return p.ID == id })
		participant.Forced = forced
	} else {
		participant = newParticipant(id, forced)
	}

	l.fillers = append(l.fillers, participant)

	return AddSuccess
}

// RemoveParticipant removes id from whichever list holds it. When the removal
// empties the lobby entirely the result is RemoveLobbyEmpty regardless of
// which list they were in.
func (l *Lobby) RemoveParticipant(id string) RemoveResult {
	if l.state == Completed {
		return RemoveLobbyCompleted
	}

	if l.state == ReadyCheck {
		return RemoveLobbyInReadyCheck
	}

	var result RemoveResult

	switch {
	case l.IsPlayer(id):
		l.players = slices.DeleteFunc(l.players, func(p *Participant) bool { return p.ID == id })
		result = RemovedPlayer
	case l.findFiller(id) != nil:
		l.fillers = slices.DeleteFunc(l.fillers, func(f *Participant) bool { return f.ID == id })
		result = RemovedFiller
	default:
		return RemoveNotInLobby
	}

	if len(l.players) == 0 && len(l.fillers) == 0 {
		return RemoveLobbyEmpty
	}

	return result
}

// finalRoster is the player list extended by however many fillers are needed
// to reach capacity, in filler join order.
func (l *Lobby) finalRoster() []*Participant {
	needed := l.MaxPlayers - len(l.players)
	if needed <= 0 {
		return slices.Clone(l.players)
	}

	if needed > len(l.fillers) {
		needed = len(l.fillers)
	}

	return append(slices.Clone(l.players), l.fillers[:needed]...)
}

// Start attempts to activate the lobby. Legal only from Waiting or Pending.
// When the final roster reaches capacity, or force is set, the consumed
// fillers are promoted, StartedAt is stamped and the lobby becomes Active.
// Otherwise the lobby moves to Pending and the returned roster tells the
// caller how short it is.
func (l *Lobby) Start(force bool) (bool, []*Participant) {
	if l.state != Waiting && l.state != Pending {
		return false, nil
	}

	final := l.finalRoster()

	if len(final) != l.MaxPlayers && !force {
		// Already Pending when a force-start offer is re-issued.
		if l.state == Waiting {
			_ = l.transition(Pending)
		}

		return false, final
	}

	_ = l.transition(Active)

	promoted := len(final) - len(l.players)
	if promoted > 0 {
		l.players = append(l.players, l.fillers[:promoted]...)
		l.fillers = slices.Delete(l.fillers, 0, promoted)
	}

	l.StartedAt = l.now()

	return true, final
}

// ResetPending returns a Pending lobby to Waiting, used when a force-start
// offer is declined or expires. No-op in any other state.
func (l *Lobby) ResetPending() {
	if l.state == Pending {
		_ = l.transition(Waiting)
	}
}

// StartReadyCheck snapshots the final roster as the player list and begins a
// confirmation round. Readiness of every participant is reset to pending. The
// roster is only touched once the transition is known to be legal.
func (l *Lobby) StartReadyCheck() error {
	if !l.canTransition(ReadyCheck) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, ReadyCheck)
	}

	needed := l.MaxPlayers - len(l.players)
	if needed > 0 {
		if needed > len(l.fillers) {
			needed = len(l.fillers)
		}

		l.players = append(l.players, l.fillers[:needed]...)
		l.fillers = slices.Delete(l.fillers, 0, needed)
	}

	for _, participant := range l.Participants() {
		participant.ResetReady()
	}

	return l.transition(ReadyCheck)
}

// ReadyUp records an affirmative answer. Someone who is neither a player nor
// a filler is added as a fresh filler first; this is how late volunteers get
// picked up during a ready check.
func (l *Lobby) ReadyUp(id string) ReadyResult {
	if player := l.findPlayer(id); player != nil {
		if player.IsReady() {
			return ReadyAlreadyReady
		}

		player.ReadyUp()

		return ReadyPlayer
	}

	filler := l.findFiller(id)
	if filler == nil {
		filler = newParticipant(id, false)
		l.fillers = append(l.fillers, filler)
	}

	if filler.IsReady() {
		return ReadyAlreadyReady
	}

	filler.ReadyUp()

	return ReadyFiller
}

// Unready records a negative answer.
func (l *Lobby) Unready(id string) ReadyResult {
	participant := l.findParticipant(id)
	if participant == nil {
		return ReadyNotInLobby
	}

	if participant.IsNotReady() {
		return ReadyAlreadyNotReady
	}

	participant.Unready()

	if l.IsPlayer(id) {
		return ReadyPlayer
	}

	return ReadyFiller
}

// AllReady reports whether the check can conclude successfully: either every
// player confirmed, or every decline is covered by a ready filler while all
// remaining players confirmed.
func (l *Lobby) AllReady(treatPendingAsDeclined bool) bool {
	var playersReady, declined int

	for _, player := range l.players {
		switch {
		case player.IsReady():
			playersReady++
		case player.IsNotReady():
			declined++
		case treatPendingAsDeclined:
			declined++
		}
	}

	if declined == 0 {
		return playersReady == len(l.players)
	}

	var fillersReady int

	for _, filler := range l.fillers {
		if filler.IsReady() {
			fillersReady++
		}
	}

	return playersReady == len(l.players)-declined && fillersReady >= declined
}

// EndReadyCheck abandons the confirmation round: everyone who declined is
// dropped, everyone else is reset to pending and the lobby returns to
// Waiting. Returns true when the drop emptied the lobby, in which case no
// transition happens and the caller must close it.
func (l *Lobby) EndReadyCheck() bool {
	l.players = slices.DeleteFunc(l.players, func(p *Participant) bool { return p.IsNotReady() })
	l.fillers = slices.DeleteFunc(l.fillers, func(f *Participant) bool { return f.IsNotReady() })

	for _, participant := range l.Participants() {
		participant.ResetReady()
	}

	if len(l.players) == 0 && len(l.fillers) == 0 {
		return true
	}

	_ = l.transition(Waiting)

	return false
}

// StartFromReadyCheck activates the lobby with everyone who confirmed: ready
// players topped up with ready fillers in filler order. Players who never
// answered are demoted to fillers rather than dropped.
func (l *Lobby) StartFromReadyCheck() error {
	if l.state != ReadyCheck {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, Active)
	}

	var final, demoted []*Participant

	for _, player := range l.players {
		if player.IsReady() {
			final = append(final, player)
		} else {
			demoted = append(demoted, player)
		}
	}

	remaining := l.fillers
	l.fillers = []*Participant{}

	for _, filler := range remaining {
		if filler.IsReady() && len(final) < l.MaxPlayers {
			final = append(final, filler)
		} else {
			l.fillers = append(l.fillers, filler)
		}
	}

	l.players = final
	l.fillers = append(l.fillers, demoted...)

	if err := l.transition(Active); err != nil {
		return err
	}

	l.StartedAt = l.now()

	return nil
}

// End closes the lobby. Completed is terminal; ending an already completed
// lobby is a caller bug and returns ErrInvalidTransition.
func (l *Lobby) End() error {
	return l.transition(Completed)
}

// SetVoicePresence updates a participant's voice snapshot. The joined-voice
// latch only accumulates while the lobby is active.
func (l *Lobby) SetVoicePresence(id string, channelID string) {
	participant := l.findParticipant(id)
	if participant == nil {
		return
	}

	participant.VoiceChannelID = channelID

	if l.state == Active && channelID != "" {
		participant.EverJoinedVoice = true
	}
}

// LatchVoiceBaseline records current voice presence into the latch for every
// player, called once when the lobby activates so presence that predates the
// start still counts.
func (l *Lobby) LatchVoiceBaseline() {
	for _, player := range l.players {
		if player.InVoice() {
			player.EverJoinedVoice = true
		}
	}
}

// AllPlayersJoinedVoice reports whether every current player has been in
// voice at least once since activation. The voice auto-close heuristic stays
// dormant until this is true.
func (l *Lobby) AllPlayersJoinedVoice() bool {
	for _, player := range l.players {
		if !player.EverJoinedVoice {
			return false
		}
	}

	return true
}

// VoiceOccupancy tallies how many participants currently sit in each voice
// channel.
func (l *Lobby) VoiceOccupancy() map[string]int {
	counts := map[string]int{}

	for _, participant := range l.Participants() {
		if participant.InVoice() {
			counts[participant.VoiceChannelID]++
		}
	}

	return counts
}

func (l *Lobby) String() string {
	var players, fillers []string
	for _, p := range l.players {
		players = append(players, mention(p.ID))
	}

	for _, f := range l.fillers {
		fillers = append(fillers, mention(f.ID))
	}

	return fmt.Sprintf("ID: %d Owner: <@%s> Game: %s Max Players: %d Players: %s Fillers: %s State: %s",
		l.ID, l.OwnerID, l.Game, l.MaxPlayers,
		strings.Join(players, ", "), strings.Join(fillers, ", "), l.state)
}
