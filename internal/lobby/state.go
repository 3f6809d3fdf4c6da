package lobby

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid lobby state transition")
	ErrOwnerHasLobby     = errors.New("owner already has an active lobby")
	ErrLobbySize         = errors.New("lobby size must be at least 1")
	ErrUnknownLobby      = errors.New("failed to find lobby")
	ErrNotParticipant    = errors.New("user is not in the lobby")
)

// State is the lifecycle position of a lobby. Transitions are restricted to
// the table in transitions; Completed is terminal.
type State int

const (
	Waiting State = iota
	Pending
	ReadyCheck
	Active
	Completed
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Pending:
		return "pending"
	case ReadyCheck:
		return "ready_check"
	case Active:
		return "active"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

//nolint:gochecknoglobals
var transitions = map[State][]State{
	Waiting:    {Pending, ReadyCheck, Active, Completed},
	Pending:    {Waiting, ReadyCheck, Active, Completed},
	ReadyCheck: {Waiting, Active, Completed},
	Active:     {Completed},
	Completed:  {},
}

// AddResult is the outcome of adding a player or filler to a roster.
type AddResult int

const (
	AddSuccess AddResult = iota
	AddAlreadyInLobby
	AddLobbyFull
	AddLobbyCompleted
	AddLobbyInReadyCheck
)

// RemoveResult is the outcome of removing a participant. RemoveLobbyEmpty
// overrides the player/filler result when the removal left the lobby with no
// participants at all; callers must close the lobby when they see it.
type RemoveResult int

const (
	RemovedPlayer RemoveResult = iota
	RemovedFiller
	RemoveNotInLobby
	RemoveLobbyCompleted
	RemoveLobbyInReadyCheck
	RemoveLobbyEmpty
)

// ReadyResult is the outcome of a ready/unready request. AlreadyReady and
// AlreadyNotReady are distinct so callers can word their replies for the
// direction the duplicate answer came from.
type ReadyResult int

const (
	ReadyPlayer ReadyResult = iota
	ReadyFiller
	ReadyAlreadyReady
	ReadyAlreadyNotReady
	ReadyNotInLobby
)
