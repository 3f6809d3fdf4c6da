package lobby

import (
	"sync"
	"time"
)

// Registry is the process-wide table of live lobbies, keyed by owner. It is
// the only place lobbies are created and destroyed, and it enforces the one
// active lobby per owner rule. Reads may run concurrently; create and close
// are exclusive.
type Registry struct {
	mu      sync.RWMutex
	byOwner map[string]*Lobby
	byID    map[int]*Lobby
	nextID  int
	now     func() time.Time
}

func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}

	return &Registry{
		byOwner: map[string]*Lobby{},
		byID:    map[int]*Lobby{},
		now:     now,
	}
}

// CreateLobby creates a new lobby with the owner as its first player. Fails
// with ErrOwnerHasLobby when the owner already has a live one.
func (r *Registry) CreateLobby(ownerID string, scheduledAt time.Time, maxPlayers int, game string) (*Lobby, error) {
	if maxPlayers < 1 {
		return nil, ErrLobbySize
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOwner[ownerID]; exists {
		return nil, ErrOwnerHasLobby
	}

	lob := newLobby(r.nextID, ownerID, scheduledAt, maxPlayers, game, r.now)
	r.byOwner[ownerID] = lob
	r.byID[lob.ID] = lob
	r.nextID++

	return lob, nil
}

func (r *Registry) ByOwner(ownerID string) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lob, found := r.byOwner[ownerID]

	return lob, found
}

func (r *Registry) ByID(lobbyID int) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lob, found := r.byID[lobbyID]

	return lob, found
}

// Active returns every lobby that has not completed.
func (r *Registry) Active() []*Lobby {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*Lobby

	for _, lob := range r.byOwner {
		if !lob.IsCompleted() {
			active = append(active, lob)
		}
	}

	return active
}

// ByParticipant returns every lobby where id currently appears as a player or
// filler, optionally restricted to active lobbies.
func (r *Registry) ByParticipant(id string, activeOnly bool) []*Lobby {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Lobby

	for _, lob := range r.byOwner {
		if activeOnly && !lob.IsActive() {
			continue
		}

		if lob.InLobby(id) {
			matched = append(matched, lob)
		}
	}

	return matched
}

// CloseLobby ends the owner's lobby and removes it from the registry. The
// lobby object is never mutated again afterwards. Returns false when the
// owner had no lobby.
func (r *Registry) CloseLobby(ownerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	lob, found := r.byOwner[ownerID]
	if !found {
		return false
	}

	_ = lob.End()
	delete(r.byOwner, ownerID)
	delete(r.byID, lob.ID)

	return true
}
