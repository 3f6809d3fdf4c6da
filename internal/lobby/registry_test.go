package lobby_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fivestack/lobbybot/internal/lobby"
)

func TestOneLobbyPerOwner(t *testing.T) {
	registry := lobby.NewRegistry(time.Now)

	_, errFirst := registry.CreateLobby("owner", time.Time{}, 5, "valorant")
	require.NoError(t, errFirst)

	_, errSecond := registry.CreateLobby("owner", time.Time{}, 5, "valorant")
	require.ErrorIs(t, errSecond, lobby.ErrOwnerHasLobby)

	// Closing frees the slot.
	require.True(t, registry.CloseLobby("owner"))

	_, errThird := registry.CreateLobby("owner", time.Time{}, 5, "valorant")
	require.NoError(t, errThird)
}

func TestCreateLobbyRejectsBadSize(t *testing.T) {
	registry := lobby.NewRegistry(time.Now)

	_, err := registry.CreateLobby("owner", time.Time{}, 0, "valorant")
	require.ErrorIs(t, err, lobby.ErrLobbySize)
}

func TestLobbyIDsAreUnique(t *testing.T) {
	registry := lobby.NewRegistry(time.Now)

	first, errFirst := registry.CreateLobby("a", time.Time{}, 5, "valorant")
	require.NoError(t, errFirst)

	second, errSecond := registry.CreateLobby("b", time.Time{}, 5, "valorant")
	require.NoError(t, errSecond)

	require.NotEqual(t, first.ID, second.ID)

	byID, found := registry.ByID(second.ID)
	require.True(t, found)
	require.Equal(t, "b", byID.OwnerID)

	_, found = registry.ByID(second.ID + 1)
	require.False(t, found)

	// Closing drops the lobby from both indexes.
	require.True(t, registry.CloseLobby("b"))

	_, found = registry.ByID(second.ID)
	require.False(t, found)
}

func TestByParticipant(t *testing.T) {
	registry := lobby.NewRegistry(time.Now)

	first, errFirst := registry.CreateLobby("a", time.Time{}, 5, "valorant")
	require.NoError(t, errFirst)

	second, errSecond := registry.CreateLobby("b", time.Time{}, 2, "valorant")
	require.NoError(t, errSecond)

	require.Equal(t, lobby.AddSuccess, first.AddFiller("user", false))
	require.Equal(t, lobby.AddSuccess, second.AddPlayer("user", false))

	require.Len(t, registry.ByParticipant("user", false), 2)
	require.Empty(t, registry.ByParticipant("user", true))

	started, _ := second.Start(false)
	require.True(t, started)

	active := registry.ByParticipant("user", true)
	require.Len(t, active, 1)
	require.Equal(t, second.ID, active[0].ID)
}

func TestCloseLobbyUnknownOwner(t *testing.T) {
	registry := lobby.NewRegistry(time.Now)

	require.False(t, registry.CloseLobby("nobody"))
	require.Empty(t, registry.Active())
}
