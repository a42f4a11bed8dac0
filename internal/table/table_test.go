package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableSeating(t *testing.T) {
	t.Parallel()
	tbl := New("t1", "main", 3, true)

	require.NoError(t, tbl.Sit(2, AI))
	require.ErrorIs(t, tbl.Sit(2, Human), ErrSeatOccupied)
	require.ErrorIs(t, tbl.Sit(4, Human), ErrNoSuchSeat)
	require.Error(t, tbl.Sit(1, Empty))

	id, err := tbl.SitFirstFree(Human)
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	assert.Equal(t, []Seat{{ID: 1, Occupant: Human}, {ID: 2, Occupant: AI}}, tbl.OccupiedSeats())

	require.NoError(t, tbl.Leave(1))
	require.ErrorIs(t, tbl.Leave(1), ErrSeatEmpty)
	assert.Equal(t, []Seat{{ID: 2, Occupant: AI}}, tbl.OccupiedSeats())
}

func TestSitFirstFreeFull(t *testing.T) {
	t.Parallel()
	tbl := New("t1", "main", 1, true)
	_, err := tbl.SitFirstFree(AI)
	require.NoError(t, err)

	_, err = tbl.SitFirstFree(AI)
	assert.ErrorIs(t, err, ErrNoFreeSeat)
}

func TestOccupiedSeatsIsSnapshot(t *testing.T) {
	t.Parallel()
	tbl := New("t1", "main", 2, true)
	require.NoError(t, tbl.Sit(1, AI))

	snap := tbl.OccupiedSeats()
	require.NoError(t, tbl.Sit(2, AI))
	require.NoError(t, tbl.Leave(1))

	assert.Equal(t, []Seat{{ID: 1, Occupant: AI}}, snap)
}

func TestParseOccupant(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Occupant{"ai": AI, "npc": AI, "human": Human, "": Empty} {
		got, err := ParseOccupant(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseOccupant("ghost")
	assert.Error(t, err)
}
