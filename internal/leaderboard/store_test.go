package leaderboard

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huehunt/go-server/internal/colorspace"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE leaderboards (owner TEXT PRIMARY KEY, payload TEXT NOT NULL)`)
	require.NoError(t, err)
	return NewStore(db), db
}

func testColors(n int) []colorspace.Color {
	out := make([]colorspace.Color, n)
	for i := range out {
		out[i] = colorspace.Color{Hue: float64(i * 30), Saturation: float64(20 + i*10)}
	}
	return out
}

func TestLoadEmptyOwner(t *testing.T) {
	s, _ := newTestStore(t)
	entries, err := s.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordSortsTrimsAndEvicts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	colors := testColors(5)

	// Insert 11 entries with distinct scores; the lowest must be evicted.
	scores := []int{500, 300, 900, 100, 700, 800, 200, 600, 400, 1000, 50}
	for _, sc := range scores {
		_, _, err := s.Record(ctx, "p1", sc, 5, float64(sc)/10, colors, colors)
		require.NoError(t, err)
	}

	entries, err := s.Load(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, entries, MaxEntries)
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].Score, entries[i].Score)
	}
	assert.Equal(t, 1000, entries[0].Score)
	// Both sub-100 scores are gone; rank 10 is the 10th best.
	assert.Equal(t, 100, entries[len(entries)-1].Score)
	for _, e := range entries {
		assert.NotEqual(t, 50, e.Score)
		assert.Equal(t, 5, e.Rounds)
		assert.Len(t, e.PresentedColors, DisplayColors)
		assert.Len(t, e.GuessedColors, DisplayColors)
	}
}

func TestRecordNewTopSemantics(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	colors := testColors(5)

	_, newTop, err := s.Record(ctx, "p1", 400, 5, 40, colors, colors)
	require.NoError(t, err)
	assert.True(t, newTop, "first entry on an empty board is a new top")

	_, newTop, err = s.Record(ctx, "p1", 400, 5, 40, colors, colors)
	require.NoError(t, err)
	assert.False(t, newTop, "tying the top score is not a new top")

	_, newTop, err = s.Record(ctx, "p1", 399, 5, 40, colors, colors)
	require.NoError(t, err)
	assert.False(t, newTop)

	_, newTop, err = s.Record(ctx, "p1", 401, 5, 40, colors, colors)
	require.NoError(t, err)
	assert.True(t, newTop)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	want := []Entry{
		{Score: 900, Date: "2026-08-01T10:00:00Z", Rounds: 5, MeanDistance: 12.5,
			PresentedColors: colorStrings(testColors(5)), GuessedColors: colorStrings(testColors(5))},
		{Score: 400, Date: "2026-08-02T10:00:00Z", Rounds: 5, MeanDistance: 40,
			PresentedColors: colorStrings(testColors(5)), GuessedColors: colorStrings(testColors(5))},
	}
	require.NoError(t, s.Save(ctx, "p1", want))

	got, err := s.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOwnersAreIsolated(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	colors := testColors(5)

	_, _, err := s.Record(ctx, "p1", 500, 5, 50, colors, colors)
	require.NoError(t, err)

	entries, err := s.Load(ctx, "p2")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadCorruptPayload(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO leaderboards(owner, payload) VALUES('p1', 'not json at all')`)
	require.NoError(t, err)

	entries, err := s.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, entries, "corrupt payload reads as an empty board")

	// Non-array JSON is also just an empty board.
	_, err = db.Exec(`UPDATE leaderboards SET payload='{"score":1}' WHERE owner='p1'`)
	require.NoError(t, err)
	entries, err = s.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadLegacyAndMalformedColorFields(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	// One entry with the legacy "colors" field, short arrays, and a
	// junk color string; one with a non-array color value.
	payload := `[
	  {"score":800,"date":"2026-01-01T00:00:00Z","rounds":5,"meanDistance":10,
	   "colors":["hsl(10, 20%, 50%)","garbage"],
	   "guessedColors":["hsl(30, 40%, 50%)"]},
	  {"score":300,"date":"2026-01-02T00:00:00Z","rounds":5,
	   "presentedColors":"oops","guessedColors":42}
	]`
	_, err := db.Exec(`INSERT INTO leaderboards(owner, payload) VALUES('p1', ?)`, payload)
	require.NoError(t, err)

	entries, err := s.Load(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	placeholder := colorspace.Placeholder.String()
	first := entries[0]
	assert.Equal(t, 800, first.Score)
	require.Len(t, first.PresentedColors, DisplayColors)
	assert.Equal(t, "hsl(10, 20%, 50%)", first.PresentedColors[0])
	for _, c := range first.PresentedColors[1:] {
		assert.Equal(t, placeholder, c)
	}
	assert.Equal(t, "hsl(30, 40%, 50%)", first.GuessedColors[0])

	second := entries[1]
	assert.Equal(t, 300, second.Score)
	require.Len(t, second.PresentedColors, DisplayColors)
	for i := 0; i < DisplayColors; i++ {
		assert.Equal(t, placeholder, second.PresentedColors[i])
		assert.Equal(t, placeholder, second.GuessedColors[i])
	}
}

func TestClearIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	colors := testColors(5)

	_, _, err := s.Record(ctx, "p1", 500, 5, 50, colors, colors)
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, "p1"))
	entries, err := s.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Clearing an already-clear board is fine.
	require.NoError(t, s.Clear(ctx, "p1"))
}

func TestSaveTrimsOverlongInput(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	long := make([]Entry, MaxEntries+3)
	for i := range long {
		long[i] = Entry{Score: 1000 - i, Date: fmt.Sprintf("2026-08-%02dT00:00:00Z", i+1)}
	}
	require.NoError(t, s.Save(ctx, "p1", long))

	got, err := s.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, got, MaxEntries)
}
