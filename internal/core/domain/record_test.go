package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Valid(t *testing.T) {
	valid := []Status{
		StatusPending, StatusDownloading, StatusExtracting,
		StatusRendering, StatusEmbedding, StatusIndexing,
		StatusSuccess, StatusFailed,
	}
	for _, s := range valid {
		assert.True(t, s.Valid(), "expected %s to be valid", s)
	}

	assert.False(t, Status("").Valid())
	assert.False(t, Status("processing").Valid())
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusIndexing.Terminal())
}

func TestStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to downloading", StatusPending, StatusDownloading, true},
		{"downloading to extracting", StatusDownloading, StatusExtracting, true},
		{"extracting to rendering", StatusExtracting, StatusRendering, true},
		{"rendering to embedding", StatusRendering, StatusEmbedding, true},
		{"embedding to indexing", StatusEmbedding, StatusIndexing, true},
		{"indexing to success", StatusIndexing, StatusSuccess, true},
		{"skip ahead allowed for resume", StatusPending, StatusEmbedding, true},
		{"any non-terminal to failed", StatusRendering, StatusFailed, true},
		{"no backwards move", StatusRendering, StatusDownloading, false},
		{"no self transition", StatusExtracting, StatusExtracting, false},
		{"failed reset to pending", StatusFailed, StatusPending, true},
		{"success reset on content change", StatusSuccess, StatusPending, true},
		{"success cannot fail", StatusSuccess, StatusFailed, false},
		{"failed cannot fail again", StatusFailed, StatusFailed, false},
		{"success cannot resume mid-pipeline", StatusSuccess, StatusEmbedding, false},
		{"unknown status rejected", Status("bogus"), StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestLedgerStats_Total(t *testing.T) {
	stats := LedgerStats{
		ByStatus: map[Status]int{
			StatusSuccess: 7,
			StatusFailed:  2,
			StatusPending: 1,
		},
	}
	assert.Equal(t, 10, stats.Total())

	assert.Equal(t, 0, LedgerStats{}.Total())
}

func TestChangeset_Worklist(t *testing.T) {
	cs := Changeset{
		New:       []Deck{{RemoteID: "a"}},
		Modified:  []Deck{{RemoteID: "b"}, {RemoteID: "c"}},
		Unchanged: []Deck{{RemoteID: "d"}},
	}

	work := cs.Worklist()
	assert.Len(t, work, 3)
	assert.Equal(t, "a", work[0].RemoteID)
	assert.Equal(t, "c", work[2].RemoteID)
}
