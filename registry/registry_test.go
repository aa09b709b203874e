package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/researchflow/agent"
	"github.com/hupe1980/researchflow/definitions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "registry", "agents.db"), func(o *Options) {
		o.Now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func def(name, model string, temp *float64) agent.Definition {
	return agent.Definition{Name: name, Model: model, Instructions: "be helpful", Temperature: temp}
}

func ptr(f float64) *float64 { return &f }

func TestSyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	defs, err := definitions.Load()
	require.NoError(t, err)

	first, err := s.Sync(ctx, defs, ModeSync)
	require.NoError(t, err)
	assert.Len(t, first.Created, len(defs))
	assert.True(t, first.Changed())

	second, err := s.Sync(ctx, defs, ModeSync)
	require.NoError(t, err)
	assert.False(t, second.Changed())
	assert.Len(t, second.Unchanged, len(defs))

	stored, err := s.Definitions(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, len(defs))

	reg, err := agent.NewRegistry(stored...)
	require.NoError(t, err)
	assert.Len(t, reg.List(), len(defs))
}

func TestSyncModes(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Sync(ctx, []agent.Definition{def("A", "gpt-4.1", nil)}, ModeCreate)
	require.NoError(t, err)

	changedA := def("A", "gpt-4.1-mini", nil)
	newB := def("B", "gpt-4.1", nil)

	tests := []struct {
		mode Mode
		want Report
	}{
		{ModeCreate, Report{Created: []string{"B"}, Skipped: []string{"A"}}},
		{ModeUpdate, Report{Updated: []string{"A"}, Skipped: []string{"B"}}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			s := openTestStore(t)
			_, err := s.Sync(ctx, []agent.Definition{def("A", "gpt-4.1", nil)}, ModeCreate)
			require.NoError(t, err)

			report, err := s.Sync(ctx, []agent.Definition{changedA, newB}, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *report)
		})
	}

	report, err := s.Sync(ctx, []agent.Definition{changedA, newB}, ModeSync)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, report.Updated)
	assert.Equal(t, []string{"B"}, report.Created)

	rec, err := s.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Version)
	assert.Equal(t, "gpt-4.1-mini", rec.Definition.Model)
	assert.Equal(t, changedA.Digest(), rec.Digest)
	assert.Equal(t, 2025, rec.UpdatedAt.Year())

	n, err := s.Versions(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSyncRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Sync(ctx, []agent.Definition{{Name: "broken"}}, ModeSync)
	assert.Error(t, err)

	_, err = s.Sync(ctx, []agent.Definition{def("A", "m", nil), def("A", "m", nil)}, ModeSync)
	assert.ErrorContains(t, err, "duplicate")

	_, err = s.Sync(ctx, nil, Mode("delete"))
	assert.Error(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetUnknown(t *testing.T) {
	_, err := openTestStore(t).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStripReasoningSampling(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Sync(ctx, []agent.Definition{
		def("Reasoner", "gpt-5-mini", ptr(0.3)),
		def("Classic", "gpt-4.1", ptr(0.3)),
		def("Already", "o3", nil),
		def("Other", "gpt-5", ptr(0.7)),
	}, ModeSync)
	require.NoError(t, err)

	stripped, err := s.StripReasoningSampling(ctx, "Reasoner", "Classic", "Already")
	require.NoError(t, err)
	assert.Equal(t, []string{"Reasoner"}, stripped)

	rec, err := s.Get(ctx, "Reasoner")
	require.NoError(t, err)
	assert.Nil(t, rec.Definition.Temperature)
	assert.Equal(t, 2, rec.Version)

	rec, err = s.Get(ctx, "Other")
	require.NoError(t, err)
	assert.NotNil(t, rec.Definition.Temperature)

	stripped, err = s.StripReasoningSampling(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Other"}, stripped)
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, false},
		{"a", []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, false},
		{"1-6", []int{1, 2, 3, 4, 5, 6}, false},
		{"1-3,5,7-9", []int{1, 2, 3, 5, 7, 8, 9}, false},
		{"3,1,3", []int{1, 3}, false},
		{"0", nil, true},
		{"5-3", nil, true},
		{"1-10", nil, true},
		{"x", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelection(tt.in, 9)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect(t *testing.T) {
	defs := []agent.Definition{def("A", "m", nil), def("B", "m", nil), def("C", "m", nil)}

	got, err := Select(defs, "1,3")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "C", got[1].Name)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Sync ")
	require.NoError(t, err)
	assert.Equal(t, ModeSync, m)

	_, err = ParseMode("nuke")
	assert.Error(t, err)
}
