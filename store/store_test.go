package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/milosgajdos/go-rtls/config"
	"github.com/milosgajdos/go-rtls/pipeline"
	"github.com/milosgajdos/go-rtls/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "rtls.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func encode(t *testing.T, ids [3]string, rssi [3]int) string {
	t.Helper()

	var readings [record.Blocks]record.Reading
	for i := range readings {
		readings[i] = record.Reading{BeaconID: ids[i], RSSI: rssi[i]}
	}

	field, err := record.Encode(record.DefaultLayout, readings)
	require.NoError(t, err)

	return field
}

func TestMigrations(t *testing.T) {
	assert := assert.New(t)

	s := openStore(t)

	version, dirty, err := s.MigrateVersion()
	assert.NoError(err)
	assert.False(dirty)
	assert.Equal(uint(2), version)

	// already at the latest version
	assert.NoError(s.MigrateUp())

	assert.NoError(s.MigrateDown())
	version, _, err = s.MigrateVersion()
	assert.NoError(err)
	assert.Equal(uint(1), version)

	assert.NoError(s.MigrateUp())
	version, _, err = s.MigrateVersion()
	assert.NoError(err)
	assert.Equal(uint(2), version)
}

func TestRecords(t *testing.T) {
	assert := assert.New(t)

	s := openStore(t)
	ctx := context.Background()

	records := []record.Record{
		{Timestamp: 30, Nearest: "c", InstanceID: "puck-1"},
		{Timestamp: 10, Nearest: "a", InstanceID: "puck-1"},
		{Timestamp: 20, Nearest: "b1", InstanceID: "puck-2"},
		{Timestamp: 20, Nearest: "b2", InstanceID: "puck-2"},
	}
	require.NoError(t, s.InsertRecords(ctx, records))

	got, err := s.Records(ctx, Range{})
	assert.NoError(err)
	exp := []record.Record{records[1], records[2], records[3], records[0]}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Errorf("unexpected records (-want +got):\n%s", diff)
	}

	from, to := int64(15), int64(20)
	got, err = s.Records(ctx, Range{From: &from, To: &to})
	assert.NoError(err)
	assert.Equal([]record.Record{records[2], records[3]}, got)

	from = 100
	got, err = s.Records(ctx, Range{From: &from})
	assert.NoError(err)
	assert.Empty(got)

	// open bounds include negative and zero timestamps
	early := []record.Record{
		{Timestamp: -5, Nearest: "n", InstanceID: "puck-3"},
		{Timestamp: 0, Nearest: "z", InstanceID: "puck-3"},
	}
	require.NoError(t, s.InsertRecords(ctx, early))

	to = 0
	got, err = s.Records(ctx, Range{To: &to})
	assert.NoError(err)
	assert.Equal(early, got)

	got, err = s.Records(ctx, Range{})
	assert.NoError(err)
	assert.Len(got, 6)
	assert.Equal(early[0], got[0])
}

func TestRuns(t *testing.T) {
	assert := assert.New(t)

	s := openStore(t)
	ctx := context.Background()

	p, err := pipeline.New(config.Default())
	require.NoError(t, err)

	records := []record.Record{
		{Timestamp: 1, Nearest: encode(t, [3]string{"0000004d", "00000058", "00000061"}, [3]int{-65, -70, -68}), InstanceID: "puck-1"},
		{Timestamp: 2, Nearest: "garbage", InstanceID: "puck-1"},
		{Timestamp: 3, Nearest: encode(t, [3]string{"0000004d", "00000058", "00000061"}, [3]int{-66, -69, -70}), InstanceID: "puck-1"},
	}

	res, err := p.Run(ctx, records)
	require.NoError(t, err)

	id, err := s.SaveRun(ctx, res)
	require.NoError(t, err)
	assert.NotEqual(uuid.Nil, id)

	run, err := s.Run(ctx, id)
	assert.NoError(err)
	assert.Equal(id, run.ID)
	assert.Equal(3, run.Total)
	assert.Equal(2, run.Parsed)
	assert.Equal(1, run.Dropped)
	assert.Equal(2, run.Logical)
	assert.False(run.CreatedAt.IsZero())

	positions, err := s.Positions(ctx, id)
	assert.NoError(err)
	if assert.Len(positions, 2) {
		for i, pos := range positions {
			assert.Equal(res.Positions[i].Observation.Index, pos.RecordIndex)
			assert.Equal(res.Positions[i].Observation.Timestamp, pos.Timestamp)
			assert.Equal("puck-1", pos.TagID)
			assert.Equal(res.Positions[i].Raw, pos.Raw)
			assert.Equal(res.Positions[i].Smoothed, pos.Smoothed)
			assert.False(pos.Degenerate)
		}
	}

	other, err := s.SaveRun(ctx, &pipeline.Result{})
	require.NoError(t, err)

	runs, err := s.Runs(ctx)
	assert.NoError(err)
	assert.Len(runs, 2)

	positions, err = s.Positions(ctx, other)
	assert.NoError(err)
	assert.Empty(positions)

	_, err = s.Run(ctx, uuid.New())
	assert.True(errors.Is(err, ErrRunNotFound))

	_, err = s.SaveRun(ctx, nil)
	assert.Error(err)
}
