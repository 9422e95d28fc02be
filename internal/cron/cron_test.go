package cron

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"kernelforge/internal/config"

	"github.com/stretchr/testify/require"
)

func TestMarkRunDisablesAfterMaxErrors(t *testing.T) {
	dir := t.TempDir()
	m, err := New(config.CronConfig{PersistPath: filepath.Join(dir, "tasks.json"), MaxConsecErrs: 2}, nil, nil, nil)
	require.NoError(t, err)

	_, err = m.Create(context.Background(), "flaky", "fails on purpose", "* * * * *", func(context.Context) error { return nil }, nil, nil)
	require.NoError(t, err)

	require.NoError(t, m.MarkRun("flaky", false, "", "boom"))
	require.NoError(t, m.MarkRun("flaky", false, "", "boom"))

	entries := m.List(false)
	require.Len(t, entries, 1)
	require.True(t, entries[0].Disabled)
	require.Equal(t, 2, entries[0].ConsecErrors)

	require.NoError(t, m.Enable("flaky"))
	entries = m.List(false)
	require.False(t, entries[0].Disabled)
	require.Equal(t, 0, entries[0].ConsecErrors)
}

func TestMarkRunSuccessResetsCounter(t *testing.T) {
	dir := t.TempDir()
	m, err := New(config.CronConfig{PersistPath: filepath.Join(dir, "tasks.json"), MaxConsecErrs: 5}, nil, nil, nil)
	require.NoError(t, err)

	_, err = m.Create(context.Background(), "job", "", "* * * * *", func(context.Context) error { return nil }, nil, nil)
	require.NoError(t, err)

	require.NoError(t, m.MarkRun("job", false, "", "boom"))
	require.NoError(t, m.MarkRun("job", true, "ok", ""))

	entries := m.List(false)
	require.Equal(t, 0, entries[0].ConsecErrors)
	require.Equal(t, 2, entries[0].RunCount)
}

func TestPersistAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")

	m1, err := New(config.CronConfig{PersistPath: path, MaxConsecErrs: 5}, nil, nil, nil)
	require.NoError(t, err)
	_, err = m1.Create(context.Background(), "noop", "", "0 0 * * *", func(context.Context) error { return nil }, nil, nil)
	require.NoError(t, err)

	m2, err := New(config.CronConfig{PersistPath: path, MaxConsecErrs: 5}, nil, nil, nil)
	require.NoError(t, err)
	list := m2.List(false)
	require.Len(t, list, 1)
	require.Equal(t, "noop", list[0].Name)
	require.Equal(t, "0 0 * * *", list[0].Schedule)
}

func TestDueNowRespectsWindow(t *testing.T) {
	dir := t.TempDir()
	m, err := New(config.CronConfig{PersistPath: filepath.Join(dir, "tasks.json"), MaxConsecErrs: 5}, nil, nil, nil)
	require.NoError(t, err)

	_, err = m.Create(context.Background(), "every_minute", "", "* * * * *", func(context.Context) error { return nil }, nil, nil)
	require.NoError(t, err)
	_, err = m.Create(context.Background(), "midnight", "", "0 0 * * *", func(context.Context) error { return nil }, nil, nil)
	require.NoError(t, err)

	due, err := m.DueNow(time.Now(), 2*time.Minute)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, e := range due {
		names[e.Name] = true
	}
	require.True(t, names["every_minute"])
	require.False(t, names["midnight"])

	_, ok := m.Func("every_minute")
	require.True(t, ok)
}

func TestNaturalLanguageScheduleBuiltinTable(t *testing.T) {
	dir := t.TempDir()
	m, err := New(config.CronConfig{PersistPath: filepath.Join(dir, "tasks.json"), MaxConsecErrs: 5}, nil, nil, nil)
	require.NoError(t, err)

	_, err = m.Create(context.Background(), "daily_report", "", "every day", func(context.Context) error { return nil }, nil, nil)
	require.NoError(t, err)

	entries := m.List(false)
	require.Equal(t, "0 0 * * *", entries[0].Schedule)
}

func TestCreateRejectsUnresolvableScheduleWithoutLLM(t *testing.T) {
	dir := t.TempDir()
	m, err := New(config.CronConfig{PersistPath: filepath.Join(dir, "tasks.json"), MaxConsecErrs: 5}, nil, nil, nil)
	require.NoError(t, err)

	_, err = m.Create(context.Background(), "job", "", "sometime next week maybe", func(context.Context) error { return nil }, nil, nil)
	require.Error(t, err)
}

func TestSearchFallsBackToLocalScan(t *testing.T) {
	dir := t.TempDir()
	m, err := New(config.CronConfig{PersistPath: filepath.Join(dir, "tasks.json"), MaxConsecErrs: 5}, nil, nil, nil)
	require.NoError(t, err)

	_, err = m.Create(context.Background(), "nightly_backup", "backs up the registry", "0 2 * * *", func(context.Context) error { return nil }, nil, nil)
	require.NoError(t, err)

	results, err := m.Search(context.Background(), "backup", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "nightly_backup", results[0].Name)
}
