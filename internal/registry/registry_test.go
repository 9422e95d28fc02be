package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"kernelforge/internal/config"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(config.RegistryConfig{
		RootDir:   filepath.Join(dir, "nodes"),
		IndexPath: filepath.Join(dir, "index.json"),
	})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Register(Node{Name: "sum", Path: "sum.go", Language: "go"}))

	n, ok := r.Get("sum")
	require.True(t, ok)
	require.Equal(t, "sum.go", n.Path)
}

func TestPersistReload(t *testing.T) {
	dir := t.TempDir()
	idx := filepath.Join(dir, "index.json")

	r1, err := Open(config.RegistryConfig{RootDir: dir, IndexPath: idx})
	require.NoError(t, err)
	require.NoError(t, r1.Register(Node{Name: "a", Path: "a.go"}))
	require.NoError(t, r1.Close())

	r2, err := Open(config.RegistryConfig{RootDir: dir, IndexPath: idx})
	require.NoError(t, err)
	defer r2.Close()
	require.Len(t, r2.All(), 1)
}

func TestRunnerRejectsUnlistedBinary(t *testing.T) {
	r, err := NewRunner(config.ExecutionConfig{DefaultTimeout: "1s", AllowedBinaries: []string{"echo"}})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "rm", []string{"-rf", "/"}, 0)
	require.Error(t, err)
}

func TestRunnerRunsAllowedBinary(t *testing.T) {
	r, err := NewRunner(config.ExecutionConfig{DefaultTimeout: "2s", AllowedBinaries: []string{"echo"}})
	require.NoError(t, err)

	res, err := r.Run(context.Background(), "echo", []string{"hello"}, time.Second)
	require.NoError(t, err)
	require.Contains(t, res.Stdout, "hello")
	require.Equal(t, 0, res.ExitCode)
}
