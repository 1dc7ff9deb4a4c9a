package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sandevgo/hackpal/internal/config"
	"github.com/sandevgo/hackpal/internal/service/router"
	"github.com/sandevgo/hackpal/internal/storage/inmem"
	"github.com/stretchr/testify/require"
)

func TestWriteEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime", ".env")

	require.NoError(t, writeEnvFile(path, "PORT=5000\n", false))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.ErrorContains(t, writeEnvFile(path, "PORT=6000\n", false), "already exists")

	require.NoError(t, writeEnvFile(path, "PORT=6000\n", true))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "PORT=6000\n", string(data))
}

func TestInitStorage_Memory(t *testing.T) {
	st, db, err := initStorage(context.Background(), &config.AppConfig{HistoryBackend: config.HistoryBackendMemory})
	require.NoError(t, err)
	require.Nil(t, db)
	require.IsType(t, &inmem.Store{}, st.turns)
	require.Same(t, st.turns, st.passages)
}

func TestNewClassifier(t *testing.T) {
	ctx := context.Background()

	c := newClassifier(ctx, &config.AppConfig{RouterMode: config.RouterModeModel}, nil)
	require.IsType(t, &router.ModelClassifier{}, c)

	c = newClassifier(ctx, &config.AppConfig{RouterMode: "bogus"}, nil)
	require.IsType(t, &router.RuleClassifier{}, c)
}
