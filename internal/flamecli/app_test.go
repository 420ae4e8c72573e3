package flamecli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yandex/perforator-flame/internal/viewer"
	"github.com/yandex/perforator-flame/pkg/flamegraph/geometry"
)

func TestNew(t *testing.T) {
	app, err := New(context.Background(), &Config{
		LogLevel: "warn",
		Override: func(conf *viewer.Config) {
			conf.Engine.Mode = geometry.ModeFlameChart
			conf.Viewport.Width = 640
		},
	})
	require.NoError(t, err)
	defer app.Shutdown()

	require.Equal(t, geometry.ModeFlameChart, app.Config().Engine.Mode)
	require.Equal(t, 640.0, app.Config().Viewport.Width)
	require.Equal(t, 800.0, app.Config().Viewport.Height)
	require.NotNil(t, app.Renderer())
	require.NoError(t, app.Context().Err())

	app.Shutdown()
	require.Error(t, app.Context().Err())
}

func TestNew_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "viewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("viewport:\n  width: 300\n"), 0o644))

	app, err := New(context.Background(), &Config{
		ConfigPath: path,
		TraceFile:  filepath.Join(dir, "spans.json"),
	})
	require.NoError(t, err)
	defer app.Shutdown()
	require.Equal(t, 300.0, app.Config().Viewport.Width)
}

func TestNew_Errors(t *testing.T) {
	for i, conf := range []*Config{
		{LogLevel: "loud"},
		{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")},
		{Override: func(conf *viewer.Config) { conf.Input.MinWeight = 2 }},
	} {
		_, err := New(context.Background(), conf)
		require.Error(t, err, "case %d", i)
	}
}
