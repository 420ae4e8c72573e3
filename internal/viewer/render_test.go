package viewer

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yandex/perforator-flame/internal/xmetrics"
	"github.com/yandex/perforator-flame/pkg/flamegraph/drawlist"
	"github.com/yandex/perforator-flame/pkg/xlog"
)

func newTestRenderer(t *testing.T, mutate func(*Config)) (*Renderer, xmetrics.Registry) {
	dir := t.TempDir()
	conf := DefaultConfig()
	conf.Output.DrawList = filepath.Join(dir, "frame.json")
	conf.Output.Minimap = filepath.Join(dir, "minimap.png")
	conf.Output.Metrics = filepath.Join(dir, "metrics.txt")
	conf.Viewport.Width = 300
	conf.Viewport.Height = 200
	if mutate != nil {
		mutate(conf)
	}
	reg := xmetrics.NewRegistry()
	return NewRenderer(conf, xlog.NewNop(), reg), reg
}

func TestRender(t *testing.T) {
	r, _ := newTestRenderer(t, func(c *Config) {
		c.Selection = []string{"main", "serve"}
	})

	summary, err := r.Render(context.Background(), strings.NewReader(stacks))
	require.NoError(t, err)
	require.EqualValues(t, 75, summary.Total)
	require.Equal(t, "serve", summary.Selected.Function)
	require.Equal(t, 2, summary.Selection.Matched)
	require.Equal(t, 4, summary.Nodes)

	raw, err := os.ReadFile(r.Config().Output.DrawList)
	require.NoError(t, err)
	doc, err := drawlist.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 4)
	require.Equal(t, summary.Selection.Row, doc.Meta.SelectedRow)

	file, err := os.Open(r.Config().Output.Minimap)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)
	require.Equal(t, r.Config().Engine.Minimap.Width, img.Bounds().Dx())

	metricsText, err := os.ReadFile(r.Config().Output.Metrics)
	require.NoError(t, err)
	require.Contains(t, string(metricsText), "viewer_renders_count 1")
	require.Contains(t, string(metricsText), "engine_frames_count 1")
}

func TestRender_BadOutput(t *testing.T) {
	r, _ := newTestRenderer(t, func(c *Config) {
		c.Output.Minimap = filepath.Join(t.TempDir(), "missing", "minimap.png")
	})

	_, err := r.Render(context.Background(), strings.NewReader(stacks))
	require.ErrorContains(t, err, "failed to write minimap")
}

func TestEncodePNG_Nil(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, nil))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, 1, img.Bounds().Dx())
}
