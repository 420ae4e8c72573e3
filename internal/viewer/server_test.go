package viewer

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/yandex/perforator-flame/pkg/flamegraph/drawlist"
	"github.com/yandex/perforator-flame/pkg/xlog"
)

func newTestServer(t *testing.T) *httptest.Server {
	r, _ := newTestRenderer(t, nil)
	tbl, err := LoadTable(context.Background(), xlog.NewNop(), strings.NewReader(stacks), r.Config().Input)
	require.NoError(t, err)

	s := NewServer(r, tbl)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		s.Close()
	})
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestServer_Frame(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/api/frame")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := drawlist.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	require.Len(t, doc.Nodes, 7)

	resp, body = get(t, srv.URL+"/api/frame?path=main&path=parse&width=1000&zoom=2&scroll_left=500")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err = drawlist.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	require.EqualValues(t, 2, doc.Meta.Zoom)
	require.EqualValues(t, 2000, doc.Meta.ContentWidth)
	require.EqualValues(t, 500, doc.Meta.ScrollLeft)
	require.Len(t, doc.Nodes, 4)

	resp, _ = get(t, srv.URL+"/api/frame?zoom=wide")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/api/frame?mode=radial")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Minimap(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/api/minimap.png?color_by=function&dark=true")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	require.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))
}

func TestServer_HoverAndRow(t *testing.T) {
	srv := newTestServer(t)

	_, body := get(t, srv.URL+"/api/hover?x=600&y=30")
	var hover struct {
		Row      int    `json:"row"`
		Function string `json:"function"`
	}
	require.NoError(t, json.Unmarshal(body, &hover))
	require.Equal(t, "main", hover.Function)

	_, body = get(t, srv.URL+"/api/hover?x=-10&y=-10")
	require.NoError(t, json.Unmarshal(body, &hover))
	require.Equal(t, -1, hover.Row)

	resp, body := get(t, srv.URL+"/api/rows/"+"3")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var row struct {
		Path []struct {
			FunctionName string `json:"function_name"`
		} `json:"path"`
	}
	require.NoError(t, json.Unmarshal(body, &row))
	require.NotEmpty(t, row.Path)

	resp, _ = get(t, srv.URL+"/api/rows/100")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
