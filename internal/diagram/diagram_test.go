//go:build unit

package diagram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-wiki-engine/internal/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Render(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotPath, gotBody = r.URL.Path, string(b)
		if string(b) == "bad" {
			http.Error(w, "Syntax error in graph", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write([]byte("<svg>ok</svg>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)

	out, err := c.Render(context.Background(), "dot", "digraph { a -> b }")
	require.NoError(t, err)
	assert.Equal(t, "<svg>ok</svg>", out)
	assert.Equal(t, "/graphviz/svg", gotPath)
	assert.Equal(t, "digraph { a -> b }", gotBody)

	_, err = c.Render(context.Background(), "mermaid", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "Syntax error")
}

type countingRenderer struct {
	calls int
	err   error
}

func (r *countingRenderer) Render(ctx context.Context, lang, source string) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return "<svg>" + source + "</svg>", nil
}

func TestCached(t *testing.T) {
	c, err := cache.New(":memory:")
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	next := &countingRenderer{}
	r := NewCached(next, c, time.Hour, nil)

	for i := 0; i < 3; i++ {
		out, err := r.Render(ctx, "mermaid", "graph TD; A-->B")
		require.NoError(t, err)
		assert.Equal(t, "<svg>graph TD; A-->B</svg>", out)
	}
	assert.Equal(t, 1, next.calls)

	_, err = r.Render(ctx, "plantuml", "graph TD; A-->B")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls, "language is part of the key")

	failing := &countingRenderer{err: errors.New("down")}
	r = NewCached(failing, c, time.Hour, nil)
	for i := 0; i < 2; i++ {
		_, err := r.Render(ctx, "d2", "x -> y")
		assert.Error(t, err)
	}
	assert.Equal(t, 2, failing.calls, "failures are not cached")
}
