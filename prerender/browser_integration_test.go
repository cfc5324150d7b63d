//go:build integration

package prerender

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The page mounts its content from script, so only a real browser sees it.
const clientRendered = `<!doctype html>
<html><head><title>x</title></head>
<body><div id="root"></div>
<script>
setTimeout(function () {
  document.getElementById("root").innerHTML = "<h1>Rendered in browser</h1>";
}, 50);
</script>
</body></html>`

func TestBrowserRenderer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, clientRendered)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	r, err := NewBrowserRenderer(ctx, BrowserOptions{NoSandbox: true, Settle: 200 * time.Millisecond})
	require.NoError(t, err)
	defer r.Close()

	dom, err := r.Render(ctx, srv.URL)
	require.NoError(t, err)

	app, err := ExtractApp(dom, DefaultRootID)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Rendered in browser</h1>", app)

	h, err := NewHTTPRenderer(10*time.Second).Render(ctx, srv.URL)
	require.NoError(t, err)
	app, err = ExtractApp(h, DefaultRootID)
	require.NoError(t, err)
	assert.Empty(t, app, "plain HTTP does not run scripts")
}
