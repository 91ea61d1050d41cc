package geocaching

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

const watchlistPage = `<html><body>
<table class="Table">
<tbody>
<tr><th>Type</th><th>Icon</th><th>Name</th></tr>
<tr>
  <td>row decoration</td>
  <td><img src="/images/WptTypes/sm/2.gif" alt="Traditional Cache" /></td>
  <td><a href="/seek/cache_details.aspx?guid=66274935-40d5-43d8-8cc3-c819e38f9dcc">First &amp; Foremost</a></td>
</tr>
<tr>
  <td>row decoration</td>
  <td><img src="/images/WptTypes/sm/3.gif" alt="Multi-cache" /></td>
  <td><a href="/seek/cache_details.aspx?guid=aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee">Second Stop</a></td>
</tr>
<tr><td colspan="3">pagination footer</td></tr>
</tbody>
</table>
</body></html>`

func TestWatchlistRequiresLogin(t *testing.T) {
	ctx := context.Background()
	_, s := newTestServer(t)

	_, err := NewWatchlist(s).Caches(ctx)
	require.ErrorIs(t, err, ErrLogin)
}

func TestWatchlistCaches(t *testing.T) {
	ctx := context.Background()
	ts, s := newTestServer(t)
	ts.page("/my/watchlist.aspx", watchlistPage)
	login(t, s)

	w := NewWatchlist(s)
	caches, err := w.Caches(ctx)
	require.NoError(t, err)
	require.Len(t, caches, 2)

	guid, err := caches[0].GUID()
	require.NoError(t, err)
	require.Equal(t, "66274935-40d5-43d8-8cc3-c819e38f9dcc", guid)
	name, err := caches[0].Name()
	require.NoError(t, err)
	require.Equal(t, "First & Foremost", name)
	ctype, err := caches[0].Type()
	require.NoError(t, err)
	require.True(t, ctype.Is(Traditional))

	ctype, err = caches[1].Type()
	require.NoError(t, err)
	require.True(t, ctype.Is(Multi))

	// stubs only carry what the row showed
	_, err = caches[0].Difficulty()
	require.ErrorIs(t, err, ErrNotFetched)
}

func TestWatchlistSingleRequest(t *testing.T) {
	ctx := context.Background()
	ts, s := newTestServer(t)

	var hits int
	ts.handle("/my/watchlist.aspx", func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, watchlistPage)
	})
	login(t, s)

	w := NewWatchlist(s)
	_, err := w.Caches(ctx)
	require.NoError(t, err)
	_, err = w.Caches(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, hits)

	// an explicit refresh fetches again
	require.NoError(t, w.Fetch(ctx))
	require.Equal(t, 2, hits)
}

func TestWatchlistEmpty(t *testing.T) {
	ctx := context.Background()
	ts, s := newTestServer(t)
	ts.page("/my/watchlist.aspx", `<html><body><p>Your watchlist is empty.</p></body></html>`)
	login(t, s)

	caches, err := NewWatchlist(s).Caches(ctx)
	require.NoError(t, err)
	require.Empty(t, caches)
}
