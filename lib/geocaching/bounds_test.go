package geocaching

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func mapActionResponse(t *testing.T, inner map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(inner)
	require.NoError(t, err)
	envelope, err := json.Marshal(map[string]string{"d": string(payload)})
	require.NoError(t, err)
	return string(envelope)
}

func TestSearchBoundsRequiresLogin(t *testing.T) {
	ctx := context.Background()
	_, s := newTestServer(t)

	_, err := SearchBounds(ctx, s, Bounds{})
	require.ErrorIs(t, err, ErrLogin)
}

func TestSearchBounds(t *testing.T) {
	ctx := context.Background()
	ts, s := newTestServer(t)

	response := mapActionResponse(t, map[string]any{
		"cs": map[string]any{
			"count": 2,
			"cc": []map[string]any{
				{"nn": "Test Cache", "gc": "GCTEST1", "lat": 49.354167, "lon": 11.216667, "ctid": 2},
				{"nn": "Puzzle", "gc": "GCTEST2", "lat": 49.4, "lon": 11.3, "ctid": 8},
			},
		},
	})

	var gotBody map[string]any
	ts.handle("/map/default.aspx/MapAction", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(response))
	})
	login(t, s)

	caches, err := SearchBounds(ctx, s, Bounds{
		MinLat: 49.0, MaxLat: 49.5,
		MinLon: 11.0, MaxLon: 11.5,
	})
	require.NoError(t, err)
	require.Len(t, caches, 2)

	dto, ok := gotBody["dto"].(map[string]any)
	require.True(t, ok)
	data, ok := dto["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "49.500000|49.000000|11.500000|11.000000", data["d"])

	code, err := caches[0].Code()
	require.NoError(t, err)
	require.Equal(t, "GCTEST1", code)
	name, err := caches[0].Name()
	require.NoError(t, err)
	require.Equal(t, "Test Cache", name)
	ctype, err := caches[0].Type()
	require.NoError(t, err)
	require.True(t, ctype.Is(Traditional))
	lat, ok, err := caches[0].Latitude()
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, 49.354167, lat, 1e-9)
	lon, ok, err := caches[0].Longitude()
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, 11.216667, lon, 1e-9)

	ctype, err = caches[1].Type()
	require.NoError(t, err)
	require.True(t, ctype.Is(Mystery))

	// everything beyond the row data needs a real fetch
	_, err = caches[0].Difficulty()
	require.ErrorIs(t, err, ErrNotFetched)
}

func TestSearchBoundsAtResultCap(t *testing.T) {
	ctx := context.Background()
	ts, s := newTestServer(t)

	records := make([]map[string]any, 500)
	for i := range records {
		records[i] = map[string]any{
			"nn": "Cache", "gc": "GCAAAAA", "lat": 49.0, "lon": 11.0, "ctid": 2,
		}
	}
	response := mapActionResponse(t, map[string]any{
		"cs": map[string]any{"count": 500, "cc": records},
	})
	ts.page("/map/default.aspx/MapAction", response)
	login(t, s)

	// a full page of 500 is a complete result set, not a truncated one
	caches, err := SearchBounds(ctx, s, Bounds{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180})
	require.NoError(t, err)
	require.Len(t, caches, 500)
}

func TestSearchBoundsTooManyResults(t *testing.T) {
	ctx := context.Background()
	ts, s := newTestServer(t)

	response := mapActionResponse(t, map[string]any{
		"cs": map[string]any{"count": 501, "cc": []map[string]any{}},
	})
	ts.page("/map/default.aspx/MapAction", response)
	login(t, s)

	_, err := SearchBounds(ctx, s, Bounds{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180})
	require.ErrorIs(t, err, ErrTooManyResults)
}

func TestSearchBoundsMalformedEnvelope(t *testing.T) {
	ctx := context.Background()
	ts, s := newTestServer(t)
	ts.page("/map/default.aspx/MapAction", "<html>not json</html>")
	login(t, s)

	_, err := SearchBounds(ctx, s, Bounds{})
	require.ErrorIs(t, err, ErrExtract)
}
