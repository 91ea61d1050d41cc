package geocaching

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"geoscrape/lib/session"

	"go.opentelemetry.io/otel/codes"
)

// Bounds is a latitude/longitude box for the map search.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// The map endpoint caps result sets at 500; a count of exactly 501
// is the server's way of signalling truncation.
const boundsResultCap = 500

// SearchBounds queries the site's map endpoint for the caches inside
// the given box and returns them as stubs with code, name, type and
// coordinates populated. A truncated result set surfaces as
// ErrTooManyResults.
func SearchBounds(ctx context.Context, s *session.Client, b Bounds) ([]*Cache, error) {
	ctx, span := tracer.Start(ctx, "SearchBounds")
	defer span.End()

	if !s.LoggedIn() {
		span.SetStatus(codes.Error, "not logged in")
		return nil, fmt.Errorf("%w: you need to be logged in to search the map", ErrLogin)
	}

	// the endpoint takes the box as "maxLat|minLat|maxLon|minLon"
	// inside an ASP.NET JSON envelope
	payload := map[string]any{
		"dto": map[string]any{
			"data": map[string]any{
				"c": 1,
				"m": "",
				"d": fmt.Sprintf("%f|%f|%f|%f", b.MaxLat, b.MinLat, b.MaxLon, b.MinLon),
			},
			"ut": "",
		},
	}

	_, data, err := s.PostJSON(ctx, "/map/default.aspx/MapAction", payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to post")
		return nil, err
	}

	// outer envelope wraps the actual payload as a JSON-encoded string
	var outer struct {
		D string `json:"d"`
	}
	if err := json.Unmarshal([]byte(data), &outer); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed envelope")
		return nil, fmt.Errorf("%w: malformed map response envelope: %v", ErrExtract, err)
	}

	var inner struct {
		CS struct {
			Count   int `json:"count"`
			Records []struct {
				Name   string  `json:"nn"`
				Code   string  `json:"gc"`
				Lat    float64 `json:"lat"`
				Lon    float64 `json:"lon"`
				TypeID int     `json:"ctid"`
			} `json:"cc"`
		} `json:"cs"`
	}
	if err := json.Unmarshal([]byte(outer.D), &inner); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed payload")
		return nil, fmt.Errorf("%w: malformed map response payload: %v", ErrExtract, err)
	}

	if inner.CS.Count == boundsResultCap+1 {
		span.SetStatus(codes.Error, "result set truncated")
		return nil, fmt.Errorf("%w: the map query matched more than %d caches", ErrTooManyResults, boundsResultCap)
	}

	slog.DebugContext(ctx, "map bounds query", "count", inner.CS.Count)

	caches := make([]*Cache, 0, len(inner.CS.Records))
	for _, r := range inner.CS.Records {
		c := &Cache{session: s, code: r.Code}
		name := r.Name
		lat, lon := r.Lat, r.Lon
		c.fields.name = &name
		c.fields.latitude = &lat
		c.fields.longitude = &lon
		if t, ok := CacheTypeForID(r.TypeID); ok {
			c.fields.ctype = &t
		}
		caches = append(caches, c)
	}
	return caches, nil
}
