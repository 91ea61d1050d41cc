package geocaching

import (
	"bytes"
	"context"
	"fmt"

	"geoscrape/lib/htmlutil"
	"geoscrape/lib/session"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// Watchlist scrapes the logged-in user's watchlist into cache stubs.
// It is a transient query object, not a persistent entity.
type Watchlist struct {
	session *session.Client

	data string
	doc  *goquery.Document

	caches *[]*Cache
}

func NewWatchlist(s *session.Client) *Watchlist {
	return &Watchlist{session: s}
}

// Fetch loads the watchlist page. Usually called implicitly through
// Caches; call it explicitly to refresh.
func (w *Watchlist) Fetch(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "watchlist:Fetch")
	defer span.End()

	if !w.session.LoggedIn() {
		span.SetStatus(codes.Error, "not logged in")
		return fmt.Errorf("%w: you need to be logged in to access your watchlist", ErrLogin)
	}

	_, data, err := w.session.Get(ctx, "/my/watchlist.aspx")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(data))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return err
	}

	w.data = data
	w.doc = doc
	w.caches = nil
	return nil
}

func (w *Watchlist) Fetched() bool {
	return w.data != "" && w.doc != nil
}

// Caches returns cache stubs for every row of the watchlist table.
// Rows that do not yield a guid, type and name are skipped; the table
// mixes in header and decoration rows that carry none.
func (w *Watchlist) Caches(ctx context.Context) ([]*Cache, error) {
	v, err := memo(&w.caches, func() ([]*Cache, error) {
		if !w.Fetched() {
			if err := w.Fetch(ctx); err != nil {
				return nil, err
			}
		}

		caches := []*Cache{}
		w.doc.Find("table.Table tbody tr").Each(func(_ int, row *goquery.Selection) {
			guid, name, ctype, ok := watchlistRow(row)
			if !ok {
				return
			}
			caches = append(caches, newCacheStub(w.session, guid, name, ctype))
		})
		return caches, nil
	})
	return v, err
}

func watchlistRow(row *goquery.Selection) (guid, name string, ctype CacheType, ok bool) {
	anchor := row.Find("td:nth-child(3) a")
	if anchor.Length() != 1 {
		return "", "", CacheType{}, false
	}
	groups := guidPattern.FindStringSubmatch(anchor.AttrOr("href", ""))
	if groups == nil {
		return "", "", CacheType{}, false
	}
	guid = groups[1]

	img := row.Find("td:nth-child(2) > img")
	if img.Length() != 1 {
		return "", "", CacheType{}, false
	}
	ctype, found := CacheTypeForTitle(img.AttrOr("alt", ""))
	if !found {
		return "", "", CacheType{}, false
	}

	name = htmlutil.Unescape(htmlutil.CleanText(nodeText(anchor)))
	if name == "" {
		return "", "", CacheType{}, false
	}
	return guid, name, ctype, true
}
