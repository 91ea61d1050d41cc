package geocaching

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"time"

	"geoscrape/lib/htmlutil"
	"geoscrape/lib/session"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// MyLogs scrapes the logs the logged-in user has written into log
// stubs with their cache stubs attached.
type MyLogs struct {
	session *session.Client

	data string
	doc  *goquery.Document

	logs *[]*Log
}

func NewMyLogs(s *session.Client) *MyLogs {
	return &MyLogs{session: s}
}

// Fetch loads the my-logs page. Usually called implicitly through
// Logs; call it explicitly to refresh.
func (m *MyLogs) Fetch(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "mylogs:Fetch")
	defer span.End()

	if !m.session.LoggedIn() {
		span.SetStatus(codes.Error, "not logged in")
		return fmt.Errorf("%w: you need to be logged in to access your logs", ErrLogin)
	}

	_, data, err := m.session.Get(ctx, "/my/logs.aspx?s=1")
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

	m.data = data
	m.doc = doc
	m.logs = nil
	return nil
}

func (m *MyLogs) Fetched() bool {
	return m.data != "" && m.doc != nil
}

var luidPattern = regexp.MustCompile(`LUID=([0-9a-f-]{36})`)

var rowDatePattern = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)

// Logs returns a stub for every complete row of the table; rows
// missing any of the six expected fields are skipped silently.
func (m *MyLogs) Logs(ctx context.Context) ([]*Log, error) {
	v, err := memo(&m.logs, func() ([]*Log, error) {
		if !m.Fetched() {
			if err := m.Fetch(ctx); err != nil {
				return nil, err
			}
		}

		logs := []*Log{}
		m.doc.Find("table.Table tr").Each(func(_ int, row *goquery.Selection) {
			info, ok := myLogsRow(row)
			if !ok {
				return
			}
			cache := newCacheStub(m.session, info.cacheGUID, info.cacheName, info.cacheType)
			logs = append(logs, newLogStub(m.session, info.logGUID, info.logTitle, info.logDate, cache))
		})
		return logs, nil
	})
	return v, err
}

type myLogsRowInfo struct {
	cacheGUID string
	cacheName string
	cacheType CacheType
	logGUID   string
	logTitle  string
	logDate   time.Time
}

func myLogsRow(row *goquery.Selection) (myLogsRowInfo, bool) {
	var info myLogsRowInfo

	anchor := row.Find("td:nth-child(3) a")
	if anchor.Length() != 1 {
		return info, false
	}
	groups := guidPattern.FindStringSubmatch(anchor.AttrOr("href", ""))
	if groups == nil {
		return info, false
	}
	info.cacheGUID = groups[1]

	img := row.Find("td:nth-child(3) a > img")
	if img.Length() != 1 {
		return info, false
	}
	ctype, found := CacheTypeForTitle(img.AttrOr("title", ""))
	if !found {
		return info, false
	}
	info.cacheType = ctype

	name, ok := cacheNameFromCell(row.Find("td:nth-child(3)"))
	if !ok {
		return info, false
	}
	info.cacheName = name

	logAnchor := row.Find("td:nth-child(5) a")
	if logAnchor.Length() != 1 {
		return info, false
	}
	groups = luidPattern.FindStringSubmatch(logAnchor.AttrOr("href", ""))
	if groups == nil {
		return info, false
	}
	info.logGUID = groups[1]

	typeImg := row.Find("td:first-child img")
	if typeImg.Length() != 1 {
		return info, false
	}
	title, hasTitle := typeImg.Attr("alt")
	if !hasTitle {
		return info, false
	}
	info.logTitle = title

	dateCell := row.Find("td:nth-child(2)")
	if dateCell.Length() != 1 {
		return info, false
	}
	groups = rowDatePattern.FindStringSubmatch(nodeText(dateCell))
	if groups == nil {
		return info, false
	}
	date, err := parseMDY(groups[1], groups[2], groups[3], "log date")
	if err != nil {
		return info, false
	}
	info.logDate = date

	return info, true
}

// cacheNameFromCell picks the cache name out of the listing cell; the
// markup nests the name differently for archived, disabled and active
// caches.
func cacheNameFromCell(cell *goquery.Selection) (string, bool) {
	if cell.Length() != 1 {
		return "", false
	}

	archived := cell.Find("span.Strike.Warning > a > span > strike > font")
	if archived.Length() == 1 {
		return htmlutil.Unescape(htmlutil.CleanText(nodeText(archived))), true
	}
	disabled := cell.Find("strike > a > span > strike")
	if disabled.Length() == 1 {
		return htmlutil.Unescape(htmlutil.CleanText(nodeText(disabled))), true
	}
	enabled := cell.Find("a > span")
	if enabled.Length() == 1 {
		return htmlutil.Unescape(htmlutil.CleanText(nodeText(enabled))), true
	}
	return "", false
}
