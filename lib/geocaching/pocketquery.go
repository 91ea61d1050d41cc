package geocaching

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"geoscrape/lib/htmlutil"
	"geoscrape/lib/session"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// PocketQuery is a server-side saved search whose results download as
// a GPX document.
type PocketQuery struct {
	session *session.Client

	guid            string
	name            string
	results         int
	lastGeneratedAt time.Time

	raw []byte
	gpx *GPXDocument
}

// GPXDocument is the projection of a pocket query's GPX payload the
// library exposes: the query name and one record per waypoint. The
// raw bytes stay available for callers that want the full tree.
type GPXDocument struct {
	XMLName   xml.Name      `xml:"gpx"`
	Name      string        `xml:"name"`
	Waypoints []GPXWaypoint `xml:"wpt"`
}

type GPXWaypoint struct {
	Latitude  float64 `xml:"lat,attr"`
	Longitude float64 `xml:"lon,attr"`
	Name      string  `xml:"name"`
	Desc      string  `xml:"desc"`
}

// ReadyForDownload scrapes the pocket query page for the queries that
// are generated and downloadable. Rows missing any expected field are
// skipped.
func ReadyForDownload(ctx context.Context, s *session.Client) ([]*PocketQuery, error) {
	ctx, span := tracer.Start(ctx, "pocketquery:ReadyForDownload")
	defer span.End()

	if !s.LoggedIn() {
		span.SetStatus(codes.Error, "not logged in")
		return nil, fmt.Errorf("%w: you need to be logged in to list pocket queries", ErrLogin)
	}

	_, data, err := s.Get(ctx, "/pocket/default.aspx")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(data))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}

	table, err := findOne(doc, "table#uxOfflinePQTable", "pocket query table")
	if err != nil {
		span.SetStatus(codes.Error, "no pocket query table")
		return nil, err
	}

	pqs := []*PocketQuery{}
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			// header row
			return
		}
		pq, ok := pocketQueryRow(s, row)
		if !ok {
			return
		}
		pqs = append(pqs, pq)
	})
	return pqs, nil
}

var downloadGUIDPattern = regexp.MustCompile(`g=([0-9a-f-]{36})`)

func pocketQueryRow(s *session.Client, row *goquery.Selection) (*PocketQuery, bool) {
	anchor := row.Find("td:nth-child(3) > a")
	if anchor.Length() != 1 {
		return nil, false
	}
	name := htmlutil.Unescape(htmlutil.CleanText(nodeText(anchor)))

	href := anchor.AttrOr("href", "")
	groups := downloadGUIDPattern.FindStringSubmatch(href)
	if groups == nil {
		return nil, false
	}
	guid := groups[1]

	resultsCell := row.Find("td:nth-child(5)")
	if resultsCell.Length() != 1 {
		return nil, false
	}
	results, err := strconv.Atoi(strings.TrimSpace(nodeText(resultsCell)))
	if err != nil {
		return nil, false
	}

	dateCell := row.Find("td:nth-child(6)")
	if dateCell.Length() != 1 {
		return nil, false
	}
	dateGroups := rowDatePattern.FindStringSubmatch(nodeText(dateCell))
	if dateGroups == nil {
		return nil, false
	}
	date, err := parseMDY(dateGroups[1], dateGroups[2], dateGroups[3], "last generated date")
	if err != nil {
		return nil, false
	}

	return &PocketQuery{
		session:         s,
		guid:            guid,
		name:            name,
		results:         results,
		lastGeneratedAt: date,
	}, true
}

// FromFile reads a downloaded pocket query from disk and parses it.
func FromFile(path string) (*PocketQuery, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pq := &PocketQuery{raw: raw}
	if err := pq.Parse(); err != nil {
		return nil, err
	}
	return pq, nil
}

func (p *PocketQuery) GUID() string {
	return p.guid
}

// Name is the query's name from the listing row, or from the GPX
// document when the query was read from disk.
func (p *PocketQuery) Name() (string, error) {
	if p.name != "" {
		return p.name, nil
	}
	if p.gpx == nil {
		return "", fmt.Errorf("%w: the pocket query has to be downloaded first", ErrNotFetched)
	}
	return p.gpx.Name, nil
}

// Results is the number of records in the query, from the listing row
// or the parsed document.
func (p *PocketQuery) Results() (int, error) {
	if p.results > 0 {
		return p.results, nil
	}
	if p.gpx == nil {
		return 0, fmt.Errorf("%w: the pocket query has to be downloaded first", ErrNotFetched)
	}
	return len(p.gpx.Waypoints), nil
}

func (p *PocketQuery) LastGeneratedAt() (time.Time, error) {
	if p.lastGeneratedAt.IsZero() {
		return time.Time{}, fmt.Errorf("%w: the pocket query has to be downloaded first", ErrNotFetched)
	}
	return p.lastGeneratedAt, nil
}

// Raw is the downloaded payload as-is.
func (p *PocketQuery) Raw() ([]byte, error) {
	if p.raw == nil {
		return nil, fmt.Errorf("%w: the pocket query has to be downloaded first", ErrNotFetched)
	}
	return p.raw, nil
}

// GPX is the parsed document.
func (p *PocketQuery) GPX() (*GPXDocument, error) {
	if p.gpx == nil {
		return nil, fmt.Errorf("%w: the pocket query has to be downloaded first", ErrNotFetched)
	}
	return p.gpx, nil
}

// Download fetches the query's payload and parses it.
func (p *PocketQuery) Download(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "pocketquery:Download")
	defer span.End()

	if !p.session.LoggedIn() {
		span.SetStatus(codes.Error, "not logged in")
		return fmt.Errorf("%w: you need to be logged in to download a pocket query", ErrLogin)
	}

	res, _, err := p.session.Get(ctx, "/pocket/downloadpq.ashx?g="+p.guid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return err
	}

	p.raw = res.Body()
	return p.Parse()
}

// Parse interprets the raw payload. Zip archives are refused; callers
// can unzip Raw themselves and feed the GPX back through FromFile.
func (p *PocketQuery) Parse() error {
	if p.raw == nil {
		return fmt.Errorf("%w: the pocket query has to be downloaded first", ErrNotFetched)
	}
	if bytes.HasPrefix(p.raw, []byte("PK")) {
		return fmt.Errorf("%w: zip pocket queries are not supported", ErrExtract)
	}

	var gpx GPXDocument
	if err := xml.Unmarshal(p.raw, &gpx); err != nil {
		return fmt.Errorf("%w: malformed gpx document: %v", ErrExtract, err)
	}
	p.gpx = &gpx
	return nil
}

// ScheduleMyFinds queues the site-side "My Finds" batch job. There is
// no completion signal beyond the confirmation string in the
// response.
func ScheduleMyFinds(ctx context.Context, s *session.Client) (bool, error) {
	ctx, span := tracer.Start(ctx, "pocketquery:ScheduleMyFinds")
	defer span.End()

	_, data, err := s.Post(ctx, "/pocket/default.aspx", map[string]string{
		"ctl00$ContentBody$PQListControl1$btnScheduleNow": "Yes",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to post")
		return false, err
	}
	return strings.Contains(data, "Your 'My Finds' Pocket Query has been scheduled to run."), nil
}
