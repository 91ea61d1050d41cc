package geocaching

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"geoscrape/lib/htmlutil"
	"geoscrape/lib/session"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
)

// LogRef identifies a log before it has been fetched.
type LogRef struct {
	GUID string
}

// Log is a single log entry on a cache listing.
type Log struct {
	session *session.Client

	guid  string
	cache *Cache

	data string
	doc  *goquery.Document

	fields logFields
}

type logFields struct {
	title    *string
	ltype    *LogType
	cache    **Cache
	user     **User
	date     *time.Time
	message  *string
	shortURL *string
	meta     *map[string]string
}

func NewLog(s *session.Client, ref LogRef) (*Log, error) {
	if ref.GUID != "" {
		if _, err := uuid.Parse(ref.GUID); err != nil {
			return nil, fmt.Errorf("%w: malformed guid %q", ErrUsage, ref.GUID)
		}
	}
	return &Log{session: s, guid: ref.GUID}, nil
}

// FetchLog constructs a log and fetches it in one step.
func FetchLog(ctx context.Context, s *session.Client, ref LogRef) (*Log, error) {
	log, err := NewLog(s, ref)
	if err != nil {
		return nil, err
	}
	if err := log.Fetch(ctx); err != nil {
		return nil, err
	}
	return log, nil
}

// newLogStub builds the lightweight log a cache page or listing row
// yields. A zero date means the row did not carry one.
func newLogStub(s *session.Client, guid, title string, date time.Time, cache *Cache) *Log {
	l := &Log{session: s, guid: guid, cache: cache}
	l.fields.title = &title
	if !date.IsZero() {
		l.fields.date = &date
	}
	return l
}

// Fetch performs the single request backing this log's accessors. The
// log detail page requires an authenticated session.
func (l *Log) Fetch(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "log:Fetch")
	defer span.End()

	if l.guid == "" {
		return fmt.Errorf("%w: no guid given", ErrUsage)
	}
	if !l.session.LoggedIn() {
		span.SetStatus(codes.Error, "not logged in")
		return fmt.Errorf("%w: fetching a log requires being logged in", ErrLogin)
	}

	_, data, err := l.session.Get(ctx, "/seek/log.aspx?LUID="+l.guid)
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

	l.data = data
	l.doc = doc
	l.fields = logFields{}
	return nil
}

func (l *Log) Fetched() bool {
	return l.data != "" && l.doc != nil
}

func (l *Log) requireFetched() error {
	if !l.Fetched() {
		return ErrNotFetched
	}
	return nil
}

func (l *Log) GUID() string {
	return l.guid
}

// Title is the raw site-provided label of the log, which is also what
// resolves its type.
func (l *Log) Title() (string, error) {
	return memo(&l.fields.title, func() (string, error) {
		if err := l.requireFetched(); err != nil {
			return "", err
		}
		sel, err := findOne(l.doc, "#ctl00_ContentBody_LogBookPanel1_LogImage", "title")
		if err != nil {
			return "", err
		}
		alt, ok := sel.Attr("alt")
		if !ok {
			return "", extractError("title")
		}
		return alt, nil
	})
}

func (l *Log) Type() (LogType, error) {
	return memo(&l.fields.ltype, func() (LogType, error) {
		title, err := l.Title()
		if err != nil {
			return LogType{}, err
		}
		t, ok := LogTypeForTitle(title)
		if !ok {
			return LogType{}, fmt.Errorf("%w: unknown log type %q", ErrExtract, title)
		}
		return t, nil
	})
}

// Cache returns the cache this log belongs to. When the log was built
// from a listing row the reference from the row is returned; otherwise
// a stub with only the guid populated is derived from the log page.
func (l *Log) Cache() (*Cache, error) {
	v, err := memo(&l.fields.cache, func() (*Cache, error) {
		if l.cache != nil {
			return l.cache, nil
		}
		guid, err := l.cacheGUID()
		if err != nil {
			return nil, err
		}
		return &Cache{session: l.session, guid: guid}, nil
	})
	return v, err
}

func (l *Log) cacheGUID() (string, error) {
	if err := l.requireFetched(); err != nil {
		return "", err
	}
	anchors := l.doc.Find("#ctl00_ContentBody_LogBookPanel1_lbLogText > a")
	if anchors.Length() != 3 {
		return "", extractError("cache guid")
	}
	groups := guidPattern.FindStringSubmatch(anchors.Eq(1).AttrOr("href", ""))
	if groups == nil {
		return "", extractError("cache guid")
	}
	return groups[1], nil
}

// User returns an unfetched stub for the account that wrote the log.
func (l *Log) User() (*User, error) {
	v, err := memo(&l.fields.user, func() (*User, error) {
		if err := l.requireFetched(); err != nil {
			return nil, err
		}
		anchors := l.doc.Find("#ctl00_ContentBody_LogBookPanel1_lbLogText > a")
		if anchors.Length() == 0 {
			return nil, extractError("username")
		}
		name := htmlutil.Unescape(htmlutil.CleanText(nodeText(anchors.First())))
		return newUserStub(l.session, "", name), nil
	})
	return v, err
}

// Date is the day the log was written.
func (l *Log) Date() (time.Time, error) {
	v, err := memo(&l.fields.date, func() (time.Time, error) {
		if err := l.requireFetched(); err != nil {
			return time.Time{}, err
		}
		sel, err := findOne(l.doc, "#ctl00_ContentBody_LogBookPanel1_LogDate", "log date")
		if err != nil {
			return time.Time{}, err
		}
		return parseSiteDate(htmlutil.CleanText(nodeText(sel)), "log date")
	})
	return v, err
}

// Message is the raw log text with all format codes, normalized to
// unix line endings.
func (l *Log) Message() (string, error) {
	return memo(&l.fields.message, func() (string, error) {
		meta, err := l.metaTags()
		if err != nil {
			return "", err
		}
		description, ok := meta["description"]
		if !ok {
			return "", extractError("message")
		}
		return strings.ReplaceAll(description, "\r\n", "\n"), nil
	})
}

// ShortURL is the log's coord.info permalink.
func (l *Log) ShortURL() (string, error) {
	return memo(&l.fields.shortURL, func() (string, error) {
		meta, err := l.metaTags()
		if err != nil {
			return "", err
		}
		u, ok := meta["url"]
		if !ok {
			return "", extractError("short url")
		}
		return u, nil
	})
}

// metaTags collects the og: meta tags the log page carries.
func (l *Log) metaTags() (map[string]string, error) {
	v, err := memo(&l.fields.meta, func() (map[string]string, error) {
		if err := l.requireFetched(); err != nil {
			return nil, err
		}
		meta := map[string]string{}
		l.doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
			name := s.AttrOr("name", "")
			if strings.HasPrefix(name, "og:") {
				meta[strings.TrimPrefix(name, "og:")] = s.AttrOr("content", "")
			}
		})
		return meta, nil
	})
	return v, err
}

// FetchAllLogs fetches every log in the list, joining the failures.
func FetchAllLogs(ctx context.Context, logs []*Log) error {
	var errList []error
	for _, l := range logs {
		if err := l.Fetch(ctx); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
