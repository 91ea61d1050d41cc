package geocaching

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"geoscrape/lib/htmlutil"
	"geoscrape/lib/session"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
)

// CacheRef identifies a cache before it has been fetched. At least one
// of the two must be set.
type CacheRef struct {
	Code string
	GUID string
}

// Cache is a cache listing on the site. Descriptive fields are
// extracted lazily from the fetched page and memoized until the next
// Fetch call, which replaces the backing document and drops every
// memoized value.
type Cache struct {
	session *session.Client

	code string
	guid string

	data string
	doc  *goquery.Document

	fields cacheFields
}

type cacheFields struct {
	code        *string
	guid        *string
	id          *int
	name        *string
	owner       *Owner
	typeID      *int
	ctype       *CacheType
	difficulty  *float64
	terrain     *float64
	hiddenAt    *time.Time
	eventAt     *time.Time
	size        *ContainerSize
	latitude    *float64
	longitude   *float64
	location    *string
	logs        *[]*Log
	archived    *bool
	pmOnly      *bool
	inReview    *bool
	unpublished *bool
}

// Owner is the account a cache listing belongs to. User is a stub
// carrying only the guid and display name from the listing page.
type Owner struct {
	Name string
	User *User
}

func NewCache(s *session.Client, ref CacheRef) (*Cache, error) {
	if ref.GUID != "" {
		if _, err := uuid.Parse(ref.GUID); err != nil {
			return nil, fmt.Errorf("%w: malformed guid %q", ErrUsage, ref.GUID)
		}
	}
	return &Cache{session: s, code: ref.Code, guid: ref.GUID}, nil
}

// FetchCache constructs a cache and fetches it in one step.
func FetchCache(ctx context.Context, s *session.Client, ref CacheRef) (*Cache, error) {
	cache, err := NewCache(s, ref)
	if err != nil {
		return nil, err
	}
	if err := cache.Fetch(ctx); err != nil {
		return nil, err
	}
	return cache, nil
}

// newCacheStub builds the lightweight cache a listing row yields. The
// provided fields are readable immediately; everything else requires a
// Fetch.
func newCacheStub(s *session.Client, guid, name string, ctype CacheType) *Cache {
	c := &Cache{session: s, guid: guid}
	c.fields.name = &name
	c.fields.ctype = &ctype
	return c
}

func (c *Cache) path() string {
	if c.code != "" {
		return "/seek/cache_details.aspx?log=y&wp=" + c.code
	}
	return "/seek/cache_details.aspx?log=y&guid=" + c.guid
}

// Fetch performs the single network request that backs every accessor.
// Calling it again replaces the document and invalidates all memoized
// fields.
func (c *Cache) Fetch(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "cache:Fetch")
	defer span.End()

	if c.code == "" && c.guid == "" {
		return fmt.Errorf("%w: neither code nor guid given", ErrUsage)
	}

	_, data, err := c.session.Get(ctx, c.path())
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

	c.data = data
	c.doc = doc
	c.fields = cacheFields{}
	return nil
}

func (c *Cache) Fetched() bool {
	return c.data != "" && c.doc != nil
}

func (c *Cache) requireFetched() error {
	if !c.Fetched() {
		return ErrNotFetched
	}
	return nil
}

var (
	codePattern        = regexp.MustCompile(`(GC[A-Z0-9]+)`)
	guidPattern        = regexp.MustCompile(`guid=([0-9a-f-]{36})`)
	cacheIDPattern     = regexp.MustCompile(`log\.aspx\?ID=(\d+)`)
	typeIDPattern      = regexp.MustCompile(`(?s)<a[^>]*title="About Cache Types"><img[^>]*WptTypes/(\d+)\.gif"`)
	difficultyPattern  = regexp.MustCompile(`(?s)<strong>\s*Difficulty:</strong>\s*<img[^>]*alt="([\d.]{1,3}) out of 5"`)
	terrainPattern     = regexp.MustCompile(`(?s)<strong>\s*Terrain:</strong>\s*<img[^>]*alt="([\d.]{1,3}) out of 5"`)
	hiddenPattern      = regexp.MustCompile(`<strong>\s*Hidden\s*:\s*</strong>\s*(\d{1,2})/(\d{1,2})/(\d{4})`)
	eventDatePattern   = regexp.MustCompile(`<strong>\s*Event Date:\s*</strong>\s*\w+, (\d+) (\w+) (\d{4})`)
	sizePattern        = regexp.MustCompile(`<img src="/images/icons/container/(.*?)\.gif" alt="Size: `)
	latPattern         = regexp.MustCompile(`lat=(-?[0-9.]+)`)
	lonPattern         = regexp.MustCompile(`lon=(-?[0-9.]+)`)
	locationPattern    = regexp.MustCompile(`In ([^<]+)`)
	archivedPattern    = regexp.MustCompile(`<li>This cache has been archived`)
	pmOnlyPattern      = regexp.MustCompile(`<p class="Warning">This is a Premium Member Only cache\.</p>`)
	inReviewPattern    = regexp.MustCompile(`This cache is currently under review`)
	unpublishedPattern = regexp.MustCompile(`Cache is Unpublished`)
)

// Code is the cache's public GC code.
func (c *Cache) Code() (string, error) {
	if c.code != "" {
		return c.code, nil
	}
	return memo(&c.fields.code, func() (string, error) {
		if err := c.requireFetched(); err != nil {
			return "", err
		}
		sel, err := findOne(c.doc, "#ctl00_uxWaypointName.GCCode", "code")
		if err != nil {
			return "", err
		}
		groups := codePattern.FindStringSubmatch(nodeText(sel))
		if groups == nil {
			return "", extractError("code")
		}
		return htmlutil.Unescape(groups[1]), nil
	})
}

// GUID is the cache's globally unique identifier on the site.
func (c *Cache) GUID() (string, error) {
	if c.guid != "" {
		return c.guid, nil
	}
	return memo(&c.fields.guid, func() (string, error) {
		if err := c.requireFetched(); err != nil {
			return "", err
		}
		sel, err := findOne(c.doc, "#ctl00_ContentBody_lnkPrintFriendly", "guid")
		if err != nil {
			return "", err
		}
		groups := guidPattern.FindStringSubmatch(sel.AttrOr("href", ""))
		if groups == nil {
			return "", extractError("guid")
		}
		return groups[1], nil
	})
}

// ID is the cache's numeric site id, as used by the log submission
// endpoint.
func (c *Cache) ID() (int, error) {
	v, err := memo(&c.fields.id, func() (int, error) {
		if err := c.requireFetched(); err != nil {
			return 0, err
		}
		s, err := matchOne(c.data, cacheIDPattern, "id")
		if err != nil {
			return 0, err
		}
		id, err := strconv.Atoi(s)
		if err != nil {
			return 0, extractError("id")
		}
		return id, nil
	})
	return v, err
}

func (c *Cache) Name() (string, error) {
	return memo(&c.fields.name, func() (string, error) {
		if err := c.requireFetched(); err != nil {
			return "", err
		}
		sel, err := findOne(c.doc, "span#ctl00_ContentBody_CacheName", "name")
		if err != nil {
			return "", err
		}
		return htmlutil.Unescape(nodeText(sel)), nil
	})
}

// Owner returns the listing owner as a display name plus an unfetched
// User stub.
func (c *Cache) Owner() (Owner, error) {
	return memo(&c.fields.owner, func() (Owner, error) {
		if err := c.requireFetched(); err != nil {
			return Owner{}, err
		}
		sel, err := findOne(c.doc, "#ctl00_ContentBody_mcd1 a", "owner")
		if err != nil {
			return Owner{}, err
		}
		groups := guidPattern.FindStringSubmatch(sel.AttrOr("href", ""))
		if groups == nil {
			return Owner{}, extractError("owner")
		}
		name := htmlutil.Unescape(htmlutil.CleanText(nodeText(sel)))
		user := newUserStub(c.session, groups[1], name)
		return Owner{Name: name, User: user}, nil
	})
}

func (c *Cache) typeIDValue() (int, error) {
	v, err := memo(&c.fields.typeID, func() (int, error) {
		if err := c.requireFetched(); err != nil {
			return 0, err
		}
		s, err := matchOne(c.data, typeIDPattern, "cache type id")
		if err != nil {
			return 0, err
		}
		id, err := strconv.Atoi(s)
		if err != nil {
			return 0, extractError("cache type id")
		}
		return id, nil
	})
	return v, err
}

func (c *Cache) Type() (CacheType, error) {
	return memo(&c.fields.ctype, func() (CacheType, error) {
		id, err := c.typeIDValue()
		if err != nil {
			return CacheType{}, err
		}
		t, ok := CacheTypeForID(id)
		if !ok {
			return CacheType{}, fmt.Errorf("%w: unknown cache type id %d", ErrExtract, id)
		}
		return t, nil
	})
}

func (c *Cache) Difficulty() (float64, error) {
	v, err := memo(&c.fields.difficulty, func() (float64, error) {
		if err := c.requireFetched(); err != nil {
			return 0, err
		}
		s, err := matchOne(c.data, difficultyPattern, "difficulty rating")
		if err != nil {
			return 0, err
		}
		return parseRating(s, "difficulty rating")
	})
	return v, err
}

func (c *Cache) Terrain() (float64, error) {
	v, err := memo(&c.fields.terrain, func() (float64, error) {
		if err := c.requireFetched(); err != nil {
			return 0, err
		}
		s, err := matchOne(c.data, terrainPattern, "terrain rating")
		if err != nil {
			return 0, err
		}
		return parseRating(s, "terrain rating")
	})
	return v, err
}

// HiddenAt is the date the cache was hidden. Event-like caches carry
// an event date instead, in which case ok is false.
func (c *Cache) HiddenAt() (t time.Time, ok bool, err error) {
	ctype, err := c.Type()
	if err != nil {
		return time.Time{}, false, err
	}
	if ctype.IsEvent() {
		return time.Time{}, false, nil
	}
	v, err := memo(&c.fields.hiddenAt, func() (time.Time, error) {
		if err := c.requireFetched(); err != nil {
			return time.Time{}, err
		}
		groups := hiddenPattern.FindStringSubmatch(c.data)
		if groups == nil {
			return time.Time{}, extractError("hidden date")
		}
		return parseMDY(groups[1], groups[2], groups[3], "hidden date")
	})
	return v, err == nil, err
}

// EventAt is the date an event-like cache is held at; ok is false for
// every other type.
func (c *Cache) EventAt() (t time.Time, ok bool, err error) {
	ctype, err := c.Type()
	if err != nil {
		return time.Time{}, false, err
	}
	if !ctype.IsEvent() {
		return time.Time{}, false, nil
	}
	v, err := memo(&c.fields.eventAt, func() (time.Time, error) {
		if err := c.requireFetched(); err != nil {
			return time.Time{}, err
		}
		groups := eventDatePattern.FindStringSubmatch(c.data)
		if groups == nil {
			return time.Time{}, extractError("event date")
		}
		long := fmt.Sprintf("%s %s %s", groups[1], groups[2], groups[3])
		return parseSiteDate(long, "event date")
	})
	return v, err == nil, err
}

func (c *Cache) Size() (ContainerSize, error) {
	return memo(&c.fields.size, func() (ContainerSize, error) {
		if err := c.requireFetched(); err != nil {
			return "", err
		}
		token, err := matchOne(c.data, sizePattern, "container size")
		if err != nil {
			return "", err
		}
		return containerSizeFromToken(token)
	})
}

// Latitude returns the cache's latitude. Locationless caches have no
// coordinates; ok is false for them.
func (c *Cache) Latitude() (lat float64, ok bool, err error) {
	ctype, err := c.Type()
	if err != nil {
		return 0, false, err
	}
	if ctype.Is(Locationless) {
		return 0, false, nil
	}
	v, err := memo(&c.fields.latitude, func() (float64, error) {
		if err := c.requireFetched(); err != nil {
			return 0, err
		}
		return c.conversionCoord(latPattern, "latitude")
	})
	return v, err == nil, err
}

// Longitude returns the cache's longitude; ok is false for
// locationless caches.
func (c *Cache) Longitude() (lon float64, ok bool, err error) {
	ctype, err := c.Type()
	if err != nil {
		return 0, false, err
	}
	if ctype.Is(Locationless) {
		return 0, false, nil
	}
	v, err := memo(&c.fields.longitude, func() (float64, error) {
		if err := c.requireFetched(); err != nil {
			return 0, err
		}
		return c.conversionCoord(lonPattern, "longitude")
	})
	return v, err == nil, err
}

func (c *Cache) conversionCoord(pattern *regexp.Regexp, what string) (float64, error) {
	sel, err := findOne(c.doc, "a#ctl00_ContentBody_lnkConversions", what)
	if err != nil {
		return 0, err
	}
	groups := pattern.FindStringSubmatch(sel.AttrOr("href", ""))
	if groups == nil {
		return 0, extractError(what)
	}
	v, err := strconv.ParseFloat(groups[1], 64)
	if err != nil {
		return 0, extractError(what)
	}
	return v, nil
}

// Location is the cache's "State, Country" string; ok is false for
// locationless caches.
func (c *Cache) Location() (loc string, ok bool, err error) {
	ctype, err := c.Type()
	if err != nil {
		return "", false, err
	}
	if ctype.Is(Locationless) {
		return "", false, nil
	}
	v, err := memo(&c.fields.location, func() (string, error) {
		if err := c.requireFetched(); err != nil {
			return "", err
		}
		sel, err := findOne(c.doc, "span#ctl00_ContentBody_Location", "location")
		if err != nil {
			return "", err
		}
		inner, err := sel.Html()
		if err != nil {
			return "", extractError("location")
		}
		groups := locationPattern.FindStringSubmatch(inner)
		if groups == nil {
			return "", extractError("location")
		}
		return htmlutil.Unescape(htmlutil.CleanText(groups[1])), nil
	})
	return v, err == nil, err
}

// Archived reports whether the listing has been archived.
func (c *Cache) Archived() (bool, error) {
	v, err := memo(&c.fields.archived, func() (bool, error) {
		if err := c.requireFetched(); err != nil {
			return false, err
		}
		return archivedPattern.MatchString(c.data), nil
	})
	return v, err
}

// PMOnly reports whether the listing is restricted to premium members.
func (c *Cache) PMOnly() (bool, error) {
	v, err := memo(&c.fields.pmOnly, func() (bool, error) {
		if err := c.requireFetched(); err != nil {
			return false, err
		}
		if c.doc.Find("#ctl00_ContentBody_basicMemberMsg").Length() == 1 {
			return true, nil
		}
		return pmOnlyPattern.MatchString(c.data), nil
	})
	return v, err
}

// InReview reports whether the listing is still with a reviewer.
func (c *Cache) InReview() (bool, error) {
	v, err := memo(&c.fields.inReview, func() (bool, error) {
		if err := c.requireFetched(); err != nil {
			return false, err
		}
		return inReviewPattern.MatchString(c.data), nil
	})
	return v, err
}

// Unpublished reports whether the listing has not been published yet.
func (c *Cache) Unpublished() (bool, error) {
	v, err := memo(&c.fields.unpublished, func() (bool, error) {
		if err := c.requireFetched(); err != nil {
			return false, err
		}
		return unpublishedPattern.MatchString(c.data), nil
	})
	return v, err
}

// Logs returns the log stubs from the listing's log table. Each stub
// carries its guid, raw title and a reference back to this cache;
// fetch a stub for full detail.
func (c *Cache) Logs() ([]*Log, error) {
	v, err := memo(&c.fields.logs, func() ([]*Log, error) {
		if err := c.requireFetched(); err != nil {
			return nil, err
		}

		tds := c.doc.Find("table.Table.LogsTable tr td")
		if tds.Length() == 0 {
			return nil, extractError("logs")
		}

		var logs []*Log
		var rowErr error
		tds.EachWithBreak(func(_ int, td *goquery.Selection) bool {
			strongs := td.Find("strong")
			if strongs.Length() == 0 {
				return true
			}

			first := strongs.First()
			imgs := first.Find("img")
			anchors := first.Find("a")
			if imgs.Length() != 1 || anchors.Length() != 1 {
				rowErr = extractError("logs")
				return false
			}

			title, hasTitle := imgs.Attr("title")
			groups := guidPattern.FindStringSubmatch(anchors.AttrOr("href", ""))
			if !hasTitle || groups == nil {
				rowErr = extractError("logs")
				return false
			}

			logs = append(logs, newLogStub(c.session, groups[1], title, time.Time{}, c))
			return true
		})
		if rowErr != nil {
			return nil, rowErr
		}

		return logs, nil
	})
	return v, err
}
