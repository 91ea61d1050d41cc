package geocaching

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"geoscrape/lib/htmlutil"
	"geoscrape/lib/session"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
)

// UserRef identifies a user before their profile has been fetched.
type UserRef struct {
	GUID string
	Name string
}

// User is an account profile on the site.
type User struct {
	session *session.Client

	guid string
	name string

	data string
	doc  *goquery.Document

	fields userFields
}

type userFields struct {
	name        *string
	occupation  *string
	location    *string
	forumTitle  *string
	homepage    *string
	status      *[]string
	lastVisit   *time.Time
	memberSince *time.Time
}

func NewUser(s *session.Client, ref UserRef) (*User, error) {
	if ref.GUID != "" {
		if _, err := uuid.Parse(ref.GUID); err != nil {
			return nil, fmt.Errorf("%w: malformed guid %q", ErrUsage, ref.GUID)
		}
	}
	return &User{session: s, guid: ref.GUID, name: ref.Name}, nil
}

// FetchUser constructs a user and fetches their profile in one step.
func FetchUser(ctx context.Context, s *session.Client, ref UserRef) (*User, error) {
	user, err := NewUser(s, ref)
	if err != nil {
		return nil, err
	}
	if err := user.Fetch(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

func newUserStub(s *session.Client, guid, name string) *User {
	return &User{session: s, guid: guid, name: name}
}

// Fetch loads the user's profile page. A guid is required; stubs built
// from a bare username cannot be fetched.
func (u *User) Fetch(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "user:Fetch")
	defer span.End()

	if u.guid == "" {
		return fmt.Errorf("%w: no guid given", ErrUsage)
	}

	_, data, err := u.session.Get(ctx, "/profile/?guid="+u.guid)
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

	u.data = data
	u.doc = doc
	u.fields = userFields{}
	return nil
}

func (u *User) Fetched() bool {
	return u.data != "" && u.doc != nil
}

func (u *User) requireFetched() error {
	if !u.Fetched() {
		return ErrNotFetched
	}
	return nil
}

func (u *User) GUID() string {
	return u.guid
}

var profileNamePattern = regexp.MustCompile(`Profile for (?:User|Reviewer): (.+)`)

func (u *User) Name() (string, error) {
	if u.name != "" {
		return u.name, nil
	}
	return memo(&u.fields.name, func() (string, error) {
		if err := u.requireFetched(); err != nil {
			return "", err
		}
		sel, err := findOne(u.doc, "#ctl00_ContentBody_lblUserProfile", "name")
		if err != nil {
			return "", err
		}
		groups := profileNamePattern.FindStringSubmatch(nodeText(sel))
		if groups == nil {
			return "", extractError("name")
		}
		return htmlutil.Unescape(htmlutil.CleanText(groups[1])), nil
	})
}

func (u *User) Occupation() (string, error) {
	return memo(&u.fields.occupation, func() (string, error) {
		return u.profileText("#ctl00_ContentBody_ProfilePanel1_lblOccupationTxt", "occupation")
	})
}

func (u *User) Location() (string, error) {
	return memo(&u.fields.location, func() (string, error) {
		return u.profileText("#ctl00_ContentBody_ProfilePanel1_lblLocationTxt", "location")
	})
}

func (u *User) ForumTitle() (string, error) {
	return memo(&u.fields.forumTitle, func() (string, error) {
		return u.profileText("#ctl00_ContentBody_ProfilePanel1_lblForumTitleTxt", "forum title")
	})
}

// Homepage returns the user's homepage link; ok is false when the
// profile has none.
func (u *User) Homepage() (homepage string, ok bool, err error) {
	if err := u.requireFetched(); err != nil {
		return "", false, err
	}
	v, err := memo(&u.fields.homepage, func() (string, error) {
		sel := u.doc.Find("#ctl00_ContentBody_ProfilePanel1_lnkHomePage")
		if sel.Length() != 1 {
			return "", nil
		}
		return sel.AttrOr("href", ""), nil
	})
	if err != nil {
		return "", false, err
	}
	return v, v != "", nil
}

// Status returns the status tags on the profile, e.g. "Premium
// Member" or "Reviewer".
func (u *User) Status() ([]string, error) {
	v, err := memo(&u.fields.status, func() ([]string, error) {
		raw, err := u.profileText("#ctl00_ContentBody_ProfilePanel1_lblStatusText", "status")
		if err != nil {
			return nil, err
		}
		var status []string
		for _, s := range strings.Split(raw, ",") {
			status = append(status, strings.TrimSpace(s))
		}
		return status, nil
	})
	return v, err
}

func (u *User) LastVisit() (time.Time, error) {
	v, err := memo(&u.fields.lastVisit, func() (time.Time, error) {
		raw, err := u.profileText("#ctl00_ContentBody_ProfilePanel1_lblLastVisitDate", "last visit date")
		if err != nil {
			return time.Time{}, err
		}
		return parseSiteDate(raw, "last visit date")
	})
	return v, err
}

func (u *User) MemberSince() (time.Time, error) {
	v, err := memo(&u.fields.memberSince, func() (time.Time, error) {
		raw, err := u.profileText("#ctl00_ContentBody_ProfilePanel1_lblMemberSinceDate", "member since date")
		if err != nil {
			return time.Time{}, err
		}
		return parseSiteDate(raw, "member since date")
	})
	return v, err
}

// Reviewer reports whether the profile carries the Reviewer status
// tag.
func (u *User) Reviewer() (bool, error) {
	status, err := u.Status()
	if err != nil {
		return false, err
	}
	return slices.Contains(status, "Reviewer"), nil
}

// PremiumMember reports whether the profile carries the Premium
// Member status tag.
func (u *User) PremiumMember() (bool, error) {
	status, err := u.Status()
	if err != nil {
		return false, err
	}
	return slices.Contains(status, "Premium Member"), nil
}

func (u *User) profileText(selector, what string) (string, error) {
	if err := u.requireFetched(); err != nil {
		return "", err
	}
	sel, err := findOne(u.doc, selector, what)
	if err != nil {
		return "", err
	}
	return htmlutil.Unescape(htmlutil.CleanText(nodeText(sel))), nil
}
