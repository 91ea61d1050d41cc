package geocaching

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"geoscrape/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// memo resolves a lazily extracted field exactly once per fetch. The
// slot lives in the entity's field struct and is dropped wholesale
// when the entity is re-fetched.
func memo[T any](slot **T, compute func() (T, error)) (T, error) {
	if *slot != nil {
		return **slot, nil
	}
	value, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	*slot = &value
	return value, nil
}

// findOne locates the single element an extraction rule expects. Zero
// or multiple matches mean the site changed its markup (or served an
// error page), which is an extraction failure rather than a transport
// one.
func findOne(doc *goquery.Document, selector, what string) (*goquery.Selection, error) {
	sel := doc.Find(selector)
	if sel.Length() != 1 {
		return nil, extractError(what)
	}
	return sel, nil
}

// nodeText collects the raw text of every node a selection matched.
func nodeText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, node := range sel.Nodes {
		b.WriteString(htmlutil.GetText(node))
	}
	return b.String()
}

// matchOne applies a raw-markup pattern rule and returns its first
// capture group.
func matchOne(data string, re *regexp.Regexp, what string) (string, error) {
	groups := re.FindStringSubmatch(data)
	if len(groups) < 2 {
		return "", extractError(what)
	}
	return groups[1], nil
}

func parseRating(s, what string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, extractError(what)
	}
	return v, nil
}

// parseMDY interprets the site's numeric dates, which are always
// rendered month/day/year.
func parseMDY(month, day, year, what string) (time.Time, error) {
	m, err1 := strconv.Atoi(month)
	d, err2 := strconv.Atoi(day)
	y, err3 := strconv.Atoi(year)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, extractError(what)
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, extractError(what)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), nil
}

// long-form date layouts the site uses on event, log and profile pages
var siteDateLayouts = []string{
	"2 January 2006",
	"Monday, 2 January 2006",
	"Monday, January 2, 2006",
	"January 2, 2006",
	"1/2/2006",
}

func parseSiteDate(s, what string) (time.Time, error) {
	for _, layout := range siteDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, extractError(what)
}

// ContainerSize is the closed set of container sizes the site encodes
// as an icon filename token.
type ContainerSize string

const (
	SizeMicro     ContainerSize = "micro"
	SizeSmall     ContainerSize = "small"
	SizeRegular   ContainerSize = "regular"
	SizeLarge     ContainerSize = "large"
	SizeOther     ContainerSize = "other"
	SizeNotChosen ContainerSize = "not_chosen"
	SizeVirtual   ContainerSize = "virtual"
)

var containerSizes = map[string]ContainerSize{
	"micro":      SizeMicro,
	"small":      SizeSmall,
	"regular":    SizeRegular,
	"large":      SizeLarge,
	"other":      SizeOther,
	"not_chosen": SizeNotChosen,
	"virtual":    SizeVirtual,
}

func containerSizeFromToken(token string) (ContainerSize, error) {
	size, ok := containerSizes[token]
	if !ok {
		return "", fmt.Errorf("%w: unknown container size %q", ErrExtract, token)
	}
	return size, nil
}
