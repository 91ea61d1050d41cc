package geocaching

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestMemo(t *testing.T) {
	var slot *int
	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := memo(&slot, compute)
	require.NoError(t, err)
	require.Equal(t, 42, v)
	v, err = memo(&slot, compute)
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, 1, calls)

	// a failed compute leaves the slot empty, so the next read retries
	var failSlot *string
	_, err = memo(&failSlot, func() (string, error) {
		return "", extractError("thing")
	})
	require.ErrorIs(t, err, ErrExtract)
	require.Nil(t, failSlot)
}

func TestNodeText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><p id="p">hello <b>bold</b> world</p><span class="s">a</span><span class="s">b</span></body></html>`,
	))
	require.NoError(t, err)

	require.Equal(t, "hello bold world", nodeText(doc.Find("#p")))
	require.Equal(t, "ab", nodeText(doc.Find("span.s")))
	require.Equal(t, "", nodeText(doc.Find("#missing")))
}

func TestParseSiteDate(t *testing.T) {
	want := time.Date(2010, 6, 26, 0, 0, 0, 0, time.UTC)

	for _, input := range []string{
		"26 June 2010",
		"Saturday, 26 June 2010",
		"Saturday, June 26, 2010",
		"June 26, 2010",
		"6/26/2010",
	} {
		got, err := parseSiteDate(input, "date")
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	_, err := parseSiteDate("sometime in summer", "date")
	require.ErrorIs(t, err, ErrExtract)
}

func TestParseMDY(t *testing.T) {
	got, err := parseMDY("06", "22", "2010", "date")
	require.NoError(t, err)
	require.Equal(t, time.Date(2010, 6, 22, 0, 0, 0, 0, time.UTC), got)

	_, err = parseMDY("13", "01", "2010", "date")
	require.ErrorIs(t, err, ErrExtract)
	_, err = parseMDY("xx", "01", "2010", "date")
	require.ErrorIs(t, err, ErrExtract)
}

func TestContainerSizeFromToken(t *testing.T) {
	size, err := containerSizeFromToken("not_chosen")
	require.NoError(t, err)
	require.Equal(t, SizeNotChosen, size)

	_, err = containerSizeFromToken("gigantic")
	require.ErrorIs(t, err, ErrExtract)
}
