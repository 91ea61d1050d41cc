package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestGetText(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(
		"<html><body><p>hello <b>bold</b> world</p></body></html>",
	))
	require.NoError(t, err)

	require.Contains(t, GetText(doc), "hello bold world")
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "a b c", CleanText("  a \t b \n\n c  "))
	require.Equal(t, "", CleanText(" \n\t "))
}

func TestUnescape(t *testing.T) {
	require.Equal(t, "ü", Unescape("&#252;"))
	require.Equal(t, "Fish & Chips", Unescape("Fish &amp; Chips"))
	require.Equal(t, `"quoted"`, Unescape("&quot;quoted&quot;"))
	require.Equal(t, "plain", Unescape("plain"))
}
