package geocaching

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheTypeRegistryUnique(t *testing.T) {
	ids := map[int]bool{}
	titles := map[string]bool{}
	kinds := map[CacheKind]bool{}
	for _, ct := range cacheTypes {
		require.False(t, ids[ct.ID], "duplicate id %d", ct.ID)
		require.False(t, titles[ct.Title], "duplicate title %q", ct.Title)
		require.False(t, kinds[ct.Kind], "duplicate kind %q", ct.Kind)
		ids[ct.ID] = true
		titles[ct.Title] = true
		kinds[ct.Kind] = true
	}
}

func TestCacheTypeRoundTrip(t *testing.T) {
	for _, ct := range cacheTypes {
		byID, ok := CacheTypeForID(ct.ID)
		require.True(t, ok)
		require.Equal(t, ct.ID, byID.ID)
		require.Equal(t, ct.Kind, byID.Kind)

		byTitle, ok := CacheTypeForTitle(ct.Title)
		require.True(t, ok)
		require.Equal(t, ct.Title, byTitle.Title)
		require.Equal(t, ct.Kind, byTitle.Kind)
	}
}

func TestCacheTypeLookup(t *testing.T) {
	ct, ok := CacheTypeForTitle("Traditional Cache")
	require.True(t, ok)
	require.Equal(t, Traditional, ct.Kind)

	ct, ok = CacheTypeForID(2)
	require.True(t, ok)
	require.True(t, ct.Is(Traditional))
	require.False(t, ct.Is(Multi))

	_, ok = CacheTypeForID(99999)
	require.False(t, ok)
	_, ok = CacheTypeForTitle("No Such Cache")
	require.False(t, ok)
}

func TestCacheTypeIsEvent(t *testing.T) {
	for _, kind := range []CacheKind{Event, MegaEvent, CITO, LFEvent} {
		var found bool
		for _, ct := range cacheTypes {
			if ct.Kind == kind {
				require.True(t, ct.IsEvent())
				found = true
			}
		}
		require.True(t, found)
	}

	ct, _ := CacheTypeForID(2)
	require.False(t, ct.IsEvent())
}

func TestLogTypeRegistry(t *testing.T) {
	lt, ok := LogTypeForTitle("Found it")
	require.True(t, ok)
	require.True(t, lt.Is(LogFound))
	require.Equal(t, "icon_smile", lt.Icon)

	lt, ok = LogTypeForIcon("icon_sad")
	require.True(t, ok)
	require.Equal(t, LogDNF, lt.Kind)

	// archive and unarchive share an icon, so the icon lookup cannot
	// pick a unique entry
	_, ok = LogTypeForIcon("traffic_cone")
	require.False(t, ok)

	_, ok = LogTypeForTitle("No Such Log")
	require.False(t, ok)
}

func TestLogTypeTitlesUnique(t *testing.T) {
	titles := map[string]bool{}
	for _, lt := range logTypes {
		require.False(t, titles[lt.Title], "duplicate title %q", lt.Title)
		titles[lt.Title] = true
	}
}
