package geocaching

// CacheKind is the symbolic tag of a cache type. Callers branch on
// kind, never on the site's numeric ids or display titles.
type CacheKind string

const (
	Traditional  CacheKind = "traditional"
	Multi        CacheKind = "multi"
	Mystery      CacheKind = "mystery"
	Letterbox    CacheKind = "letterbox"
	Wherigo      CacheKind = "wherigo"
	Event        CacheKind = "event"
	MegaEvent    CacheKind = "megaevent"
	CITO         CacheKind = "cito"
	Earthcache   CacheKind = "earthcache"
	LFEvent      CacheKind = "lfevent"
	Locationless CacheKind = "locationless"
	Webcam       CacheKind = "webcam"
	Virtual      CacheKind = "virtual"
	APE          CacheKind = "ape"
)

// CacheType maps a cache kind to its numeric id and display title on
// the site.
type CacheType struct {
	Kind  CacheKind
	ID    int
	Title string
}

// Is reports whether the type carries the given symbolic kind. Two
// CacheType values compare equal only through their kind.
func (t CacheType) Is(kind CacheKind) bool {
	return t.Kind == kind
}

func (t CacheType) String() string {
	return t.Title
}

// IsEvent reports whether the type is one of the event-like kinds,
// which carry an event date instead of a hidden date.
func (t CacheType) IsEvent() bool {
	switch t.Kind {
	case Event, MegaEvent, CITO, LFEvent:
		return true
	}
	return false
}

var cacheTypes = []CacheType{
	{Traditional, 2, "Traditional Cache"},
	{Multi, 3, "Multi-cache"},
	{Mystery, 8, "Unknown Cache"},
	{Letterbox, 5, "Letterbox Hybrid"},
	{Wherigo, 1858, "Wherigo Cache"},
	{Event, 6, "Event Cache"},
	{MegaEvent, 453, "Mega-Event Cache"},
	{CITO, 13, "Cache In Trash Out Event"},
	{Earthcache, 137, "Earthcache"},
	{LFEvent, 3653, "Lost and Found Event Cache"},
	{Locationless, 12, "Locationless (Reverse) Cache"},
	{Webcam, 11, "Webcam Cache"},
	{Virtual, 4, "Virtual Cache"},
	{APE, 9, "Project APE Cache"},
}

// CacheTypeForID returns the registry entry with the given numeric id.
func CacheTypeForID(id int) (CacheType, bool) {
	for _, t := range cacheTypes {
		if t.ID == id {
			return t, true
		}
	}
	return CacheType{}, false
}

// CacheTypeForTitle returns the registry entry whose display title
// matches exactly.
func CacheTypeForTitle(title string) (CacheType, bool) {
	for _, t := range cacheTypes {
		if t.Title == title {
			return t, true
		}
	}
	return CacheType{}, false
}
