package geocaching

// LogKind is the symbolic tag of a log type.
type LogKind string

const (
	LogPublish           LogKind = "publish"
	LogRetract           LogKind = "retract"
	LogDNF               LogKind = "dnf"
	LogFound             LogKind = "found"
	LogWebcamPhotoTaken  LogKind = "webcam_photo_taken"
	LogWillAttend        LogKind = "will_attend"
	LogAnnouncement      LogKind = "announcement"
	LogAttended          LogKind = "attended"
	LogNeedsMaintenance  LogKind = "needs_maintenance"
	LogOwnerMaintenance  LogKind = "owner_maintenance"
	LogDisable           LogKind = "disable"
	LogEnable            LogKind = "enable"
	LogNote              LogKind = "note"
	LogNeedsArchived     LogKind = "needs_archived"
	LogArchive           LogKind = "archive"
	LogUnarchive         LogKind = "unarchive"
	LogCoordsUpdate      LogKind = "coords_update"
	LogReviewerNote      LogKind = "reviewer_note"
)

// LogType maps a log kind to the icon token and title the site renders
// it with.
type LogType struct {
	Kind  LogKind
	Icon  string
	Title string
}

func (t LogType) Is(kind LogKind) bool {
	return t.Kind == kind
}

func (t LogType) String() string {
	return t.Title
}

var logTypes = []LogType{
	{LogPublish, "icon_greenlight", "Publish Listing"},
	{LogRetract, "icon_redlight", "Retract Listing"},
	{LogDNF, "icon_sad", "Didn't find it"},
	{LogFound, "icon_smile", "Found it"},
	{LogWebcamPhotoTaken, "icon_camera", "Webcam Photo Taken"},
	{LogWillAttend, "icon_rsvp", "Will Attend"},
	{LogAnnouncement, "icon_announcement", "Announcement"},
	{LogAttended, "icon_attended", "Attended"},
	{LogNeedsMaintenance, "icon_needsmaint", "Needs Maintenance"},
	{LogOwnerMaintenance, "icon_maint", "Owner Maintenance"},
	{LogDisable, "icon_disabled", "Temporarily Disable Listing"},
	{LogEnable, "icon_enabled", "Enable Listing"},
	{LogNote, "icon_note", "Write note"},
	{LogNeedsArchived, "icon_remove", "Needs Archived"},
	{LogArchive, "traffic_cone", "Archive"},
	{LogUnarchive, "traffic_cone", "Unarchive"},
	{LogCoordsUpdate, "coord_update", "Update Coordinates"},
	{LogReviewerNote, "big_smile", "Post Reviewer Note"},
}

// LogTypeForIcon returns the registry entry with the given icon token.
// The icon is not unique for the archive/unarchive pair, in which case
// no entry is returned.
func LogTypeForIcon(icon string) (LogType, bool) {
	var found LogType
	matches := 0
	for _, t := range logTypes {
		if t.Icon == icon {
			found = t
			matches++
		}
	}
	if matches != 1 {
		return LogType{}, false
	}
	return found, true
}

// LogTypeForTitle returns the registry entry whose title matches
// exactly.
func LogTypeForTitle(title string) (LogType, bool) {
	for _, t := range logTypes {
		if t.Title == title {
			return t, true
		}
	}
	return LogType{}, false
}
