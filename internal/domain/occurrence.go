package domain

import (
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// weekMarker separates the series id from the week number in a canonical
// occurrence id. ObjectID hex never contains an underscore, so the marker
// is unambiguous.
const weekMarker = "_week_"

// OccurrenceRef is the composite key (series, week) behind the canonical
// id string. Code passes OccurrenceRef around and only encodes to a string
// at the storage/wire boundary; fetching "the current week" through the
// bare series id is how week 1's data used to leak into every week.
type OccurrenceRef struct {
	SeriesID primitive.ObjectID
	Week     int // 1-based
}

// ID encodes the ref as "<seriesHex>_week_<n>".
func (r OccurrenceRef) ID() string {
	return r.SeriesID.Hex() + weekMarker + strconv.Itoa(r.Week)
}

// ParseOccurrenceID is the exact inverse of OccurrenceRef.ID. It returns
// false when id carries no week marker: the id is then either a one-off
// occurrence or an unmaterialized base series id, and the caller must
// disambiguate via the series record's recurrence, not the string.
func ParseOccurrenceID(id string) (OccurrenceRef, bool) {
	base, weekStr, found := strings.Cut(id, weekMarker)
	if !found {
		return OccurrenceRef{}, false
	}
	week, err := strconv.Atoi(weekStr)
	if err != nil || week < 1 {
		return OccurrenceRef{}, false
	}
	seriesID, err := primitive.ObjectIDFromHex(base)
	if err != nil {
		return OccurrenceRef{}, false
	}
	return OccurrenceRef{SeriesID: seriesID, Week: week}, true
}

// CanonicalAssignmentID derives the canonical id for an occurrence: a
// recurring occurrence with a resolved week gets the week marker appended
// unless the raw id already carries one; anything else is canonical as is.
func CanonicalAssignmentID(rawID string, recurring bool, week *int) string {
	if recurring && week != nil && !strings.Contains(rawID, weekMarker) {
		return rawID + weekMarker + strconv.Itoa(*week)
	}
	return rawID
}
