package ledger

import (
	"time"
)

// NumRooms is the number of ordered game rooms an account progresses through.
const NumRooms = 3

// TimestampLayout is the layout used when writing room completion timestamps.
// It matches the ISO-8601 local-time strings already present in existing ledgers.
const TimestampLayout = "2006-01-02T15:04:05"

// timestampLayouts are accepted when parsing timestamps from a ledger. Older
// ledgers carry fractional seconds or a zone offset depending on what produced
// them.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	TimestampLayout,
	"2006-01-02 15:04:05",
}

// RoomProgress records whether a single room has been played and when.
type RoomProgress struct {
	Played   bool
	PlayedAt string // ISO-8601 string, empty until the room is completed
}

// Account is one ledger row: identity plus per-room progress.
type Account struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	Rooms       [NumRooms]RoomProgress
}

// Room returns the progress record for a 1-based room number. Room numbers
// outside 1..NumRooms yield a zero record.
func (a *Account) Room(n int) RoomProgress {
	if n < 1 || n > NumRooms {
		return RoomProgress{}
	}
	return a.Rooms[n-1]
}

// MarkPlayed records a successful play of the given room at the given time.
// Out-of-range room numbers are ignored.
func (a *Account) MarkPlayed(n int, at time.Time) {
	if n < 1 || n > NumRooms {
		return
	}
	a.Rooms[n-1] = RoomProgress{
		Played:   true,
		PlayedAt: at.Format(TimestampLayout),
	}
}

// HighestPlayedRoom returns the highest room number marked played, or 0 if the
// account has not completed any room.
func (a *Account) HighestPlayedRoom() int {
	for n := NumRooms; n >= 1; n-- {
		if a.Rooms[n-1].Played {
			return n
		}
	}
	return 0
}

// Clone returns a copy of the account. Workers hand clones to event sinks so
// later mutations never race with a consumer holding the snapshot.
func (a *Account) Clone() *Account {
	copied := *a
	return &copied
}

// ParseTimestamp parses a room timestamp string. It returns false for empty or
// malformed values; callers treat that as "no usable timestamp".
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
