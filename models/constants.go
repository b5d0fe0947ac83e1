package models

// Sharing categories control which profile fields the counterpart sees.
const (
	CategoryAll      = "all"
	CategoryPersonal = "personal"
	CategoryWork     = "work"
)

// Exchange match statuses
const (
	MatchStatusWaiting = "waiting"
	MatchStatusMatched = "matched"
)

// Per-match role labels. Arbitrary but consistent per match: the side that
// completed the pairing is A, the side that discovers it by polling is B.
const (
	RoleA = "A"
	RoleB = "B"
)

// UserProfilesTable is the DynamoDB table name for user profiles
const UserProfilesTable = "UserProfiles"

// ValidCategory reports whether c is a known sharing category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryAll, CategoryPersonal, CategoryWork:
		return true
	}
	return false
}
