package domain

// AllListName is the distinguished audience list that the roster sync keeps
// equal to the currently active workspace roster. The core treats it as just
// another list.
const AllListName = "all"

// AudienceList is a named, persistent set of recipients usable as an
// include or exclude filter for surveys.
type AudienceList struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// ListMember maps one workspace user into an audience list. Membership is
// unique per (list, slack id).
type ListMember struct {
	ListID   int64  `json:"list_id" db:"list_id"`
	SlackID  string `json:"slack_id" db:"slack_id"`
	UserName string `json:"user_name" db:"user_name"`
}
