package domain

import "time"

// User is a workspace member mirrored from the Slack directory by the
// roster sync. Deleted accounts are kept but flagged, so historical
// responses stay attributable.
type User struct {
	ID        int64     `json:"id" db:"id"`
	SlackID   string    `json:"slack_id" db:"slack_id"`
	Username  string    `json:"username" db:"username"`
	RealName  string    `json:"real_name" db:"real_name"`
	IsAdmin   bool      `json:"is_admin" db:"is_admin"`
	IsDeleted bool      `json:"is_deleted" db:"is_deleted"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// GreetingName returns the name used when addressing the user in a DM.
func (u *User) GreetingName() string {
	if u == nil {
		return "there"
	}
	if u.RealName != "" {
		return u.RealName
	}
	if u.Username != "" {
		return u.Username
	}
	return "there"
}
