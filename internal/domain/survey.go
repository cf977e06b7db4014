package domain

import (
	"strconv"
	"strings"
	"time"
)

// Survey represents a broadcast question with a bounded audience and
// optional recurring reminders.
type Survey struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Question     string `json:"question" db:"question"`
	OwnerSlackID string `json:"owner_slack_id" db:"owner_slack_id"`
	OwnerName    string `json:"owner_name" db:"owner_name"`
	IsActive     bool   `json:"is_active" db:"is_active"`

	// Audience list references. Empty include means "nobody": callers that
	// want the whole workspace must include the distinguished "all" list.
	IncludeListIDs []int64 `json:"include_list_ids" db:"include_list_ids"`
	ExcludeListIDs []int64 `json:"exclude_list_ids" db:"exclude_list_ids"`

	// ReminderInterval of zero disables reminders for this survey.
	ReminderInterval time.Duration `json:"reminder_interval" db:"reminder_interval"`
	LastReminderAt   *time.Time    `json:"last_reminder_at" db:"last_reminder_at"`
	RemindersSent    int           `json:"reminders_sent" db:"reminders_sent"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ReminderDue reports whether the survey is due for a reminder pass at the
// given instant. The reference point is the last reminder, falling back to
// creation time for surveys that have never been reminded.
func (s *Survey) ReminderDue(now time.Time) bool {
	if !s.IsActive || s.ReminderInterval <= 0 {
		return false
	}
	ref := s.CreatedAt
	if s.LastReminderAt != nil {
		ref = *s.LastReminderAt
	}
	return now.Sub(ref) >= s.ReminderInterval
}

// SentRecord is proof that a recipient was delivered a survey's initial
// message, with the Slack message timestamp needed to reply in-thread.
type SentRecord struct {
	SurveyID        int64     `json:"survey_id" db:"survey_id"`
	ReceiverSlackID string    `json:"receiver_slack_id" db:"receiver_slack_id"`
	MessageTS       string    `json:"message_ts" db:"message_ts"`
	SentAt          time.Time `json:"sent_at" db:"sent_at"`
}

// Response is a single recipient's answer to a survey. At most one exists
// per (survey, responder) pair; the database enforces this.
type Response struct {
	ID               int64     `json:"id" db:"id"`
	SurveyID         int64     `json:"survey_id" db:"survey_id"`
	ResponderSlackID string    `json:"responder_slack_id" db:"responder_slack_id"`
	ResponderName    string    `json:"responder_name" db:"responder_name"`
	Answer           string    `json:"answer" db:"answer"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// EncodeListIDs serializes audience list ids to the comma-separated form
// stored in the surveys table.
func EncodeListIDs(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// DecodeListIDs parses the comma-separated list-id form. Blank and
// malformed entries are skipped rather than treated as errors, since lists
// can be edited out of band.
func DecodeListIDs(s string) []int64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
