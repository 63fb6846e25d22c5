package domain

import "time"

// Community represents an installed Workplace community. Its ID is the
// external platform identifier and doubles as the upsert key: reinstalling
// the same community refreshes the access token in place.
type Community struct {
	ID          string
	Name        string
	AccessToken string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Page represents a completed page-install. Rows are insert-only.
type Page struct {
	ID            string
	Name          string
	AccessToken   string
	CommunityID   string
	CommunityName string
	InstallID     string
	CreatedAt     time.Time
}

// Callback is one inbound webhook delivery, appended by the receiver and
// listed, filtered, or purged from the console.
type Callback struct {
	ID        int64
	Path      string
	Payload   string
	CreatedAt time.Time
}

// PendingLink is a verified signed-request payload staged between the
// /link_account POST and the confirmation step.
type PendingLink struct {
	Payload   map[string]any
	Redirect  string
	CreatedAt time.Time
}
