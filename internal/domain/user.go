package domain

import "time"

// User represents a console account that may be linked to a Workplace identity.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	WorkplaceID  *string
	CommunityID  *string
	CreatedAt    time.Time
}

// UserWithCommunity carries a user together with the name of the community
// the linked Workplace identity belongs to, for the admin listing.
type UserWithCommunity struct {
	User
	CommunityName string
}
