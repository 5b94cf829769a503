package user

import "time"

// User is a chat-platform member. Id is assigned by the platform and never
// changes. CalendarId and AclId identify the member's provisioned resources
// on the external calendar service; empty until provisioned, and CalendarId
// is never reassigned once set.
type User struct {
	Id            int64
	DisplayName   string
	ExternalEmail string
	CalendarId    string
	AclId         string
	CreatedAt     time.Time
}
