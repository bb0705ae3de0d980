// Package notification models user-visible notices. Validation codes
// reach the user through this path (in-app record plus fire-and-forget
// email), never through the API response outside sandbox mode.
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Channel is the delivery channel of a notification.
type Channel string

const (
	ChannelInApp Channel = "in-app"
	ChannelEmail Channel = "email"
)

// Notification is a single user-visible notice.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Body      string
	Channel   Channel
	ReadAt    *time.Time
	CreatedAt time.Time
}

// New builds an unread notification.
func New(userID uuid.UUID, title, body string, channel Channel) *Notification {
	return &Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Title:   title,
		Body:    body,
		Channel: channel,
	}
}
