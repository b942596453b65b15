package domain

import "time"

// Notification types
const (
	NotificationNewBid         = "new_bid"
	NotificationBidUpdated     = "bid_updated"
	NotificationBidAccepted    = "bid_accepted"
	NotificationContractFunded = "contract_funded"
	NotificationNewMessage     = "new_message"
)

// Notification is a per-user feed entry produced in reaction to domain events
type Notification struct {
	ID               string    `db:"id" json:"id"`
	UserID           string    `db:"user_id" json:"user_id"`
	NotificationType string    `db:"notification_type" json:"notification_type"`
	Title            string    `db:"title" json:"title"`
	IsRead           bool      `db:"is_read" json:"is_read"`
	LinkToJobID      *string   `db:"link_to_job_id" json:"link_to_job_id,omitempty"`
	ActorID          *string   `db:"actor_id" json:"actor_id,omitempty"`
	ActorName        *string   `db:"actor_name" json:"actor_name,omitempty"`
	EventID          string    `db:"event_id" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
