package domain

import "time"

// Message is chat content scoped to a job and two participants
type Message struct {
	ID         string    `db:"id" json:"id"`
	JobID      string    `db:"job_id" json:"job_id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	SenderName string    `db:"sender_name" json:"sender_name"`
	ReceiverID string    `db:"receiver_id" json:"receiver_id"`
	Content    string    `db:"content" json:"content"`
	ClientRef  *string   `db:"client_ref" json:"client_ref,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// InboxMessage is a message joined with participant names and the job title
type InboxMessage struct {
	Message
	SenderFullName   *string `db:"sender_full_name"`
	ReceiverFullName *string `db:"receiver_full_name"`
	JobTitle         *string `db:"job_title"`
}
