// Package conversation groups a user's chat history into one thread per counterparty.
package conversation

import (
	"time"

	"github.com/cuongbtq/gigmarket/internal/domain"
)

const (
	unknownUserName = "A User"
	unknownJobTitle = "Unknown Job"
)

// Conversation summarises the latest exchange with one counterparty.
// JobID points at the job the most recent message was about.
type Conversation struct {
	MessageID        string    `json:"message_id"`
	CounterpartyID   string    `json:"other_user_id"`
	CounterpartyName string    `json:"other_user_name"`
	JobID            string    `json:"job_id"`
	JobTitle         string    `json:"job_title"`
	LastMessage      string    `json:"last_message"`
	LastMessageAt    time.Time `json:"last_message_at"`
}

// Group keeps the first message seen per counterparty. messages must be ordered
// newest first; the result keeps that order.
func Group(messages []domain.InboxMessage, userID string) []Conversation {
	seen := make(map[string]struct{}, len(messages))
	conversations := make([]Conversation, 0)

	for _, m := range messages {
		otherID, otherName := m.SenderID, m.SenderFullName
		if m.SenderID == userID {
			otherID, otherName = m.ReceiverID, m.ReceiverFullName
		}
		if _, ok := seen[otherID]; ok {
			continue
		}
		seen[otherID] = struct{}{}

		conversations = append(conversations, Conversation{
			MessageID:        m.ID,
			CounterpartyID:   otherID,
			CounterpartyName: orDefault(otherName, unknownUserName),
			JobID:            m.JobID,
			JobTitle:         orDefault(m.JobTitle, unknownJobTitle),
			LastMessage:      m.Content,
			LastMessageAt:    m.CreatedAt,
		})
	}

	return conversations
}

func orDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
