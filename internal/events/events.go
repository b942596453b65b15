package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types double as RabbitMQ routing keys
const (
	TypeBidPlaced      = "bid.placed"
	TypeBidUpdated     = "bid.updated"
	TypeBidAccepted    = "bid.accepted"
	TypeContractFunded = "contract.funded"
	TypeMessageSent    = "message.sent"
)

// Event is the envelope published after a marketplace write commits
type Event struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	OccurredAt  time.Time `json:"occurred_at"`
	JobID       string    `json:"job_id"`
	ActorID     string    `json:"actor_id"`
	ActorName   string    `json:"actor_name"`
	RecipientID string    `json:"recipient_id"`
	Title       string    `json:"title"`
}

// New creates an event with a fresh id
func New(eventType, jobID, actorID, actorName, recipientID, title string) *Event {
	return &Event{
		EventID:     uuid.New().String(),
		Type:        eventType,
		OccurredAt:  time.Now().UTC(),
		JobID:       jobID,
		ActorID:     actorID,
		ActorName:   actorName,
		RecipientID: recipientID,
		Title:       title,
	}
}

// Keyed replaces the event id with one derived from key, so re-publishing the
// same fact yields the same id and the consumer stores it once.
func (e *Event) Keyed(key string) *Event {
	e.EventID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("gigmarket:"+e.Type+":"+key)).String()
	return e
}

// Marshal encodes the event as JSON
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses and validates an event body
func Decode(body []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	if _, err := uuid.Parse(e.EventID); err != nil {
		return nil, fmt.Errorf("invalid event_id %q: %w", e.EventID, err)
	}
	if e.Type == "" || e.RecipientID == "" {
		return nil, fmt.Errorf("event %s is missing type or recipient", e.EventID)
	}
	return &e, nil
}
