package dto

import (
	"github.com/cuongbtq/gigmarket/internal/conversation"
	"github.com/cuongbtq/gigmarket/internal/domain"
)

type SendMessageRequest struct {
	ReceiverID string  `json:"receiver_id" binding:"required,uuid"`
	Content    string  `json:"content" binding:"required,notblank"`
	ClientRef  *string `json:"client_ref" binding:"omitempty,max=64"`
}

type MessagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

type ConversationsResponse struct {
	Conversations []conversation.Conversation `json:"conversations"`
}

type NotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}
