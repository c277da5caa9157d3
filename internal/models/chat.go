package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ChatTypeDirect = "direct"
	ChatTypeGroup  = "group"
)

const (
	MessageTypeText    = "text"
	MessageTypeImage   = "image"
	MessageTypeFile    = "file"
	MessageTypeVoice   = "voice"
	MessageTypeSticker = "sticker"
	MessageTypeEmoji   = "emoji"
)

type Chat struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type          string             `bson:"type" json:"type"`
	Name          string             `bson:"name,omitempty" json:"name,omitempty"`
	Participants  []string           `bson:"participants" json:"participants"`
	AdminID       string             `bson:"admin_id,omitempty" json:"adminId,omitempty"`
	Admins        []string           `bson:"admins,omitempty" json:"admins,omitempty"`
	LastMessageID string             `bson:"last_message_id,omitempty" json:"lastMessageId,omitempty"`
	LastMessageAt *time.Time         `bson:"last_message_at,omitempty" json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`

	// UnreadCount is computed per caller on reads, never stored.
	UnreadCount int64 `bson:"-" json:"unreadCount"`
}

type Message struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ChatID    string              `bson:"chat_id" json:"chatId"`
	SenderID  string              `bson:"sender_id" json:"senderId"`
	Content   string              `bson:"content,omitempty" json:"content,omitempty"`
	Type      string              `bson:"type" json:"type"`
	FileName  string              `bson:"file_name,omitempty" json:"fileName,omitempty"`
	FileURL   string              `bson:"file_url,omitempty" json:"fileUrl,omitempty"`
	FileSize  int64               `bson:"file_size,omitempty" json:"fileSize,omitempty"`
	MimeType  string              `bson:"mime_type,omitempty" json:"mimeType,omitempty"`
	Read      bool                `bson:"read" json:"read"`
	ReadAt    *time.Time          `bson:"read_at,omitempty" json:"readAt,omitempty"`
	EditedAt  *time.Time          `bson:"edited_at,omitempty" json:"editedAt,omitempty"`
	ReplyToID string              `bson:"reply_to_id,omitempty" json:"replyToId,omitempty"`
	Reactions map[string][]string `bson:"reactions,omitempty" json:"reactions,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updatedAt"`
}
