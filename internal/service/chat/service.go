package chat

import (
	"context"
	"errors"
	"time"

	"github.com/kerucko/taskboard/internal/models"
)

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrForbidden       = errors.New("not a participant of this chat")
	ErrNotAdmin        = errors.New("only a group admin may do this")
	ErrSelfChat        = errors.New("cannot create chat with yourself")
	ErrInvalidGroup    = errors.New("group needs a name and at least two other participants")
)

const (
	EventMessageNew      = "message:new"
	EventMessageReaction = "message:reaction"
	EventChatRead        = "chat:read"
)

type chatStore interface {
	FindDirect(ctx context.Context, userA, userB string) (*models.Chat, error)
	Insert(ctx context.Context, chat *models.Chat) error
	Get(ctx context.Context, id string) (*models.Chat, error)
	ListByParticipant(ctx context.Context, userID string) ([]models.Chat, error)
	Update(ctx context.Context, chat *models.Chat) error
	SetLastMessage(ctx context.Context, chatID, messageID string, at time.Time) error
}

type messageStore interface {
	Insert(ctx context.Context, msg *models.Message) error
	Get(ctx context.Context, chatID, id string) (*models.Message, error)
	List(ctx context.Context, chatID string, limit int64, before time.Time) ([]models.Message, error)
	SetReactions(ctx context.Context, chatID, id string, reactions map[string][]string) error
	MarkRead(ctx context.Context, chatID, readerID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, chatID, userID string) (int64, error)
}

type userDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// RoomBroadcaster pushes chat events to the clients joined to a
// chat's socket room. Best-effort.
type RoomBroadcaster interface {
	BroadcastRoom(room, event string, data any)
}

type Service struct {
	chats       chatStore
	messages    messageStore
	users       userDirectory
	broadcaster RoomBroadcaster
}

func NewService(chats chatStore, messages messageStore, users userDirectory, broadcaster RoomBroadcaster) *Service {
	return &Service{
		chats:       chats,
		messages:    messages,
		users:       users,
		broadcaster: broadcaster,
	}
}

// FindOrCreateDirect returns the single direct chat between the
// caller and otherID, creating it on first use.
func (s *Service) FindOrCreateDirect(ctx context.Context, callerID, otherID string) (*models.Chat, error) {
	if callerID == otherID {
		return nil, ErrSelfChat
	}
	if err := s.checkUserExists(ctx, otherID); err != nil {
		return nil, err
	}

	existing, err := s.chats.FindDirect(ctx, callerID, otherID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.withUnreadCount(ctx, existing, callerID)
	}

	now := time.Now()
	chat := &models.Chat{
		Type:         models.ChatTypeDirect,
		Participants: []string{callerID, otherID},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.chats.Insert(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

type CreateGroupInput struct {
	Name           string   `json:"name"`
	ParticipantIDs []string `json:"participantIds"`
}

func (s *Service) CreateGroup(ctx context.Context, callerID string, input CreateGroupInput) (*models.Chat, error) {
	if input.Name == "" || len(input.ParticipantIDs) < 2 {
		return nil, ErrInvalidGroup
	}
	for _, id := range input.ParticipantIDs {
		if err := s.checkUserExists(ctx, id); err != nil {
			return nil, err
		}
	}

	participants := append([]string{callerID}, input.ParticipantIDs...)
	now := time.Now()
	chat := &models.Chat{
		Type:         models.ChatTypeGroup,
		Name:         input.Name,
		Participants: dedupe(participants),
		AdminID:      callerID,
		Admins:       []string{callerID},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.chats.Insert(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	chats, err := s.chats.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		unread, err := s.messages.CountUnread(ctx, chats[i].ID.Hex(), userID)
		if err != nil {
			return nil, err
		}
		chats[i].UnreadCount = unread
	}
	return chats, nil
}

type UpdateGroupInput struct {
	Name                 *string  `json:"name"`
	AddParticipantIDs    []string `json:"addParticipantIds"`
	RemoveParticipantIDs []string `json:"removeParticipantIds"`
}

func (s *Service) UpdateGroup(ctx context.Context, callerID, chatID string, input UpdateGroupInput) (*models.Chat, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Type != models.ChatTypeGroup {
		return nil, ErrForbidden
	}
	if !contains(chat.Admins, callerID) {
		return nil, ErrNotAdmin
	}

	if input.Name != nil && *input.Name != "" {
		chat.Name = *input.Name
	}
	for _, id := range input.AddParticipantIDs {
		if err := s.checkUserExists(ctx, id); err != nil {
			return nil, err
		}
		if !contains(chat.Participants, id) {
			chat.Participants = append(chat.Participants, id)
		}
	}
	for _, id := range input.RemoveParticipantIDs {
		if id == chat.AdminID {
			continue // the owning admin cannot be removed
		}
		chat.Participants = remove(chat.Participants, id)
		chat.Admins = remove(chat.Admins, id)
	}
	chat.UpdatedAt = time.Now()

	if err := s.chats.Update(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

type SendMessageInput struct {
	Content   string `json:"content"`
	Type      string `json:"type"`
	ReplyToID string `json:"replyToId"`
	FileName  string `json:"fileName"`
	FileURL   string `json:"fileUrl"`
	FileSize  int64  `json:"fileSize"`
	MimeType  string `json:"mimeType"`
}

func (s *Service) SendMessage(ctx context.Context, callerID, chatID string, input SendMessageInput) (*models.Message, error) {
	chat, err := s.requireParticipant(ctx, chatID, callerID)
	if err != nil {
		return nil, err
	}

	msgType := input.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	now := time.Now()
	msg := &models.Message{
		ChatID:    chat.ID.Hex(),
		SenderID:  callerID,
		Content:   input.Content,
		Type:      msgType,
		FileName:  input.FileName,
		FileURL:   input.FileURL,
		FileSize:  input.FileSize,
		MimeType:  input.MimeType,
		ReplyToID: input.ReplyToID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.chats.SetLastMessage(ctx, chat.ID.Hex(), msg.ID.Hex(), now); err != nil {
		return nil, err
	}

	s.broadcaster.BroadcastRoom(chat.ID.Hex(), EventMessageNew, msg)
	return msg, nil
}

func (s *Service) ListMessages(ctx context.Context, callerID, chatID string, limit int64, before time.Time) ([]models.Message, error) {
	if _, err := s.requireParticipant(ctx, chatID, callerID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.messages.List(ctx, chatID, limit, before)
}

// ToggleReaction adds the caller to the emoji's reaction list, or
// removes them when already present.
func (s *Service) ToggleReaction(ctx context.Context, callerID, chatID, messageID, emoji string) (*models.Message, error) {
	if _, err := s.requireParticipant(ctx, chatID, callerID); err != nil {
		return nil, err
	}

	msg, err := s.messages.Get(ctx, chatID, messageID)
	if err != nil {
		return nil, ErrMessageNotFound
	}

	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]string)
	}
	users := msg.Reactions[emoji]
	if contains(users, callerID) {
		users = remove(users, callerID)
	} else {
		users = append(users, callerID)
	}
	if len(users) == 0 {
		delete(msg.Reactions, emoji)
	} else {
		msg.Reactions[emoji] = users
	}

	if err := s.messages.SetReactions(ctx, chatID, messageID, msg.Reactions); err != nil {
		return nil, err
	}

	s.broadcaster.BroadcastRoom(chatID, EventMessageReaction, msg)
	return msg, nil
}

// MarkRead marks every message from other participants as read and
// returns the number of messages flipped.
func (s *Service) MarkRead(ctx context.Context, callerID, chatID string) (int64, error) {
	if _, err := s.requireParticipant(ctx, chatID, callerID); err != nil {
		return 0, err
	}

	count, err := s.messages.MarkRead(ctx, chatID, callerID, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.broadcaster.BroadcastRoom(chatID, EventChatRead, map[string]any{
			"chatId": chatID,
			"userId": callerID,
		})
	}
	return count, nil
}

func (s *Service) getChat(ctx context.Context, chatID string) (*models.Chat, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return nil, ErrChatNotFound
	}
	return chat, nil
}

func (s *Service) requireParticipant(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !contains(chat.Participants, userID) {
		return nil, ErrForbidden
	}
	return chat, nil
}

func (s *Service) withUnreadCount(ctx context.Context, chat *models.Chat, userID string) (*models.Chat, error) {
	unread, err := s.messages.CountUnread(ctx, chat.ID.Hex(), userID)
	if err != nil {
		return nil, err
	}
	chat.UnreadCount = unread
	return chat, nil
}

func (s *Service) checkUserExists(ctx context.Context, id string) error {
	ok, err := s.users.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	var out []string
	for _, item := range list {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
