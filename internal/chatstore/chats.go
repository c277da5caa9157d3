package chatstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kerucko/taskboard/internal/models"
)

type ChatStore struct {
	coll *mongo.Collection
}

func NewChatStore(db *mongo.Database) *ChatStore {
	return &ChatStore{coll: db.Collection(chatsCollection)}
}

// FindDirect looks up the single direct chat holding exactly these
// two participants. Returns (nil, nil) when none exists.
func (s *ChatStore) FindDirect(ctx context.Context, userA, userB string) (*models.Chat, error) {
	filter := bson.M{
		"type": models.ChatTypeDirect,
		"participants": bson.M{
			"$all":  []string{userA, userB},
			"$size": 2,
		},
	}

	var chat models.Chat
	err := s.coll.FindOne(ctx, filter).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *ChatStore) Insert(ctx context.Context, chat *models.Chat) error {
	chat.ID = primitive.NewObjectID()
	_, err := s.coll.InsertOne(ctx, chat)
	return err
}

func (s *ChatStore) Get(ctx context.Context, id string) (*models.Chat, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	var chat models.Chat
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *ChatStore) ListByParticipant(ctx context.Context, userID string) ([]models.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var chats []models.Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *ChatStore) Update(ctx context.Context, chat *models.Chat) error {
	update := bson.M{"$set": bson.M{
		"name":         chat.Name,
		"participants": chat.Participants,
		"admins":       chat.Admins,
		"updated_at":   chat.UpdatedAt,
	}}
	_, err := s.coll.UpdateByID(ctx, chat.ID, update)
	return err
}

func (s *ChatStore) SetLastMessage(ctx context.Context, chatID, messageID string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return mongo.ErrNoDocuments
	}
	update := bson.M{"$set": bson.M{
		"last_message_id": messageID,
		"last_message_at": at,
		"updated_at":      at,
	}}
	_, err = s.coll.UpdateByID(ctx, oid, update)
	return err
}
