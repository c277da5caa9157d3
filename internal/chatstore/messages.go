package chatstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kerucko/taskboard/internal/models"
)

type MessageStore struct {
	coll *mongo.Collection
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{coll: db.Collection(messagesCollection)}
}

func (s *MessageStore) Insert(ctx context.Context, msg *models.Message) error {
	msg.ID = primitive.NewObjectID()
	_, err := s.coll.InsertOne(ctx, msg)
	return err
}

func (s *MessageStore) Get(ctx context.Context, chatID, id string) (*models.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	var msg models.Message
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid, "chat_id": chatID}).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// List returns up to limit messages of a chat, newest first,
// optionally only those created before the given time.
func (s *MessageStore) List(ctx context.Context, chatID string, limit int64, before time.Time) ([]models.Message, error) {
	filter := bson.M{"chat_id": chatID}
	if !before.IsZero() {
		filter["created_at"] = bson.M{"$lt": before}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *MessageStore) SetReactions(ctx context.Context, chatID, id string, reactions map[string][]string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}
	update := bson.M{"$set": bson.M{
		"reactions":  reactions,
		"updated_at": time.Now(),
	}}
	_, err = s.coll.UpdateOne(ctx, bson.M{"_id": oid, "chat_id": chatID}, update)
	return err
}

// MarkRead flips every unread message in the chat that was sent by
// someone other than readerID.
func (s *MessageStore) MarkRead(ctx context.Context, chatID, readerID string, at time.Time) (int64, error) {
	filter := bson.M{
		"chat_id":   chatID,
		"sender_id": bson.M{"$ne": readerID},
		"read":      false,
	}
	update := bson.M{"$set": bson.M{
		"read":    true,
		"read_at": at,
	}}

	res, err := s.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *MessageStore) CountUnread(ctx context.Context, chatID, userID string) (int64, error) {
	filter := bson.M{
		"chat_id":   chatID,
		"sender_id": bson.M{"$ne": userID},
		"read":      false,
	}
	return s.coll.CountDocuments(ctx, filter)
}
