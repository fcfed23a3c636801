package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio_chat_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationCollection mongo collection name
const ConversationCollection = "conversations"

// ConversationReader read side of the conversation store
type ConversationReader interface {
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
}

// ConversationRepository definition conversation store
type ConversationRepository interface {
	ConversationReader
	// ListByLastMessage 依 last_message_at 由新到舊
	ListByLastMessage(ctx context.Context, limit int64) ([]*domain.Conversation, error)
	// AppendMessage upsert 對話並附加訊息, 同一個 message id 重複呼叫不會重複寫入
	AppendMessage(ctx context.Context, header domain.ConversationHeader, msg domain.Message) error
	// MarkRead 對 messageIDs 中尚未被 participant 讀取的訊息加上 read receipt
	MarkRead(ctx context.Context, id, participantID string, messageIDs []string, at time.Time) error
	// SetReactions revision 相符才寫入, 否則回傳 domain.ErrRevisionConflict
	SetReactions(ctx context.Context, id string, revision int64, messageID string, reactions []domain.Reaction) error
	SetTyping(ctx context.Context, id, participantID string, active bool) error
	SetPresence(ctx context.Context, id, participantID string, entry domain.PresenceEntry) error
}

type mongoConversationRepository struct {
	coll *mongo.Collection
}

// NewMongoConversationRepository create a ConversationRepository
func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &mongoConversationRepository{
		coll: db.Collection(ConversationCollection),
	}
}

// EnsureIndexes create the inbox ordering index
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(ConversationCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "last_message_at", Value: -1}},
	})
	return err
}

func (r *mongoConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation %s: %w", id, err)
	}
	unescapeKeys(&conv)
	return &conv, nil
}

func (r *mongoConversationRepository) ListByLastMessage(ctx context.Context, limit int64) ([]*domain.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer cur.Close(ctx)

	var conversations []*domain.Conversation
	for cur.Next(ctx) {
		var conv domain.Conversation
		if err := cur.Decode(&conv); err != nil {
			return nil, err
		}
		unescapeKeys(&conv)
		conversations = append(conversations, &conv)
	}

	if err := cur.Err(); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *mongoConversationRepository) AppendMessage(ctx context.Context, header domain.ConversationHeader, msg domain.Message) error {
	// message id 已存在時 filter 不成立, upsert 轉為 insert 並撞到 _id
	filter := bson.M{"_id": header.ID, "messages.id": bson.M{"$ne": msg.ID}}
	update := appendPipeline(header, msg)
	opts := options.Update().SetUpsert(true)

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if _, err = r.coll.UpdateOne(ctx, filter, update, opts); err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("append message %s: %w", msg.ID, err)
		}

		// 可能是重複送出, 也可能是兩個第一則訊息同時建立對話
		n, cerr := r.coll.CountDocuments(ctx, bson.M{"_id": header.ID, "messages.id": msg.ID})
		if cerr != nil {
			return fmt.Errorf("append message %s: %w", msg.ID, cerr)
		}
		if n > 0 {
			return nil
		}
	}
	return fmt.Errorf("append message %s: %w", msg.ID, err)
}

// appendPipeline 使用 $$NOW 作為 sent_at.committed 與 last_message_at
func appendPipeline(header domain.ConversationHeader, msg domain.Message) mongo.Pipeline {
	local := time.Now()
	if msg.SentAt != nil && !msg.SentAt.Local.IsZero() {
		local = msg.SentAt.Local
	}

	// $literal 讓以 $ 開頭的文字不被當成運算式
	body := bson.D{
		{Key: "id", Value: msg.ID},
		{Key: "sent_by", Value: msg.SentBy},
		{Key: "sender_name", Value: msg.SenderName},
		{Key: "sender_email", Value: msg.SenderEmail},
		{Key: "read_by", Value: bson.A{}},
		{Key: "reactions", Value: bson.A{}},
	}
	if msg.Text != "" {
		body = append(body, bson.E{Key: "text", Value: msg.Text})
	}
	if msg.ImageURL != "" {
		body = append(body, bson.E{Key: "image_url", Value: msg.ImageURL})
	}

	doc := bson.M{"$mergeObjects": bson.A{
		bson.M{"$literal": body},
		bson.M{"sent_at": bson.M{
			"local":     bson.M{"$literal": local},
			"committed": "$$NOW",
		}},
	}}

	return mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "sender_name", Value: bson.M{"$ifNull": bson.A{"$sender_name", bson.M{"$literal": header.SenderName}}}},
			{Key: "sender_email", Value: bson.M{"$ifNull": bson.A{"$sender_email", bson.M{"$literal": header.SenderEmail}}}},
			{Key: "messages", Value: bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$messages", bson.A{}}},
				bson.A{doc},
			}}},
			{Key: "last_message_at", Value: "$$NOW"},
			{Key: "typing", Value: bson.M{"$ifNull": bson.A{"$typing", bson.M{"$literal": bson.M{}}}}},
			{Key: "presence", Value: bson.M{"$ifNull": bson.A{"$presence", bson.M{"$literal": bson.M{}}}}},
			{Key: "revision", Value: bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$revision", 0}}, 1}}},
		}}},
	}
}

func (r *mongoConversationRepository) MarkRead(ctx context.Context, id, participantID string, messageIDs []string, at time.Time) error {
	if len(messageIDs) == 0 {
		return nil
	}

	update := bson.M{
		"$push": bson.M{"messages.$[m].read_by": domain.ReadReceipt{ParticipantID: participantID, At: at}},
		"$inc":  bson.M{"revision": 1},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
		bson.M{
			"m.id":                     bson.M{"$in": messageIDs},
			"m.read_by.participant_id": bson.M{"$ne": participantID},
		},
	}})

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update, opts)
	if err != nil {
		return fmt.Errorf("mark read %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (r *mongoConversationRepository) SetReactions(ctx context.Context, id string, revision int64, messageID string, reactions []domain.Reaction) error {
	if reactions == nil {
		reactions = []domain.Reaction{}
	}

	filter := bson.M{"_id": id, "revision": revision, "messages.id": messageID}
	update := bson.M{
		"$set": bson.M{"messages.$[m].reactions": reactions},
		"$inc": bson.M{"revision": 1},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
		bson.M{"m.id": messageID},
	}})

	res, err := r.coll.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("set reactions %s/%s: %w", id, messageID, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRevisionConflict
	}
	return nil
}

func (r *mongoConversationRepository) SetTyping(ctx context.Context, id, participantID string, active bool) error {
	return r.setField(ctx, id, "typing."+domain.EscapeKey(participantID), active)
}

func (r *mongoConversationRepository) SetPresence(ctx context.Context, id, participantID string, entry domain.PresenceEntry) error {
	return r.setField(ctx, id, "presence."+domain.EscapeKey(participantID), entry)
}

// setField 不 upsert, 對話要等第一則訊息才建立
func (r *mongoConversationRepository) setField(ctx context.Context, id, path string, value interface{}) error {
	update := bson.M{
		"$set": bson.M{path: value},
		"$inc": bson.M{"revision": 1},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("set %s on %s: %w", path, id, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func unescapeKeys(c *domain.Conversation) {
	if len(c.Typing) > 0 {
		typing := make(map[string]bool, len(c.Typing))
		for k, v := range c.Typing {
			typing[domain.UnescapeKey(k)] = v
		}
		c.Typing = typing
	}
	if len(c.Presence) > 0 {
		presence := make(map[string]domain.PresenceEntry, len(c.Presence))
		for k, v := range c.Presence {
			presence[domain.UnescapeKey(k)] = v
		}
		c.Presence = presence
	}
}
