// Package mongodb implements the post record store on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"Memories/internal/core/posts"
)

// PostsCollection is the collection holding post records.
const PostsCollection = "posts"

var _ posts.RecordStore = (*PostRecordRepo)(nil)

type postDocument struct {
	CreatedAt     time.Time          `bson:"createdAt"`
	Title         string             `bson:"title"`
	Content       string             `bson:"content"`
	AttachmentRef string             `bson:"attachmentRef,omitempty"`
	Like          int                `bson:"like"`
	ID            primitive.ObjectID `bson:"_id,omitempty"`
}

func (d *postDocument) toPost() posts.Post {
	return posts.Post{
		ID:         d.ID.Hex(),
		Title:      d.Title,
		Content:    d.Content,
		Like:       d.Like,
		Attachment: posts.StoredAttachment(d.AttachmentRef),
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

// PostRecordRepo is a posts.RecordStore over a MongoDB collection.
type PostRecordRepo struct {
	coll *mongo.Collection
}

// NewPostRecordRepo creates a repository over db's posts collection.
func NewPostRecordRepo(db *mongo.Database) *PostRecordRepo {
	return &PostRecordRepo{coll: db.Collection(PostsCollection)}
}

// Connect opens a client for uri and pings it.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// List returns all post records, newest first.
func (r *PostRecordRepo) List(ctx context.Context) ([]posts.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	var docs []postDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}

	result := make([]posts.Post, 0, len(docs))
	for i := range docs {
		result = append(result, docs[i].toPost())
	}
	return result, nil
}

// Create inserts a new post document.
func (r *PostRecordRepo) Create(ctx context.Context, fields posts.PostFields) (*posts.Post, error) {
	doc := postDocument{
		ID:            primitive.NewObjectID(),
		Title:         fields.Title,
		Content:       fields.Content,
		AttachmentRef: fields.AttachmentKey,
		Like:          fields.Like,
		CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}
	p := doc.toPost()
	return &p, nil
}

// Update applies patch with $set and returns the updated document.
func (r *PostRecordRepo) Update(ctx context.Context, id string, patch posts.PostPatch) (*posts.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, posts.ErrNotFound
	}

	set := bson.M{}
	if patch.Like != nil {
		set["like"] = *patch.Like
	}

	var doc postDocument
	if len(set) == 0 {
		err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	} else {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	p := doc.toPost()
	return &p, nil
}

// Delete removes a post document.
func (r *PostRecordRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return posts.ErrNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return posts.ErrNotFound
	}
	return nil
}
