// Package docstore keeps large derived attachment text in MongoDB, out of
// the relational store.
package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/port/out"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/apperr"
)

const collectionName = "attachment_texts"

// AttachmentTextAdapter implements out.AttachmentTextStore.
type AttachmentTextAdapter struct {
	collection *mongo.Collection
}

func NewAttachmentTextAdapter(db *mongo.Database) *AttachmentTextAdapter {
	return &AttachmentTextAdapter{collection: db.Collection(collectionName)}
}

// SaveText upserts on attachment id so re-processing overwrites the old
// extraction instead of accumulating documents.
func (a *AttachmentTextAdapter) SaveText(ctx context.Context, doc *out.AttachmentTextDoc) error {
	filter := bson.M{"attachment_id": doc.AttachmentID}
	update := bson.M{"$set": doc}

	_, err := a.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return apperr.ExternalError("failed to save attachment text", err)
	}
	return nil
}

func (a *AttachmentTextAdapter) GetText(ctx context.Context, attachmentID int64) (*out.AttachmentTextDoc, error) {
	var doc out.AttachmentTextDoc
	err := a.collection.FindOne(ctx, bson.M{"attachment_id": attachmentID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.ExternalError("failed to load attachment text", err)
	}
	return &doc, nil
}
