package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dam/models"
)

// MongoStore persists the ledger in the assets and versions collections.
// Sequence assignment rides a $inc on the asset document, so concurrent
// proposers are serialized by the server; resolution and promotion share
// one multi-document transaction.
type MongoStore struct {
	client   *mongo.Client
	assets   *mongo.Collection
	versions *mongo.Collection
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		client:   client,
		assets:   db.Collection("assets"),
		versions: db.Collection("versions"),
	}
}

// changeSet translates the present fields of a change into a $set document.
// Absent fields stay untouched on the asset.
func changeSet(patch *models.AssetChange, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.CategoryID != nil {
		set["categoryId"] = *patch.CategoryID
	}
	if patch.Tags != nil {
		set["tags"] = patch.Tags
	}
	if patch.File != nil {
		set["file"] = *patch.File
	}
	return set
}

func (s *MongoStore) inTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *MongoStore) GetAsset(ctx context.Context, id primitive.ObjectID) (*models.Asset, error) {
	var asset models.Asset
	err := s.assets.FindOne(ctx, bson.M{"_id": id}).Decode(&asset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: asset %s", ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &asset, nil
}

func (s *MongoStore) GetVersion(ctx context.Context, id primitive.ObjectID) (*models.Version, error) {
	var v models.Version
	err := s.versions.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: version %s", ErrNotFound, id.Hex())
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &v, nil
}

// CreateAsset inserts a new asset together with its initial approved
// version (seq 1) so the history is complete from birth.
func (s *MongoStore) CreateAsset(ctx context.Context, asset *models.Asset, initial *models.Version) error {
	asset.ID = primitive.NewObjectID()
	asset.VersionSeq = 1
	initial.ID = primitive.NewObjectID()
	initial.AssetID = asset.ID
	initial.Seq = 1

	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := s.assets.InsertOne(sc, asset); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if _, err := s.versions.InsertOne(sc, initial); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	})
}

func (s *MongoStore) AppendVersion(ctx context.Context, v *models.Version, patch *models.AssetChange) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		// $inc on the asset doc serializes sequence assignment per asset.
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		var asset models.Asset
		err := s.assets.FindOneAndUpdate(sc,
			bson.M{"_id": v.AssetID},
			bson.M{"$inc": bson.M{"versionSeq": 1}},
			opts,
		).Decode(&asset)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return fmt.Errorf("%w: asset %s", ErrNotFound, v.AssetID.Hex())
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		v.ID = primitive.NewObjectID()
		v.Seq = asset.VersionSeq
		if _, err := s.versions.InsertOne(sc, v); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		if patch != nil {
			_, err := s.assets.UpdateOne(sc,
				bson.M{"_id": v.AssetID},
				bson.M{"$set": changeSet(patch, v.CreatedAt)},
			)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
		return nil
	})
}

func (s *MongoStore) ResolveVersion(ctx context.Context, id primitive.ObjectID, status models.VersionStatus,
	resolvedBy primitive.ObjectID, at time.Time, patch *models.AssetChange) (*models.Version, error) {

	var resolved models.Version
	err := s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		// Compare-and-set: only a pending version transitions. A losing
		// concurrent resolver matches nothing and gets ErrConflict.
		res, err := s.versions.UpdateOne(sc,
			bson.M{"_id": id, "status": models.StatusPending},
			bson.M{"$set": bson.M{
				"status":     status,
				"resolvedBy": resolvedBy,
				"resolvedAt": at,
			}},
		)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if res.MatchedCount == 0 {
			if err := s.versions.FindOne(sc, bson.M{"_id": id}).Err(); errors.Is(err, mongo.ErrNoDocuments) {
				return fmt.Errorf("%w: version %s", ErrNotFound, id.Hex())
			}
			return fmt.Errorf("%w: version %s already resolved", ErrConflict, id.Hex())
		}

		if err := s.versions.FindOne(sc, bson.M{"_id": id}).Decode(&resolved); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		if patch != nil {
			_, err := s.assets.UpdateOne(sc,
				bson.M{"_id": resolved.AssetID},
				bson.M{"$set": changeSet(patch, at)},
			)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}

func (s *MongoStore) VersionsByAsset(ctx context.Context, assetID primitive.ObjectID, status models.VersionStatus) ([]models.Version, error) {
	filter := bson.M{"assetId": assetID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := s.versions.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer cursor.Close(ctx)

	versions := []models.Version{}
	if err := cursor.All(ctx, &versions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return versions, nil
}

func (s *MongoStore) PendingVersions(ctx context.Context) ([]models.PendingVersion, error) {
	// One $lookup so the review queue never forces per-entry asset fetches.
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.StatusPending}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "assets",
			"localField":   "assetId",
			"foreignField": "_id",
			"as":           "asset",
		}}},
		{{Key: "$unwind", Value: "$asset"}},
		{{Key: "$addFields", Value: bson.M{"assetTitle": "$asset.title"}}},
		{{Key: "$project", Value: bson.M{"asset": 0}}},
	}

	cursor, err := s.versions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer cursor.Close(ctx)

	pending := []models.PendingVersion{}
	if err := cursor.All(ctx, &pending); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return pending, nil
}

// DeleteAsset removes the asset and cascades to every version it owns.
// Blobs in the object store are left behind for recovery.
func (s *MongoStore) DeleteAsset(ctx context.Context, id primitive.ObjectID) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := s.assets.DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if res.DeletedCount == 0 {
			return fmt.Errorf("%w: asset %s", ErrNotFound, id.Hex())
		}
		if _, err := s.versions.DeleteMany(sc, bson.M{"assetId": id}); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	})
}
