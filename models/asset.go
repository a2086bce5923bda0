// models/asset.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileRef points at binary content in the object store. The key is opaque
// to callers; old keys are never rewritten, so resolved versions keep a
// usable reference to the content they carried.
type FileRef struct {
	Key         string `bson:"key" json:"key"`
	Name        string `bson:"name" json:"name"`
	ContentType string `bson:"contentType" json:"contentType"`
	SizeBytes   int64  `bson:"sizeBytes" json:"sizeBytes"`
}

// Asset is a managed file plus its current approved metadata. Fields only
// ever reflect approved state; pending proposals live in versions.
type Asset struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	CategoryID  *primitive.ObjectID `bson:"categoryId,omitempty" json:"categoryId,omitempty"`
	Tags        []string            `bson:"tags,omitempty" json:"tags"`
	File        FileRef             `bson:"file" json:"file"`
	OwnerID     primitive.ObjectID  `bson:"ownerId" json:"ownerId"`
	OwnerName   string              `bson:"ownerName,omitempty" json:"ownerName,omitempty"`
	VersionSeq  int64               `bson:"versionSeq" json:"versionSeq"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

type Category struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name" json:"name"`
}

type Tag struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name" json:"name"`
}
