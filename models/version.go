// models/version.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VersionStatus string

const (
	StatusPending  VersionStatus = "pending"
	StatusApproved VersionStatus = "approved"
	StatusRejected VersionStatus = "rejected"
)

// ParseVersionStatus normalizes a status string to the closed set.
// The second return is false for anything outside it.
func ParseVersionStatus(s string) (VersionStatus, bool) {
	switch VersionStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, true
	case StatusApproved:
		return StatusApproved, true
	case StatusRejected:
		return StatusRejected, true
	default:
		return "", false
	}
}

// AssetChange is the set of proposed field values. A nil field means
// "no change"; an empty string is a deliberate value, so title and
// description are pointers rather than strings. A nil Tags slice means
// no change, an empty one clears the tag set. Tags must not carry
// omitempty: it would collapse "clear" into "absent" in storage.
type AssetChange struct {
	Title       *string             `bson:"title,omitempty" json:"title,omitempty"`
	Description *string             `bson:"description,omitempty" json:"description,omitempty"`
	CategoryID  *primitive.ObjectID `bson:"categoryId,omitempty" json:"categoryId,omitempty"`
	Tags        []string            `bson:"tags" json:"tags"`
	File        *FileRef            `bson:"file,omitempty" json:"file,omitempty"`
}

// IsEmpty reports whether the change proposes nothing at all.
func (c AssetChange) IsEmpty() bool {
	return c.Title == nil && c.Description == nil && c.CategoryID == nil &&
		c.Tags == nil && c.File == nil
}

// Version is one proposed or recorded change to an asset. Seq numbers are
// per-asset, strictly increasing in creation order, and never renumbered.
// A version is immutable once its status leaves pending.
type Version struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	AssetID      primitive.ObjectID  `bson:"assetId" json:"assetId"`
	Seq          int64               `bson:"seq" json:"seq"`
	Proposed     AssetChange         `bson:"proposed" json:"proposed"`
	Status       VersionStatus       `bson:"status" json:"status"`
	ProposedBy   primitive.ObjectID  `bson:"proposedBy" json:"proposedBy"`
	ProposedName string              `bson:"proposedByName,omitempty" json:"proposedByName,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	ResolvedBy   *primitive.ObjectID `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	ResolvedAt   *time.Time          `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}

// PendingVersion is a queue entry joined with enough of the parent asset
// for review display, so the caller never has to do N+1 asset lookups.
type PendingVersion struct {
	Version    `bson:",inline"`
	AssetTitle string `bson:"assetTitle" json:"assetTitle"`
}
