package ledger

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dam/models"
)

// Store is the persistence boundary of the ledger. Implementations must
// keep the documented atomicity: AppendVersion assigns the per-asset
// sequence number under serialization, and ResolveVersion performs the
// pending-state compare-and-set plus the asset writeback as a single
// visible step.
type Store interface {
	GetAsset(ctx context.Context, id primitive.ObjectID) (*models.Asset, error)
	GetVersion(ctx context.Context, id primitive.ObjectID) (*models.Version, error)

	// CreateAsset inserts a new asset together with its initial approved
	// version, which is assigned sequence number 1.
	CreateAsset(ctx context.Context, asset *models.Asset, initial *models.Version) error

	// DeleteAsset removes the asset and cascades to its versions.
	DeleteAsset(ctx context.Context, id primitive.ObjectID) error

	// AppendVersion assigns the next sequence number for v.AssetID, sets
	// v.ID and v.Seq, and inserts v. When patch is non-nil the asset's
	// fields are updated in the same atomic step (direct-write path).
	AppendVersion(ctx context.Context, v *models.Version, patch *models.AssetChange) error

	// ResolveVersion transitions the version from pending to status,
	// applying patch to the parent asset when non-nil. Returns ErrConflict
	// if the version is no longer pending, ErrNotFound if it is gone.
	ResolveVersion(ctx context.Context, id primitive.ObjectID, status models.VersionStatus,
		resolvedBy primitive.ObjectID, at time.Time, patch *models.AssetChange) (*models.Version, error)

	// VersionsByAsset returns the asset's versions ordered by sequence
	// number ascending. An empty status means no filter.
	VersionsByAsset(ctx context.Context, assetID primitive.ObjectID, status models.VersionStatus) ([]models.Version, error)

	// PendingVersions returns every pending version across assets, joined
	// with the parent asset's title, in creation order (id tiebreak).
	PendingVersions(ctx context.Context) ([]models.PendingVersion, error)
}
