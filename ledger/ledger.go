// Package ledger implements the versioned-update workflow: non-admin edits
// are staged as pending version records, admins resolve them, and only an
// approval promotes the staged fields into the live asset.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dam/models"
)

const (
	maxTitleLen = 200
	maxTagLen   = 100
)

// Actor is the request-scoped identity a handler resolved from the bearer
// token. Role must already be normalized via models.ParseRole.
type Actor struct {
	ID   primitive.ObjectID
	Name string
	Role models.Role
}

// Service is the version ledger plus its approval authority.
type Service struct {
	store Store

	// ownerDirectWrite lets an editor bypass the ledger on assets they
	// own. Off by default: every non-admin change is staged for review.
	ownerDirectWrite bool
}

func NewService(store Store, ownerDirectWrite bool) *Service {
	return &Service{store: store, ownerDirectWrite: ownerDirectWrite}
}

// validateChange rejects empty proposals and malformed field values.
func validateChange(change models.AssetChange) error {
	if change.IsEmpty() {
		return fmt.Errorf("%w: no fields proposed", ErrInvalidProposal)
	}
	if change.Title != nil && len(*change.Title) > maxTitleLen {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidProposal, maxTitleLen)
	}
	for _, tag := range change.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("%w: blank tag", ErrInvalidProposal)
		}
		if len(tag) > maxTagLen {
			return fmt.Errorf("%w: tag exceeds %d characters", ErrInvalidProposal, maxTagLen)
		}
	}
	return nil
}

// GetAsset fetches the live asset record.
func (s *Service) GetAsset(ctx context.Context, id primitive.ObjectID) (*models.Asset, error) {
	return s.store.GetAsset(ctx, id)
}

// CreateAsset registers a newly uploaded asset. The upload is a direct
// write for any uploader, and the initial state is recorded as an approved
// version with sequence number 1 so history starts at birth.
func (s *Service) CreateAsset(ctx context.Context, actor Actor, asset *models.Asset) (*models.Version, error) {
	if !actor.Role.CanUpload() {
		return nil, fmt.Errorf("%w: role may not upload assets", ErrForbidden)
	}
	if strings.TrimSpace(asset.Title) == "" {
		return nil, fmt.Errorf("%w: title required", ErrInvalidProposal)
	}

	now := time.Now().UTC()
	asset.OwnerID = actor.ID
	asset.OwnerName = actor.Name
	asset.CreatedAt = now
	asset.UpdatedAt = now

	title := asset.Title
	desc := asset.Description
	file := asset.File
	initial := &models.Version{
		Proposed: models.AssetChange{
			Title:       &title,
			Description: &desc,
			CategoryID:  asset.CategoryID,
			Tags:        asset.Tags,
			File:        &file,
		},
		Status:       models.StatusApproved,
		ProposedBy:   actor.ID,
		ProposedName: actor.Name,
		CreatedAt:    now,
		ResolvedBy:   &actor.ID,
		ResolvedAt:   &now,
	}
	if err := s.store.CreateAsset(ctx, asset, initial); err != nil {
		return nil, err
	}
	return initial, nil
}

// DeleteAsset removes an asset and invalidates its whole version history.
// Admin only.
func (s *Service) DeleteAsset(ctx context.Context, actor Actor, assetID primitive.ObjectID) error {
	if actor.Role != models.RoleAdmin {
		return fmt.Errorf("%w: only admins may delete assets", ErrForbidden)
	}
	return s.store.DeleteAsset(ctx, assetID)
}

// Propose stages a change against an asset as a new pending version. Any
// editor or admin may propose against any asset; ownership only matters on
// the direct-write path. The asset's live state is untouched.
func (s *Service) Propose(ctx context.Context, actor Actor, assetID primitive.ObjectID, change models.AssetChange) (*models.Version, error) {
	if !actor.Role.CanUpload() {
		return nil, fmt.Errorf("%w: role may not propose changes", ErrForbidden)
	}
	if err := validateChange(change); err != nil {
		return nil, err
	}
	if _, err := s.store.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}

	v := &models.Version{
		AssetID:      assetID,
		Proposed:     change,
		Status:       models.StatusPending,
		ProposedBy:   actor.ID,
		ProposedName: actor.Name,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.AppendVersion(ctx, v, nil); err != nil {
		return nil, err
	}
	return v, nil
}

// ListByAsset returns an asset's version history ordered by sequence
// number ascending. statusFilter may be empty, or one of the closed
// status set (case-insensitive).
func (s *Service) ListByAsset(ctx context.Context, assetID primitive.ObjectID, statusFilter string) ([]models.Version, error) {
	var status models.VersionStatus
	if statusFilter != "" {
		parsed, ok := models.ParseVersionStatus(statusFilter)
		if !ok {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidProposal, statusFilter)
		}
		status = parsed
	}
	if _, err := s.store.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	return s.store.VersionsByAsset(ctx, assetID, status)
}

// ListPending returns the admin review queue across all assets, each entry
// denormalized with the parent asset's title.
func (s *Service) ListPending(ctx context.Context, actor Actor) ([]models.PendingVersion, error) {
	if !actor.Role.CanResolve() {
		return nil, fmt.Errorf("%w: review queue is admin-only", ErrForbidden)
	}
	return s.store.PendingVersions(ctx)
}

// GetVersion fetches a single version record.
func (s *Service) GetVersion(ctx context.Context, id primitive.ObjectID) (*models.Version, error) {
	return s.store.GetVersion(ctx, id)
}

// Resolve is the only status mutator. Rejection is terminal and leaves the
// asset alone; approval promotes every present proposed field onto the live
// asset in the same atomic step as the status flip. A version that already
// left pending yields ErrConflict regardless of the decision.
func (s *Service) Resolve(ctx context.Context, actor Actor, versionID primitive.ObjectID, decision string) (*models.Version, error) {
	if !actor.Role.CanResolve() {
		return nil, fmt.Errorf("%w: only admins may resolve versions", ErrForbidden)
	}

	var status models.VersionStatus
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case "approve", "approved":
		status = models.StatusApproved
	case "reject", "rejected":
		status = models.StatusRejected
	default:
		return nil, fmt.Errorf("%w: decision must be approve or reject", ErrInvalidProposal)
	}

	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	var patch *models.AssetChange
	if status == models.StatusApproved {
		patch = &v.Proposed
	}
	return s.store.ResolveVersion(ctx, versionID, status, actor.ID, time.Now().UTC(), patch)
}

// canWriteDirectly reports whether the actor holds direct-write privilege
// for the asset.
func (s *Service) canWriteDirectly(actor Actor, asset *models.Asset) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	return s.ownerDirectWrite && actor.Role == models.RoleEditor && asset.OwnerID == actor.ID
}

// DirectUpdate applies a change to the asset immediately, bypassing review,
// and still appends an approved version with the next sequence number so
// the history stays a gap-free record of every state the asset has held.
func (s *Service) DirectUpdate(ctx context.Context, actor Actor, assetID primitive.ObjectID, change models.AssetChange) (*models.Version, error) {
	if err := validateChange(change); err != nil {
		return nil, err
	}
	asset, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !s.canWriteDirectly(actor, asset) {
		return nil, fmt.Errorf("%w: no direct-write privilege for this asset", ErrForbidden)
	}

	now := time.Now().UTC()
	v := &models.Version{
		AssetID:      assetID,
		Proposed:     change,
		Status:       models.StatusApproved,
		ProposedBy:   actor.ID,
		ProposedName: actor.Name,
		CreatedAt:    now,
		ResolvedBy:   &actor.ID,
		ResolvedAt:   &now,
	}
	if err := s.store.AppendVersion(ctx, v, &change); err != nil {
		return nil, err
	}
	return v, nil
}

// SubmitChange dispatches an edit: a direct write when the actor holds the
// privilege, a staged proposal otherwise. The bool reports whether the
// change was applied to the live asset.
func (s *Service) SubmitChange(ctx context.Context, actor Actor, assetID primitive.ObjectID, change models.AssetChange) (*models.Version, bool, error) {
	if err := validateChange(change); err != nil {
		return nil, false, err
	}
	asset, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, false, err
	}
	if s.canWriteDirectly(actor, asset) {
		v, err := s.DirectUpdate(ctx, actor, assetID, change)
		return v, err == nil, err
	}
	v, err := s.Propose(ctx, actor, assetID, change)
	return v, false, err
}
