package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"dam/models"
)

// MemoryStore keeps the ledger in process memory behind one mutex, which
// trivially gives the serialization and atomicity the Store contract asks
// for. It backs the tests and needs no external services.
type MemoryStore struct {
	mu       sync.Mutex
	assets   map[primitive.ObjectID]*models.Asset
	versions map[primitive.ObjectID]*models.Version
	order    []primitive.ObjectID // version ids in creation order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:   make(map[primitive.ObjectID]*models.Asset),
		versions: make(map[primitive.ObjectID]*models.Version),
	}
}

func applyChange(asset *models.Asset, patch *models.AssetChange, now time.Time) {
	if patch.Title != nil {
		asset.Title = *patch.Title
	}
	if patch.Description != nil {
		asset.Description = *patch.Description
	}
	if patch.CategoryID != nil {
		id := *patch.CategoryID
		asset.CategoryID = &id
	}
	if patch.Tags != nil {
		asset.Tags = append([]string(nil), patch.Tags...)
	}
	if patch.File != nil {
		asset.File = *patch.File
	}
	asset.UpdatedAt = now
}

func (s *MemoryStore) GetAsset(_ context.Context, id primitive.ObjectID) (*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.assets[id]
	if !ok {
		return nil, fmt.Errorf("%w: asset %s", ErrNotFound, id.Hex())
	}
	copied := *asset
	return &copied, nil
}

func (s *MemoryStore) GetVersion(_ context.Context, id primitive.ObjectID) (*models.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[id]
	if !ok {
		return nil, fmt.Errorf("%w: version %s", ErrNotFound, id.Hex())
	}
	copied := *v
	return &copied, nil
}

func (s *MemoryStore) CreateAsset(_ context.Context, asset *models.Asset, initial *models.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset.ID = primitive.NewObjectID()
	asset.VersionSeq = 1
	stored := *asset
	s.assets[asset.ID] = &stored

	initial.ID = primitive.NewObjectID()
	initial.AssetID = asset.ID
	initial.Seq = 1
	sv := *initial
	s.versions[initial.ID] = &sv
	s.order = append(s.order, initial.ID)
	return nil
}

func (s *MemoryStore) AppendVersion(_ context.Context, v *models.Version, patch *models.AssetChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[v.AssetID]
	if !ok {
		return fmt.Errorf("%w: asset %s", ErrNotFound, v.AssetID.Hex())
	}
	asset.VersionSeq++
	v.ID = primitive.NewObjectID()
	v.Seq = asset.VersionSeq

	stored := *v
	s.versions[v.ID] = &stored
	s.order = append(s.order, v.ID)

	if patch != nil {
		applyChange(asset, patch, v.CreatedAt)
	}
	return nil
}

func (s *MemoryStore) ResolveVersion(_ context.Context, id primitive.ObjectID, status models.VersionStatus,
	resolvedBy primitive.ObjectID, at time.Time, patch *models.AssetChange) (*models.Version, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.versions[id]
	if !ok {
		return nil, fmt.Errorf("%w: version %s", ErrNotFound, id.Hex())
	}
	if v.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: version %s already resolved", ErrConflict, id.Hex())
	}

	v.Status = status
	v.ResolvedBy = &resolvedBy
	v.ResolvedAt = &at

	if patch != nil {
		asset, ok := s.assets[v.AssetID]
		if !ok {
			return nil, fmt.Errorf("%w: asset %s", ErrNotFound, v.AssetID.Hex())
		}
		applyChange(asset, patch, at)
	}

	copied := *v
	return &copied, nil
}

func (s *MemoryStore) VersionsByAsset(_ context.Context, assetID primitive.ObjectID, status models.VersionStatus) ([]models.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := []models.Version{}
	for _, v := range s.versions {
		if v.AssetID != assetID {
			continue
		}
		if status != "" && v.Status != status {
			continue
		}
		versions = append(versions, *v)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Seq < versions[j].Seq
	})
	return versions, nil
}

func (s *MemoryStore) PendingVersions(_ context.Context) ([]models.PendingVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := []models.PendingVersion{}
	for _, id := range s.order {
		v, ok := s.versions[id]
		if !ok || v.Status != models.StatusPending {
			continue
		}
		entry := models.PendingVersion{Version: *v}
		if asset, ok := s.assets[v.AssetID]; ok {
			entry.AssetTitle = asset.Title
		}
		pending = append(pending, entry)
	}
	return pending, nil
}

func (s *MemoryStore) DeleteAsset(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[id]; !ok {
		return fmt.Errorf("%w: asset %s", ErrNotFound, id.Hex())
	}
	delete(s.assets, id)
	for vid, v := range s.versions {
		if v.AssetID == id {
			delete(s.versions, vid)
		}
	}
	kept := s.order[:0]
	for _, vid := range s.order {
		if _, ok := s.versions[vid]; ok {
			kept = append(kept, vid)
		}
	}
	s.order = kept
	return nil
}
