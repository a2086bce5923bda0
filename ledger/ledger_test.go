package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dam/ledger"
	"dam/models"
)

func strPtr(s string) *string { return &s }

func newActor(role models.Role, name string) ledger.Actor {
	return ledger.Actor{ID: primitive.NewObjectID(), Name: name, Role: role}
}

// seedAsset creates an asset owned by owner and returns it.
func seedAsset(t *testing.T, svc *ledger.Service, owner ledger.Actor, title string) *models.Asset {
	t.Helper()
	asset := &models.Asset{
		Title: title,
		File: models.FileRef{
			Key:         "assets/2026/08/29/seed",
			Name:        "logo.png",
			ContentType: "image/png",
			SizeBytes:   1024,
		},
	}
	_, err := svc.CreateAsset(context.Background(), owner, asset)
	require.NoError(t, err)
	return asset
}

func TestCreateAssetRecordsInitialVersion(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	editor := newActor(models.RoleEditor, "alice")

	asset := seedAsset(t, svc, editor, "Logo")

	versions, err := svc.ListByAsset(context.Background(), asset.ID, "")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, int64(1), versions[0].Seq)
	assert.Equal(t, models.StatusApproved, versions[0].Status)
	assert.Equal(t, editor.ID, versions[0].ProposedBy)
	require.NotNil(t, versions[0].Proposed.Title)
	assert.Equal(t, "Logo", *versions[0].Proposed.Title)
}

func TestCreateAssetForbiddenForViewer(t *testing.T) {
	svc := ledger.NewService(ledger.NewMemoryStore(), false)
	viewer := newActor(models.RoleViewer, "victor")

	_, err := svc.CreateAsset(context.Background(), viewer, &models.Asset{Title: "x"})
	assert.ErrorIs(t, err, ledger.ErrForbidden)
}

// Scenario 1: an editor's proposal is staged, the live asset untouched.
func TestProposeStagesWithoutTouchingAsset(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	asset := seedAsset(t, svc, owner, "Logo")

	v, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{
		Title: strPtr("Logo v2"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Seq)
	assert.Equal(t, models.StatusPending, v.Status)

	live, err := svc.GetAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "Logo", live.Title, "pending proposal must not leak into the live asset")
}

// Scenario 2: approval promotes the proposed title.
func TestApprovePromotesProposedFields(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	admin := newActor(models.RoleAdmin, "root")
	asset := seedAsset(t, svc, owner, "Logo")

	v, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{
		Title: strPtr("Logo v2"),
	})
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), admin, v.ID, "approve")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, admin.ID, *resolved.ResolvedBy)

	live, err := svc.GetAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "Logo v2", live.Title)
}

// Absent fields stay untouched on approval; present ones overwrite.
func TestApproveLeavesAbsentFieldsAlone(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	admin := newActor(models.RoleAdmin, "root")
	asset := seedAsset(t, svc, owner, "Logo")

	v, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{
		Description: strPtr("updated"),
	})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), admin, v.ID, "approve")
	require.NoError(t, err)

	live, err := svc.GetAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "Logo", live.Title)
	assert.Equal(t, "updated", live.Description)
	assert.Equal(t, "assets/2026/08/29/seed", live.File.Key)
}

func TestApproveSwapsFileReference(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	admin := newActor(models.RoleAdmin, "root")
	asset := seedAsset(t, svc, owner, "Logo")

	v, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{
		File: &models.FileRef{Key: "assets/2026/08/29/next", Name: "logo2.png", ContentType: "image/png", SizeBytes: 2048},
	})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), admin, v.ID, "approve")
	require.NoError(t, err)

	live, err := svc.GetAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "assets/2026/08/29/next", live.File.Key)

	// The resolved version keeps its own reference for history.
	resolved, err := svc.GetVersion(context.Background(), v.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved.Proposed.File)
	assert.Equal(t, "assets/2026/08/29/next", resolved.Proposed.File.Key)
}

// An empty tag list is a deliberate clear, not an absent field.
func TestApproveClearsTags(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	admin := newActor(models.RoleAdmin, "root")

	asset := &models.Asset{
		Title: "Logo",
		Tags:  []string{"brand", "print"},
		File:  models.FileRef{Key: "assets/seed", Name: "logo.png"},
	}
	_, err := svc.CreateAsset(context.Background(), owner, asset)
	require.NoError(t, err)

	v, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{Tags: []string{}})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), admin, v.ID, "approve")
	require.NoError(t, err)

	live, err := svc.GetAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Empty(t, live.Tags)
	assert.Equal(t, "Logo", live.Title, "other fields stay untouched")
}

func TestRejectIsTerminalAndTouchesNothing(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	admin := newActor(models.RoleAdmin, "root")
	asset := seedAsset(t, svc, owner, "Logo")

	v, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{
		Title: strPtr("Logo v2"),
	})
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), admin, v.ID, "reject")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, resolved.Status)

	live, err := svc.GetAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "Logo", live.Title)
}

// Scenario 4 and property: any resolve on a resolved version conflicts and
// changes nothing, same decision included.
func TestResolveOnResolvedVersionConflicts(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	admin := newActor(models.RoleAdmin, "root")
	asset := seedAsset(t, svc, owner, "Logo")

	v, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{
		Title: strPtr("Logo v2"),
	})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), admin, v.ID, "reject")
	require.NoError(t, err)

	for _, decision := range []string{"approve", "reject"} {
		_, err = svc.Resolve(context.Background(), admin, v.ID, decision)
		assert.ErrorIs(t, err, ledger.ErrConflict)
	}

	live, err := svc.GetAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "Logo", live.Title)

	current, err := svc.GetVersion(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, current.Status)
}

// Scenario 5: an empty proposal is rejected outright.
func TestProposeEmptyChangeInvalid(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	asset := seedAsset(t, svc, owner, "Logo")

	_, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{})
	assert.ErrorIs(t, err, ledger.ErrInvalidProposal)

	versions, err := svc.ListByAsset(context.Background(), asset.ID, "")
	require.NoError(t, err)
	assert.Len(t, versions, 1, "no version may be created for an empty proposal")
}

func TestProposeMalformedTagsInvalid(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	asset := seedAsset(t, svc, owner, "Logo")

	_, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{
		Tags: []string{"ok", "   "},
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidProposal)
}

func TestProposeUnknownAssetNotFound(t *testing.T) {
	svc := ledger.NewService(ledger.NewMemoryStore(), false)
	editor := newActor(models.RoleEditor, "alice")

	_, err := svc.Propose(context.Background(), editor, primitive.NewObjectID(), models.AssetChange{
		Title: strPtr("x"),
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestProposeForbiddenForViewer(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	viewer := newActor(models.RoleViewer, "victor")
	asset := seedAsset(t, svc, owner, "Logo")

	_, err := svc.Propose(context.Background(), viewer, asset.ID, models.AssetChange{
		Title: strPtr("nope"),
	})
	assert.ErrorIs(t, err, ledger.ErrForbidden)
}

// Round-trip: proposed fields come back exactly, absent stays absent and
// empty string stays empty string.
func TestProposalRoundTrip(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	asset := seedAsset(t, svc, owner, "Logo")

	change := models.AssetChange{
		Title:       strPtr(""),
		Description: strPtr("desc"),
		Tags:        []string{"x", "y"},
	}
	v, err := svc.Propose(context.Background(), owner, asset.ID, change)
	require.NoError(t, err)

	versions, err := svc.ListByAsset(context.Background(), asset.ID, "pending")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	got := versions[0]
	assert.Equal(t, v.ID, got.ID)
	require.NotNil(t, got.Proposed.Title)
	assert.Equal(t, "", *got.Proposed.Title)
	require.NotNil(t, got.Proposed.Description)
	assert.Equal(t, "desc", *got.Proposed.Description)
	assert.Equal(t, []string{"x", "y"}, got.Proposed.Tags)
	assert.Nil(t, got.Proposed.CategoryID)
	assert.Nil(t, got.Proposed.File)
}

func TestListByAssetStatusFilterAndOrder(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	admin := newActor(models.RoleAdmin, "root")
	asset := seedAsset(t, svc, owner, "Logo")

	v2, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{Title: strPtr("a")})
	require.NoError(t, err)
	_, err = svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{Title: strPtr("b")})
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), admin, v2.ID, "approve")
	require.NoError(t, err)

	all, err := svc.ListByAsset(context.Background(), asset.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, v := range all {
		assert.Equal(t, int64(i+1), v.Seq, "history must be ordered by sequence ascending")
	}

	// Filter is case-insensitive.
	approved, err := svc.ListByAsset(context.Background(), asset.ID, "APPROVED")
	require.NoError(t, err)
	assert.Len(t, approved, 2)

	_, err = svc.ListByAsset(context.Background(), asset.ID, "bogus")
	assert.ErrorIs(t, err, ledger.ErrInvalidProposal)
}

func TestListPendingDenormalizesAssetTitle(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	admin := newActor(models.RoleAdmin, "root")
	assetA := seedAsset(t, svc, owner, "Logo")
	assetB := seedAsset(t, svc, owner, "Banner")

	_, err := svc.Propose(context.Background(), owner, assetA.ID, models.AssetChange{Title: strPtr("a")})
	require.NoError(t, err)
	_, err = svc.Propose(context.Background(), owner, assetB.ID, models.AssetChange{Title: strPtr("b")})
	require.NoError(t, err)

	pending, err := svc.ListPending(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	titles := map[string]bool{}
	for _, p := range pending {
		assert.Equal(t, models.StatusPending, p.Status)
		titles[p.AssetTitle] = true
	}
	assert.True(t, titles["Logo"])
	assert.True(t, titles["Banner"])

	_, err = svc.ListPending(context.Background(), owner)
	assert.ErrorIs(t, err, ledger.ErrForbidden)
}

func TestResolveForbiddenForEditor(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	asset := seedAsset(t, svc, owner, "Logo")

	v, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{Title: strPtr("x")})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), owner, v.ID, "approve")
	assert.ErrorIs(t, err, ledger.ErrForbidden)
}

func TestResolveBadDecisionInvalid(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	admin := newActor(models.RoleAdmin, "root")
	asset := seedAsset(t, svc, owner, "Logo")

	v, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{Title: strPtr("x")})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), admin, v.ID, "maybe")
	assert.ErrorIs(t, err, ledger.ErrInvalidProposal)
}

// Scenario 6: without the owner carve-out no editor writes directly, owner
// included; with it, only the owner does.
func TestDirectUpdateOwnership(t *testing.T) {
	owner := newActor(models.RoleEditor, "alice")
	other := newActor(models.RoleEditor, "bob")
	admin := newActor(models.RoleAdmin, "root")

	t.Run("strict mode stages everyone but admins", func(t *testing.T) {
		svc := ledger.NewService(ledger.NewMemoryStore(), false)
		asset := seedAsset(t, svc, owner, "Logo")

		_, err := svc.DirectUpdate(context.Background(), owner, asset.ID, models.AssetChange{Title: strPtr("x")})
		assert.ErrorIs(t, err, ledger.ErrForbidden)

		_, err = svc.DirectUpdate(context.Background(), admin, asset.ID, models.AssetChange{Title: strPtr("x")})
		assert.NoError(t, err)
	})

	t.Run("owner carve-out", func(t *testing.T) {
		svc := ledger.NewService(ledger.NewMemoryStore(), true)
		asset := seedAsset(t, svc, owner, "Logo")

		_, err := svc.DirectUpdate(context.Background(), other, asset.ID, models.AssetChange{Title: strPtr("x")})
		assert.ErrorIs(t, err, ledger.ErrForbidden)

		v, err := svc.DirectUpdate(context.Background(), owner, asset.ID, models.AssetChange{Title: strPtr("Logo v2")})
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, v.Status)
		assert.Equal(t, int64(2), v.Seq)

		live, err := svc.GetAsset(context.Background(), asset.ID)
		require.NoError(t, err)
		assert.Equal(t, "Logo v2", live.Title)
	})
}

// Direct writes keep the audit trail gap-free.
func TestDirectUpdateAppendsApprovedVersion(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	admin := newActor(models.RoleAdmin, "root")
	asset := seedAsset(t, svc, owner, "Logo")

	_, err := svc.DirectUpdate(context.Background(), admin, asset.ID, models.AssetChange{Description: strPtr("d1")})
	require.NoError(t, err)
	_, err = svc.DirectUpdate(context.Background(), admin, asset.ID, models.AssetChange{Description: strPtr("d2")})
	require.NoError(t, err)

	versions, err := svc.ListByAsset(context.Background(), asset.ID, "")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	for i, v := range versions {
		assert.Equal(t, int64(i+1), v.Seq)
		assert.Equal(t, models.StatusApproved, v.Status)
	}
}

func TestSubmitChangeDispatch(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	admin := newActor(models.RoleAdmin, "root")
	asset := seedAsset(t, svc, owner, "Logo")

	_, applied, err := svc.SubmitChange(context.Background(), admin, asset.ID, models.AssetChange{Title: strPtr("direct")})
	require.NoError(t, err)
	assert.True(t, applied)

	_, applied, err = svc.SubmitChange(context.Background(), owner, asset.ID, models.AssetChange{Title: strPtr("staged")})
	require.NoError(t, err)
	assert.False(t, applied)

	live, err := svc.GetAsset(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "direct", live.Title)
}

// Scenario 3 generalized: N concurrent proposals get N distinct,
// consecutive sequence numbers continuing from the prior max.
func TestConcurrentProposalsGetDistinctConsecutiveSequences(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	asset := seedAsset(t, svc, owner, "Logo")

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			editor := newActor(models.RoleEditor, "worker")
			_, err := svc.Propose(context.Background(), editor, asset.ID, models.AssetChange{
				Description: strPtr("concurrent"),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	versions, err := svc.ListByAsset(context.Background(), asset.ID, "")
	require.NoError(t, err)
	require.Len(t, versions, n+1)
	seen := map[int64]bool{}
	for _, v := range versions {
		assert.False(t, seen[v.Seq], "duplicate sequence %d", v.Seq)
		seen[v.Seq] = true
	}
	for seq := int64(1); seq <= n+1; seq++ {
		assert.True(t, seen[seq], "missing sequence %d", seq)
	}
}

// Two admins racing on one version: exactly one resolution wins.
func TestConcurrentResolveSingleWinner(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	asset := seedAsset(t, svc, owner, "Logo")

	v, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{Title: strPtr("x")})
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	wins := make(chan models.VersionStatus, n)
	for i := 0; i < n; i++ {
		decision := "approve"
		if i%2 == 1 {
			decision = "reject"
		}
		go func(decision string) {
			defer wg.Done()
			admin := newActor(models.RoleAdmin, "racer")
			if resolved, err := svc.Resolve(context.Background(), admin, v.ID, decision); err == nil {
				wins <- resolved.Status
			} else {
				assert.ErrorIs(t, err, ledger.ErrConflict)
			}
		}(decision)
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one resolver may win")
}

func TestDeleteAssetCascadesVersions(t *testing.T) {
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, false)
	owner := newActor(models.RoleEditor, "alice")
	admin := newActor(models.RoleAdmin, "root")
	asset := seedAsset(t, svc, owner, "Logo")

	v, err := svc.Propose(context.Background(), owner, asset.ID, models.AssetChange{Title: strPtr("x")})
	require.NoError(t, err)

	err = svc.DeleteAsset(context.Background(), owner, asset.ID)
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	require.NoError(t, svc.DeleteAsset(context.Background(), admin, asset.ID))

	_, err = svc.GetAsset(context.Background(), asset.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = svc.GetVersion(context.Background(), v.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	pending, err := svc.ListPending(context.Background(), admin)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
