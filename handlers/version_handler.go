// handlers/version_handler.go
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"dam/ledger"
	"dam/models"
	"dam/utils"
	"dam/websocket"
)

// ProposeVersion submits a change against an asset, optionally with a
// replacement file. Privileged actors are applied directly; everyone else
// gets a pending version awaiting admin review.
func ProposeVersion(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "user id required")
		return
	}

	assetID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid asset id format")
		return
	}

	change, err := parseAssetForm(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	fileRef, err := storeUploadedFile(r)
	if err != nil {
		log.Printf("ProposeVersion - upload error: %v", err)
		utils.RespondWithError(w, http.StatusBadGateway, "file upload failed")
		return
	}
	change.File = fileRef

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	version, applied, err := ledgerService.SubmitChange(ctx, actor, assetID, change)
	if err != nil {
		discardUploadedFile(ctx, fileRef)
		respondLedgerError(w, err)
		return
	}

	if applied {
		writeAudit(r, actor, "asset_update", "asset", assetID, bson.M{"seq": version.Seq})
		utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"applied": true,
			"version": version,
		})
		return
	}

	writeAudit(r, actor, "version_propose", "version", version.ID, bson.M{"assetId": assetID})
	websocket.SendVersionCreated(version, actor.ID.Hex(), actor.Name)
	log.Printf("Staged version %s (seq %d) on asset %s by %s",
		version.ID.Hex(), version.Seq, assetID.Hex(), actor.Name)
	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"applied": false,
		"version": version,
	})
}

// ListAssetVersions returns an asset's history, oldest first, optionally
// filtered by status.
func ListAssetVersions(w http.ResponseWriter, r *http.Request) {
	assetID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid asset id format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	versions, err := ledgerService.ListByAsset(ctx, assetID, r.URL.Query().Get("status"))
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, versions)
}

// ListPendingVersions returns the admin review queue across all assets,
// each entry carrying the parent asset's title for display.
func ListPendingVersions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "user id required")
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		if parsed, valid := models.ParseVersionStatus(status); !valid || parsed != models.StatusPending {
			utils.RespondWithError(w, http.StatusBadRequest, "only the pending queue is listable here")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pending, err := ledgerService.ListPending(ctx, actor)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, pending)
}

// GetVersion returns one version record.
func GetVersion(w http.ResponseWriter, r *http.Request) {
	versionID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid version id format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	version, err := ledgerService.GetVersion(ctx, versionID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, version)
}

// ResolveVersion approves or rejects a pending version. Approval promotes
// the proposed fields onto the live asset; callers re-fetch the asset to
// observe them. A retried identical decision is answered 200 with the
// current record instead of a conflict, absorbing client double-submits.
func ResolveVersion(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "user id required")
		return
	}

	versionID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid version id format")
		return
	}

	var req struct {
		Decision string `json:"decision"`
		Status   string `json:"status"` // accepted alias for decision
	}
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	decision := req.Decision
	if decision == "" {
		decision = req.Status
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	version, err := ledgerService.Resolve(ctx, actor, versionID, decision)
	if err != nil {
		if errors.Is(err, ledger.ErrConflict) {
			if current, getErr := ledgerService.GetVersion(ctx, versionID); getErr == nil &&
				sameDecision(current.Status, decision) {
				utils.RespondWithJSON(w, http.StatusOK, current)
				return
			}
		}
		respondLedgerError(w, err)
		return
	}

	writeAudit(r, actor, "version_"+string(version.Status), "version", versionID, bson.M{
		"assetId": version.AssetID,
		"seq":     version.Seq,
	})
	websocket.SendVersionResolved(version, actor.ID.Hex(), actor.Name)
	log.Printf("Version %s %s by %s", versionID.Hex(), version.Status, actor.Name)
	utils.RespondWithJSON(w, http.StatusOK, version)
}

func sameDecision(status models.VersionStatus, decision string) bool {
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case "approve", "approved":
		return status == models.StatusApproved
	case "reject", "rejected":
		return status == models.StatusRejected
	default:
		return false
	}
}
