// handlers/asset_handler.go
package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dam/models"
	"dam/storage"
	"dam/utils"
	"dam/websocket"
)

const maxUploadBytes = 512 << 20 // 512 MiB covers video and 3D model files

// ListAssets returns assets with search, filters, sorting and pagination.
func ListAssets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	filter := bson.M{}
	query := r.URL.Query()

	if q := query.Get("q"); q != "" {
		filter["$or"] = []bson.M{
			{"title": bson.M{"$regex": q, "$options": "i"}},
			{"description": bson.M{"$regex": q, "$options": "i"}},
		}
	}
	if category := query.Get("category"); category != "" {
		categoryID, err := primitive.ObjectIDFromHex(category)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid category id format")
			return
		}
		filter["categoryId"] = categoryID
	}
	if tag := query.Get("tag"); tag != "" {
		filter["tags"] = tag
	}
	if owner := query.Get("uploaded_by"); owner != "" {
		ownerID, err := primitive.ObjectIDFromHex(owner)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid uploader id format")
			return
		}
		filter["ownerId"] = ownerID
	}

	dateRange := bson.M{}
	if from := query.Get("date_from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid date_from, want YYYY-MM-DD")
			return
		}
		dateRange["$gte"] = t
	}
	if to := query.Get("date_to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid date_to, want YYYY-MM-DD")
			return
		}
		dateRange["$lte"] = t.Add(24 * time.Hour)
	}
	if len(dateRange) > 0 {
		filter["createdAt"] = dateRange
	}

	sort := bson.D{{Key: "createdAt", Value: -1}}
	switch query.Get("ordering") {
	case "title":
		sort = bson.D{{Key: "title", Value: 1}}
	case "-title":
		sort = bson.D{{Key: "title", Value: -1}}
	case "uploaded_at":
		sort = bson.D{{Key: "createdAt", Value: 1}}
	case "-uploaded_at", "":
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "invalid ordering field")
		return
	}

	limit := 50
	skip := 0
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if skipStr := query.Get("skip"); skipStr != "" {
		if s, err := strconv.Atoi(skipStr); err == nil && s >= 0 {
			skip = s
		}
	}

	opts := options.Find().
		SetSort(sort).
		SetLimit(int64(limit)).
		SetSkip(int64(skip))

	cursor, err := assetCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("ListAssets - Find error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "database query failed")
		return
	}
	defer cursor.Close(ctx)

	assets := []models.Asset{}
	if err := cursor.All(ctx, &assets); err != nil {
		log.Printf("ListAssets - decode error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to decode assets")
		return
	}

	total, _ := assetCollection.CountDocuments(ctx, filter)

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"assets": assets,
		"total":  total,
		"limit":  limit,
		"skip":   skip,
	})
}

// GetAsset returns a single asset by id.
func GetAsset(w http.ResponseWriter, r *http.Request) {
	assetID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid asset id format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	asset, err := ledgerService.GetAsset(ctx, assetID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, asset)
}

// parseAssetForm reads the multipart fields shared by upload and propose.
// Presence is tracked so an omitted field stays nil (no change) while an
// empty submitted field is a deliberate value.
func parseAssetForm(r *http.Request) (models.AssetChange, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return models.AssetChange{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	change := models.AssetChange{}
	form := r.MultipartForm

	if vals, ok := form.Value["title"]; ok && len(vals) > 0 {
		title := vals[0]
		change.Title = &title
	}
	if vals, ok := form.Value["description"]; ok && len(vals) > 0 {
		desc := vals[0]
		change.Description = &desc
	}
	if vals, ok := form.Value["category"]; ok && len(vals) > 0 && vals[0] != "" {
		categoryID, err := primitive.ObjectIDFromHex(vals[0])
		if err != nil {
			return models.AssetChange{}, fmt.Errorf("invalid category id format")
		}
		change.CategoryID = &categoryID
	}
	if vals, ok := form.Value["tags"]; ok {
		tags := []string{}
		for _, val := range vals {
			for _, t := range strings.Split(val, ",") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
		}
		change.Tags = tags
	}
	return change, nil
}

// storeUploadedFile pushes the "file" part to the object store under a
// fresh key and returns its reference. Returns nil when no file part is
// present.
func storeUploadedFile(r *http.Request) (*models.FileRef, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid file part: %w", err)
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storage.NewObjectKey()
	if err := fileStore.Upload(r.Context(), key, file, header.Size, contentType); err != nil {
		return nil, err
	}

	return &models.FileRef{
		Key:         key,
		Name:        header.Filename,
		ContentType: contentType,
		SizeBytes:   header.Size,
	}, nil
}

// discardUploadedFile removes a blob whose owning record was never
// written, so a rejected request leaves no orphan in the object store.
func discardUploadedFile(ctx context.Context, fileRef *models.FileRef) {
	if fileRef == nil {
		return
	}
	if err := fileStore.Remove(ctx, fileRef.Key); err != nil {
		log.Printf("Failed to discard orphaned upload %s: %v", fileRef.Key, err)
	}
}

// CreateAsset ingests a new upload: blob to object storage, record plus
// initial approved version to the ledger.
func CreateAsset(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "user id required")
		return
	}

	change, err := parseAssetForm(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if change.Title == nil || strings.TrimSpace(*change.Title) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "title required")
		return
	}

	fileRef, err := storeUploadedFile(r)
	if err != nil {
		log.Printf("CreateAsset - upload error: %v", err)
		utils.RespondWithError(w, http.StatusBadGateway, "file upload failed")
		return
	}
	if fileRef == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "file required")
		return
	}

	asset := &models.Asset{
		Title: *change.Title,
		Tags:  change.Tags,
		File:  *fileRef,
	}
	if change.Description != nil {
		asset.Description = *change.Description
	}
	asset.CategoryID = change.CategoryID

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if _, err := ledgerService.CreateAsset(ctx, actor, asset); err != nil {
		discardUploadedFile(ctx, fileRef)
		respondLedgerError(w, err)
		return
	}

	writeAudit(r, actor, "asset_create", "asset", asset.ID, bson.M{"title": asset.Title})
	log.Printf("Created asset %s (%s) by %s", asset.ID.Hex(), asset.Title, actor.Name)
	utils.RespondWithJSON(w, http.StatusCreated, asset)
}

// UpdateAsset applies a metadata edit. Privileged actors write directly;
// everyone else gets their change staged as a pending version (202).
func UpdateAsset(w http.ResponseWriter, r *http.Request) {
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

	var change models.AssetChange
	if err := utils.ParseJSON(r, &change); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	// File replacement rides the multipart propose endpoint only.
	change.File = nil

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	version, applied, err := ledgerService.SubmitChange(ctx, actor, assetID, change)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	if applied {
		writeAudit(r, actor, "asset_update", "asset", assetID, bson.M{"seq": version.Seq})
		asset, err := ledgerService.GetAsset(ctx, assetID)
		if err != nil {
			respondLedgerError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"applied": true,
			"asset":   asset,
			"version": version,
		})
		return
	}

	writeAudit(r, actor, "version_propose", "version", version.ID, bson.M{"assetId": assetID})
	websocket.SendVersionCreated(version, actor.ID.Hex(), actor.Name)
	utils.RespondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"applied": false,
		"version": version,
	})
}

// DeleteAsset removes an asset and its version history. Admin only.
func DeleteAsset(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if err := ledgerService.DeleteAsset(ctx, actor, assetID); err != nil {
		respondLedgerError(w, err)
		return
	}

	writeAudit(r, actor, "asset_delete", "asset", assetID, nil)
	log.Printf("Deleted asset %s by %s", assetID.Hex(), actor.Name)
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

// DownloadAsset streams the asset's current binary content.
func DownloadAsset(w http.ResponseWriter, r *http.Request) {
	assetID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid asset id format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	asset, err := ledgerService.GetAsset(ctx, assetID)
	if err != nil {
		respondLedgerError(w, err)
		return
	}

	object, err := fileStore.Download(ctx, asset.File.Key)
	if err != nil {
		if err == storage.ErrObjectNotFound {
			utils.RespondWithError(w, http.StatusNotFound, "file content not found")
			return
		}
		log.Printf("DownloadAsset - storage error: %v", err)
		utils.RespondWithError(w, http.StatusBadGateway, "storage unavailable, retry later")
		return
	}
	defer object.Close()

	w.Header().Set("Content-Type", asset.File.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", asset.File.Name))
	if asset.File.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(asset.File.SizeBytes, 10))
	}
	if _, err := io.Copy(w, object); err != nil {
		log.Printf("DownloadAsset - stream error: %v", err)
	}
}
