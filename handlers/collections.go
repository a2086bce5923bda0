// handlers/collections.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"dam/config"
	"dam/database"
	"dam/ledger"
	"dam/models"
	"dam/storage"
	"dam/utils"
	"dam/websocket"
)

var (
	userCollection     *mongo.Collection
	assetCollection    *mongo.Collection
	categoryCollection *mongo.Collection
	tagCollection      *mongo.Collection
	auditLogCollection *mongo.Collection

	ledgerService *ledger.Service
	fileStore     storage.FileStorage
)

func InitCollections() {
	db := database.Client.Database(config.MongoDatabase)
	userCollection = db.Collection("users")
	assetCollection = db.Collection("assets")
	categoryCollection = db.Collection("categories")
	tagCollection = db.Collection("tags")
	auditLogCollection = db.Collection("auditlogs")

	store := ledger.NewMongoStore(database.Client, config.MongoDatabase)
	ledgerService = ledger.NewService(store, config.OwnerDirectWrite)
}

func InitFileStorage(fs storage.FileStorage) {
	fileStore = fs
}

// SetLedgerService swaps the ledger used by the version and asset handlers.
// Tests wire an in-memory store through here.
func SetLedgerService(s *ledger.Service) {
	ledgerService = s
}

// actorFromRequest rebuilds the request-scoped identity the auth
// middleware stored in the context.
func actorFromRequest(r *http.Request) (ledger.Actor, bool) {
	userIDStr, ok := r.Context().Value("userID").(string)
	if !ok || userIDStr == "" {
		return ledger.Actor{}, false
	}
	userID, err := primitive.ObjectIDFromHex(userIDStr)
	if err != nil {
		return ledger.Actor{}, false
	}
	name, _ := r.Context().Value("userName").(string)
	roleStr, _ := r.Context().Value("userRole").(string)
	return ledger.Actor{
		ID:   userID,
		Name: name,
		Role: models.ParseRole(roleStr),
	}, true
}

// respondLedgerError maps the ledger taxonomy onto HTTP statuses. Forbidden
// stays generic so the response never leaks which role would have passed.
func respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ledger.ErrInvalidProposal):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrForbidden):
		utils.RespondWithError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ledger.ErrConflict):
		utils.RespondWithError(w, http.StatusConflict, "version already resolved")
	case errors.Is(err, ledger.ErrUnavailable):
		utils.RespondWithError(w, http.StatusBadGateway, "storage unavailable, retry later")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeAudit appends an audit entry and streams it to admin clients.
// Audit failures are logged by the caller's request log, never fatal.
func writeAudit(r *http.Request, actor ledger.Actor, action, entityType string, entityID primitive.ObjectID, details bson.M) {
	if auditLogCollection == nil {
		return
	}
	audit := models.AuditLog{
		ID:         primitive.NewObjectID(),
		UserID:     actor.ID,
		UserName:   actor.Name,
		UserRole:   actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
		IPAddress:  r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}
	if _, err := auditLogCollection.InsertOne(r.Context(), audit); err == nil {
		websocket.BroadcastAudit(&audit)
	}
}
