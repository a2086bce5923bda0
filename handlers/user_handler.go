// handlers/user_handler.go
package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dam/models"
	"dam/utils"
)

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := actorFromRequest(r)
	if !ok || actor.Role != models.RoleAdmin {
		utils.RespondWithError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

// ListUsers returns all accounts. Admin only.
func ListUsers(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	cursor, err := userCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Printf("ListUsers - Find error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		log.Printf("ListUsers - decode error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode users")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, users)
}

// GetUser returns one account by id. Admin only.
func GetUser(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	userID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid user id format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := userCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			utils.RespondWithError(w, http.StatusNotFound, "User not found")
		} else {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch user")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, user)
}

// UpdateUser changes an account's email and/or role. Admin only.
func UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok || actor.Role != models.RoleAdmin {
		utils.RespondWithError(w, http.StatusForbidden, "forbidden")
		return
	}

	userID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid user id format")
		return
	}

	var req struct {
		Email *string `json:"email,omitempty"`
		Role  *string `json:"role,omitempty"`
	}
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	update := bson.M{}
	if req.Email != nil {
		update["email"] = *req.Email
	}
	if req.Role != nil {
		update["role"] = models.ParseRole(*req.Role)
	}
	if len(update) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := userCollection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": update})
	if err != nil {
		log.Printf("UpdateUser - update error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	writeAudit(r, actor, "user_update", "user", userID, bson.M{"fields": update})

	var user models.User
	if err := userCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "User updated but failed to fetch")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

// DeleteUser removes an account. Admin only; self-deletion is refused.
func DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok || actor.Role != models.RoleAdmin {
		utils.RespondWithError(w, http.StatusForbidden, "forbidden")
		return
	}

	userID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid user id format")
		return
	}
	if userID == actor.ID {
		utils.RespondWithError(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := userCollection.DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		log.Printf("DeleteUser - delete error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	writeAudit(r, actor, "user_delete", "user", userID, nil)
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}
