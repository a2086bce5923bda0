// handlers/category_handler.go
package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dam/models"
	"dam/utils"
)

// listNamed lists a name-keyed collection sorted alphabetically.
func listNamed(w http.ResponseWriter, r *http.Request, coll *mongo.Collection, decode func(*mongo.Cursor, context.Context) (interface{}, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Printf("list %s - Find error: %v", coll.Name(), err)
		utils.RespondWithError(w, http.StatusInternalServerError, "database query failed")
		return
	}
	defer cursor.Close(ctx)

	result, err := decode(cursor, ctx)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to decode results")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}

// createNamed inserts a unique name into a name-keyed collection.
// Admins and editors only.
func createNamed(w http.ResponseWriter, r *http.Request, coll *mongo.Collection, kind string) {
	actor, ok := actorFromRequest(r)
	if !ok || !actor.Role.CanUpload() {
		utils.RespondWithError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "name required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	count, err := coll.CountDocuments(ctx, bson.M{"name": req.Name})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "database query failed")
		return
	}
	if count > 0 {
		utils.RespondWithError(w, http.StatusConflict, kind+" already exists")
		return
	}

	doc := bson.M{"_id": primitive.NewObjectID(), "name": req.Name}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		log.Printf("create %s - insert error: %v", kind, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to create "+kind)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, doc)
}

// deleteNamed removes an entry by id. Admins and editors only.
func deleteNamed(w http.ResponseWriter, r *http.Request, coll *mongo.Collection, kind string) {
	actor, ok := actorFromRequest(r)
	if !ok || !actor.Role.CanUpload() {
		utils.RespondWithError(w, http.StatusForbidden, "forbidden")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid id format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to delete "+kind)
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, kind+" not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

func ListCategories(w http.ResponseWriter, r *http.Request) {
	listNamed(w, r, categoryCollection, func(cursor *mongo.Cursor, ctx context.Context) (interface{}, error) {
		categories := []models.Category{}
		err := cursor.All(ctx, &categories)
		return categories, err
	})
}

func CreateCategory(w http.ResponseWriter, r *http.Request) {
	createNamed(w, r, categoryCollection, "category")
}

func DeleteCategory(w http.ResponseWriter, r *http.Request) {
	deleteNamed(w, r, categoryCollection, "category")
}

func ListTags(w http.ResponseWriter, r *http.Request) {
	listNamed(w, r, tagCollection, func(cursor *mongo.Cursor, ctx context.Context) (interface{}, error) {
		tags := []models.Tag{}
		err := cursor.All(ctx, &tags)
		return tags, err
	})
}

func CreateTag(w http.ResponseWriter, r *http.Request) {
	createNamed(w, r, tagCollection, "tag")
}

func DeleteTag(w http.ResponseWriter, r *http.Request) {
	deleteNamed(w, r, tagCollection, "tag")
}
