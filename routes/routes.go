package routes

import (
	"github.com/gorilla/mux"

	"dam/handlers"
	"dam/middleware"
	"dam/websocket"
)

// HTTP method constants for better maintainability
var (
	MethodsGetOnly    = []string{"GET", "OPTIONS"}
	MethodsPostOnly   = []string{"POST", "OPTIONS"}
	MethodsPutOnly    = []string{"PUT", "OPTIONS"}
	MethodsPatchOnly  = []string{"PATCH", "OPTIONS"}
	MethodsDeleteOnly = []string{"DELETE", "OPTIONS"}
)

const (
	PathAPI    = "/api"
	PathHealth = "/health"
)

func RegisterRoutes(r *mux.Router) {
	// ====================
	// HEALTH CHECK (Public)
	// ====================
	r.HandleFunc(PathHealth, handlers.HealthCheck).Methods(MethodsGetOnly...)

	// ====================
	// AUTHENTICATION (Public)
	// ====================
	r.HandleFunc("/api/auth/register", handlers.Register).Methods(MethodsPostOnly...)
	r.HandleFunc("/api/auth/login", handlers.Login).Methods(MethodsPostOnly...)
	r.HandleFunc("/api/auth/validate", handlers.ValidateToken).Methods(MethodsGetOnly...)

	// WebSocket event stream (token carried in query)
	r.HandleFunc("/ws", websocket.HandleWebSocket)

	// ====================
	// PROTECTED API ROUTES
	// ====================
	apiRouter := r.PathPrefix(PathAPI).Subrouter()
	apiRouter.Use(middleware.AuthMiddleware)

	// USERS
	apiRouter.HandleFunc("/user/me", handlers.GetCurrentUser).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/users", handlers.ListUsers).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/users/{id}", handlers.GetUser).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/users/{id}", handlers.UpdateUser).Methods(MethodsPutOnly...)
	apiRouter.HandleFunc("/users/{id}", handlers.DeleteUser).Methods(MethodsDeleteOnly...)

	// ASSETS
	apiRouter.HandleFunc("/assets", handlers.ListAssets).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/assets", handlers.CreateAsset).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/assets/{id}", handlers.GetAsset).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/assets/{id}", handlers.UpdateAsset).Methods(MethodsPutOnly...)
	apiRouter.HandleFunc("/assets/{id}", handlers.DeleteAsset).Methods(MethodsDeleteOnly...)
	apiRouter.HandleFunc("/assets/{id}/download", handlers.DownloadAsset).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/assets/{id}/versions", handlers.ListAssetVersions).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/assets/{id}/versions", handlers.ProposeVersion).Methods(MethodsPostOnly...)

	// VERSIONS (review queue)
	apiRouter.HandleFunc("/versions", handlers.ListPendingVersions).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/versions/{id}", handlers.GetVersion).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/versions/{id}", handlers.ResolveVersion).Methods(MethodsPatchOnly...)

	// CATEGORIES & TAGS
	apiRouter.HandleFunc("/categories", handlers.ListCategories).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/categories", handlers.CreateCategory).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/categories/{id}", handlers.DeleteCategory).Methods(MethodsDeleteOnly...)
	apiRouter.HandleFunc("/tags", handlers.ListTags).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/tags", handlers.CreateTag).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/tags/{id}", handlers.DeleteTag).Methods(MethodsDeleteOnly...)

	// AUDIT
	apiRouter.HandleFunc("/audit", handlers.ListAuditLogs).Methods(MethodsGetOnly...)
}
