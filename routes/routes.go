package routes

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"p9e.in/geolog/handlers"
	"p9e.in/geolog/middleware"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/register", handlers.Register).Methods("POST")
	r.HandleFunc("/login", handlers.Login).Methods("POST")
	r.HandleFunc("/token", handlers.GetCurrentUser).Methods("GET")

	// =====================================================
	// Protected API Routes (require JWT authentication)
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)

	api.HandleFunc("/profile", handleProfile).Methods("GET")

	RegisterProjectRoutes(api)
	RegisterBorelogRoutes(api)

	return r
}

// handleProfile returns the authenticated user's identity.
func handleProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	actor := middleware.GetActor(r)

	response := map[string]interface{}{
		"userID": claims.UserID,
		"name":   actor.Name,
		"role":   actor.Role,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
