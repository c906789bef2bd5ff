package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"p9e.in/geolog/handlers"
	"p9e.in/geolog/middleware"
	"p9e.in/geolog/models"
)

// RegisterProjectRoutes registers project, structure and substructure
// management plus the project-scoped borehole listings.
func RegisterProjectRoutes(api *mux.Router) {
	h := handlers.NewProjectHandler()

	// Project CRUD. Creation and deletion are admin-only; everyone
	// authenticated can read.
	api.HandleFunc("/projects", h.GetProjects).Methods("GET")
	api.Handle("/projects", middleware.RequireRole([]string{models.RoleAdmin},
		http.HandlerFunc(h.CreateProject))).Methods("POST")
	api.HandleFunc("/projects/{id}", h.GetProject).Methods("GET")
	api.Handle("/projects/{id}", middleware.RequireRole([]string{models.RoleAdmin},
		http.HandlerFunc(h.UpdateProject))).Methods("PUT")
	api.Handle("/projects/{id}", middleware.RequireRole([]string{models.RoleAdmin},
		http.HandlerFunc(h.DeleteProject))).Methods("DELETE")

	// Structures and substructures
	api.HandleFunc("/projects/{id}/structures", h.GetStructures).Methods("GET")
	api.Handle("/projects/{id}/structures", middleware.RequireRole([]string{models.RoleAdmin},
		http.HandlerFunc(h.CreateStructure))).Methods("POST")
	api.HandleFunc("/structures/{structureId}/substructures", h.GetSubstructures).Methods("GET")
	api.Handle("/structures/{structureId}/substructures", middleware.RequireRole([]string{models.RoleAdmin},
		http.HandlerFunc(h.CreateSubstructure))).Methods("POST")

	// Project-scoped borehole views
	api.HandleFunc("/projects/{id}/boreholes.geojson", handlers.GetProjectBoreholesGeoJSON).Methods("GET")
	api.HandleFunc("/projects/{id}/boreholes.csv", handlers.ExportProjectBoreholesToCSV).Methods("GET")
}
