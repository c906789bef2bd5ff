package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"p9e.in/geolog/handlers"
	"p9e.in/geolog/middleware"
	"p9e.in/geolog/models"
)

// RegisterBorelogRoutes registers the upload/review pipeline and the
// versioned borelog read path.
func RegisterBorelogRoutes(api *mux.Router) {
	// Pending uploads: geologists submit, reviewers and approvers act.
	api.Handle("/borelog/uploads", middleware.RequireRole([]string{models.RoleGeologist},
		http.HandlerFunc(handlers.CreateBorelogUpload))).Methods("POST")
	api.HandleFunc("/borelog/uploads", handlers.GetBorelogUploads).Methods("GET")
	api.HandleFunc("/borelog/uploads/{id}", handlers.GetBorelogUpload).Methods("GET")
	api.HandleFunc("/borelog/uploads/{id}/raw", handlers.GetBorelogUploadRaw).Methods("GET")
	api.Handle("/borelog/uploads/{id}/action",
		middleware.RequireRole([]string{models.RoleReviewer, models.RoleApprover},
			http.HandlerFunc(handlers.ApplyUploadAction))).Methods("POST")

	// Versioned read path
	api.HandleFunc("/borelog/{borelogId}/latest", handlers.GetLatestBorelog).Methods("GET")
	api.HandleFunc("/borelog/{borelogId}/versions", handlers.GetBorelogVersions).Methods("GET")
	api.HandleFunc("/borelog/{borelogId}/versions/{versionNo}", handlers.GetBorelogVersion).Methods("GET")
	api.HandleFunc("/borelog/{borelogId}/versions/{versionNo}/export.xlsx",
		handlers.ExportBorelogVersionToExcel).Methods("GET")

	// Draft save (geologist edits before final approval)
	api.Handle("/borelog/{borelogId}/draft", middleware.RequireRole([]string{models.RoleGeologist},
		http.HandlerFunc(handlers.SaveBorelogDraft))).Methods("PUT")
}
