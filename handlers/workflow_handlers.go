package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"p9e.in/geolog/middleware"
	"p9e.in/geolog/models"
)

type workflowActionRequest struct {
	Action        string `json:"action"`
	Comments      string `json:"comments,omitempty"`
	RevisionNotes string `json:"revision_notes,omitempty"`
}

// ApplyUploadAction executes approve / reject / return_for_revision on a
// pending upload. Error responses distinguish "already processed" (409) from
// "referenced entity missing" (422) from real processing failures (500), so
// the approver knows whether a retry makes sense.
func ApplyUploadAction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	uploadID, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(w, "invalid upload id", http.StatusBadRequest)
		return
	}

	var req workflowActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	action, ok := models.ParseWorkflowAction(req.Action)
	if !ok {
		http.Error(w, "unknown action: "+req.Action, http.StatusBadRequest)
		return
	}

	actor := middleware.GetActor(r)
	if actor.ID == uuid.Nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	result, err := NewApprovalWorkflow().Apply(uploadID, action, req.Comments, req.RevisionNotes, actor)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyProcessed):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrUnknownAction):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrSubstructureNotFound),
			errors.Is(err, ErrMissingBoreholeNumber),
			errors.Is(err, ErrInvalidLayerRange):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
