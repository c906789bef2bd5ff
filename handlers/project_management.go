package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"p9e.in/geolog/config"
	"p9e.in/geolog/middleware"
	"p9e.in/geolog/models"
)

// ProjectHandler handles project, structure and substructure management.
type ProjectHandler struct {
	db *gorm.DB
}

// NewProjectHandler creates a new project handler
func NewProjectHandler() *ProjectHandler {
	return &ProjectHandler{db: config.DB}
}

// CreateProjectRequest represents the request to create a project
type CreateProjectRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Client      string `json:"client"`
	Location    string `json:"location"`
}

// UpdateProjectRequest represents the request to update a project
type UpdateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Client      string `json:"client"`
	Location    string `json:"location"`
}

// CreateProject creates a new project
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Code == "" || req.Name == "" {
		http.Error(w, "Code and Name are required", http.StatusBadRequest)
		return
	}

	actor := middleware.GetActor(r)

	project := models.Project{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Client:      req.Client,
		Location:    req.Location,
		CreatedBy:   actor.ID,
	}

	if err := h.db.Create(&project).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "Project code already exists", http.StatusConflict)
			return
		}
		log.Printf("❌ Failed to create project: %v", err)
		http.Error(w, "Failed to create project", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Created project: %s (ID: %s)", project.Name, project.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Project created successfully",
		"project": project,
	})
}

// GetProjects lists all projects, excluding soft-deleted ones.
func (h *ProjectHandler) GetProjects(w http.ResponseWriter, r *http.Request) {
	var projects []models.Project
	if err := h.db.Where("deleted_at IS NULL").Order("created_at DESC").Find(&projects).Error; err != nil {
		http.Error(w, "Failed to fetch projects", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(projects)
}

// GetProject returns one project with its structures and substructures.
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]

	var project models.Project
	if err := h.db.Preload("Structures.Substructures").
		Where("id = ? AND deleted_at IS NULL", projectID).First(&project).Error; err != nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(project)
}

// UpdateProject updates mutable project fields.
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]

	var project models.Project
	if err := h.db.Where("id = ? AND deleted_at IS NULL", projectID).First(&project).Error; err != nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Name != "" {
		project.Name = req.Name
	}
	if req.Description != "" {
		project.Description = req.Description
	}
	if req.Client != "" {
		project.Client = req.Client
	}
	if req.Location != "" {
		project.Location = req.Location
	}

	if err := h.db.Save(&project).Error; err != nil {
		http.Error(w, "Failed to update project", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(project)
}

// DeleteProject soft-deletes a project.
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]

	now := time.Now()
	result := h.db.Model(&models.Project{}).
		Where("id = ? AND deleted_at IS NULL", projectID).
		Update("deleted_at", &now)
	if result.Error != nil {
		http.Error(w, "Failed to delete project", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	log.Printf("✅ Deleted project %s", projectID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Project deleted successfully"})
}

// CreateStructureRequest represents the request to create a structure
type CreateStructureRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// CreateStructure creates a structure under a project.
func (h *ProjectHandler) CreateStructure(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	var project models.Project
	if err := h.db.Where("id = ? AND deleted_at IS NULL", projectID).First(&project).Error; err != nil {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}

	var req CreateStructureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	structure := models.Structure{
		ProjectID:   projectID,
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
	}
	if err := h.db.Create(&structure).Error; err != nil {
		http.Error(w, "Failed to create structure", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(structure)
}

// GetStructures lists a project's structures with substructures.
func (h *ProjectHandler) GetStructures(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]

	var structures []models.Structure
	if err := h.db.Preload("Substructures").
		Where("project_id = ?", projectID).Order("name ASC").Find(&structures).Error; err != nil {
		http.Error(w, "Failed to fetch structures", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(structures)
}

// CreateSubstructureRequest represents the request to create a substructure
type CreateSubstructureRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateSubstructure creates a substructure under a structure.
func (h *ProjectHandler) CreateSubstructure(w http.ResponseWriter, r *http.Request) {
	structureID, err := uuid.Parse(mux.Vars(r)["structureId"])
	if err != nil {
		http.Error(w, "invalid structure id", http.StatusBadRequest)
		return
	}

	var structure models.Structure
	if err := h.db.First(&structure, "id = ?", structureID).Error; err != nil {
		http.Error(w, "Structure not found", http.StatusNotFound)
		return
	}

	var req CreateSubstructureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	substructure := models.Substructure{
		StructureID: structureID,
		Name:        req.Name,
		Type:        req.Type,
	}
	if err := h.db.Create(&substructure).Error; err != nil {
		http.Error(w, "Failed to create substructure", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(substructure)
}

// GetSubstructures lists a structure's substructures.
func (h *ProjectHandler) GetSubstructures(w http.ResponseWriter, r *http.Request) {
	structureID := mux.Vars(r)["structureId"]

	var substructures []models.Substructure
	if err := h.db.Where("structure_id = ?", structureID).
		Order("name ASC").Find(&substructures).Error; err != nil {
		http.Error(w, "Failed to fetch substructures", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(substructures)
}
