package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"p9e.in/geolog/config"
	"p9e.in/geolog/middleware"
	"p9e.in/geolog/models"
)

// versionRef is one entry of a borelog's version history, drawn from either
// the draft or the finalized header table.
type versionRef struct {
	VersionNo int       `json:"version_no"`
	Stage     string    `json:"stage"` // draft or final
	CreatedAt time.Time `json:"created_at"`
}

// listBorelogVersions merges the version history across the draft and
// finalized tables, newest first. The latest version of a borelog is the
// head of this list.
func listBorelogVersions(borelogID uuid.UUID) ([]versionRef, error) {
	var refs []versionRef

	var finals []models.BorelogDetails
	if err := config.DB.Select("version_no", "created_at").
		Where("borelog_id = ?", borelogID).Find(&finals).Error; err != nil {
		return nil, err
	}
	for _, v := range finals {
		refs = append(refs, versionRef{VersionNo: v.VersionNo, Stage: "final", CreatedAt: v.CreatedAt})
	}

	var drafts []models.BorelogDraft
	if err := config.DB.Select("version_no", "created_at").
		Where("borelog_id = ?", borelogID).Find(&drafts).Error; err != nil {
		return nil, err
	}
	for _, v := range drafts {
		refs = append(refs, versionRef{VersionNo: v.VersionNo, Stage: "draft", CreatedAt: v.CreatedAt})
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].VersionNo > refs[j].VersionNo })
	return refs, nil
}

// borelogVersionView is the joined read model of one version.
type borelogVersionView struct {
	BorelogID uuid.UUID             `json:"borelog_id"`
	VersionNo int                   `json:"version_no"`
	Stage     string                `json:"stage"`
	Details   interface{}           `json:"details"`
	Layers    []models.StratumLayer `json:"layers"`
}

// loadBorelogVersion joins one version's header and its ordered layers and
// samples. The header is read from whichever table holds that version.
func loadBorelogVersion(borelogID uuid.UUID, versionNo int) (*borelogVersionView, error) {
	view := &borelogVersionView{BorelogID: borelogID, VersionNo: versionNo}

	var details models.BorelogDetails
	err := config.DB.Where("borelog_id = ? AND version_no = ?", borelogID, versionNo).
		First(&details).Error
	switch {
	case err == nil:
		view.Stage = "final"
		view.Details = details
	case errors.Is(err, gorm.ErrRecordNotFound):
		var draft models.BorelogDraft
		if err := config.DB.Where("borelog_id = ? AND version_no = ?", borelogID, versionNo).
			First(&draft).Error; err != nil {
			return nil, err
		}
		view.Stage = "draft"
		view.Details = draft
	default:
		return nil, err
	}

	if err := config.DB.
		Preload("Samples", func(db *gorm.DB) *gorm.DB {
			return db.Order("sample_order ASC")
		}).
		Where("borelog_id = ? AND version_no = ?", borelogID, versionNo).
		Order("layer_order ASC").
		Find(&view.Layers).Error; err != nil {
		return nil, err
	}
	return view, nil
}

// GetLatestBorelog returns the newest version of a borelog, resolved as the
// maximum version number across the draft and finalized tables.
func GetLatestBorelog(w http.ResponseWriter, r *http.Request) {
	borelogID, err := uuid.Parse(mux.Vars(r)["borelogId"])
	if err != nil {
		http.Error(w, "invalid borelog id", http.StatusBadRequest)
		return
	}

	refs, err := listBorelogVersions(borelogID)
	if err != nil {
		http.Error(w, "failed to resolve versions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(refs) == 0 {
		http.Error(w, "borelog has no versions", http.StatusNotFound)
		return
	}

	view, err := loadBorelogVersion(borelogID, refs[0].VersionNo)
	if err != nil {
		http.Error(w, "failed to load version: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// GetBorelogVersions returns the full version history, newest first.
func GetBorelogVersions(w http.ResponseWriter, r *http.Request) {
	borelogID, err := uuid.Parse(mux.Vars(r)["borelogId"])
	if err != nil {
		http.Error(w, "invalid borelog id", http.StatusBadRequest)
		return
	}

	refs, err := listBorelogVersions(borelogID)
	if err != nil {
		http.Error(w, "failed to resolve versions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(refs)
}

// GetBorelogVersion returns one specific version with layers and samples.
func GetBorelogVersion(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	borelogID, err := uuid.Parse(vars["borelogId"])
	if err != nil {
		http.Error(w, "invalid borelog id", http.StatusBadRequest)
		return
	}
	versionNo, err := strconv.Atoi(vars["versionNo"])
	if err != nil || versionNo < 1 {
		http.Error(w, "invalid version number", http.StatusBadRequest)
		return
	}

	view, err := loadBorelogVersion(borelogID, versionNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "version not found", http.StatusNotFound)
		} else {
			http.Error(w, "failed to load version: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// SaveBorelogDraft stores an edited snapshot as a new draft version in the
// staging table, without touching finalized records.
func SaveBorelogDraft(w http.ResponseWriter, r *http.Request) {
	borelogID, err := uuid.Parse(mux.Vars(r)["borelogId"])
	if err != nil {
		http.Error(w, "invalid borelog id", http.StatusBadRequest)
		return
	}

	actor := middleware.GetActor(r)
	if actor.ID == uuid.Nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var report models.ParsedBorelogReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	var borelog models.Borelog
	if err := config.DB.First(&borelog, "id = ?", borelogID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "borelog not found", http.StatusNotFound)
		} else {
			http.Error(w, "failed to fetch borelog: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	tx := config.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	result, err := NewBorelogMaterializer().SaveDraftVersion(tx, borelog.ID, &report, actor)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, ErrInvalidLayerRange) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		} else {
			http.Error(w, "failed to save draft: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if err := tx.Commit().Error; err != nil {
		http.Error(w, "failed to commit transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
