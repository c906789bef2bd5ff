package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"p9e.in/geolog/config"
	"p9e.in/geolog/middleware"
	"p9e.in/geolog/models"
	"p9e.in/geolog/utils"
)

// uploadRequest is the JSON ingestion body. Exactly one of RawText or Parsed
// must be present; spreadsheet files arrive via multipart instead.
type uploadRequest struct {
	ProjectID      uuid.UUID `json:"project_id"`
	StructureID    uuid.UUID `json:"structure_id"`
	SubstructureID uuid.UUID `json:"substructure_id"`
	BorelogType    string    `json:"borelog_type"`

	RawText string                      `json:"raw_text,omitempty"`
	Parsed  *models.ParsedBorelogReport `json:"parsed,omitempty"`
}

// CreateBorelogUpload ingests one borehole report and stages it as a pending
// upload. Accepts multipart (text or .xlsx file) or JSON. Structurally
// unparseable reports are rejected here and nothing is persisted.
func CreateBorelogUpload(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r)
	if actor.ID == uuid.Nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var (
		req      uploadRequest
		fileName string
		rawBytes []byte
	)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(50 << 20); err != nil {
			http.Error(w, "bad multipart form: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := readUploadForm(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file field: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		fileName = header.Filename
		rawBytes, err = io.ReadAll(file)
		if err != nil {
			http.Error(w, "failed to read file: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
			text, err := FlattenWorkbook(rawBytes)
			if err != nil {
				http.Error(w, "unreadable workbook: "+err.Error(), http.StatusBadRequest)
				return
			}
			req.RawText = text
		} else {
			req.RawText = string(rawBytes)
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		rawBytes = []byte(req.RawText)
		fileName = "report.txt"
	}

	if req.ProjectID == uuid.Nil || req.StructureID == uuid.Nil || req.SubstructureID == uuid.Nil {
		http.Error(w, "project_id, structure_id and substructure_id are required", http.StatusBadRequest)
		return
	}
	if req.BorelogType == "" {
		req.BorelogType = "geotechnical"
	}

	report := req.Parsed
	if report == nil {
		parsed, err := NewReportParser().Parse(req.RawText)
		if err != nil {
			if errors.Is(err, ErrEmptyReport) || errors.Is(err, ErrNoStratumSection) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "failed to parse report: "+err.Error(), http.StatusInternalServerError)
			return
		}
		report = parsed
	} else if len(report.Layers) == 0 {
		http.Error(w, ErrNoStratumSection.Error(), http.StatusBadRequest)
		return
	}

	var rawPath string
	if len(rawBytes) > 0 {
		path, err := SaveRawReport(fileName, rawBytes)
		if err != nil {
			http.Error(w, "failed to store raw report: "+err.Error(), http.StatusInternalServerError)
			return
		}
		rawPath = path
	}

	payload, err := json.Marshal(report)
	if err != nil {
		http.Error(w, "failed to encode parsed report: "+err.Error(), http.StatusInternalServerError)
		return
	}

	upload := models.PendingUpload{
		ProjectID:      req.ProjectID,
		StructureID:    req.StructureID,
		SubstructureID: req.SubstructureID,
		BorelogType:    req.BorelogType,
		RawText:        req.RawText,
		RawFileName:    fileName,
		RawFilePath:    rawPath,
		ParsedPayload:  datatypes.JSON(payload),
		Remarks:        pq.StringArray(report.Remarks),
		Status:         models.UploadStatusPending,
		UploadedBy:     actor.ID,
	}
	if err := config.DB.Create(&upload).Error; err != nil {
		http.Error(w, "failed to create upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Staged borelog upload %s (%d layers) for substructure %s",
		upload.ID, len(report.Layers), upload.SubstructureID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"upload_id": upload.ID,
		"status":    upload.Status,
		"preview":   utils.DeriveReportMetrics(report),
	})
}

func readUploadForm(r *http.Request, req *uploadRequest) error {
	var err error
	if req.ProjectID, err = uuid.Parse(r.FormValue("project_id")); err != nil {
		return errors.New("invalid project_id")
	}
	if req.StructureID, err = uuid.Parse(r.FormValue("structure_id")); err != nil {
		return errors.New("invalid structure_id")
	}
	if req.SubstructureID, err = uuid.Parse(r.FormValue("substructure_id")); err != nil {
		return errors.New("invalid substructure_id")
	}
	req.BorelogType = r.FormValue("borelog_type")
	return nil
}

// GetBorelogUploads lists pending uploads, optionally filtered by status or
// substructure.
func GetBorelogUploads(w http.ResponseWriter, r *http.Request) {
	query := config.DB.Model(&models.PendingUpload{})

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if sub := r.URL.Query().Get("substructure_id"); sub != "" {
		query = query.Where("substructure_id = ?", sub)
	}

	var uploads []models.PendingUpload
	if err := query.Order("uploaded_at DESC").Find(&uploads).Error; err != nil {
		http.Error(w, "failed to fetch uploads: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploads)
}

// GetBorelogUpload returns one upload with its parsed view, derived preview
// and full workflow audit trail.
func GetBorelogUpload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	uploadID := vars["id"]

	var upload models.PendingUpload
	if err := config.DB.
		Preload("Transitions", func(db *gorm.DB) *gorm.DB {
			return db.Order("transitioned_at ASC")
		}).
		First(&upload, "id = ?", uploadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "upload not found", http.StatusNotFound)
		} else {
			http.Error(w, "failed to fetch upload: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	var report models.ParsedBorelogReport
	if err := json.Unmarshal(upload.ParsedPayload, &report); err != nil {
		http.Error(w, "stored payload unreadable: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"upload":  upload,
		"preview": utils.DeriveReportMetrics(&report),
	})
}

// GetBorelogUploadRaw streams the original submitted file back, exactly as
// it arrived.
func GetBorelogUploadRaw(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	uploadID := vars["id"]

	var upload models.PendingUpload
	if err := config.DB.First(&upload, "id = ?", uploadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "upload not found", http.StatusNotFound)
		} else {
			http.Error(w, "failed to fetch upload: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if upload.RawFilePath == "" {
		http.Error(w, "no raw file stored for this upload", http.StatusNotFound)
		return
	}

	data, err := LoadRawReport(upload.RawFilePath)
	if err != nil {
		http.Error(w, "failed to load raw report: "+err.Error(), http.StatusInternalServerError)
		return
	}

	name := upload.RawFileName
	if name == "" {
		name = "report.txt"
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+sanitizeFilename(name))
	w.Write(data)
}
