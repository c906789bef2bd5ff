package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"p9e.in/geolog/config"
	"p9e.in/geolog/models"
)

// ApprovalWorkflow drives the pending-upload state machine. All three
// outcomes are terminal; only an upload currently in pending may transition,
// and the status flip is a conditional update so two simultaneous actions on
// the same upload settle as exactly one winner.
type ApprovalWorkflow struct {
	db           *gorm.DB
	materializer *BorelogMaterializer
}

// NewApprovalWorkflow creates a new approval workflow instance
func NewApprovalWorkflow() *ApprovalWorkflow {
	return &ApprovalWorkflow{
		db:           config.DB,
		materializer: NewBorelogMaterializer(),
	}
}

var (
	// ErrAlreadyProcessed covers both a missing upload and one no longer
	// pending: a losing concurrent approver cannot tell them apart and does
	// not need to.
	ErrAlreadyProcessed = errors.New("upload not found or already processed")
	ErrUnknownAction    = errors.New("unknown workflow action")
)

// WorkflowResult is the outcome of one workflow action. Materialization
// fields are set on approval only.
type WorkflowResult struct {
	UploadID uuid.UUID           `json:"upload_id"`
	Status   models.UploadStatus `json:"status"`

	BoreholeID           *uuid.UUID `json:"borehole_id,omitempty"`
	BorelogID            *uuid.UUID `json:"borelog_id,omitempty"`
	VersionNo            *int       `json:"version_no,omitempty"`
	StratumLayersCreated *int       `json:"stratum_layers_created,omitempty"`
}

// Apply performs one workflow action on a pending upload. On approve the
// materializer runs synchronously inside the same transaction: if it fails,
// the status flip rolls back too and the upload stays pending for retry.
func (wf *ApprovalWorkflow) Apply(
	uploadID uuid.UUID,
	action models.WorkflowAction,
	comments string,
	revisionNotes string,
	actor models.Actor,
) (*WorkflowResult, error) {
	next, ok := models.UploadStatusPending.NextStatus(action)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	now := time.Now()
	tx := wf.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Status-guarded write: the WHERE clause is the concurrency control.
	res := tx.Model(&models.PendingUpload{}).
		Where("id = ? AND status = ?", uploadID, models.UploadStatusPending).
		Updates(map[string]interface{}{
			"status":          next,
			"reviewed_by":     actor.ID,
			"reviewed_at":     now,
			"review_comments": comments,
			"revision_notes":  revisionNotes,
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update upload status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, ErrAlreadyProcessed
	}

	transition := models.UploadTransition{
		UploadID:       uploadID,
		FromStatus:     models.UploadStatusPending,
		ToStatus:       next,
		Action:         action,
		ActorID:        actor.ID,
		ActorName:      actor.Name,
		ActorRole:      actor.Role,
		Comments:       comments,
		TransitionedAt: now,
	}
	if err := tx.Create(&transition).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create transition record: %w", err)
	}

	result := &WorkflowResult{UploadID: uploadID, Status: next}

	if action == models.ActionApprove {
		var upload models.PendingUpload
		if err := tx.First(&upload, "id = ?", uploadID).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to load upload for materialization: %w", err)
		}

		var report models.ParsedBorelogReport
		if err := json.Unmarshal(upload.ParsedPayload, &report); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("stored payload unreadable: %w", err)
		}

		materialized, err := wf.materializer.Materialize(tx, &upload, &report, actor)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("materialization failed: %w", err)
		}
		result.BoreholeID = &materialized.BoreholeID
		result.BorelogID = &materialized.BorelogID
		result.VersionNo = &materialized.VersionNo
		result.StratumLayersCreated = &materialized.StratumLayersCreated
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("✅ Upload %s: pending -> %s (action: %s, actor: %s)",
		uploadID, next, action, actor.Name)
	return result, nil
}
