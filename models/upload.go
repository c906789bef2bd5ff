package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UploadStatus is the workflow state of a pending borelog upload.
type UploadStatus string

const (
	UploadStatusPending             UploadStatus = "pending"
	UploadStatusApproved            UploadStatus = "approved"
	UploadStatusRejected            UploadStatus = "rejected"
	UploadStatusReturnedForRevision UploadStatus = "returned_for_revision"
)

// WorkflowAction is a reviewer action on a pending upload.
type WorkflowAction string

const (
	ActionApprove           WorkflowAction = "approve"
	ActionReject            WorkflowAction = "reject"
	ActionReturnForRevision WorkflowAction = "return_for_revision"
)

// uploadTransitions is the closed transition table. All three outcomes are
// terminal: nothing transitions out of approved/rejected/returned_for_revision.
var uploadTransitions = map[UploadStatus]map[WorkflowAction]UploadStatus{
	UploadStatusPending: {
		ActionApprove:           UploadStatusApproved,
		ActionReject:            UploadStatusRejected,
		ActionReturnForRevision: UploadStatusReturnedForRevision,
	},
}

// NextStatus returns the status that applying action to s would produce.
// ok is false for any action not in the transition table.
func (s UploadStatus) NextStatus(action WorkflowAction) (UploadStatus, bool) {
	next, ok := uploadTransitions[s][action]
	return next, ok
}

// IsTerminal reports whether no further workflow action is accepted.
func (s UploadStatus) IsTerminal() bool {
	return len(uploadTransitions[s]) == 0
}

// ParseWorkflowAction validates a wire action string.
func ParseWorkflowAction(s string) (WorkflowAction, bool) {
	switch WorkflowAction(s) {
	case ActionApprove, ActionReject, ActionReturnForRevision:
		return WorkflowAction(s), true
	}
	return "", false
}

// Actor is the pre-validated identity acting on the pipeline. Identity and
// role checks happen upstream in the auth middleware.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

// PendingUpload is one staged borelog report awaiting review. Rows are never
// deleted; every workflow decision is kept for audit.
type PendingUpload struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`

	ProjectID      uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	StructureID    uuid.UUID `gorm:"type:uuid;not null;index" json:"structure_id"`
	SubstructureID uuid.UUID `gorm:"type:uuid;not null;index" json:"substructure_id"`
	BorelogType    string    `gorm:"size:50;not null;default:'geotechnical'" json:"borelog_type"`

	// Original report as received plus its structured form.
	RawText       string         `gorm:"type:text" json:"raw_text,omitempty"`
	RawFileName   string         `gorm:"size:255" json:"raw_file_name,omitempty"`
	RawFilePath   string         `gorm:"size:500" json:"raw_file_path,omitempty"`
	ParsedPayload datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"parsed_payload"`
	Remarks       pq.StringArray `gorm:"type:text[]" json:"remarks,omitempty"`

	Status UploadStatus `gorm:"size:30;not null;default:'pending';index" json:"status"`

	UploadedBy uuid.UUID `gorm:"type:uuid;not null" json:"uploaded_by"`
	UploadedAt time.Time `gorm:"not null" json:"uploaded_at"`

	// Review outcome. Set once by the workflow on the terminal transition.
	ReviewedBy     *uuid.UUID `gorm:"type:uuid" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	ReviewComments string     `gorm:"type:text" json:"review_comments,omitempty"`
	RevisionNotes  string     `gorm:"type:text" json:"revision_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Transitions []UploadTransition `gorm:"foreignKey:UploadID" json:"transitions,omitempty"`
}

func (PendingUpload) TableName() string {
	return "pending_uploads"
}

func (u *PendingUpload) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.UploadedAt.IsZero() {
		u.UploadedAt = time.Now()
	}
	return nil
}

// UploadTransition is one audit entry in a pending upload's workflow trail.
type UploadTransition struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UploadID uuid.UUID `gorm:"type:uuid;not null;index" json:"upload_id"`

	FromStatus UploadStatus   `gorm:"size:30;not null" json:"from_status"`
	ToStatus   UploadStatus   `gorm:"size:30;not null" json:"to_status"`
	Action     WorkflowAction `gorm:"size:30;not null" json:"action"`

	ActorID   uuid.UUID `gorm:"type:uuid;not null" json:"actor_id"`
	ActorName string    `gorm:"size:100" json:"actor_name"`
	ActorRole string    `gorm:"size:50" json:"actor_role"`
	Comments  string    `gorm:"type:text" json:"comments,omitempty"`

	TransitionedAt time.Time `gorm:"not null" json:"transitioned_at"`
}

func (UploadTransition) TableName() string {
	return "upload_transitions"
}

func (t *UploadTransition) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
