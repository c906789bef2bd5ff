package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Borehole is the physical drilled hole, unique per project/structure/number.
// Created lazily by the first approved upload for that triple; reused by
// every later approval.
type Borehole struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_borehole_scope;index" json:"project_id"`
	StructureID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_borehole_scope" json:"structure_id"`

	BoreholeNumber string `gorm:"size:50;not null;uniqueIndex:idx_borehole_scope" json:"borehole_number"`
	Location       string `gorm:"size:255" json:"location,omitempty"`

	Latitude  *float64 `gorm:"type:decimal(10,6)" json:"latitude,omitempty"`
	Longitude *float64 `gorm:"type:decimal(10,6)" json:"longitude,omitempty"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Borehole) TableName() string {
	return "boreholes"
}

func (b *Borehole) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Borelog groups all versions of one borehole's log under a substructure and
// a log type. A substructure holds at most one borelog per type.
type Borelog struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SubstructureID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_borelog_scope;index" json:"substructure_id"`
	Type           string    `gorm:"size:50;not null;uniqueIndex:idx_borelog_scope" json:"type"` // geotechnical, geological

	BoreholeID uuid.UUID `gorm:"type:uuid;not null;index" json:"borehole_id"`
	Borehole   *Borehole `gorm:"foreignKey:BoreholeID" json:"borehole,omitempty"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Borelog) TableName() string {
	return "borelogs"
}

func (b *Borelog) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BorelogDetails is one immutable finalized header snapshot of a borelog.
// VersionNo is assigned as max(existing across drafts and finalized)+1 and is
// never reused or decremented.
type BorelogDetails struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BorelogID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_borelog_details_version;index" json:"borelog_id"`
	VersionNo int       `gorm:"not null;uniqueIndex:idx_borelog_details_version" json:"version_no"`

	CommencementDate *ReportDate `gorm:"type:date" json:"commencement_date,omitempty"`
	CompletionDate   *ReportDate `gorm:"type:date" json:"completion_date,omitempty"`

	MethodOfBoring     string   `gorm:"size:100" json:"method_of_boring,omitempty"`
	DiameterOfBorehole string   `gorm:"size:100" json:"diameter_of_borehole,omitempty"`
	StandingWaterLevel *float64 `gorm:"type:decimal(8,2)" json:"standing_water_level_m,omitempty"`
	TerminationDepth   *float64 `gorm:"type:decimal(8,2)" json:"termination_depth_m,omitempty"`

	PermeabilityTestCount   *int `json:"permeability_test_count,omitempty"`
	SPTTestCount            *int `json:"spt_test_count,omitempty"`
	UndisturbedSampleCount  *int `json:"undisturbed_sample_count,omitempty"`
	DisturbedSampleCount    *int `json:"disturbed_sample_count,omitempty"`
	WaterSampleCount        *int `json:"water_sample_count,omitempty"`

	Latitude  *float64 `gorm:"type:decimal(10,6)" json:"latitude,omitempty"`
	Longitude *float64 `gorm:"type:decimal(10,6)" json:"longitude,omitempty"`

	// Report-level core recovery summary, kept unclamped as reported.
	TCRPercent *float64 `gorm:"type:decimal(6,2)" json:"tcr_percent,omitempty"`
	RQDPercent *float64 `gorm:"type:decimal(6,2)" json:"rqd_percent,omitempty"`

	Remarks   pq.StringArray `gorm:"type:text[]" json:"remarks,omitempty"`
	RawHeader datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"raw_header"`

	ApprovedBy uuid.UUID `gorm:"type:uuid;not null" json:"approved_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func (BorelogDetails) TableName() string {
	return "borelog_details"
}

func (d *BorelogDetails) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// BorelogDraft is a staging header snapshot saved by a geologist before final
// approval. Drafts share the version number sequence with finalized details:
// the latest version of a borelog is the maximum across both tables.
type BorelogDraft struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BorelogID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_borelog_draft_version;index" json:"borelog_id"`
	VersionNo int       `gorm:"not null;uniqueIndex:idx_borelog_draft_version" json:"version_no"`

	CommencementDate *ReportDate `gorm:"type:date" json:"commencement_date,omitempty"`
	CompletionDate   *ReportDate `gorm:"type:date" json:"completion_date,omitempty"`

	MethodOfBoring     string   `gorm:"size:100" json:"method_of_boring,omitempty"`
	DiameterOfBorehole string   `gorm:"size:100" json:"diameter_of_borehole,omitempty"`
	StandingWaterLevel *float64 `gorm:"type:decimal(8,2)" json:"standing_water_level_m,omitempty"`
	TerminationDepth   *float64 `gorm:"type:decimal(8,2)" json:"termination_depth_m,omitempty"`

	PermeabilityTestCount   *int `json:"permeability_test_count,omitempty"`
	SPTTestCount            *int `json:"spt_test_count,omitempty"`
	UndisturbedSampleCount  *int `json:"undisturbed_sample_count,omitempty"`
	DisturbedSampleCount    *int `json:"disturbed_sample_count,omitempty"`
	WaterSampleCount        *int `json:"water_sample_count,omitempty"`

	Latitude  *float64 `gorm:"type:decimal(10,6)" json:"latitude,omitempty"`
	Longitude *float64 `gorm:"type:decimal(10,6)" json:"longitude,omitempty"`

	TCRPercent *float64 `gorm:"type:decimal(6,2)" json:"tcr_percent,omitempty"`
	RQDPercent *float64 `gorm:"type:decimal(6,2)" json:"rqd_percent,omitempty"`

	Remarks   pq.StringArray `gorm:"type:text[]" json:"remarks,omitempty"`
	RawHeader datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"raw_header"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (BorelogDraft) TableName() string {
	return "borelog_drafts"
}

func (d *BorelogDraft) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// StratumLayer is one depth interval of a specific borelog version. Layer
// order is 1-based and contiguous within a version. Layers are shared by
// draft and finalized versions since version numbers never collide.
type StratumLayer struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BorelogID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stratum_layer_order;index" json:"borelog_id"`
	VersionNo int       `gorm:"not null;uniqueIndex:idx_stratum_layer_order" json:"version_no"`

	LayerOrder  int     `gorm:"not null;uniqueIndex:idx_stratum_layer_order" json:"layer_order"`
	DepthFromM  float64 `gorm:"type:decimal(8,2);not null" json:"depth_from_m"`
	DepthToM    float64 `gorm:"type:decimal(8,2);not null" json:"depth_to_m"`
	ThicknessM  float64 `gorm:"type:decimal(8,2);not null" json:"thickness_m"`
	Description string  `gorm:"type:text" json:"description,omitempty"`

	Samples []SamplePoint `gorm:"foreignKey:StratumLayerID" json:"samples,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (StratumLayer) TableName() string {
	return "stratum_layers"
}

func (l *StratumLayer) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// SamplePoint is one tested/sampled location within a stratum layer. Numeric
// fields are either as supplied in the report or derived; derivation never
// overwrites a supplied value.
type SamplePoint struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StratumLayerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_sample_point_order;index" json:"stratum_layer_id"`
	SampleOrder    int       `gorm:"not null;uniqueIndex:idx_sample_point_order" json:"sample_order"`

	FieldSampleID string `gorm:"size:50" json:"sample_id,omitempty"`
	SampleType    string `gorm:"size:50" json:"sample_type,omitempty"`

	DepthMode  string   `gorm:"size:10" json:"depth_mode,omitempty"` // single, range or empty when unresolved
	DepthM     *float64 `gorm:"type:decimal(8,2)" json:"depth_m,omitempty"`
	DepthFromM *float64 `gorm:"type:decimal(8,2)" json:"depth_from_m,omitempty"`
	DepthToM   *float64 `gorm:"type:decimal(8,2)" json:"depth_to_m,omitempty"`
	RunLengthM *float64 `gorm:"type:decimal(8,2)" json:"run_length_m,omitempty"`

	SPTBlows string   `gorm:"size:50" json:"spt_blows,omitempty"`
	NValue   *float64 `gorm:"type:decimal(6,2)" json:"n_value,omitempty"`

	TotalCoreLengthCm *float64 `gorm:"type:decimal(8,2)" json:"total_core_length_cm,omitempty"`
	RQDLengthCm       *float64 `gorm:"type:decimal(8,2)" json:"rqd_length_cm,omitempty"`
	TCRPercent        *float64 `gorm:"type:decimal(6,2)" json:"tcr_percent,omitempty"`
	RQDPercent        *float64 `gorm:"type:decimal(6,2)" json:"rqd_percent,omitempty"`

	ColourOfReturnWater string `gorm:"size:100" json:"colour_of_return_water,omitempty"`
	WaterLoss           string `gorm:"size:100" json:"water_loss,omitempty"`
	DiameterOfBorehole  string `gorm:"size:100" json:"diameter_of_borehole,omitempty"`
	Remarks             string `gorm:"type:text" json:"remarks,omitempty"`

	// Soft validation findings (unresolved depth mode, out-of-range
	// percentages). Kept for the reviewer instead of being corrected.
	ReviewFlags pq.StringArray `gorm:"type:text[]" json:"review_flags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (SamplePoint) TableName() string {
	return "sample_points"
}

func (s *SamplePoint) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// BorelogSubmission is the per-approval audit entry holding the full original
// parsed payload, independent of the normalized rows built from it.
type BorelogSubmission struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UploadID  uuid.UUID `gorm:"type:uuid;not null;index" json:"upload_id"`
	BorelogID uuid.UUID `gorm:"type:uuid;not null;index" json:"borelog_id"`
	VersionNo int       `gorm:"not null" json:"version_no"`

	Payload datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"payload"`

	SubmittedBy uuid.UUID `gorm:"type:uuid;not null" json:"submitted_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (BorelogSubmission) TableName() string {
	return "borelog_submissions"
}

func (s *BorelogSubmission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
