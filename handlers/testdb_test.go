package handlers

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"p9e.in/geolog/config"
	"p9e.in/geolog/models"
)

// testSchema mirrors the migrated tables in sqlite dialect so the handlers
// can run against an in-memory database. The unique indexes must match the
// ON CONFLICT targets used by the materializer.
var testSchema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'geologist',
		is_active INTEGER DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE projects (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT,
		client TEXT,
		location TEXT,
		created_by TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE structures (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT,
		description TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE substructures (
		id TEXT PRIMARY KEY,
		structure_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE pending_uploads (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		structure_id TEXT NOT NULL,
		substructure_id TEXT NOT NULL,
		borelog_type TEXT NOT NULL DEFAULT 'geotechnical',
		raw_text TEXT,
		raw_file_name TEXT,
		raw_file_path TEXT,
		parsed_payload TEXT NOT NULL DEFAULT '{}',
		remarks TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		uploaded_by TEXT NOT NULL,
		uploaded_at DATETIME NOT NULL,
		reviewed_by TEXT,
		reviewed_at DATETIME,
		review_comments TEXT,
		revision_notes TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE upload_transitions (
		id TEXT PRIMARY KEY,
		upload_id TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		action TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_name TEXT,
		actor_role TEXT,
		comments TEXT,
		transitioned_at DATETIME NOT NULL
	)`,
	`CREATE TABLE boreholes (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		structure_id TEXT NOT NULL,
		borehole_number TEXT NOT NULL,
		location TEXT,
		latitude REAL,
		longitude REAL,
		created_by TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (project_id, structure_id, borehole_number)
	)`,
	`CREATE TABLE borelogs (
		id TEXT PRIMARY KEY,
		substructure_id TEXT NOT NULL,
		type TEXT NOT NULL,
		borehole_id TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (substructure_id, type)
	)`,
	`CREATE TABLE borelog_details (
		id TEXT PRIMARY KEY,
		borelog_id TEXT NOT NULL,
		version_no INTEGER NOT NULL,
		commencement_date DATE,
		completion_date DATE,
		method_of_boring TEXT,
		diameter_of_borehole TEXT,
		standing_water_level REAL,
		termination_depth REAL,
		permeability_test_count INTEGER,
		spt_test_count INTEGER,
		undisturbed_sample_count INTEGER,
		disturbed_sample_count INTEGER,
		water_sample_count INTEGER,
		latitude REAL,
		longitude REAL,
		tcr_percent REAL,
		rqd_percent REAL,
		remarks TEXT,
		raw_header TEXT NOT NULL DEFAULT '{}',
		approved_by TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (borelog_id, version_no)
	)`,
	`CREATE TABLE borelog_drafts (
		id TEXT PRIMARY KEY,
		borelog_id TEXT NOT NULL,
		version_no INTEGER NOT NULL,
		commencement_date DATE,
		completion_date DATE,
		method_of_boring TEXT,
		diameter_of_borehole TEXT,
		standing_water_level REAL,
		termination_depth REAL,
		permeability_test_count INTEGER,
		spt_test_count INTEGER,
		undisturbed_sample_count INTEGER,
		disturbed_sample_count INTEGER,
		water_sample_count INTEGER,
		latitude REAL,
		longitude REAL,
		tcr_percent REAL,
		rqd_percent REAL,
		remarks TEXT,
		raw_header TEXT NOT NULL DEFAULT '{}',
		created_by TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (borelog_id, version_no)
	)`,
	`CREATE TABLE stratum_layers (
		id TEXT PRIMARY KEY,
		borelog_id TEXT NOT NULL,
		version_no INTEGER NOT NULL,
		layer_order INTEGER NOT NULL,
		depth_from_m REAL NOT NULL,
		depth_to_m REAL NOT NULL,
		thickness_m REAL NOT NULL,
		description TEXT,
		created_at DATETIME,
		UNIQUE (borelog_id, version_no, layer_order)
	)`,
	`CREATE TABLE sample_points (
		id TEXT PRIMARY KEY,
		stratum_layer_id TEXT NOT NULL,
		sample_order INTEGER NOT NULL,
		field_sample_id TEXT,
		sample_type TEXT,
		depth_mode TEXT,
		depth_m REAL,
		depth_from_m REAL,
		depth_to_m REAL,
		run_length_m REAL,
		spt_blows TEXT,
		n_value REAL,
		total_core_length_cm REAL,
		rqd_length_cm REAL,
		tcr_percent REAL,
		rqd_percent REAL,
		colour_of_return_water TEXT,
		water_loss TEXT,
		diameter_of_borehole TEXT,
		remarks TEXT,
		review_flags TEXT,
		created_at DATETIME,
		UNIQUE (stratum_layer_id, sample_order)
	)`,
	`CREATE TABLE borelog_submissions (
		id TEXT PRIMARY KEY,
		upload_id TEXT NOT NULL,
		borelog_id TEXT NOT NULL,
		version_no INTEGER NOT NULL,
		payload TEXT NOT NULL DEFAULT '{}',
		submitted_by TEXT NOT NULL,
		created_at DATETIME
	)`,
}

// setupTestDB opens an in-memory sqlite database, creates the schema and
// points config.DB at it for the duration of the test. The connection pool
// is pinned to one connection so every query sees the same :memory: store.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range testSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	prev := config.DB
	config.DB = db
	t.Cleanup(func() {
		config.DB = prev
		sqlDB.Close()
	})
	return db
}

// testScope is a seeded project/structure/substructure chain for uploads to
// target.
type testScope struct {
	Project      models.Project
	Structure    models.Structure
	Substructure models.Substructure
}

func seedScope(t *testing.T, db *gorm.DB) testScope {
	t.Helper()

	project := models.Project{
		Code:      "NH44-P2",
		Name:      "NH-44 Flyover Package 2",
		CreatedBy: uuid.New(),
	}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}

	// Structure and Substructure rely on the database uuid default, which
	// sqlite does not have; assign IDs explicitly.
	structure := models.Structure{ID: uuid.New(), ProjectID: project.ID, Name: "Flyover Bridge", Type: "bridge"}
	if err := db.Create(&structure).Error; err != nil {
		t.Fatalf("seed structure: %v", err)
	}

	substructure := models.Substructure{ID: uuid.New(), StructureID: structure.ID, Name: "Pier P-12", Type: "pier"}
	if err := db.Create(&substructure).Error; err != nil {
		t.Fatalf("seed substructure: %v", err)
	}

	return testScope{Project: project, Structure: structure, Substructure: substructure}
}

func newTestActor(role string) models.Actor {
	return models.Actor{ID: uuid.New(), Name: "Test " + role, Role: role}
}

// seedUpload parses raw, stores it as a pending upload in scope and returns
// the upload together with its parsed form.
func seedUpload(t *testing.T, db *gorm.DB, scope testScope, raw string) (*models.PendingUpload, *models.ParsedBorelogReport) {
	t.Helper()

	report, err := NewReportParser().Parse(raw)
	if err != nil {
		t.Fatalf("parse report: %v", err)
	}
	payload, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	upload := models.PendingUpload{
		ProjectID:      scope.Project.ID,
		StructureID:    scope.Structure.ID,
		SubstructureID: scope.Substructure.ID,
		BorelogType:    "geotechnical",
		RawText:        raw,
		ParsedPayload:  datatypes.JSON(payload),
		Remarks:        pq.StringArray(report.Remarks),
		Status:         models.UploadStatusPending,
		UploadedBy:     newTestActor(models.RoleGeologist).ID,
	}
	if err := db.Create(&upload).Error; err != nil {
		t.Fatalf("seed upload: %v", err)
	}
	return &upload, report
}
