package handlers

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"p9e.in/geolog/models"
)

func TestMaterialize_FirstApprovalCreatesVersionOne(t *testing.T) {
	db := setupTestDB(t)
	scope := seedScope(t, db)
	upload, report := seedUpload(t, db, scope, sampleReport)
	approver := newTestActor(models.RoleApprover)

	tx := db.Begin()
	result, err := NewBorelogMaterializer().Materialize(tx, upload, report, approver)
	if err != nil {
		tx.Rollback()
		t.Fatalf("Materialize: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("commit: %v", err)
	}

	if result.VersionNo != 1 {
		t.Errorf("version = %d, expected 1", result.VersionNo)
	}
	if result.StratumLayersCreated != 11 {
		t.Errorf("layers created = %d, expected 11", result.StratumLayersCreated)
	}

	var borehole models.Borehole
	if err := db.First(&borehole, "id = ?", result.BoreholeID).Error; err != nil {
		t.Fatalf("load borehole: %v", err)
	}
	if borehole.BoreholeNumber != "BH-07" {
		t.Errorf("borehole number = %q", borehole.BoreholeNumber)
	}
	if borehole.Latitude == nil || *borehole.Latitude != 17.4065 ||
		borehole.Longitude == nil || *borehole.Longitude != 78.4772 {
		t.Errorf("coordinates = %v, %v", borehole.Latitude, borehole.Longitude)
	}

	var details models.BorelogDetails
	if err := db.First(&details, "borelog_id = ? AND version_no = ?", result.BorelogID, 1).Error; err != nil {
		t.Fatalf("load details: %v", err)
	}
	if details.SPTTestCount == nil || *details.SPTTestCount != 14 {
		t.Errorf("spt test count = %v, expected 14", details.SPTTestCount)
	}
	if details.TerminationDepth == nil || *details.TerminationDepth != 40.45 {
		t.Errorf("termination depth = %v, expected 40.45", details.TerminationDepth)
	}
	if details.TCRPercent == nil || *details.TCRPercent != 81.0 {
		t.Errorf("tcr = %v, expected 81.0", details.TCRPercent)
	}
	if details.ApprovedBy != approver.ID {
		t.Errorf("approved_by = %v", details.ApprovedBy)
	}

	var layers []models.StratumLayer
	if err := db.Where("borelog_id = ? AND version_no = ?", result.BorelogID, 1).
		Order("layer_order ASC").Find(&layers).Error; err != nil {
		t.Fatalf("load layers: %v", err)
	}
	if len(layers) != 11 {
		t.Fatalf("layer rows = %d, expected 11", len(layers))
	}
	for i, layer := range layers {
		if layer.LayerOrder != i+1 {
			t.Errorf("layer %d has order %d", i+1, layer.LayerOrder)
		}
	}

	// layer 4 carried SPT 12/18/22, so its stored sample must derive N = 40
	var spt models.SamplePoint
	if err := db.First(&spt, "stratum_layer_id = ?", layers[3].ID).Error; err != nil {
		t.Fatalf("load spt sample: %v", err)
	}
	if spt.NValue == nil || *spt.NValue != 40 {
		t.Errorf("stored N = %v, expected 40", spt.NValue)
	}

	// layer 11: 120 cm / 45 cm over a 1.50 m run -> TCR 80.00, RQD 30.00
	var core models.SamplePoint
	if err := db.First(&core, "stratum_layer_id = ?", layers[10].ID).Error; err != nil {
		t.Fatalf("load core sample: %v", err)
	}
	if core.FieldSampleID != "CR-5" {
		t.Errorf("core sample id = %q", core.FieldSampleID)
	}
	if core.TCRPercent == nil || math.Abs(*core.TCRPercent-80.00) >= 0.01 {
		t.Errorf("stored TCR = %v, expected 80.00", core.TCRPercent)
	}
	if core.RQDPercent == nil || math.Abs(*core.RQDPercent-30.00) >= 0.01 {
		t.Errorf("stored RQD = %v, expected 30.00", core.RQDPercent)
	}

	var submissions int64
	db.Model(&models.BorelogSubmission{}).Where("upload_id = ?", upload.ID).Count(&submissions)
	if submissions != 1 {
		t.Errorf("submission audit rows = %d, expected 1", submissions)
	}
}

func TestMaterialize_VersionNumbersAreMonotonicAcrossStages(t *testing.T) {
	db := setupTestDB(t)
	scope := seedScope(t, db)
	m := NewBorelogMaterializer()
	approver := newTestActor(models.RoleApprover)
	geologist := newTestActor(models.RoleGeologist)

	materialize := func(t *testing.T) *MaterializeResult {
		t.Helper()
		upload, report := seedUpload(t, db, scope, sampleReport)
		tx := db.Begin()
		result, err := m.Materialize(tx, upload, report, approver)
		if err != nil {
			tx.Rollback()
			t.Fatalf("Materialize: %v", err)
		}
		if err := tx.Commit().Error; err != nil {
			t.Fatalf("commit: %v", err)
		}
		return result
	}

	first := materialize(t)
	if first.VersionNo != 1 {
		t.Fatalf("first approval version = %d, expected 1", first.VersionNo)
	}

	second := materialize(t)
	if second.VersionNo != 2 {
		t.Errorf("second approval version = %d, expected 2", second.VersionNo)
	}
	if second.BoreholeID != first.BoreholeID || second.BorelogID != first.BorelogID {
		t.Errorf("re-approval created new borehole/borelog instead of reusing")
	}

	// a draft consumes the next number from the same sequence
	_, report := seedUpload(t, db, scope, sampleReport)
	tx := db.Begin()
	draft, err := m.SaveDraftVersion(tx, first.BorelogID, report, geologist)
	if err != nil {
		tx.Rollback()
		t.Fatalf("SaveDraftVersion: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("commit draft: %v", err)
	}
	if draft.VersionNo != 3 {
		t.Errorf("draft version = %d, expected 3", draft.VersionNo)
	}

	// and the next approval skips past it, never reusing the number
	fourth := materialize(t)
	if fourth.VersionNo != 4 {
		t.Errorf("approval after draft version = %d, expected 4", fourth.VersionNo)
	}

	var finalCount, draftCount int64
	db.Model(&models.BorelogDetails{}).Where("borelog_id = ?", first.BorelogID).Count(&finalCount)
	db.Model(&models.BorelogDraft{}).Where("borelog_id = ?", first.BorelogID).Count(&draftCount)
	if finalCount != 3 || draftCount != 1 {
		t.Errorf("header rows = %d final, %d draft; expected 3 and 1", finalCount, draftCount)
	}
}

func TestMaterialize_SynthesizesInlineSample(t *testing.T) {
	db := setupTestDB(t)
	scope := seedScope(t, db)

	from, to := 10.0, 11.5
	run, total, rqd := 1.5, 120.0, 45.0
	report := &models.ParsedBorelogReport{
		Header: map[string]string{"borehole_no": "BH-20"},
		Layers: []models.ParsedLayer{{
			DepthFrom:   &from,
			DepthTo:     &to,
			Description: "Moderately weathered granite",
			Inline: &models.ParsedSample{
				SampleID:        "CR-9",
				RunLength:       &run,
				TotalCoreLength: &total,
				RQDLength:       &rqd,
			},
		}},
	}

	upload := &models.PendingUpload{
		ProjectID:      scope.Project.ID,
		StructureID:    scope.Structure.ID,
		SubstructureID: scope.Substructure.ID,
		BorelogType:    "geotechnical",
		ParsedPayload:  datatypes.JSON([]byte(`{}`)),
		Status:         models.UploadStatusPending,
		UploadedBy:     uuid.New(),
	}
	if err := db.Create(upload).Error; err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	tx := db.Begin()
	result, err := NewBorelogMaterializer().Materialize(tx, upload, report, newTestActor(models.RoleApprover))
	if err != nil {
		tx.Rollback()
		t.Fatalf("Materialize: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("commit: %v", err)
	}

	var layer models.StratumLayer
	if err := db.First(&layer, "borelog_id = ? AND version_no = ?", result.BorelogID, 1).Error; err != nil {
		t.Fatalf("load layer: %v", err)
	}

	var points []models.SamplePoint
	if err := db.Where("stratum_layer_id = ?", layer.ID).Find(&points).Error; err != nil {
		t.Fatalf("load sample points: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("sample points = %d, expected exactly 1 synthesized", len(points))
	}

	point := points[0]
	if point.SampleOrder != 1 || point.FieldSampleID != "CR-9" {
		t.Errorf("synthesized sample = order %d, id %q", point.SampleOrder, point.FieldSampleID)
	}
	if point.TCRPercent == nil || math.Abs(*point.TCRPercent-80.00) >= 0.01 {
		t.Errorf("synthesized TCR = %v, expected 80.00", point.TCRPercent)
	}
	if point.RQDPercent == nil || math.Abs(*point.RQDPercent-30.00) >= 0.01 {
		t.Errorf("synthesized RQD = %v, expected 30.00", point.RQDPercent)
	}
}

func TestMaterialize_Failures(t *testing.T) {
	db := setupTestDB(t)
	scope := seedScope(t, db)
	m := NewBorelogMaterializer()
	actor := newTestActor(models.RoleApprover)

	t.Run("unknown substructure", func(t *testing.T) {
		upload, report := seedUpload(t, db, scope, sampleReport)
		upload.SubstructureID = uuid.New()

		tx := db.Begin()
		defer tx.Rollback()
		if _, err := m.Materialize(tx, upload, report, actor); !errors.Is(err, ErrSubstructureNotFound) {
			t.Errorf("err = %v, expected ErrSubstructureNotFound", err)
		}
	})

	t.Run("substructure outside upload scope", func(t *testing.T) {
		upload, report := seedUpload(t, db, scope, sampleReport)
		upload.ProjectID = uuid.New()

		tx := db.Begin()
		defer tx.Rollback()
		if _, err := m.Materialize(tx, upload, report, actor); !errors.Is(err, ErrSubstructureNotFound) {
			t.Errorf("err = %v, expected ErrSubstructureNotFound", err)
		}
	})

	t.Run("missing borehole number", func(t *testing.T) {
		upload, report := seedUpload(t, db, scope, sampleReport)
		delete(report.Header, "borehole_no")

		tx := db.Begin()
		defer tx.Rollback()
		if _, err := m.Materialize(tx, upload, report, actor); !errors.Is(err, ErrMissingBoreholeNumber) {
			t.Errorf("err = %v, expected ErrMissingBoreholeNumber", err)
		}
	})

	t.Run("inverted layer range", func(t *testing.T) {
		upload, report := seedUpload(t, db, scope, sampleReport)
		report.Layers[4].DepthFrom, report.Layers[4].DepthTo = report.Layers[4].DepthTo, report.Layers[4].DepthFrom

		tx := db.Begin()
		defer tx.Rollback()
		if _, err := m.Materialize(tx, upload, report, actor); !errors.Is(err, ErrInvalidLayerRange) {
			t.Errorf("err = %v, expected ErrInvalidLayerRange", err)
		}
	})
}

func TestBuildDetails(t *testing.T) {
	report, err := NewReportParser().Parse(sampleReport)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	details := buildDetails(report)

	if details.CommencementDate == nil {
		t.Fatal("commencement date not parsed")
	}
	commenced := time.Time(*details.CommencementDate)
	if commenced.Year() != 2024 || commenced.Month() != 11 || commenced.Day() != 4 {
		t.Errorf("commencement date = %v, expected 2024-11-04", commenced)
	}

	if details.MethodOfBoring != "Rotary Drilling" {
		t.Errorf("method of boring = %q", details.MethodOfBoring)
	}
	if details.StandingWaterLevel == nil || *details.StandingWaterLevel != 2.70 {
		t.Errorf("standing water level = %v, expected 2.70", details.StandingWaterLevel)
	}
	if details.PermeabilityTestCount == nil || *details.PermeabilityTestCount != 2 {
		t.Errorf("permeability tests = %v, expected 2", details.PermeabilityTestCount)
	}
	if details.UndisturbedSampleCount == nil || *details.UndisturbedSampleCount != 6 {
		t.Errorf("undisturbed samples = %v, expected 6", details.UndisturbedSampleCount)
	}
	if details.Latitude == nil || *details.Latitude != 17.4065 {
		t.Errorf("latitude = %v, expected 17.4065", details.Latitude)
	}
	if details.RQDPercent == nil || *details.RQDPercent != 37.5 {
		t.Errorf("report rqd = %v, expected 37.5", details.RQDPercent)
	}
	if len(details.RawHeader) == 0 {
		t.Error("raw header snapshot is empty")
	}
	if len(details.Remarks) == 0 {
		t.Error("remarks were dropped")
	}
}
