package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"p9e.in/geolog/models"
	"p9e.in/geolog/utils"
)

// BorelogMaterializer turns an approved upload into canonical versioned
// records: borehole and borelog (created or reused), a new header snapshot
// with the next version number, ordered stratum layers and sample points,
// and the submission audit entry. Everything runs inside the caller's
// transaction: one failed insert aborts the whole approval.
type BorelogMaterializer struct{}

// NewBorelogMaterializer creates a new materializer instance
func NewBorelogMaterializer() *BorelogMaterializer {
	return &BorelogMaterializer{}
}

var (
	ErrSubstructureNotFound  = errors.New("referenced substructure does not exist in the upload's scope")
	ErrMissingBoreholeNumber = errors.New("report header carries no borehole number")
	ErrInvalidLayerRange     = errors.New("stratum layer has an invalid depth range")
)

// MaterializeResult reports what one approval produced.
type MaterializeResult struct {
	BoreholeID           uuid.UUID `json:"borehole_id"`
	BorelogID            uuid.UUID `json:"borelog_id"`
	VersionNo            int       `json:"version_no"`
	StratumLayersCreated int       `json:"stratum_layers_created"`
}

// Materialize creates the canonical records for one approved upload.
func (m *BorelogMaterializer) Materialize(
	tx *gorm.DB,
	upload *models.PendingUpload,
	report *models.ParsedBorelogReport,
	actor models.Actor,
) (*MaterializeResult, error) {
	// The substructure must exist and sit inside the scope the upload named.
	var substructure models.Substructure
	if err := tx.Preload("Structure").First(&substructure, "id = ?", upload.SubstructureID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubstructureNotFound
		}
		return nil, fmt.Errorf("failed to resolve substructure: %w", err)
	}
	if substructure.StructureID != upload.StructureID ||
		substructure.Structure == nil || substructure.Structure.ProjectID != upload.ProjectID {
		return nil, ErrSubstructureNotFound
	}

	borehole, err := m.resolveBorehole(tx, upload, report, actor)
	if err != nil {
		return nil, err
	}

	borelog, err := m.resolveBorelog(tx, upload, borehole, actor)
	if err != nil {
		return nil, err
	}

	versionNo, err := nextVersionNo(tx, borelog.ID)
	if err != nil {
		return nil, err
	}

	details := buildDetails(report)
	details.BorelogID = borelog.ID
	details.VersionNo = versionNo
	details.ApprovedBy = actor.ID
	if err := tx.Create(details).Error; err != nil {
		return nil, fmt.Errorf("failed to insert borelog details v%d: %w", versionNo, err)
	}

	layersCreated, err := insertLayers(tx, borelog.ID, versionNo, report)
	if err != nil {
		return nil, err
	}

	submission := models.BorelogSubmission{
		UploadID:    upload.ID,
		BorelogID:   borelog.ID,
		VersionNo:   versionNo,
		Payload:     upload.ParsedPayload,
		SubmittedBy: actor.ID,
	}
	if err := tx.Create(&submission).Error; err != nil {
		return nil, fmt.Errorf("failed to record submission audit: %w", err)
	}

	return &MaterializeResult{
		BoreholeID:           borehole.ID,
		BorelogID:            borelog.ID,
		VersionNo:            versionNo,
		StratumLayersCreated: layersCreated,
	}, nil
}

// resolveBorehole creates the borehole on first approval of its
// (project, structure, number) triple and reuses it afterwards. Concurrent
// approvals racing on creation are settled by the unique constraint: insert
// with ON CONFLICT DO NOTHING, then read whichever row won.
func (m *BorelogMaterializer) resolveBorehole(
	tx *gorm.DB,
	upload *models.PendingUpload,
	report *models.ParsedBorelogReport,
	actor models.Actor,
) (*models.Borehole, error) {
	number := report.HeaderValue("borehole_no")
	if number == "" {
		return nil, ErrMissingBoreholeNumber
	}
	lat, lon := utils.ParseCoordinates(report.HeaderValue("coordinates"))

	borehole := models.Borehole{
		ProjectID:      upload.ProjectID,
		StructureID:    upload.StructureID,
		BoreholeNumber: number,
		Location:       report.HeaderValue("location"),
		Latitude:       lat,
		Longitude:      lon,
		CreatedBy:      actor.ID,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "project_id"}, {Name: "structure_id"}, {Name: "borehole_number"},
		},
		DoNothing: true,
	}).Create(&borehole).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create borehole %s: %w", number, err)
	}

	if err := tx.Where(
		"project_id = ? AND structure_id = ? AND borehole_number = ?",
		upload.ProjectID, upload.StructureID, number,
	).First(&borehole).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve borehole %s: %w", number, err)
	}
	return &borehole, nil
}

// resolveBorelog creates or reuses the one borelog per substructure+type.
func (m *BorelogMaterializer) resolveBorelog(
	tx *gorm.DB,
	upload *models.PendingUpload,
	borehole *models.Borehole,
	actor models.Actor,
) (*models.Borelog, error) {
	borelog := models.Borelog{
		SubstructureID: upload.SubstructureID,
		Type:           upload.BorelogType,
		BoreholeID:     borehole.ID,
		CreatedBy:      actor.ID,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "substructure_id"}, {Name: "type"}},
		DoNothing: true,
	}).Create(&borelog).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create borelog: %w", err)
	}

	if err := tx.Where(
		"substructure_id = ? AND type = ?", upload.SubstructureID, upload.BorelogType,
	).First(&borelog).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve borelog: %w", err)
	}
	return &borelog, nil
}

// nextVersionNo assigns max(existing)+1 across both the draft and finalized
// header tables, so a version number is never reused between stages.
func nextVersionNo(tx *gorm.DB, borelogID uuid.UUID) (int, error) {
	var finalMax, draftMax int
	if err := tx.Model(&models.BorelogDetails{}).
		Where("borelog_id = ?", borelogID).
		Select("COALESCE(MAX(version_no), 0)").
		Scan(&finalMax).Error; err != nil {
		return 0, fmt.Errorf("failed to read finalized version: %w", err)
	}
	if err := tx.Model(&models.BorelogDraft{}).
		Where("borelog_id = ?", borelogID).
		Select("COALESCE(MAX(version_no), 0)").
		Scan(&draftMax).Error; err != nil {
		return 0, fmt.Errorf("failed to read draft version: %w", err)
	}
	return max(finalMax, draftMax) + 1, nil
}

// buildDetails reads the header snapshot out of a parsed report. Unreadable
// numeric fields stay nil; the raw header map is preserved alongside.
func buildDetails(report *models.ParsedBorelogReport) *models.BorelogDetails {
	lat, lon := utils.ParseCoordinates(report.HeaderValue("coordinates"))
	rawHeader, _ := json.Marshal(report.Header)

	return &models.BorelogDetails{
		CommencementDate:   models.ParseReportDate(report.HeaderValue("commencement_date")),
		CompletionDate:     models.ParseReportDate(report.HeaderValue("completion_date")),
		MethodOfBoring:     report.HeaderValue("method_of_boring"),
		DiameterOfBorehole: report.HeaderValue("diameter_of_borehole"),
		StandingWaterLevel: utils.ParseFloat(report.HeaderValue("standing_water_level")),
		TerminationDepth:   utils.ParseFloat(report.HeaderValue("termination_depth")),

		PermeabilityTestCount:  utils.ParseInt(report.HeaderValue("permeability_tests")),
		SPTTestCount:           utils.ParseInt(report.HeaderValue("spt_tests")),
		UndisturbedSampleCount: utils.ParseInt(report.HeaderValue("undisturbed_samples")),
		DisturbedSampleCount:   utils.ParseInt(report.HeaderValue("disturbed_samples")),
		WaterSampleCount:       utils.ParseInt(report.HeaderValue("water_samples")),

		Latitude:  lat,
		Longitude: lon,

		TCRPercent: report.CoreQuality.TCRPercent,
		RQDPercent: report.CoreQuality.RQDPercent,

		Remarks:   pq.StringArray(report.Remarks),
		RawHeader: datatypes.JSON(rawHeader),
	}
}

// insertLayers writes the ordered stratum layers and their sample points for
// one version, re-running the metrics calculator on the final approved data.
func insertLayers(tx *gorm.DB, borelogID uuid.UUID, versionNo int, report *models.ParsedBorelogReport) (int, error) {
	for i := range report.Layers {
		layer := &report.Layers[i]
		if layer.DepthFrom == nil || layer.DepthTo == nil || *layer.DepthFrom >= *layer.DepthTo {
			return 0, fmt.Errorf("%w: layer %d", ErrInvalidLayerRange, i+1)
		}

		row := models.StratumLayer{
			BorelogID:   borelogID,
			VersionNo:   versionNo,
			LayerOrder:  i + 1,
			DepthFromM:  *layer.DepthFrom,
			DepthToM:    *layer.DepthTo,
			ThicknessM:  utils.Round2(*layer.DepthTo - *layer.DepthFrom),
			Description: layer.Description,
		}
		if err := tx.Create(&row).Error; err != nil {
			return 0, fmt.Errorf("failed to insert layer %d: %w", i+1, err)
		}

		samples := layer.Samples
		if len(samples) == 0 && layer.Inline != nil {
			// spreadsheet rows carry the readings on the range row itself;
			// synthesize exactly one sample point from them
			samples = []models.ParsedSample{*layer.Inline}
		}
		for j := range samples {
			sample := samples[j] // copy: derivation must not mutate the payload
			flags := utils.DeriveSampleMetrics(&sample, layer)

			point := models.SamplePoint{
				StratumLayerID:      row.ID,
				SampleOrder:         j + 1,
				FieldSampleID:       sample.SampleID,
				SampleType:          sample.SampleType,
				DepthMode:           sample.DepthMode,
				DepthM:              sample.Depth,
				DepthFromM:          sample.DepthFrom,
				DepthToM:            sample.DepthTo,
				RunLengthM:          sample.RunLength,
				SPTBlows:            sample.SPTBlows,
				NValue:              sample.NValue,
				TotalCoreLengthCm:   sample.TotalCoreLength,
				RQDLengthCm:         sample.RQDLength,
				TCRPercent:          sample.TCRPercent,
				RQDPercent:          sample.RQDPercent,
				ColourOfReturnWater: sample.ColourOfReturnWater,
				WaterLoss:           sample.WaterLoss,
				DiameterOfBorehole:  sample.DiameterOfBorehole,
				Remarks:             sample.Remarks,
				ReviewFlags:         pq.StringArray(flags),
			}
			if err := tx.Create(&point).Error; err != nil {
				return 0, fmt.Errorf("failed to insert sample %d of layer %d: %w", j+1, i+1, err)
			}
		}
	}
	return len(report.Layers), nil
}

// SaveDraftVersion stores a geologist's draft snapshot in the staging table,
// consuming the next number from the shared version sequence.
func (m *BorelogMaterializer) SaveDraftVersion(
	tx *gorm.DB,
	borelogID uuid.UUID,
	report *models.ParsedBorelogReport,
	actor models.Actor,
) (*MaterializeResult, error) {
	versionNo, err := nextVersionNo(tx, borelogID)
	if err != nil {
		return nil, err
	}

	final := buildDetails(report)
	draft := models.BorelogDraft{
		BorelogID: borelogID,
		VersionNo: versionNo,

		CommencementDate:   final.CommencementDate,
		CompletionDate:     final.CompletionDate,
		MethodOfBoring:     final.MethodOfBoring,
		DiameterOfBorehole: final.DiameterOfBorehole,
		StandingWaterLevel: final.StandingWaterLevel,
		TerminationDepth:   final.TerminationDepth,

		PermeabilityTestCount:  final.PermeabilityTestCount,
		SPTTestCount:           final.SPTTestCount,
		UndisturbedSampleCount: final.UndisturbedSampleCount,
		DisturbedSampleCount:   final.DisturbedSampleCount,
		WaterSampleCount:       final.WaterSampleCount,

		Latitude:  final.Latitude,
		Longitude: final.Longitude,

		TCRPercent: final.TCRPercent,
		RQDPercent: final.RQDPercent,

		Remarks:   final.Remarks,
		RawHeader: final.RawHeader,

		CreatedBy: actor.ID,
	}
	if err := tx.Create(&draft).Error; err != nil {
		return nil, fmt.Errorf("failed to insert draft details v%d: %w", versionNo, err)
	}

	layersCreated, err := insertLayers(tx, borelogID, versionNo, report)
	if err != nil {
		return nil, err
	}

	return &MaterializeResult{
		BorelogID:            borelogID,
		VersionNo:            versionNo,
		StratumLayersCreated: layersCreated,
	}, nil
}
