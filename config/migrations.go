package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"p9e.in/geolog/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "12052026_create_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{}, &models.Project{}, &models.Structure{},
					&models.Substructure{}, &models.Borehole{}, &models.Borelog{})
			},
		},
		{
			ID: "12052026_create_version_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.BorelogDetails{}, &models.BorelogDraft{},
					&models.StratumLayer{}, &models.SamplePoint{}, &models.BorelogSubmission{})
			},
		},
		{
			ID: "14052026_create_upload_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.PendingUpload{}, &models.UploadTransition{})
			},
		},
		{
			ID: "02062026_add_borehole_coordinate_index",
			Migrate: func(tx *gorm.DB) error {
				// Partial index for the map overlay: only boreholes with
				// coordinates show up there.
				return tx.Exec("CREATE INDEX IF NOT EXISTS idx_boreholes_located ON boreholes(project_id) WHERE latitude IS NOT NULL AND longitude IS NOT NULL").Error
			},
		},
	})
	return m.Migrate()
}
