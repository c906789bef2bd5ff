package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is the top-level scope borelog uploads target.
type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Code        string    `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Client      string    `gorm:"size:255" json:"client,omitempty"`
	Location    string    `gorm:"size:255" json:"location,omitempty"`

	CreatedBy uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at,omitempty"`

	Structures []Structure `gorm:"foreignKey:ProjectID" json:"structures,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Structure is a constructed asset within a project (bridge, building,
// retaining wall) under which boreholes are drilled.
type Structure struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`

	Name        string `gorm:"size:255;not null" json:"name"`
	Type        string `gorm:"size:50" json:"type,omitempty"` // bridge, building, tunnel ...
	Description string `gorm:"type:text" json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Substructures []Substructure `gorm:"foreignKey:StructureID" json:"substructures,omitempty"`
}

func (Structure) TableName() string {
	return "structures"
}

// Substructure is the part of a structure one borelog belongs to (pier,
// abutment, foundation block).
type Substructure struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	StructureID uuid.UUID  `gorm:"type:uuid;not null;index" json:"structure_id"`
	Structure   *Structure `gorm:"foreignKey:StructureID" json:"structure,omitempty"`

	Name string `gorm:"size:255;not null" json:"name"`
	Type string `gorm:"size:50" json:"type,omitempty"` // pier, abutment, foundation ...

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Substructure) TableName() string {
	return "substructures"
}
