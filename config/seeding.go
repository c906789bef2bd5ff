package config

import (
	"errors"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"p9e.in/geolog/models"
)

// RunAllSeeding runs all seeding operations in the correct order
func RunAllSeeding() error {
	log.Println("=== Starting Database Seeding ===")

	log.Println("\n[1/2] Seeding Default Users...")
	SeedUsers()

	log.Println("\n[2/2] Seeding Demo Project...")
	SeedDemoProject()

	log.Println("\n=== Database Seeding Complete ===")
	return nil
}

// SeedUsers creates one user per role if none exist yet. Passwords come from
// SEED_PASSWORD so demo credentials never land in the repo.
func SeedUsers() {
	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		log.Println("SEED_PASSWORD not set, skipping user seeding")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("⚠️ Failed to hash seed password: %v", err)
		return
	}

	users := []models.User{
		{Name: "Admin", Email: "admin@geolog.local", Phone: "9000000001", Role: models.RoleAdmin},
		{Name: "Field Geologist", Email: "geologist@geolog.local", Phone: "9000000002", Role: models.RoleGeologist},
		{Name: "Reviewer", Email: "reviewer@geolog.local", Phone: "9000000003", Role: models.RoleReviewer},
		{Name: "Approver", Email: "approver@geolog.local", Phone: "9000000004", Role: models.RoleApprover},
	}

	for _, u := range users {
		var existing models.User
		err := DB.Where("phone = ?", u.Phone).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️ Failed to check user %s: %v", u.Phone, err)
			continue
		}

		u.PasswordHash = string(hash)
		if err := DB.Create(&u).Error; err != nil {
			log.Printf("⚠️ Failed to seed user %s: %v", u.Name, err)
			continue
		}
		log.Printf("✅ Seeded user %s (%s)", u.Name, u.Role)
	}
}

// SeedDemoProject creates a small project/structure/substructure tree so the
// upload pipeline is usable immediately after first start.
func SeedDemoProject() {
	var admin models.User
	if err := DB.Where("role = ?", models.RoleAdmin).First(&admin).Error; err != nil {
		log.Println("No admin user found, skipping demo project seeding")
		return
	}

	var existing models.Project
	err := DB.Where("code = ?", "DEMO-GT").First(&existing).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("⚠️ Failed to check demo project: %v", err)
		return
	}

	project := models.Project{
		Code:        "DEMO-GT",
		Name:        "Demo Geotechnical Investigation",
		Description: "Seeded project for trying the borelog pipeline",
		Client:      "Internal",
		Location:    "Hyderabad",
		CreatedBy:   admin.ID,
	}
	if err := DB.Create(&project).Error; err != nil {
		log.Printf("⚠️ Failed to seed demo project: %v", err)
		return
	}

	structure := models.Structure{
		ProjectID:   project.ID,
		Name:        "Bridge 1",
		Type:        "bridge",
		Description: "Demo bridge structure",
	}
	if err := DB.Create(&structure).Error; err != nil {
		log.Printf("⚠️ Failed to seed demo structure: %v", err)
		return
	}

	substructures := []models.Substructure{
		{StructureID: structure.ID, Name: "P1", Type: "pier"},
		{StructureID: structure.ID, Name: "P2", Type: "pier"},
		{StructureID: structure.ID, Name: "A1", Type: "abutment"},
	}
	for _, s := range substructures {
		if err := DB.Create(&s).Error; err != nil {
			log.Printf("⚠️ Failed to seed substructure %s: %v", s.Name, err)
		}
	}

	log.Printf("✅ Seeded demo project %s", project.Code)
}
