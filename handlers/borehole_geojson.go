package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"p9e.in/geolog/config"
	"p9e.in/geolog/models"
)

// GetProjectBoreholesGeoJSON returns a project's boreholes as a GeoJSON
// FeatureCollection for map overlays. Boreholes without coordinates are
// skipped, not errored.
func GetProjectBoreholesGeoJSON(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	var boreholes []models.Borehole
	if err := config.DB.Where("project_id = ?", projectID).
		Order("borehole_number ASC").Find(&boreholes).Error; err != nil {
		http.Error(w, "failed to fetch boreholes: "+err.Error(), http.StatusInternalServerError)
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, bh := range boreholes {
		if bh.Latitude == nil || bh.Longitude == nil {
			continue
		}
		point := orb.Point{*bh.Longitude, *bh.Latitude}
		feature := geojson.NewFeature(point)
		feature.Properties = map[string]interface{}{
			"id":              bh.ID.String(),
			"borehole_number": bh.BoreholeNumber,
			"structure_id":    bh.StructureID.String(),
		}
		if bh.Location != "" {
			feature.Properties["location"] = bh.Location
		}
		fc.Features = append(fc.Features, feature)
	}

	w.Header().Set("Content-Type", "application/geo+json")
	json.NewEncoder(w).Encode(fc)
}
