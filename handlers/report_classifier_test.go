package handlers

import "testing"

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		kind LineKind
		key  string
	}{
		{"blank", "   ", LineBlank, ""},
		{"header field", "Borehole No: BH-07", LineHeaderField, "borehole_no"},
		{"header with unit hint", "Termination Depth (m): 40.45", LineHeaderField, "termination_depth"},
		{"sample id", "Sample ID: D-1", LineSampleAttribute, "sample_id"},
		{"spt blows", "SPT Blows: 12/18/22", LineSampleAttribute, "spt_blows"},
		{"n-value alias", "N-Value: 40", LineSampleAttribute, "n_value"},
		{"tcr percent alias", "TCR %: 81.0", LineSampleAttribute, "tcr_percent"},
		{"rqd length", "RQD Length: 45 cm", LineSampleAttribute, "rqd_length"},
		{"colour of return water", "Colour of Return Water: Brownish", LineSampleAttribute, "colour_of_return_water"},
		{"diameter is a sample attribute", "Diameter of Borehole: 150 mm", LineSampleAttribute, "diameter_of_borehole"},
		{"stratum marker", "Description of Soil Stratum", LineSectionMarker, ""},
		{"core quality marker", "Core Quality Summary", LineSectionMarker, ""},
		{"sample received marker", "SAMPLE RECEIVED", LineSectionMarker, ""},
		{"stratum range", "0.00 2.30 2.30 Filled up soil", LineStratumRange, ""},
		{"stratum range without thickness", "38.00 40.45 Highly weathered rock", LineStratumRange, ""},
		{"prose", "received in good condition", LineUnclassified, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyLine(tt.line)
			if got.Kind != tt.kind {
				t.Fatalf("ClassifyLine(%q).Kind = %s, expected %s", tt.line, got.Kind, tt.kind)
			}
			if tt.key != "" && got.Key != tt.key {
				t.Errorf("ClassifyLine(%q).Key = %q, expected %q", tt.line, got.Key, tt.key)
			}
		})
	}
}

func TestClassifyStratumRange_Fields(t *testing.T) {
	got := ClassifyLine("1.50 4.80 3.30 Yellowish brown silty clay")
	if got.Kind != LineStratumRange {
		t.Fatalf("kind = %s", got.Kind)
	}
	if *got.DepthFrom != 1.50 || *got.DepthTo != 4.80 || *got.Thickness != 3.30 {
		t.Errorf("range = %v %v %v", *got.DepthFrom, *got.DepthTo, *got.Thickness)
	}
	if got.Description != "Yellowish brown silty clay" {
		t.Errorf("description = %q", got.Description)
	}

	two := ClassifyLine("38.00 40.45 Highly weathered rock")
	if two.Thickness != nil {
		t.Errorf("two-number range should have nil thickness, got %v", *two.Thickness)
	}
	if two.Description != "Highly weathered rock" {
		t.Errorf("description = %q", two.Description)
	}
}
