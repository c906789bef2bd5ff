package handlers

import (
	"math"
	"strings"
	"testing"

	"p9e.in/geolog/utils"
)

// sampleReport mirrors the field logger template: header block, eleven
// stratum layers with samples, then termination/core-quality trailer.
const sampleReport = `Project: NH-44 Flyover Package 2
Structure: Bridge B-3
Borehole No: BH-07
Location: Ch. 12+400 LHS
Coordinates: 17.4065 N, 78.4772 E
Commencement Date: 04.11.2024
Completion Date: 12.11.2024
Method of Boring: Rotary Drilling
Diameter of Borehole: 150 mm
Standing Water Level: 2.70 m
Termination Depth: 40.45 m
SPT Tests: 14
Undisturbed Samples: 6
Permeability Tests: 2

Description of Soil Stratum

0.00 1.50 1.50 Filled up soil with brick bats
Sample ID: D-1
Depth: 1.00
SPT Blows: 4/6/7
Colour of Return Water: Brownish

1.50 4.80 3.30 Yellowish brown silty clay, medium stiff
Sample ID: UD-1
Depth: 2.50
Sample ID: S-1
Depth: 3.00
SPT Blows: 8/11/13

4.80 7.20 2.40 Greyish sandy silt with mica
Sample ID: S-2
Depth: 6.00
SPT Blows: 10/14/17

7.20 10.50 3.30 Dense silty sand
Sample ID: S-3
Depth: 9.00
SPT Blows: 12/18/22

10.50 13.80 3.30 Very dense sand with gravel
Sample ID: S-4
Depth: 12.00
SPT Blows: 18/24/28

13.80 17.10 3.30 Completely weathered granite
Sample ID: S-5
Depth: 15.00
SPT Blows: 22/30/34

17.10 21.00 3.90 Highly weathered granite
Sample ID: CR-1
Run Length: 1.50
Total Core Length: 48 cm

21.00 26.40 5.40 Moderately weathered granite
Sample ID: CR-2
Run Length: 1.50
Total Core Length: 96 cm
RQD Length: 30 cm

26.40 32.00 5.60 Slightly weathered granite
Sample ID: CR-3
Run Length: 1.50
Total Core Length: 114 cm
RQD Length: 54 cm

32.00 38.20 6.20 Fresh granite, strong
Sample ID: CR-4
Run Length: 1.50
Total Core Length: 129 cm
RQD Length: 75 cm

38.20 40.45 2.25 Fresh granite, very strong
Sample ID: CR-5
Run Length: 1.50
Total Core Length: 120 cm
RQD Length: 45 cm

Termination Depth: 40.45 m

Core Quality Summary
TCR %: 81.0
RQD %: 37.5

SAMPLE RECEIVED
D-1, UD-1, S-1 to S-5 received in good condition
`

func TestParseSampleReport(t *testing.T) {
	report, err := NewReportParser().Parse(sampleReport)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := len(report.Layers); got != 11 {
		t.Fatalf("layer count = %d, expected 11", got)
	}

	if report.Header["borehole_no"] != "BH-07" {
		t.Errorf("borehole_no = %q", report.Header["borehole_no"])
	}
	if report.Header["project"] != "NH-44 Flyover Package 2" {
		t.Errorf("project = %q", report.Header["project"])
	}

	term := utils.ParseFloat(report.Header["termination_depth"])
	if term == nil || *term != 40.45 {
		t.Errorf("termination depth = %v, expected 40.45", term)
	}

	if report.CoreQuality.TCRPercent == nil || *report.CoreQuality.TCRPercent != 81.0 {
		t.Errorf("core quality tcr = %v, expected 81.0", report.CoreQuality.TCRPercent)
	}
	if report.CoreQuality.RQDPercent == nil || *report.CoreQuality.RQDPercent != 37.5 {
		t.Errorf("core quality rqd = %v, expected 37.5", report.CoreQuality.RQDPercent)
	}

	// sample receipt list survives as remarks
	foundReceipt := false
	for _, r := range report.Remarks {
		if strings.Contains(r, "received in good condition") {
			foundReceipt = true
		}
	}
	if !foundReceipt {
		t.Errorf("sample receipt line missing from remarks: %v", report.Remarks)
	}
}

func TestParseSampleReport_LayerInvariants(t *testing.T) {
	report, err := NewReportParser().Parse(sampleReport)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	prevTo := 0.0
	for i, layer := range report.Layers {
		if layer.DepthFrom == nil || layer.DepthTo == nil || layer.Thickness == nil {
			t.Fatalf("layer %d has nil depth fields", i+1)
		}
		if *layer.DepthFrom >= *layer.DepthTo {
			t.Errorf("layer %d: depth_from %v >= depth_to %v", i+1, *layer.DepthFrom, *layer.DepthTo)
		}
		if math.Abs(*layer.Thickness-(*layer.DepthTo-*layer.DepthFrom)) >= 0.01 {
			t.Errorf("layer %d: thickness %v inconsistent with range %v-%v",
				i+1, *layer.Thickness, *layer.DepthFrom, *layer.DepthTo)
		}
		if i > 0 && *layer.DepthFrom != prevTo {
			t.Errorf("layer %d: gap at %v", i+1, *layer.DepthFrom)
		}
		prevTo = *layer.DepthTo
	}
}

func TestParseSampleReport_MultipleSamplesPerLayer(t *testing.T) {
	report, err := NewReportParser().Parse(sampleReport)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	second := report.Layers[1]
	if got := len(second.Samples); got != 2 {
		t.Fatalf("layer 2 sample count = %d, expected 2", got)
	}
	if second.Samples[0].SampleID != "UD-1" || second.Samples[1].SampleID != "S-1" {
		t.Errorf("layer 2 sample order = %q, %q",
			second.Samples[0].SampleID, second.Samples[1].SampleID)
	}

	spt := report.Layers[3].Samples[0]
	if spt.Blows2 == nil || *spt.Blows2 != 18 || spt.Blows3 == nil || *spt.Blows3 != 22 {
		t.Errorf("layer 4 SPT blows = %v/%v", spt.Blows2, spt.Blows3)
	}
}

func TestParseSampleReport_DerivedPreview(t *testing.T) {
	parsed, err := NewReportParser().Parse(sampleReport)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	derived := utils.DeriveReportMetrics(parsed)

	// layer 4: SPT 12/18/22 -> N = 40
	n := derived.Layers[3].Samples[0].NValue
	if n == nil || *n != 40 {
		t.Errorf("derived N = %v, expected 40", n)
	}

	// last layer: 120 cm over 1.50 m -> 80.00%
	tcr := derived.Layers[10].Samples[0].TCRPercent
	if tcr == nil || math.Abs(*tcr-80.00) >= 0.01 {
		t.Errorf("derived TCR = %v, expected 80.00", tcr)
	}

	// original untouched
	if parsed.Layers[3].Samples[0].NValue != nil {
		t.Errorf("preview derivation mutated the parsed report")
	}
}

func TestParse_DegradesToNullNotFailure(t *testing.T) {
	raw := `Borehole No: BH-1
Standing Water Level: #VALUE!

Description of Soil Stratum

0.00 2.00 2.00 Soft clay
Sample ID: S-1
N-Value: #VALUE!
`
	report, err := NewReportParser().Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if report.Header["standing_water_level"] != "#VALUE!" {
		t.Errorf("raw header value should be retained, got %q", report.Header["standing_water_level"])
	}
	if utils.ParseFloat(report.Header["standing_water_level"]) != nil {
		t.Errorf("placeholder header value should not parse")
	}
	if report.Layers[0].Samples[0].NValue != nil {
		t.Errorf("garbage N-value should be nil")
	}
}

func TestParse_StructuralFailures(t *testing.T) {
	if _, err := NewReportParser().Parse("   \n \n"); err != ErrEmptyReport {
		t.Errorf("empty report: got %v", err)
	}

	noStrata := "Borehole No: BH-1\nLocation: somewhere\n"
	if _, err := NewReportParser().Parse(noStrata); err != ErrNoStratumSection {
		t.Errorf("missing stratum section: got %v", err)
	}
}

func TestParse_UnclassifiedLinesBecomeRemarks(t *testing.T) {
	raw := `Borehole No: BH-1
this line matches nothing

Description of Soil Stratum

0.00 2.00 2.00 Soft clay
`
	report, err := NewReportParser().Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	found := false
	for _, r := range report.Remarks {
		if r == "this line matches nothing" {
			found = true
		}
	}
	if !found {
		t.Errorf("unclassified line was dropped, remarks: %v", report.Remarks)
	}
}
