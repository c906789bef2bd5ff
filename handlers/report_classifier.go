package handlers

import (
	"strings"

	"p9e.in/geolog/utils"
)

// Line kinds produced by the report line classifier.
type LineKind string

const (
	LineBlank           LineKind = "blank"
	LineHeaderField     LineKind = "header_field"
	LineStratumRange    LineKind = "stratum_range"
	LineSampleAttribute LineKind = "sample_attribute"
	LineSectionMarker   LineKind = "section_marker"
	LineUnclassified    LineKind = "unclassified"
)

// Section markers recognized in the fixed report template.
const (
	MarkerStratumSection   = "description of soil stratum"
	MarkerCoreQuality      = "core quality summary"
	MarkerSampleReceived   = "sample received"
	MarkerSampleNotReceived = "sample not received"
)

// ClassifiedLine is one tagged line of a raw report.
type ClassifiedLine struct {
	Kind LineKind
	Raw  string

	// Key/Value for header fields and sample attributes. Keys are normalized
	// to snake_case ("Borehole No" -> "borehole_no", "TCR %" -> "tcr_percent").
	Key   string
	Value string

	// Marker is the canonical marker string for section markers.
	Marker string

	// Stratum range fields. Thickness may be nil when the line carries only
	// the two depths.
	DepthFrom   *float64
	DepthTo     *float64
	Thickness   *float64
	Description string
}

// sampleAttributeKeys maps normalized keys that belong to a sample record
// rather than to the report header.
var sampleAttributeKeys = map[string]bool{
	"sample_id":              true,
	"sample_type":            true,
	"depth":                  true,
	"depth_from":             true,
	"depth_to":               true,
	"spt_blows":              true,
	"n_value":                true,
	"colour_of_return_water": true,
	"water_loss":             true,
	"diameter_of_borehole":   true,
	"run_length":             true,
	"total_core_length":      true,
	"tcr_percent":            true,
	"rqd_length":             true,
	"rqd_percent":            true,
}

// keyAliases folds the spellings field loggers actually use onto the
// canonical keys.
var keyAliases = map[string]string{
	"n-value":       "n_value",
	"n":             "n_value",
	"tcr":           "tcr_percent",
	"tcr_%":         "tcr_percent",
	"overall_tcr_%": "tcr_percent",
	"rqd":           "rqd_percent",
	"rqd_%":         "rqd_percent",
	"overall_rqd_%": "rqd_percent",
	"colour_of_water": "colour_of_return_water",
	"borehole_number": "borehole_no",
}

var sectionMarkers = []string{
	MarkerStratumSection,
	MarkerCoreQuality,
	MarkerSampleNotReceived,
	MarkerSampleReceived,
}

// NormalizeKey lowercases a field key and folds it to its canonical
// snake_case form.
func NormalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	k = strings.TrimSuffix(k, ":")
	// strip unit hints like "(m)" or "(cm)"
	if i := strings.Index(k, "("); i > 0 {
		k = strings.TrimSpace(k[:i])
	}
	k = strings.Join(strings.Fields(k), "_")
	k = strings.ReplaceAll(k, ".", "")
	if alias, ok := keyAliases[k]; ok {
		return alias
	}
	return k
}

// ClassifyLine tags one raw line. Classification never fails: a line that
// matches nothing is Unclassified and surfaces later as a remark, it is not
// dropped.
func ClassifyLine(raw string) ClassifiedLine {
	line := strings.TrimSpace(raw)
	if line == "" {
		return ClassifiedLine{Kind: LineBlank, Raw: raw}
	}

	lower := strings.ToLower(line)
	for _, marker := range sectionMarkers {
		if strings.HasPrefix(lower, marker) {
			return ClassifiedLine{Kind: LineSectionMarker, Raw: raw, Marker: marker}
		}
	}

	if cl, ok := classifyStratumRange(line); ok {
		cl.Raw = raw
		return cl
	}

	if key, value, ok := strings.Cut(line, ":"); ok {
		norm := NormalizeKey(key)
		if norm != "" {
			cl := ClassifiedLine{Raw: raw, Key: norm, Value: strings.TrimSpace(value)}
			if sampleAttributeKeys[norm] {
				cl.Kind = LineSampleAttribute
			} else {
				cl.Kind = LineHeaderField
			}
			return cl
		}
	}

	return ClassifiedLine{Kind: LineUnclassified, Raw: raw}
}

// classifyStratumRange matches lines that lead with two or three numeric
// tokens: "from to [thickness] description...".
func classifyStratumRange(line string) (ClassifiedLine, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ClassifiedLine{}, false
	}

	var nums []*float64
	i := 0
	for ; i < len(fields) && i < 3; i++ {
		v := utils.ParseFloat(fields[i])
		if v == nil {
			break
		}
		// a token like "2.30m" still ends the numeric run cleanly, but a
		// token with a colon is a key, not a depth
		if strings.Contains(fields[i], ":") {
			break
		}
		nums = append(nums, v)
	}
	if len(nums) < 2 {
		return ClassifiedLine{}, false
	}

	cl := ClassifiedLine{
		Kind:        LineStratumRange,
		DepthFrom:   nums[0],
		DepthTo:     nums[1],
		Description: strings.Join(fields[len(nums):], " "),
	}
	if len(nums) >= 3 {
		cl.Thickness = nums[2]
	}
	return cl, true
}
