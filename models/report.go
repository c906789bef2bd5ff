package models

// Parsed report structures produced by the borelog report parser. These are
// the canonical in-memory shape of one uploaded field report before it is
// approved and materialized. Pointer fields mean "not present in the report",
// never zero — derivation only fills fields that are nil.

// ParsedSample is one tested/sampled point inside a stratum layer (SPT test,
// core run, disturbed/undisturbed sample) as read from the field report.
type ParsedSample struct {
	SampleID   string `json:"sample_id,omitempty"`
	SampleType string `json:"sample_type,omitempty"` // D, UD, SPT, CR ...

	// Depth of the sample. Either a single depth or a range; when neither is
	// given the mode is resolved later from the enclosing layer.
	DepthMode string   `json:"depth_mode,omitempty"` // single, range or empty
	Depth     *float64 `json:"depth_m,omitempty"`
	DepthFrom *float64 `json:"depth_from_m,omitempty"`
	DepthTo   *float64 `json:"depth_to_m,omitempty"`

	// SPT readings. SPTBlows keeps the raw "12/18/22" string for audit.
	SPTBlows string   `json:"spt_blows,omitempty"`
	Blows1   *float64 `json:"blows_1,omitempty"`
	Blows2   *float64 `json:"blows_2,omitempty"`
	Blows3   *float64 `json:"blows_3,omitempty"`
	NValue   *float64 `json:"n_value,omitempty"`

	// Core run readings. Lengths are field units: run length in metres,
	// core/RQD lengths in centimetres.
	RunLength       *float64 `json:"run_length_m,omitempty"`
	TotalCoreLength *float64 `json:"total_core_length_cm,omitempty"`
	RQDLength       *float64 `json:"rqd_length_cm,omitempty"`
	TCRPercent      *float64 `json:"tcr_percent,omitempty"`
	RQDPercent      *float64 `json:"rqd_percent,omitempty"`

	ColourOfReturnWater string `json:"colour_of_return_water,omitempty"`
	WaterLoss           string `json:"water_loss,omitempty"`
	DiameterOfBorehole  string `json:"diameter_of_borehole,omitempty"`
	Remarks             string `json:"remarks,omitempty"`

	// Soft findings from derivation (unresolved depth mode, out-of-range
	// percentages). Populated only on derived copies, never on the parsed
	// payload as stored.
	ReviewFlags []string `json:"review_flags,omitempty"`
}

// ParsedLayer is one depth interval of the soil/rock description.
type ParsedLayer struct {
	DepthFrom   *float64 `json:"depth_from_m,omitempty"`
	DepthTo     *float64 `json:"depth_to_m,omitempty"`
	Thickness   *float64 `json:"thickness_m,omitempty"`
	Description string   `json:"description,omitempty"`

	Samples []ParsedSample `json:"samples,omitempty"`

	// Inline carries flat sample readings recorded directly on the stratum
	// row itself (spreadsheet exports put SPT/core columns on the range row).
	// When Samples is empty and Inline has data, materialization synthesizes
	// exactly one sample point from it.
	Inline *ParsedSample `json:"inline_sample,omitempty"`
}

// CoreQuality is the report-level recovery summary from the trailer section,
// distinct from the per-sample percentages.
type CoreQuality struct {
	TCRPercent *float64 `json:"tcr_percent,omitempty"`
	RQDPercent *float64 `json:"rqd_percent,omitempty"`
}

// ParsedBorelogReport is the full structured form of one uploaded report.
type ParsedBorelogReport struct {
	Header      map[string]string `json:"header"`
	Layers      []ParsedLayer     `json:"layers"`
	Remarks     []string          `json:"remarks,omitempty"`
	CoreQuality CoreQuality       `json:"core_quality"`
}

// HeaderValue looks up a header field by its normalized key.
func (r *ParsedBorelogReport) HeaderValue(key string) string {
	if r.Header == nil {
		return ""
	}
	return r.Header[key]
}
