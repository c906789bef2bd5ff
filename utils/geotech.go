package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"p9e.in/geolog/models"
)

// Derived geotechnical metrics. Pure functions, no I/O: the same code runs
// once at parse time for the reviewer preview and again, authoritatively, at
// materialization so persisted values always come from the approved data.
//
// Per field the fallback chain is explicit and ordered: first non-nil wins,
// a supplied value is never overwritten by a computed one.

// Depth modes for a sample point.
const (
	DepthModeSingle = "single"
	DepthModeRange  = "range"
)

// Round2 rounds to two decimals, the precision all derived metrics carry.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseFloat reads a numeric field value from a report. Unit suffixes
// ("40.45 m", "120 cm", "81%") are tolerated; placeholder garbage such as
// "#VALUE!", "-" or "N/A" yields nil rather than an error.
func ParseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// keep the leading numeric token only
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' {
			end++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseInt reads an integer count field, nil when unreadable.
func ParseInt(s string) *int {
	f := ParseFloat(s)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// ParseSPTBlows splits a raw blow-count string like "12/18/22" into the three
// per-150mm increments. Missing or unreadable increments are nil.
func ParseSPTBlows(raw string) (b1, b2, b3 *float64) {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '/' || r == ',' || r == '-'
	})
	out := make([]*float64, 3)
	for i := 0; i < len(parts) && i < 3; i++ {
		out[i] = ParseFloat(parts[i])
	}
	return out[0], out[1], out[2]
}

// ParseCoordinates reads a "lat, lon" header value, tolerating N/E suffixes
// as written by field loggers ("17.4065 N, 78.4772 E").
func ParseCoordinates(raw string) (lat, lon *float64) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil, nil
	}
	return ParseFloat(parts[0]), ParseFloat(parts[1])
}

// ResolveDepthMode decides how a sample's depth is expressed:
// an explicit single depth wins; otherwise the enclosing layer's range is
// adopted with run_length = round(to-from, 2); otherwise the mode stays
// unresolved, which is a soft review finding, not an error.
func ResolveDepthMode(s *models.ParsedSample, layer *models.ParsedLayer) {
	if s.Depth != nil {
		s.DepthMode = DepthModeSingle
		return
	}
	from, to := s.DepthFrom, s.DepthTo
	if from == nil || to == nil {
		if layer != nil {
			from, to = layer.DepthFrom, layer.DepthTo
		}
	}
	if from != nil && to != nil {
		s.DepthMode = DepthModeRange
		s.DepthFrom, s.DepthTo = from, to
		if s.RunLength == nil {
			rl := Round2(*to - *from)
			s.RunLength = &rl
		}
		return
	}
	s.DepthMode = ""
}

// ComputeNValue derives the SPT N-value. Chain: sum of the second and third
// blow increments (a missing one counts as 0 only when the other is present),
// then the explicitly supplied N-value, then nil.
func ComputeNValue(s *models.ParsedSample) *float64 {
	if s.Blows2 != nil || s.Blows3 != nil {
		var n float64
		if s.Blows2 != nil {
			n += *s.Blows2
		}
		if s.Blows3 != nil {
			n += *s.Blows3
		}
		return &n
	}
	if s.NValue != nil {
		return s.NValue
	}
	return nil
}

// ComputeCoreRecovery derives TCR% and RQD% from the recovered lengths (cm)
// normalized by the run length (m). Falls back to the explicitly supplied
// percentages. Results are intentionally not clamped to [0,100]: measurement
// error occasionally yields more, and the raw figure is preserved for review.
func ComputeCoreRecovery(s *models.ParsedSample, runLength *float64) (tcr, rqd *float64) {
	if runLength != nil && *runLength > 0 {
		if s.TotalCoreLength != nil {
			v := Round2((*s.TotalCoreLength / 100) / *runLength * 100)
			tcr = &v
		}
		if s.RQDLength != nil {
			v := Round2((*s.RQDLength / 100) / *runLength * 100)
			rqd = &v
		}
	}
	if tcr == nil {
		tcr = s.TCRPercent
	}
	if rqd == nil {
		rqd = s.RQDPercent
	}
	return tcr, rqd
}

// DeriveSampleMetrics fills every absent derived field of s in place and
// returns the soft review findings collected along the way.
func DeriveSampleMetrics(s *models.ParsedSample, layer *models.ParsedLayer) []string {
	var flags []string

	ResolveDepthMode(s, layer)
	if s.DepthMode == "" {
		flags = append(flags, "depth mode unresolved: no sample depth and incomplete layer range")
	}

	if s.NValue == nil {
		s.NValue = ComputeNValue(s)
	}

	// Fill-absent only, same direction as the N-value: a supplied percentage
	// is kept even when the raw lengths would compute a different one.
	tcr, rqd := ComputeCoreRecovery(s, s.RunLength)
	if s.TCRPercent == nil {
		s.TCRPercent = tcr
	}
	if s.RQDPercent == nil {
		s.RQDPercent = rqd
	}

	if s.TCRPercent != nil && (*s.TCRPercent < 0 || *s.TCRPercent > 100) {
		flags = append(flags, fmt.Sprintf("tcr_percent out of range: %.2f", *s.TCRPercent))
	}
	if s.RQDPercent != nil && (*s.RQDPercent < 0 || *s.RQDPercent > 100) {
		flags = append(flags, fmt.Sprintf("rqd_percent out of range: %.2f", *s.RQDPercent))
	}
	return flags
}

// DeriveReportMetrics runs the calculator across a parsed report for the
// reviewer preview. The original is not modified.
func DeriveReportMetrics(report *models.ParsedBorelogReport) *models.ParsedBorelogReport {
	out := *report
	out.Layers = make([]models.ParsedLayer, len(report.Layers))
	copy(out.Layers, report.Layers)

	for i := range out.Layers {
		layer := &out.Layers[i]
		if layer.Thickness == nil && layer.DepthFrom != nil && layer.DepthTo != nil {
			t := Round2(*layer.DepthTo - *layer.DepthFrom)
			layer.Thickness = &t
		}
		samples := make([]models.ParsedSample, len(layer.Samples))
		copy(samples, layer.Samples)
		for j := range samples {
			samples[j].ReviewFlags = DeriveSampleMetrics(&samples[j], layer)
		}
		layer.Samples = samples
	}
	return &out
}
