package handlers

import (
	"errors"
	"strings"

	"p9e.in/geolog/models"
	"p9e.in/geolog/utils"
)

// ReportParser turns the raw text of one field borehole report into its
// structured form. The parser is deliberately forgiving: unreadable numeric
// values become nil and stray lines become remarks. It fails only on
// structurally impossible input.
type ReportParser struct{}

// NewReportParser creates a new report parser instance
func NewReportParser() *ReportParser {
	return &ReportParser{}
}

var (
	ErrEmptyReport      = errors.New("report is empty")
	ErrNoStratumSection = errors.New("report has no soil stratum section")
)

type parserState int

const (
	stateHeader parserState = iota
	stateStratum
	stateTrailer
)

// parseAccum is the accumulator threaded through the line fold. The current
// layer and sample are only attached to the report when their boundary is
// seen, so a half-read layer never leaks into the output.
type parseAccum struct {
	report        *models.ParsedBorelogReport
	state         parserState
	currentLayer  *models.ParsedLayer
	currentSample *models.ParsedSample
	blankRun      int
}

// Parse converts one report into its structured form.
func (p *ReportParser) Parse(raw string) (*models.ParsedBorelogReport, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyReport
	}

	acc := &parseAccum{
		report: &models.ParsedBorelogReport{Header: map[string]string{}},
		state:  stateHeader,
	}

	sawStratumSection := false
	for _, rawLine := range strings.Split(raw, "\n") {
		line := ClassifyLine(rawLine)
		if line.Kind == LineSectionMarker && line.Marker == MarkerStratumSection {
			sawStratumSection = true
		}
		p.feed(acc, line)
	}
	acc.closeLayer()

	if !sawStratumSection || len(acc.report.Layers) == 0 {
		return nil, ErrNoStratumSection
	}
	return acc.report, nil
}

func (p *ReportParser) feed(acc *parseAccum, line ClassifiedLine) {
	if line.Kind == LineBlank {
		acc.blankRun++
		// two consecutive blanks inside the stratum block end the layer
		if acc.state == stateStratum && acc.blankRun >= 2 {
			acc.closeLayer()
		}
		return
	}
	acc.blankRun = 0

	switch acc.state {
	case stateHeader:
		p.feedHeader(acc, line)
	case stateStratum:
		p.feedStratum(acc, line)
	case stateTrailer:
		p.feedTrailer(acc, line)
	}
}

func (p *ReportParser) feedHeader(acc *parseAccum, line ClassifiedLine) {
	switch line.Kind {
	case LineSectionMarker:
		if line.Marker == MarkerStratumSection {
			acc.state = stateStratum
		}
	case LineHeaderField, LineSampleAttribute:
		// before the stratum section every keyed line is header metadata
		acc.report.Header[line.Key] = line.Value
	default:
		acc.addRemark(line.Raw)
	}
}

func (p *ReportParser) feedStratum(acc *parseAccum, line ClassifiedLine) {
	switch line.Kind {
	case LineStratumRange:
		acc.closeLayer()
		acc.currentLayer = &models.ParsedLayer{
			DepthFrom:   line.DepthFrom,
			DepthTo:     line.DepthTo,
			Thickness:   line.Thickness,
			Description: line.Description,
		}
	case LineSampleAttribute:
		if acc.currentLayer == nil {
			acc.addRemark(line.Raw)
			return
		}
		p.applySampleAttribute(acc, line)
	case LineSectionMarker:
		// core quality summary or sample receipt list: stratum block is done
		acc.closeLayer()
		acc.state = stateTrailer
		p.feedTrailer(acc, line)
	case LineHeaderField:
		// header fields reappearing (e.g. Termination Depth) end the block
		acc.closeLayer()
		acc.state = stateTrailer
		p.feedTrailer(acc, line)
	default:
		acc.addRemark(line.Raw)
	}
}

func (p *ReportParser) feedTrailer(acc *parseAccum, line ClassifiedLine) {
	switch line.Kind {
	case LineHeaderField:
		// late header fields fill gaps but never overwrite earlier values
		if _, exists := acc.report.Header[line.Key]; !exists {
			acc.report.Header[line.Key] = line.Value
		}
	case LineSampleAttribute:
		switch line.Key {
		case "tcr_percent":
			acc.report.CoreQuality.TCRPercent = utils.ParseFloat(line.Value)
		case "rqd_percent":
			acc.report.CoreQuality.RQDPercent = utils.ParseFloat(line.Value)
		default:
			acc.addRemark(line.Raw)
		}
	case LineSectionMarker:
		if line.Marker == MarkerSampleReceived || line.Marker == MarkerSampleNotReceived {
			acc.addRemark(line.Raw)
		}
	default:
		acc.addRemark(line.Raw)
	}
}

// applySampleAttribute attaches an attribute line to the current sample,
// opening a new sample on each "Sample ID" and on the first attribute of a
// layer.
func (p *ReportParser) applySampleAttribute(acc *parseAccum, line ClassifiedLine) {
	if line.Key == "sample_id" || acc.currentSample == nil {
		acc.closeSample()
		acc.currentSample = &models.ParsedSample{}
	}
	s := acc.currentSample

	switch line.Key {
	case "sample_id":
		s.SampleID = line.Value
	case "sample_type":
		s.SampleType = line.Value
	case "depth":
		from, to, ok := parseDepthRange(line.Value)
		if ok {
			s.DepthFrom, s.DepthTo = from, to
		} else {
			s.Depth = utils.ParseFloat(line.Value)
		}
	case "depth_from":
		s.DepthFrom = utils.ParseFloat(line.Value)
	case "depth_to":
		s.DepthTo = utils.ParseFloat(line.Value)
	case "spt_blows":
		s.SPTBlows = line.Value
		s.Blows1, s.Blows2, s.Blows3 = utils.ParseSPTBlows(line.Value)
	case "n_value":
		s.NValue = utils.ParseFloat(line.Value)
	case "run_length":
		s.RunLength = utils.ParseFloat(line.Value)
	case "total_core_length":
		s.TotalCoreLength = utils.ParseFloat(line.Value)
	case "rqd_length":
		s.RQDLength = utils.ParseFloat(line.Value)
	case "tcr_percent":
		s.TCRPercent = utils.ParseFloat(line.Value)
	case "rqd_percent":
		s.RQDPercent = utils.ParseFloat(line.Value)
	case "colour_of_return_water":
		s.ColourOfReturnWater = line.Value
	case "water_loss":
		s.WaterLoss = line.Value
	case "diameter_of_borehole":
		s.DiameterOfBorehole = line.Value
	}
}

// parseDepthRange reads "3.00 - 3.45" style values.
func parseDepthRange(v string) (from, to *float64, ok bool) {
	left, right, found := strings.Cut(v, "-")
	if !found {
		return nil, nil, false
	}
	from = utils.ParseFloat(left)
	to = utils.ParseFloat(right)
	if from == nil || to == nil {
		return nil, nil, false
	}
	return from, to, true
}

func (acc *parseAccum) closeSample() {
	if acc.currentSample == nil {
		return
	}
	acc.currentLayer.Samples = append(acc.currentLayer.Samples, *acc.currentSample)
	acc.currentSample = nil
}

func (acc *parseAccum) closeLayer() {
	if acc.currentLayer == nil {
		return
	}
	acc.closeSample()
	layer := *acc.currentLayer
	if layer.Thickness == nil && layer.DepthFrom != nil && layer.DepthTo != nil {
		t := utils.Round2(*layer.DepthTo - *layer.DepthFrom)
		layer.Thickness = &t
	}
	acc.report.Layers = append(acc.report.Layers, layer)
	acc.currentLayer = nil
}

func (acc *parseAccum) addRemark(raw string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}
	acc.report.Remarks = append(acc.report.Remarks, text)
}
