package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"p9e.in/geolog/config"
	"p9e.in/geolog/models"
	"p9e.in/geolog/utils"
)

// ExportBorelogVersionToExcel renders one borelog version as a downloadable
// .xlsx workbook: header block, then one row per sample point grouped under
// its stratum layer.
func ExportBorelogVersionToExcel(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	borelogID, err := uuid.Parse(vars["borelogId"])
	if err != nil {
		http.Error(w, "invalid borelog id", http.StatusBadRequest)
		return
	}
	versionNo, err := strconv.Atoi(vars["versionNo"])
	if err != nil || versionNo < 1 {
		http.Error(w, "invalid version number", http.StatusBadRequest)
		return
	}

	view, err := loadBorelogVersion(borelogID, versionNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "version not found", http.StatusNotFound)
		} else {
			http.Error(w, "failed to load version: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	var borelog models.Borelog
	if err := config.DB.Preload("Borehole").First(&borelog, "id = ?", borelogID).Error; err != nil {
		http.Error(w, "borelog not found", http.StatusNotFound)
		return
	}

	excelFile, err := createBorelogWorkbook(&borelog, view)
	if err != nil {
		http.Error(w, "Failed to generate Excel file", http.StatusInternalServerError)
		return
	}

	buffer, err := excelFile.WriteToBuffer()
	if err != nil {
		http.Error(w, "Failed to write Excel file", http.StatusInternalServerError)
		return
	}

	boreholeNumber := "borelog"
	if borelog.Borehole != nil {
		boreholeNumber = borelog.Borehole.BoreholeNumber
	}
	filename := fmt.Sprintf("%s_v%d_%s.xlsx", sanitizeFilename(boreholeNumber), versionNo, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buffer.Len()))

	w.WriteHeader(http.StatusOK)
	w.Write(buffer.Bytes())
}

// ExportProjectBoreholesToCSV lists a project's boreholes with their
// coordinates as a CSV download.
func ExportProjectBoreholesToCSV(w http.ResponseWriter, r *http.Request) {
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

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Write([]string{"Borehole Number", "Location", "Latitude", "Longitude", "Created At"})
	for _, bh := range boreholes {
		writer.Write([]string{
			bh.BoreholeNumber,
			bh.Location,
			formatOptionalFloat(bh.Latitude),
			formatOptionalFloat(bh.Longitude),
			bh.CreatedAt.Format("2006-01-02"),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		http.Error(w, "Failed to generate CSV file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("boreholes_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))

	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// exportHeader is the header subset shared by draft and finalized snapshots.
type exportHeader struct {
	CommencementDate   *models.ReportDate
	CompletionDate     *models.ReportDate
	MethodOfBoring     string
	DiameterOfBorehole string
	StandingWaterLevel *float64
	TerminationDepth   *float64
	TCRPercent         *float64
	RQDPercent         *float64
}

func headerOf(details interface{}) exportHeader {
	switch d := details.(type) {
	case models.BorelogDetails:
		return exportHeader{d.CommencementDate, d.CompletionDate, d.MethodOfBoring, d.DiameterOfBorehole, d.StandingWaterLevel, d.TerminationDepth, d.TCRPercent, d.RQDPercent}
	case models.BorelogDraft:
		return exportHeader{d.CommencementDate, d.CompletionDate, d.MethodOfBoring, d.DiameterOfBorehole, d.StandingWaterLevel, d.TerminationDepth, d.TCRPercent, d.RQDPercent}
	}
	return exportHeader{}
}

// createBorelogWorkbook generates the Excel file for one borelog version.
func createBorelogWorkbook(borelog *models.Borelog, view *borelogVersionView) (*excelize.File, error) {
	f := excelize.NewFile()
	sheetName := "Borelog"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 16,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "center",
		},
	})
	title := fmt.Sprintf("Borelog Version %d (%s)", view.VersionNo, view.Stage)
	if borelog.Borehole != nil {
		title = fmt.Sprintf("Borehole %s — Version %d (%s)", borelog.Borehole.BoreholeNumber, view.VersionNo, view.Stage)
	}
	f.SetCellValue(sheetName, "A1", title)
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetRowHeight(sheetName, 1, 30)

	f.SetCellValue(sheetName, "A2", fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05")))

	header := headerOf(view.Details)
	headerRows := [][2]string{
		{"Method of Boring", header.MethodOfBoring},
		{"Diameter of Borehole", header.DiameterOfBorehole},
		{"Commencement Date", formatReportDate(header.CommencementDate)},
		{"Completion Date", formatReportDate(header.CompletionDate)},
		{"Standing Water Level (m)", formatOptionalFloat(header.StandingWaterLevel)},
		{"Termination Depth (m)", formatOptionalFloat(header.TerminationDepth)},
		{"TCR %", formatOptionalFloat(header.TCRPercent)},
		{"RQD %", formatOptionalFloat(header.RQDPercent)},
	}
	row := 4
	for _, hr := range headerRows {
		if hr[1] == "" {
			continue
		}
		keyCell, _ := excelize.CoordinatesToCellName(1, row)
		valueCell, _ := excelize.CoordinatesToCellName(2, row)
		f.SetCellValue(sheetName, keyCell, hr[0])
		f.SetCellValue(sheetName, valueCell, hr[1])
		row++
	}
	row += 2

	columnHeaders := []string{
		"Layer", "Depth From (m)", "Depth To (m)", "Thickness (m)", "Description",
		"Sample ID", "Sample Type", "Depth (m)", "Run Length (m)",
		"SPT Blows", "N Value", "Core Length (cm)", "RQD Length (cm)",
		"TCR %", "RQD %", "Review Flags",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#4472C4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for colIdx, label := range columnHeaders {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
		f.SetCellValue(sheetName, cell, label)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		f.SetColWidth(sheetName, columnIndexToLetter(colIdx+1), columnIndexToLetter(colIdx+1), 16)
	}
	row++

	dataStyle, _ := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "CCCCCC", Style: 1},
			{Type: "right", Color: "CCCCCC", Style: 1},
			{Type: "top", Color: "CCCCCC", Style: 1},
			{Type: "bottom", Color: "CCCCCC", Style: 1},
		},
	})

	writeCell := func(col, row int, value interface{}) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		f.SetCellValue(sheetName, cell, value)
		f.SetCellStyle(sheetName, cell, cell, dataStyle)
	}

	for _, layer := range view.Layers {
		samples := layer.Samples
		if len(samples) == 0 {
			samples = []models.SamplePoint{{}}
		}
		for _, sp := range samples {
			writeCell(1, row, layer.LayerOrder)
			writeCell(2, row, layer.DepthFromM)
			writeCell(3, row, layer.DepthToM)
			writeCell(4, row, layer.ThicknessM)
			writeCell(5, row, layer.Description)
			writeCell(6, row, sp.FieldSampleID)
			writeCell(7, row, sp.SampleType)
			writeCell(8, row, formatSampleDepth(&sp))
			writeCell(9, row, formatOptionalFloat(sp.RunLengthM))
			writeCell(10, row, sp.SPTBlows)
			writeCell(11, row, formatOptionalFloat(sp.NValue))
			writeCell(12, row, formatOptionalFloat(sp.TotalCoreLengthCm))
			writeCell(13, row, formatOptionalFloat(sp.RQDLengthCm))
			writeCell(14, row, formatOptionalFloat(sp.TCRPercent))
			writeCell(15, row, formatOptionalFloat(sp.RQDPercent))
			writeCell(16, row, joinFlags(sp.ReviewFlags))
			row++
		}
	}

	f.DeleteSheet("Sheet1")

	return f, nil
}

// formatSampleDepth prints a sample depth as a single value or a range,
// depending on how the depth was recorded.
func formatSampleDepth(sp *models.SamplePoint) string {
	switch sp.DepthMode {
	case utils.DepthModeSingle:
		return formatOptionalFloat(sp.DepthM)
	case utils.DepthModeRange:
		return fmt.Sprintf("%s - %s", formatOptionalFloat(sp.DepthFromM), formatOptionalFloat(sp.DepthToM))
	}
	if sp.DepthM != nil {
		return formatOptionalFloat(sp.DepthM)
	}
	return ""
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatReportDate(d *models.ReportDate) string {
	if d == nil {
		return ""
	}
	return time.Time(*d).Format("02.01.2006")
}

func joinFlags(flags []string) string {
	out := ""
	for i, fl := range flags {
		if i > 0 {
			out += "; "
		}
		out += fl
	}
	return out
}

// Helper functions

func sanitizeFilename(filename string) string {
	replacements := map[rune]rune{
		'/':  '_',
		'\\': '_',
		':':  '_',
		'*':  '_',
		'?':  '_',
		'"':  '_',
		'<':  '_',
		'>':  '_',
		'|':  '_',
		' ':  '_',
	}

	result := []rune{}
	for _, char := range filename {
		if replacement, exists := replacements[char]; exists {
			result = append(result, replacement)
		} else {
			result = append(result, char)
		}
	}

	return string(result)
}

func columnIndexToLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+(col%26))) + result
		col /= 26
	}
	return result
}
