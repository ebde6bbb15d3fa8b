package export

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/oceanworks/desal_backend/internal/models"
)

// ExportService handles data export functionality
type ExportService struct{}

// NewExportService creates a new export service instance
func NewExportService() *ExportService {
	return &ExportService{}
}

// ExportMetadata contains information about the export
type ExportMetadata struct {
	GeneratedAt   time.Time `json:"generated_at"`
	DateRange     string    `json:"date_range"`
	TotalReadings int       `json:"total_readings"`
}

// GenerateExcel creates an Excel workbook with the exported readings
func (es *ExportService) GenerateExcel(readings []models.SensorReading, meta ExportMetadata) (*excelize.File, error) {
	f := excelize.NewFile()

	f.SetDocProps(&excelize.DocProperties{
		Category:    "Desalination Rig Monitoring",
		Created:     meta.GeneratedAt.Format(time.RFC3339),
		Creator:     "Desal Backend",
		Description: "Sensor reading history export",
		Modified:    meta.GeneratedAt.Format(time.RFC3339),
		Subject:     "Sensor Readings",
		Title:       "Desalination Rig Report",
	})

	es.createSummarySheet(f, readings, meta)
	es.createReadingsSheet(f, readings)

	f.SetActiveSheet(0)
	return f, nil
}

// createSummarySheet creates the summary overview sheet
func (es *ExportService) createSummarySheet(f *excelize.File, readings []models.SensorReading, meta ExportMetadata) {
	sheetName := "Summary"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2E75B6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", "Desalination Rig Sensor Report")
	f.MergeCell(sheetName, "A1", "C1")
	f.SetCellStyle(sheetName, "A1", "C1", headerStyle)
	f.SetRowHeight(sheetName, 1, 25)

	f.SetCellValue(sheetName, "A3", "Generated At:")
	f.SetCellValue(sheetName, "B3", meta.GeneratedAt.Format("2006-01-02 15:04:05"))
	f.SetCellValue(sheetName, "A4", "Date Range:")
	f.SetCellValue(sheetName, "B4", meta.DateRange)
	f.SetCellValue(sheetName, "A5", "Total Readings:")
	f.SetCellValue(sheetName, "B5", meta.TotalReadings)

	// Per-category counts
	counts := map[models.SensorType]int{}
	for _, r := range readings {
		counts[r.SensorType]++
	}

	f.SetCellValue(sheetName, "A7", "Readings per Category")
	f.SetCellStyle(sheetName, "A7", "A7", headerStyle)

	row := 8
	for _, sensorType := range []models.SensorType{
		models.SensorTypeHumidity, models.SensorTypeAirTemp,
		models.SensorTypeWaterTemp, models.SensorTypeWaterLevel,
	} {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), string(sensorType))
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), counts[sensorType])
		row++
	}

	f.SetColWidth(sheetName, "A", "A", 22)
	f.SetColWidth(sheetName, "B", "C", 15)
}

// createReadingsSheet creates the sensor readings sheet
func (es *ExportService) createReadingsSheet(f *excelize.File, readings []models.SensorReading) {
	sheetName := "Readings"
	f.NewSheet(sheetName)

	headers := []string{"Timestamp", "Sensor ID", "Category", "Value", "Unit", "Interval (s)"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"70AD47"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	f.SetCellStyle(sheetName, "A1", "F1", headerStyle)

	for i, reading := range readings {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), reading.Timestamp.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), reading.SensorID)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), string(reading.SensorType))
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), reading.Value)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), reading.Unit)
		if reading.IntervalSeconds != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), *reading.IntervalSeconds)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 20)
	f.SetColWidth(sheetName, "B", "F", 14)
}

// GenerateCSV creates CSV records for sensor readings
func (es *ExportService) GenerateCSV(readings []models.SensorReading) [][]string {
	records := [][]string{
		{"Timestamp", "Sensor ID", "Category", "Value", "Unit", "Interval (s)"},
	}

	for _, reading := range readings {
		interval := ""
		if reading.IntervalSeconds != nil {
			interval = strconv.Itoa(*reading.IntervalSeconds)
		}
		records = append(records, []string{
			reading.Timestamp.Format("2006-01-02 15:04:05"),
			reading.SensorID,
			string(reading.SensorType),
			strconv.FormatFloat(reading.Value, 'f', 2, 64),
			reading.Unit,
			interval,
		})
	}

	return records
}

// WriteCSV writes CSV data to a writer
func (es *ExportService) WriteCSV(w *csv.Writer, records [][]string) error {
	return w.WriteAll(records)
}
