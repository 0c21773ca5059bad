package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Timetable is the renderable form of an occupancy listing: rows ordered
// by start time, pre-formatted by the caller.
type Timetable struct {
	Title  string
	Period string
	Rows   []Row
}

// Row is one occupancy line of a timetable export.
type Row struct {
	Date      string
	Start     string
	End       string
	Subject   string
	Kind      string
	Teachers  string
	Classroom string
	Group     string
}

var columns = []string{"date", "start", "end", "subject", "kind", "teachers", "classroom", "group"}

func (r Row) values() []string {
	return []string{r.Date, r.Start, r.End, r.Subject, r.Kind, r.Teachers, r.Classroom, r.Group}
}

// CSVExporter renders a timetable into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the timetable.
func (e *CSVExporter) Render(t Timetable) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row.values()); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
