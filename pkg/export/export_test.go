package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Subject", "Time"},
		Rows: []map[string]string{
			{"Subject": "IT101 Programming", "Time": "08:00-09:30"},
			{"Subject": "GE1, Math", "Time": "10:00-11:00"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Subject,Time\nIT101 Programming,08:00-09:30\n\"GE1, Math\",10:00-11:00\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestCSVExporterOptions(t *testing.T) {
	data := Dataset{
		Headers: []string{"Room", "Note"},
		Rows:    []map[string]string{{"Room": "Sala Ñ", "Note": "=HYPERLINK(\"x\")"}},
	}
	out, err := NewCSVExporter(WithBOM(), WithDelimiter(';')).Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}))
	assert.Equal(t, "Room;Note\nSala Ñ;\"'=HYPERLINK(\"\"x\"\")\"\n", string(out[3:]))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), Document{Title: "BSIT 1-A", Subtitle: "1st Semester", Landscape: true})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().Render(Dataset{}, Document{})
	assert.Error(t, err)
}

func TestPDFExporterPaginates(t *testing.T) {
	data := Dataset{Headers: []string{"Subject", "Room"}}
	for i := 0; i < 120; i++ {
		data.Rows = append(data.Rows, map[string]string{"Subject": "IT101", "Room": "Lab 1"})
	}
	out, err := NewPDFExporter().Render(data, Document{Title: "Timetable"})
	require.NoError(t, err)
	pages := bytes.Count(out, []byte("/Type /Page")) - bytes.Count(out, []byte("/Type /Pages"))
	assert.GreaterOrEqual(t, pages, 3)
}

func TestColumnWidthsFollowContent(t *testing.T) {
	data := Dataset{
		Headers: []string{"Code", "Subject Name"},
		Rows:    []map[string]string{{"Code": "IT1", "Subject Name": "Introduction to Computing"}},
	}
	widths := columnWidths(data, 100)
	require.Len(t, widths, 2)
	assert.InDelta(t, 100, widths[0]+widths[1], 0.001)
	assert.Greater(t, widths[1], widths[0])
}
