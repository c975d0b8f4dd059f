package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Requests",
		Headers: []string{"ID", "Title", "Status"},
		Rows: [][]string{
			{"1", "Observer training, phase 2", "Validated"},
			{"2", strings.Repeat("long title ", 30), "Closed"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("\ufeff")))
	lines := strings.Split(strings.TrimSpace(string(out[3:])), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "ID,Title,Status", lines[0])
	require.Equal(t, `1,"Observer training, phase 2",Validated`, lines[1])

	_, err = (&CSVExporter{}).Render(Dataset{Headers: []string{"a"}, Rows: [][]string{{"1", "2"}}})
	require.Error(t, err)
	_, err = NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	exporter.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC) }

	out, err := exporter.Render(sampleDataset(), []float64{1, 6, 2})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = exporter.Render(sampleDataset(), []float64{1, 2})
	require.Error(t, err)
	_, err = exporter.Render(Dataset{}, nil)
	require.Error(t, err)
}
