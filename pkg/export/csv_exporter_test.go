package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()

	dataset := Dataset{Headers: []string{"Student", "Grade"}}
	dataset.Append(map[string]string{"Student": "student1", "Grade": "A"})
	dataset.Append(map[string]string{"Student": "student2"})

	payload, err := exporter.Render(dataset)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Student,Grade", lines[0])
	assert.Equal(t, "student1,A", lines[1])
	assert.Equal(t, "student2,", lines[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Student", "Grade"},
		Rows:    []map[string]string{{"Student": "student1", "Grade": "A"}},
	}, "Homework Submissions")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}
