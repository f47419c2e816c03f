package export

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func absenceDataset() Dataset {
	headers := []string{"Nome", "Série", "Curso", "Número da Chamada"}
	return Dataset{
		Headers: headers,
		Rows: []map[string]string{
			{"Nome": "MARIA SOUZA", "Série": "1A", "Curso": "Informática", "Número da Chamada": "07"},
			{"Nome": "SILVA, ANA", "Série": "2B", "Curso": "Edificações", "Número da Chamada": "15"},
		},
	}
}

func TestCSVExporterGolden(t *testing.T) {
	data, err := NewCSVExporter().Render(absenceDataset(), "")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "absences_csv", data)
}

func TestXLSXExporterWritesHeaderFirst(t *testing.T) {
	data, err := NewXLSXExporter().Render(absenceDataset(), "Lista de Faltas")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Nome", "Série", "Curso", "Número da Chamada"}, rows[0])
	assert.Equal(t, []string{"MARIA SOUZA", "1A", "Informática", "07"}, rows[1])
}

func TestPDFExporterRenders(t *testing.T) {
	data, err := NewPDFExporter().Render(absenceDataset(), "Lista de Faltas")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestExportersRequireHeaders(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatXLSX, FormatPDF} {
		renderer, err := RendererFor(format)
		require.NoError(t, err)
		_, err = renderer.Render(Dataset{}, "")
		assert.Error(t, err, string(format))
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("ods")
	assert.Error(t, err)
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
}

func TestPDFExporterPaginatesLongLists(t *testing.T) {
	data := absenceDataset()
	for i := 0; i < 120; i++ {
		data.Rows = append(data.Rows, map[string]string{"Nome": fmt.Sprintf("ALUNO %03d", i), "Série": "3C"})
	}
	out, err := NewPDFExporter().Render(data, "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bytes.Count(out, []byte("/Type /Page\n")), 3)
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(absenceDataset().Records(), 190)
	total := 0.0
	for _, w := range widths {
		total += w
	}
	assert.InDelta(t, 190, total, 0.001)
	assert.Greater(t, widths[0], widths[1])
}
