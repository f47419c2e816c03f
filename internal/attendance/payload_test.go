package attendance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
)

func TestParsePositionalPayload(t *testing.T) {
	parser := NewPayloadParser(false, nil)

	cases := []struct {
		name string
		raw  string
		want models.Identity
	}{
		{
			name: "badge layout",
			raw:  "Nome: John Smith\nSérie: 1A\nCurso: Informatics\nNúmero: 12",
			want: models.Identity{Name: "JOHN SMITH", Grade: "1A", Track: "Informatics", RollNumber: "12"},
		},
		{
			name: "padding and crlf",
			raw:  "Nome:   maria souza \r\nSérie:  2B\r\nCurso: Edificações \r\nNúmero: 07\r\n",
			want: models.Identity{Name: "MARIA SOUZA", Grade: "2B", Track: "Edificações", RollNumber: "07"},
		},
		{
			name: "value keeps later separators",
			raw:  "Nome: Ana\nSérie: 3C\nCurso: Técnico: Química\nNúmero: 1",
			want: models.Identity{Name: "ANA", Grade: "3C", Track: "Técnico: Química", RollNumber: "1"},
		},
		{
			name: "extra lines ignored",
			raw:  "Nome: Leo\nSérie: 1B\nCurso: Math\nNúmero: 5\nEscola: X",
			want: models.Identity{Name: "LEO", Grade: "1B", Track: "Math", RollNumber: "5"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parser.Parse(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRejectsShortPayload(t *testing.T) {
	parser := NewPayloadParser(false, nil)

	for _, raw := range []string{"", "Nome: Ana", "Nome: Ana\nSérie: 1A\nCurso: Math"} {
		_, err := parser.Parse(raw)
		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrPayloadInsufficient))
		assert.True(t, appErrors.IsParseError(err))
		assert.Contains(t, err.Error(), "insufficient data")
	}
}

func TestParseRejectsLineWithoutSeparator(t *testing.T) {
	parser := NewPayloadParser(false, nil)

	_, err := parser.Parse("Nome: Ana\nSérie 1A\nCurso: Math\nNúmero: 2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPayloadMalformed))
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseRejectsBlankName(t *testing.T) {
	parser := NewPayloadParser(false, nil)

	_, err := parser.Parse("Nome:  \nSérie: 1A\nCurso: Math\nNúmero: 2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPayloadInvalid))
}

func TestParseJSONPayload(t *testing.T) {
	parser := NewPayloadParser(true, nil)

	got, err := parser.Parse(`{"nome":" john smith","serie":"1A","curso":"Informatics","numero":12}`)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{Name: "JOHN SMITH", Grade: "1A", Track: "Informatics", RollNumber: "12"}, got)

	got, err = parser.Parse(`{"name":"Ana","grade":"2B","track":"Math","roll_number":"03"}`)
	require.NoError(t, err)
	assert.Equal(t, "03", got.RollNumber)

	_, err = parser.Parse(`{"grade":"2B"}`)
	assert.True(t, errors.Is(err, appErrors.ErrPayloadInvalid))

	_, err = parser.Parse(`{"name":`)
	assert.True(t, errors.Is(err, appErrors.ErrPayloadInvalid))
}

func TestParseJSONDisabledFallsBackToPositional(t *testing.T) {
	parser := NewPayloadParser(false, nil)

	_, err := parser.Parse(`{"name":"Ana"}`)
	assert.True(t, errors.Is(err, appErrors.ErrPayloadInsufficient))
}
