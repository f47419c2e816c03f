package attendance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
)

type rowsStub struct {
	rows [][]string
	err  error
}

func (s rowsStub) Rows(context.Context) ([][]string, error) { return s.rows, s.err }

func TestLoadRosterSkipsHeaderAndBlankNames(t *testing.T) {
	src := rowsStub{rows: [][]string{
		{"Nome", "Série", "Curso", "Número"},
		{" john smith ", "1A", "Informatics", "12"},
		{"", "1A", "Math", "03"},
		{"   ", "2B", "Math", "04"},
		{"Maria", " 2B ", "Edificações"},
	}}

	roster, err := LoadRoster(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, roster.Len())
	assert.Equal(t, []string{"JOHN SMITH", "MARIA"}, roster.Names())

	rec, ok := roster.Lookup("JOHN SMITH")
	require.True(t, ok)
	assert.Equal(t, models.StudentRecord{Name: "JOHN SMITH", Grade: "1A", Track: "Informatics", RollNumber: "12"}, rec)

	rec, ok = roster.Lookup("MARIA")
	require.True(t, ok)
	assert.Equal(t, "2B", rec.Grade)
	assert.Empty(t, rec.RollNumber)
}

func TestLoadRosterLaterDuplicateOverwrites(t *testing.T) {
	src := rowsStub{rows: [][]string{
		{"Nome", "Série", "Curso", "Número"},
		{"Ana", "1A", "Math", "01"},
		{"ANA ", "3C", "Física", "09"},
	}}

	roster, err := LoadRoster(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, 1, roster.Len())
	rec, _ := roster.Lookup("ANA")
	assert.Equal(t, "3C", rec.Grade)
	assert.Equal(t, "09", rec.RollNumber)
}

func TestLoadRosterFailureLeavesEmptyStore(t *testing.T) {
	roster, err := LoadRoster(context.Background(), rowsStub{err: errors.New("open alunos.xlsx: no such file")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrRosterLoad))
	require.NotNil(t, roster)
	assert.Zero(t, roster.Len())
	assert.Empty(t, roster.Names())
}

func TestLoadRosterHeaderOnly(t *testing.T) {
	roster, err := LoadRoster(context.Background(), rowsStub{rows: [][]string{{"Nome"}}})
	require.NoError(t, err)
	assert.Zero(t, roster.Len())

	roster, err = LoadRoster(context.Background(), rowsStub{})
	require.NoError(t, err)
	assert.Zero(t, roster.Len())
}

func TestNormalizeNameComposesAccents(t *testing.T) {
	decomposed := "jose\u0301 silva"
	assert.Equal(t, "JOSÉ SILVA", NormalizeName(decomposed))
	assert.Equal(t, NormalizeName("José Silva "), NormalizeName(decomposed))
}
