package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
)

func loadRoster(t *testing.T, rows ...[]string) *Roster {
	t.Helper()
	all := append([][]string{{"Nome", "Série", "Curso", "Número da Chamada"}}, rows...)
	roster, err := LoadRoster(context.Background(), rowsStub{rows: all})
	require.NoError(t, err)
	return roster
}

func TestReconcileReturnsMissingStudents(t *testing.T) {
	roster := loadRoster(t,
		[]string{"A", "1A", "Math", "01"},
		[]string{"B", "1B", "Física", "02"},
		[]string{"C", "1C", "Química", "03"},
	)

	report := Reconcile(roster, NewNameSet("A"))
	assert.ElementsMatch(t, []models.StudentRecord{
		{Name: "B", Grade: "1B", Track: "Física", RollNumber: "02"},
		{Name: "C", Grade: "1C", Track: "Química", RollNumber: "03"},
	}, report.Absent)
	assert.Equal(t, 3, report.RosterSize)
	assert.Equal(t, 1, report.PresentCount)
}

func TestReconcileFullAttendance(t *testing.T) {
	roster := loadRoster(t, []string{"A", "1A", "Math", "01"}, []string{"B", "1B", "Math", "02"})

	report := Reconcile(roster, NewNameSet("A", "B"))
	assert.Empty(t, report.Absent)
}

func TestReconcileIgnoresStrangers(t *testing.T) {
	roster := loadRoster(t, []string{"A", "1A", "Math", "01"})

	report := Reconcile(roster, NewNameSet("VISITOR"))
	require.Len(t, report.Absent, 1)
	assert.Equal(t, "A", report.Absent[0].Name)
}

func TestReconcilePreservesFieldsByteForByte(t *testing.T) {
	roster := loadRoster(t, []string{"Zoë", " 2º B ", "Téc. Informática ", "007"})

	report := Reconcile(roster, NameSet{})
	require.Len(t, report.Absent, 1)
	rec := report.Absent[0]
	assert.Equal(t, "2º B", rec.Grade)
	assert.Equal(t, "Téc. Informática", rec.Track)
	assert.Equal(t, "007", rec.RollNumber)
}

type brokenView struct{}

func (brokenView) Names() []string { return []string{"GHOST"} }

func (brokenView) Lookup(string) (models.StudentRecord, bool) { return models.StudentRecord{}, false }

func TestReconcileLookupMissYieldsEmptyFields(t *testing.T) {
	report := Reconcile(brokenView{}, NameSet{})
	assert.Equal(t, []models.StudentRecord{{Name: "GHOST"}}, report.Absent)
}

func TestPresentFromRows(t *testing.T) {
	set := PresentFromRows([][]string{
		{"Data e Hora", "Nome", "Série", "Curso", "Número da Chamada"},
		{"2024-03-04 07:30:00", "ANA", "1A", "Math", "01"},
		{"2024-03-04 07:31:00", "ana ", "1A", "Math", "01"},
		{"2024-03-04 07:32:00"},
	})
	assert.Equal(t, NewNameSet("ANA"), set)
}

func TestScanThenReconcileEndToEnd(t *testing.T) {
	roster := loadRoster(t,
		[]string{"JOHN SMITH", "1A", "Informatics", "12"},
		[]string{"MARY JONES", "1A", "Informatics", "13"},
	)
	parser := NewPayloadParser(false, nil)
	sink := &sinkStub{}
	ledger := NewLedger("s", sink, false)

	id, err := parser.Parse("Nome: John Smith\nSérie: 1A\nCurso: Informatics\nNúmero: 12")
	require.NoError(t, err)
	_, err = ledger.RecordPresence(context.Background(), id, time.Now())
	require.NoError(t, err)

	_, err = parser.Parse("Nome: Mary Jones")
	require.Error(t, err)

	assert.Equal(t, NewNameSet("JOHN SMITH"), ledger.PresentNames())
	report := Reconcile(roster, ledger.PresentNames())
	require.Len(t, report.Absent, 1)
	assert.Equal(t, "MARY JONES", report.Absent[0].Name)
	assert.Len(t, sink.rows(), 1)
}

func TestPresentFromEvents(t *testing.T) {
	set := PresentFromEvents([]models.PresenceEvent{
		{Name: "JOHN SMITH"},
		{Name: " john smith", Duplicate: true},
		{Name: "  "},
		{Name: "Maria Souza"},
	})
	assert.Len(t, set, 2)
	assert.True(t, set.Has("JOHN SMITH"))
	assert.True(t, set.Has("MARIA SOUZA"))
}
