package render

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/balance-validator/internal/types"
)

func sample() *types.ValidationResult {
	return &types.ValidationResult{
		Summary: types.AuditSummary{
			Status:        types.StatusFlagged,
			Conclusion:    "Errores de suma en el Activo Corriente.",
			Confidence:    types.ConfidenceHigh,
			CompanyName:   "EMPRESA MODELO S.R.L.",
			TaxID:         "30-12345678-7",
			PeriodEndDate: "30/06/2024",
		},
		Items: []types.ChecklistItem{
			{ID: "3.1.I.b", Text: "PN = EEPN", CurrentStatus: types.CheckOK, PriorStatus: types.CheckOK},
			{ID: "2", Text: "Sumas", CurrentStatus: types.CheckError, PriorStatus: types.CheckOK, Notes: "diferencia de $1,000"},
			{ID: "6", Text: "Libros", CurrentStatus: types.CheckNotApplicable, PriorStatus: types.CheckNotApplicable},
		},
	}
}

func TestRenderer_Result(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf).Result("balance.pdf", sample()))
	out := buf.String()

	for _, want := range []string{
		"balance.pdf",
		"Observado",
		"Alto",
		"1 OK", "1 ERROR", "1 N/A",
		"EMPRESA MODELO S.R.L.",
		"30-12345678-7",
		"Errores de suma en el Activo Corriente.",
		"diferencia de $1,000",
	} {
		assert.Contains(t, out, want)
	}

	// Checklist rows keep the received order.
	assert.Less(t, strings.Index(out, "3.1.I.b"), strings.Index(out, "Sumas"))
	assert.Less(t, strings.Index(out, "Sumas"), strings.Index(out, "Libros"))
}

func TestRenderer_UnknownConfidenceShowsMedium(t *testing.T) {
	r := sample()
	r.Summary.Confidence = "Muy alto"

	var buf bytes.Buffer
	require.NoError(t, New(&buf).Result("", r))
	assert.Contains(t, buf.String(), "Medio")
	assert.NotContains(t, buf.String(), "Muy alto")
}

func TestRenderer_History(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(&buf).History(nil))
	assert.Contains(t, buf.String(), "No hay validaciones previas")

	created := time.Date(2024, 6, 30, 14, 5, 0, 0, time.Local)
	entries := []types.HistoryEntry{
		{ID: "1719748800000-aaaaaaaaa", FileName: "balance.pdf", Result: *sample(), CreatedAt: created},
	}
	buf.Reset()
	require.NoError(t, New(&buf).History(entries))
	out := buf.String()
	assert.Contains(t, out, "1 registro")
	assert.NotContains(t, out, "1 registros")
	assert.Contains(t, out, "1719748800000-aaaaaaaaa")
	assert.Contains(t, out, "30/06/2024, 14:05")
	assert.Contains(t, out, "Observado")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "áé…", truncate("áéíóú", 3))
}

func TestPaginate(t *testing.T) {
	items := make([]types.ChecklistItem, 23)
	for i := range items {
		items[i].ID = fmt.Sprintf("%d", i+1)
	}

	p := Paginate(items, 1, ItemsPerPage)
	assert.Len(t, p.Items, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 1, p.First)
	assert.Equal(t, 10, p.Last)
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())

	p = Paginate(items, 3, ItemsPerPage)
	assert.Len(t, p.Items, 3)
	assert.Equal(t, "21", p.Items[0].ID)
	assert.Equal(t, 21, p.First)
	assert.Equal(t, 23, p.Last)
	assert.False(t, p.HasNext())

	// Out-of-range pages are clamped.
	assert.Equal(t, 3, Paginate(items, 99, ItemsPerPage).Number)
	assert.Equal(t, 1, Paginate(items, -1, ItemsPerPage).Number)

	empty := Paginate(nil, 1, ItemsPerPage)
	assert.Equal(t, 1, empty.TotalPages)
	assert.Equal(t, 0, empty.First)
	assert.Empty(t, empty.Items)
}
