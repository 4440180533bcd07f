package site

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmezas/control-obras/internal/models"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(Config{
		Dir: dir,
		Names: map[string]string{
			"rinconada":  "La Rinconada – La Molina",
			"pachacutec": "Ciudad Pachacútec – Ventanilla",
		},
		Budgets:       map[string]float64{"pachacutec": 99524.0},
		DefaultBudget: 50000.0,
	}, zap.NewNop())
	require.NoError(t, err)
	return s, dir
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func expense(fecha, tipo, detalle, monto string) models.ExpenseEntry {
	return models.ExpenseEntry{
		Fecha: fecha, Responsable: "pasante-rinconada",
		Tipo: tipo, Detalle: detalle, Monto: models.NewMoney(dec(monto)),
	}
}

func TestLoadCreatesDefaultDocument(t *testing.T) {
	s, dir := newTestStore(t)

	doc, err := s.Load("rinconada")
	require.NoError(t, err)
	assert.Equal(t, "La Rinconada – La Molina", doc.Info)
	assert.Empty(t, doc.Avance)
	assert.Empty(t, doc.Gastos)
	assert.True(t, doc.PresupuestoTotal.Equal(dec("50000")), "default budget applies")
	assert.True(t, doc.GastoAcumulado.IsZero())

	// persisted immediately
	_, err = os.Stat(filepath.Join(dir, "rinconada.json"))
	assert.NoError(t, err)
}

func TestLoadAppliesBudgetOverride(t *testing.T) {
	s, _ := newTestStore(t)

	doc, err := s.Load("pachacutec")
	require.NoError(t, err)
	assert.True(t, doc.PresupuestoTotal.Equal(dec("99524")))
}

func TestCumulativeSpendTracksAppends(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.AppendExpenses("rinconada", []models.ExpenseEntry{
		expense("2025-03-01", "Materiales", "cemento", "1200.50"),
		expense("2025-03-01", "Transporte", "flete", "300"),
	})
	require.NoError(t, err)

	// interleave a progress entry; it must not affect the spend
	_, err = s.AppendProgress("rinconada", models.ProgressEntry{
		Fecha: "2025-03-01", Responsable: "pasante-rinconada", Avance: 5, Obs: "vaciado de losa",
	})
	require.NoError(t, err)

	doc, err := s.AppendExpenses("rinconada", []models.ExpenseEntry{
		expense("2025-03-02", "Mano de obra", "cuadrilla", "499.50"),
	})
	require.NoError(t, err)
	assert.True(t, doc.GastoAcumulado.Equal(dec("2000")), "gasto_acumulado = %s", doc.GastoAcumulado)
}

func TestCorruptDocumentFallsBackToDefault(t *testing.T) {
	s, dir := newTestStore(t)

	path := filepath.Join(dir, "rinconada.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json at all"), 0644))

	doc, err := s.Load("rinconada")
	require.NoError(t, err)
	assert.Empty(t, doc.Avance)
	assert.Empty(t, doc.Gastos)
	assert.True(t, doc.PresupuestoTotal.Equal(dec("50000")))

	// the rewritten file must be valid again
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk models.SiteDocument
	require.NoError(t, json.Unmarshal(data, &onDisk))
}

func TestLoadHealsCumulativeSpend(t *testing.T) {
	s, dir := newTestStore(t)

	// gasto_acumulado on disk disagrees with the entries, and one amount is garbage
	raw := `{
  "info": "La Rinconada – La Molina",
  "avance": [],
  "presupuesto_total": 50000,
  "gastos": [
    {"fecha": "2025-03-01", "responsable": "x", "tipo": "Materiales", "detalle": "arena", "monto": 120.25},
    {"fecha": "2025-03-01", "responsable": "x", "tipo": "Otros", "detalle": "??", "monto": "oops"},
    {"fecha": "2025-03-02", "responsable": "x", "tipo": "Transporte", "detalle": "flete", "monto": "79.75"}
  ],
  "gasto_acumulado": 99999
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rinconada.json"), []byte(raw), 0644))

	doc, err := s.Load("rinconada")
	require.NoError(t, err)
	require.Len(t, doc.Gastos, 3, "entries survive, bad amount loads as zero")
	assert.True(t, doc.GastoAcumulado.Equal(dec("200")), "gasto_acumulado = %s", doc.GastoAcumulado)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	entries := []models.ExpenseEntry{
		expense("2025-03-01", "Materiales", "cemento", "100"),
		expense("2025-03-02", "Transporte", "flete", "50.25"),
		expense("2025-03-03", "Otros", "varios", "9.75"),
	}
	_, err := s.AppendExpenses("rinconada", entries)
	require.NoError(t, err)
	_, err = s.AppendProgress("rinconada", models.ProgressEntry{
		Fecha: "2025-03-03", Responsable: "pasante-rinconada", Avance: 12,
		Obs: "encofrado segundo nivel", Fotos: []string{"fotos/rinconada_2025-03-03_1.jpg"},
	})
	require.NoError(t, err)

	doc, err := s.Load("rinconada")
	require.NoError(t, err)

	require.Len(t, doc.Gastos, 3)
	for i, e := range entries {
		assert.Equal(t, e.Fecha, doc.Gastos[i].Fecha, "order preserved")
		assert.Equal(t, e.Detalle, doc.Gastos[i].Detalle)
		assert.True(t, doc.Gastos[i].Monto.Equal(e.Monto.Decimal))
	}
	require.Len(t, doc.Avance, 1)
	assert.Equal(t, []string{"fotos/rinconada_2025-03-03_1.jpg"}, doc.Avance[0].Fotos)
	assert.True(t, doc.GastoAcumulado.Equal(dec("160")))
}

func TestUnregisteredSiteUsesIDAsName(t *testing.T) {
	s, _ := newTestStore(t)
	doc, err := s.Load("improvisada")
	require.NoError(t, err)
	assert.Equal(t, "improvisada", doc.Info)
}
