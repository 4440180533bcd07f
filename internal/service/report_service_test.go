package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dmezas/control-obras/internal/auth"
	"github.com/dmezas/control-obras/internal/report"
	"github.com/dmezas/control-obras/internal/site"
	"github.com/dmezas/control-obras/internal/storage"
	"github.com/dmezas/control-obras/internal/upload"
)

const testDay = "2025-03-14"

func newTestService(t *testing.T) (*ReportService, *site.Store) {
	t.Helper()

	dir := t.TempDir()
	logger := zap.NewNop()

	sites, err := site.NewStore(site.Config{
		Dir:   filepath.Join(dir, "obras"),
		Names: map[string]string{"rinconada": "Obra Rinconada"},
	}, logger)
	require.NoError(t, err)

	blobs, err := storage.NewBlobStore(filepath.Join(dir, "fotos"), filepath.Join(dir, "comprobantes"), logger)
	require.NoError(t, err)

	svc := NewReportService(
		sites, blobs, report.NewComposer(logger),
		upload.NewGateway(upload.Config{}, logger),
		map[string]string{"rinconada": "Obra Rinconada"},
		func() string { return testDay },
		logger,
	)
	return svc, sites
}

func jefeInput() SubmitInput {
	return SubmitInput{
		Session:     auth.Session{User: "jefe", Role: auth.RoleJefe},
		SiteID:      "rinconada",
		Date:        testDay,
		Responsable: "Diego",
		AvancePct:   35,
	}
}

func TestSubmitStoresPhotosAndReferencesThem(t *testing.T) {
	svc, sites := newTestService(t)

	in := jefeInput()
	in.Fotos = []PhotoInput{
		{Name: "muro norte.jpg", Content: []byte("not a decodable image")},
		{Name: "zanja.jpg", Content: []byte("also not one")},
	}

	result, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)

	doc, err := sites.Load("rinconada")
	require.NoError(t, err)
	require.Len(t, doc.Avance, 1)
	require.Len(t, doc.Avance[0].Fotos, 2)
	for _, p := range doc.Avance[0].Fotos {
		_, statErr := os.Stat(p)
		assert.NoError(t, statErr, p)
	}

	// Undecodable photos degrade the PDF, never the submission.
	assert.Empty(t, result.UploadURL)
	assert.NotEmpty(t, result.UploadError)
}

func TestSubmitValidationPersistsNothing(t *testing.T) {
	svc, sites := newTestService(t)

	tests := []struct {
		name    string
		mutate  func(*SubmitInput)
		wantErr error
	}{
		{"unknown site", func(in *SubmitInput) { in.SiteID = "atlantis" }, ErrValidation},
		{"avance above 100", func(in *SubmitInput) { in.AvancePct = 120 }, ErrValidation},
		{"missing responsable", func(in *SubmitInput) { in.Responsable = "" }, ErrValidation},
		{"missing date", func(in *SubmitInput) { in.Date = "" }, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := jefeInput()
			tt.mutate(&in)

			_, err := svc.Submit(context.Background(), in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	doc, err := sites.Load("rinconada")
	require.NoError(t, err)
	assert.Empty(t, doc.Avance)
	assert.Empty(t, doc.Gastos)
}

func TestSubmitSkipsZeroAmountRows(t *testing.T) {
	svc, sites := newTestService(t)

	in := jefeInput()
	in.Gastos = []GastoInput{
		{Tipo: "Materiales", Detalle: "Cemento", Monto: decimal.NewFromFloat(350.50)},
		{Tipo: "Otros", Detalle: "", Monto: decimal.Zero},
		{Tipo: "Transporte", Detalle: "Flete", Monto: decimal.NewFromInt(80)},
	}

	result, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "430.5", result.TotalHoy.String())

	doc, err := sites.Load("rinconada")
	require.NoError(t, err)
	require.Len(t, doc.Gastos, 2)
	assert.Equal(t, "430.5", doc.GastoAcumulado.String())
}

func TestSubmitPasanteRules(t *testing.T) {
	svc, _ := newTestService(t)

	pasante := auth.Session{User: "pasante-rinconada", Role: auth.RolePasante, Site: "rinconada"}
	photos := []PhotoInput{
		{Name: "a.jpg", Content: []byte("x")},
		{Name: "b.jpg", Content: []byte("x")},
		{Name: "c.jpg", Content: []byte("x")},
	}

	in := jefeInput()
	in.Session = pasante
	in.Date = "2025-03-13"
	in.Fotos = photos
	_, err := svc.Submit(context.Background(), in)
	assert.ErrorIs(t, err, ErrForbidden)

	in = jefeInput()
	in.Session = pasante
	in.Fotos = photos[:2]
	_, err = svc.Submit(context.Background(), in)
	assert.ErrorIs(t, err, ErrValidation)

	in = jefeInput()
	in.Session = pasante
	in.Fotos = photos
	_, err = svc.Submit(context.Background(), in)
	assert.NoError(t, err)
}

func TestSubmitFilenameUsesSiteName(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.Submit(context.Background(), jefeInput())
	require.NoError(t, err)
	assert.Equal(t, "Informe_obra_rinconada_2025-03-14_ParteDiario.pdf", result.PDFFilename)
}
