// Package service orchestrates the parte diario submission flow: persist
// the user's entries first, then compose and ship the PDF. Local
// persistence always wins over delivery; a failed upload is reported, never
// rolled back.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dmezas/control-obras/internal/auth"
	"github.com/dmezas/control-obras/internal/models"
	"github.com/dmezas/control-obras/internal/report"
	"github.com/dmezas/control-obras/internal/site"
	"github.com/dmezas/control-obras/internal/storage"
	"github.com/dmezas/control-obras/internal/upload"
)

var (
	// ErrValidation is returned for malformed submissions; nothing persists.
	ErrValidation = errors.New("invalid report submission")

	// ErrForbidden is returned when the session may not act on the site.
	ErrForbidden = errors.New("operation not allowed for this session")
)

// minPasantePhotos is the photographic-evidence floor for interns; the
// supervisor can file without photos.
const minPasantePhotos = 3

// GastoInput is one expense row of the submission form.
type GastoInput struct {
	Tipo    string
	Detalle string
	Monto   decimal.Decimal
}

// PhotoInput is one uploaded progress photo.
type PhotoInput struct {
	Name    string
	Content []byte
}

// SubmitInput is a complete parte diario form.
type SubmitInput struct {
	Session       auth.Session
	SiteID        string
	Date          string // YYYY-MM-DD
	Responsable   string
	AvancePct     int
	Observaciones string
	Gastos        []GastoInput
	Fotos         []PhotoInput
}

// SubmitResult reports what happened. UploadError is set when only the
// delivery step failed; the local document is current either way.
type SubmitResult struct {
	Document    models.SiteDocument `json:"document"`
	TotalHoy    decimal.Decimal     `json:"total_hoy"`
	PDFFilename string              `json:"pdf_filename"`
	UploadURL   string              `json:"upload_url,omitempty"`
	UploadError string              `json:"upload_error,omitempty"`
}

// ReportService wires the stores, the composer and the gateway.
type ReportService struct {
	sites    *site.Store
	blobs    *storage.BlobStore
	composer *report.Composer
	gateway  *upload.Gateway
	names    map[string]string // site id -> display name
	today    func() string
	logger   *zap.Logger
}

// NewReportService creates the service. todayFn returns the current date
// as YYYY-MM-DD and exists so tests can pin the clock.
func NewReportService(
	sites *site.Store,
	blobs *storage.BlobStore,
	composer *report.Composer,
	gateway *upload.Gateway,
	names map[string]string,
	todayFn func() string,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		sites:    sites,
		blobs:    blobs,
		composer: composer,
		gateway:  gateway,
		names:    names,
		today:    todayFn,
		logger:   logger,
	}
}

// Submit validates, persists and ships one parte diario.
func (s *ReportService) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	if err := s.validate(in); err != nil {
		return SubmitResult{}, err
	}

	// Photos first so the progress entry can reference their stored paths.
	var fotoPaths []string
	for _, f := range in.Fotos {
		path, err := s.blobs.SavePhoto(in.SiteID, in.Date, f.Name, f.Content)
		if err != nil {
			return SubmitResult{}, fmt.Errorf("failed to store photo %s: %w", f.Name, err)
		}
		fotoPaths = append(fotoPaths, path)
	}

	if _, err := s.sites.AppendProgress(in.SiteID, models.ProgressEntry{
		Fecha:       in.Date,
		Responsable: in.Responsable,
		Avance:      in.AvancePct,
		Obs:         in.Observaciones,
		Fotos:       fotoPaths,
	}); err != nil {
		return SubmitResult{}, err
	}

	// Zero-amount rows are form filler, not expenses.
	var entries []models.ExpenseEntry
	totalHoy := decimal.Zero
	for _, g := range in.Gastos {
		if !g.Monto.IsPositive() {
			continue
		}
		entries = append(entries, models.ExpenseEntry{
			Fecha:       in.Date,
			Responsable: in.Session.User,
			Tipo:        g.Tipo,
			Detalle:     g.Detalle,
			Monto:       models.NewMoney(g.Monto),
		})
		totalHoy = totalHoy.Add(g.Monto)
	}

	doc, err := s.sites.Load(in.SiteID)
	if err != nil {
		return SubmitResult{}, err
	}
	if len(entries) > 0 {
		doc, err = s.sites.AppendExpenses(in.SiteID, entries)
		if err != nil {
			return SubmitResult{}, err
		}
	}

	payload := report.Payload{
		SiteID:        in.SiteID,
		SiteName:      s.siteName(in.SiteID),
		Date:          in.Date,
		Responsable:   in.Responsable,
		AvancePct:     in.AvancePct,
		Observaciones: in.Observaciones,
		Gastos:        entries,
		TotalHoy:      totalHoy,
		Fotos:         fotoPaths,
	}

	result := SubmitResult{
		Document:    doc,
		TotalHoy:    totalHoy,
		PDFFilename: payload.Filename(),
	}

	// From here on the user's data is safe on disk; compose/upload failures
	// only degrade the result.
	pdf, err := s.composer.Compose(payload)
	if err != nil {
		s.logger.Error("Report composition failed after persistence",
			zap.String("site", in.SiteID),
			zap.Error(err))
		result.UploadError = fmt.Sprintf("no se pudo generar el PDF: %v", err)
		return result, nil
	}

	uploaded, err := s.gateway.Upload(ctx, pdf, result.PDFFilename)
	if err != nil {
		s.logger.Warn("Report stored locally but upload failed",
			zap.String("site", in.SiteID),
			zap.Error(err))
		result.UploadError = err.Error()
		return result, nil
	}

	result.UploadURL = uploaded.URL
	return result, nil
}

func (s *ReportService) validate(in SubmitInput) error {
	if _, ok := s.names[in.SiteID]; !ok {
		return fmt.Errorf("%w: unknown site %q", ErrValidation, in.SiteID)
	}
	if !in.Session.CanAccessSite(in.SiteID) {
		return fmt.Errorf("%w: site %s is not assigned to %s", ErrForbidden, in.SiteID, in.Session.User)
	}
	if in.Responsable == "" {
		return fmt.Errorf("%w: responsable is required", ErrValidation)
	}
	if in.AvancePct < 0 || in.AvancePct > 100 {
		return fmt.Errorf("%w: avance must be between 0 and 100, got %d", ErrValidation, in.AvancePct)
	}
	if in.Date == "" {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if !in.Session.IsJefe() {
		if in.Date != s.today() {
			return fmt.Errorf("%w: pasante reports are same-day only", ErrForbidden)
		}
		if len(in.Fotos) < minPasantePhotos {
			return fmt.Errorf("%w: at least %d photos are required, got %d", ErrValidation, minPasantePhotos, len(in.Fotos))
		}
	}
	return nil
}

func (s *ReportService) siteName(siteID string) string {
	if name, ok := s.names[siteID]; ok {
		return name
	}
	return siteID
}
