// Package report composes the parte diario PDF: header, observations,
// expense table and photographic evidence. The composer is a stateless
// transform from payload to bytes; pagination is handled by the document
// engine as rows accumulate.
package report

import (
	"fmt"
	"path/filepath"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dmezas/control-obras/internal/models"
	"github.com/dmezas/control-obras/internal/storage"
)

// Payload carries everything a parte diario document needs. It references
// photos by blob path; missing files are skipped and undecodable ones are
// reported inline in the document instead of failing the whole render.
type Payload struct {
	SiteID        string
	SiteName      string
	Date          string
	Responsable   string
	AvancePct     int
	Observaciones string
	Gastos        []models.ExpenseEntry
	TotalHoy      decimal.Decimal
	Fotos         []string
}

// Filename builds the canonical upload name for the document.
func (p Payload) Filename() string {
	return fmt.Sprintf("Informe_%s_%s_ParteDiario.pdf", storage.SafeFilename(p.SiteName), p.Date)
}

// Composer renders parte diario payloads to PDF bytes.
type Composer struct {
	logger *zap.Logger
}

// NewComposer creates a composer.
func NewComposer(logger *zap.Logger) *Composer {
	return &Composer{logger: logger}
}

// Compose renders the payload to a PDF document.
func (c *Composer) Compose(p Payload) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Vertical).
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		WithBottomMargin(15).
		Build()

	m := maroto.New(cfg)

	m.RegisterFooter(row.New(5).Add(
		text.NewCol(12, fmt.Sprintf("Generado automáticamente | Obra: %s", p.SiteID),
			props.Text{Size: 8, Style: fontstyle.Italic}),
	))

	c.addHeader(m, p)
	c.addObservations(m, p.Observaciones)
	c.addExpenseTable(m, p)
	c.addPhotos(m, p.Fotos)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate report document: %w", err)
	}
	return doc.GetBytes(), nil
}

func (c *Composer) addHeader(m core.Maroto, p Payload) {
	m.AddRow(10,
		text.NewCol(12, "PARTE DIARIO DE OBRA",
			props.Text{Size: 16, Style: fontstyle.Bold}),
	)
	for _, l := range []string{
		fmt.Sprintf("Obra: %s", p.SiteName),
		fmt.Sprintf("Fecha: %s", p.Date),
		fmt.Sprintf("Responsable: %s", p.Responsable),
		fmt.Sprintf("Avance logrado hoy: %d%%", p.AvancePct),
	} {
		m.AddRow(6, text.NewCol(12, l, props.Text{Size: 11}))
	}
	m.AddRow(3)
}

func (c *Composer) addObservations(m core.Maroto, obs string) {
	m.AddRow(7, text.NewCol(12, "Observaciones", props.Text{Size: 12, Style: fontstyle.Bold}))
	if obs == "" {
		obs = "-"
	}
	m.AddRow(textHeight(obs), text.NewCol(12, obs, props.Text{Size: 10}))
	m.AddRow(3)
}

func (c *Composer) addExpenseTable(m core.Maroto, p Payload) {
	m.AddRow(7, text.NewCol(12, "Gastos del día", props.Text{Size: 12, Style: fontstyle.Bold}))
	m.AddRow(6,
		text.NewCol(3, "Tipo", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(6, "Detalle", props.Text{Size: 10, Style: fontstyle.Bold}),
		text.NewCol(3, "Monto (S/)", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	if len(p.Gastos) == 0 {
		m.AddRow(6, text.NewCol(12, "Sin gastos registrados.", props.Text{Size: 9}))
	}
	for _, g := range p.Gastos {
		detalle := g.Detalle
		if detalle == "" {
			detalle = "-"
		}
		m.AddRow(rowHeight(detalle),
			text.NewCol(3, g.Tipo, props.Text{Size: 9}),
			text.NewCol(6, detalle, props.Text{Size: 9}),
			text.NewCol(3, formatAmount(g.Monto.Decimal), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(7,
		text.NewCol(12, fmt.Sprintf("TOTAL HOY: S/ %s", formatAmount(p.TotalHoy)),
			props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(3)
}

func (c *Composer) addPhotos(m core.Maroto, fotos []string) {
	m.AddRow(7, text.NewCol(12, "Evidencia fotográfica", props.Text{Size: 12, Style: fontstyle.Bold}))

	shown := 0
	for _, path := range fotos {
		ph, err := loadPhoto(path)
		if err != nil {
			if isMissing(err) {
				c.logger.Warn("Photo missing, skipped", zap.String("path", path))
				continue
			}
			c.logger.Warn("Photo undecodable, reported inline",
				zap.String("path", path),
				zap.Error(err))
			m.AddRow(6, text.NewCol(12,
				fmt.Sprintf("No se pudo insertar la imagen: %s | %v", filepath.Base(path), err),
				props.Text{Size: 10}))
			continue
		}

		shown++
		m.AddRow(5, text.NewCol(12,
			fmt.Sprintf("Foto %d: %s", shown, filepath.Base(path)),
			props.Text{Size: 9}))
		m.AddRow(ph.rowHeightMM(),
			col.New(12).Add(image.NewFromBytes(ph.data, extension.Jpeg, props.Rect{
				Center:  true,
				Percent: 100,
			})),
		)
		m.AddRow(4)
	}

	if shown == 0 && len(fotos) == 0 {
		m.AddRow(6, text.NewCol(12, "Sin fotos adjuntas.", props.Text{Size: 10}))
	}
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// textHeight estimates the row height needed for wrapped body text at the
// content width used here (roughly 100 characters per line at size 10).
func textHeight(s string) float64 {
	lines := len([]rune(s))/100 + 1
	return float64(lines) * 5
}

func rowHeight(detalle string) float64 {
	h := textHeight(detalle)
	if h < 6 {
		return 6
	}
	return h
}
