// Package site implements the per-site report store: one JSON document per
// construction site holding the progress log, the expense table and the
// derived cumulative spend.
//
// The store is deliberately availability-first: a missing or unreadable
// document is replaced by a freshly initialised one instead of failing the
// caller. Documents are rewritten in full on every save; concurrent writers
// from a second process can race, which the deployment accepts (one active
// writer per file). The mutex below serialises writers in this process only.
package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dmezas/control-obras/internal/models"
)

// Config holds the site registry the store resolves documents against.
type Config struct {
	Dir           string             // directory of per-site JSON documents
	Names         map[string]string  // site id -> display name
	Budgets       map[string]float64 // per-site fixed budget override
	DefaultBudget float64
}

// Store manages the per-site report documents.
type Store struct {
	cfg    Config
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStore creates the store and its backing directory.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sites directory: %w", err)
	}
	return &Store{cfg: cfg, logger: logger}, nil
}

// Load returns the site document, creating and persisting a default one
// when the file is missing or unreadable. The cumulative spend is always
// recomputed from the expense entries, and the configured budget override
// wins over whatever the file says.
func (s *Store) Load(siteID string) (models.SiteDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(siteID)
}

// AppendProgress appends a progress entry and rewrites the document.
func (s *Store) AppendProgress(siteID string, entry models.ProgressEntry) (models.SiteDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(siteID)
	if err != nil {
		return models.SiteDocument{}, err
	}
	doc.Avance = append(doc.Avance, entry)
	if err := s.saveLocked(siteID, doc); err != nil {
		return models.SiteDocument{}, err
	}
	return doc, nil
}

// AppendExpenses appends expense entries, recomputes the cumulative spend
// and rewrites the document.
func (s *Store) AppendExpenses(siteID string, entries []models.ExpenseEntry) (models.SiteDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked(siteID)
	if err != nil {
		return models.SiteDocument{}, err
	}
	doc.Gastos = append(doc.Gastos, entries...)
	doc.GastoAcumulado = recompute(doc.Gastos)
	if err := s.saveLocked(siteID, doc); err != nil {
		return models.SiteDocument{}, err
	}
	return doc, nil
}

func (s *Store) loadLocked(siteID string) (models.SiteDocument, error) {
	path := s.docPath(siteID)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		doc := s.template(siteID)
		if err := s.saveLocked(siteID, doc); err != nil {
			return models.SiteDocument{}, err
		}
		return doc, nil
	}
	if err != nil {
		s.logger.Warn("Site document unreadable, reinitialising",
			zap.String("site", siteID),
			zap.Error(err))
		doc := s.template(siteID)
		return doc, s.saveLocked(siteID, doc)
	}

	var doc models.SiteDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("Site document corrupt, previous contents lost",
			zap.String("site", siteID),
			zap.Int("bytes", len(data)),
			zap.Error(err))
		doc = s.template(siteID)
		return doc, s.saveLocked(siteID, doc)
	}

	if doc.Info == "" {
		doc.Info = s.siteName(siteID)
	}
	if doc.Avance == nil {
		doc.Avance = []models.ProgressEntry{}
	}
	if doc.Gastos == nil {
		doc.Gastos = []models.ExpenseEntry{}
	}
	if b, ok := s.cfg.Budgets[siteID]; ok {
		doc.PresupuestoTotal = models.MoneyFromFloat(b)
	}
	doc.GastoAcumulado = recompute(doc.Gastos)

	// Persist the healed document so the file always reflects what callers see.
	return doc, s.saveLocked(siteID, doc)
}

func (s *Store) saveLocked(siteID string, doc models.SiteDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode site document: %w", err)
	}
	if err := os.WriteFile(s.docPath(siteID), data, 0644); err != nil {
		return fmt.Errorf("failed to write site document: %w", err)
	}
	return nil
}

func (s *Store) docPath(siteID string) string {
	return filepath.Join(s.cfg.Dir, siteID+".json")
}

func (s *Store) siteName(siteID string) string {
	if name, ok := s.cfg.Names[siteID]; ok {
		return name
	}
	return siteID
}

// template builds a default-initialised document. The budget comes from the
// per-site override when configured, otherwise the default.
func (s *Store) template(siteID string) models.SiteDocument {
	budget := s.cfg.DefaultBudget
	if b, ok := s.cfg.Budgets[siteID]; ok {
		budget = b
	}
	return models.SiteDocument{
		Info:             s.siteName(siteID),
		Avance:           []models.ProgressEntry{},
		PresupuestoTotal: models.MoneyFromFloat(budget),
		Gastos:           []models.ExpenseEntry{},
		GastoAcumulado:   models.NewMoney(decimal.Zero),
	}
}

func recompute(gastos []models.ExpenseEntry) models.Money {
	total := decimal.Zero
	for _, g := range gastos {
		total = total.Add(g.Monto.Decimal)
	}
	return models.NewMoney(total)
}
