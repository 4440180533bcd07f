// Package ledger implements the petty-cash (caja chica) transaction store.
//
// The backing file is a single CSV table rewritten in full on every
// mutation. That read-modify-write cycle is not safe against a second
// process writing the same file; the deployment assumes one active writer,
// and the mutex below only serialises writers inside this process.
package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dmezas/control-obras/internal/models"
)

const timeLayout = "2006-01-02 15:04"

var columns = []string{
	"id", "fecha", "usuario", "tipo", "monto",
	"descripcion", "categoria", "comprobante", "estado", "aprobado_por",
}

// Store is the CSV-backed petty-cash ledger.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStore opens the ledger at path, creating an empty table (header only)
// when the file does not exist yet.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.writeAll(nil, nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Filter selects transactions on listing. Zero-value fields match everything.
type Filter struct {
	User   string
	Kind   models.TransactionKind
	Status models.TransactionStatus
}

func (f Filter) matches(tx models.Transaction) bool {
	if f.User != "" && tx.User != f.User {
		return false
	}
	if f.Kind != "" && tx.Kind != f.Kind {
		return false
	}
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	return true
}

// Totals are the full-table aggregates. Balance counts only approved
// expenses: pending and rejected ones do not reduce the fund.
type Totals struct {
	Replenishments   decimal.Decimal `json:"ingresos"`
	ApprovedExpenses decimal.Decimal `json:"egresos_aprobados"`
	Balance          decimal.Decimal `json:"saldo"`
}

// Record validates and appends a transaction, persisting the full table.
// Replenishments are auto-approved on creation; expenses start pending.
func (s *Store) Record(tx models.Transaction) (models.Transaction, error) {
	if !tx.Amount.IsPositive() {
		return models.Transaction{}, fmt.Errorf("%w: amount must be greater than 0, got %s", ErrValidation, tx.Amount)
	}
	if !tx.Kind.IsValid() {
		return models.Transaction{}, fmt.Errorf("%w: unknown kind %q", ErrValidation, tx.Kind)
	}
	if tx.User == "" {
		return models.Transaction{}, fmt.Errorf("%w: user is required", ErrValidation)
	}

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now()
	}
	switch tx.Kind {
	case models.KindReplenishment:
		tx.Status = models.StatusApproved
		tx.ApprovedBy = models.ApprovedBySystem
	default:
		tx.Status = models.StatusPending
		tx.ApprovedBy = ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, malformed, err := s.readAll()
	if err != nil {
		return models.Transaction{}, err
	}
	txs = append(txs, tx)
	if err := s.writeAll(txs, malformed); err != nil {
		return models.Transaction{}, err
	}

	s.logger.Info("Transaction recorded",
		zap.String("id", tx.ID),
		zap.String("kind", string(tx.Kind)),
		zap.String("amount", tx.Amount.StringFixed(2)))
	return tx, nil
}

// List returns all transactions matching the filter, in recorded order.
// The table stays small enough that pagination is not worth having.
func (s *Store) List(f Filter) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, _, err := s.readAll()
	if err != nil {
		return nil, err
	}
	var out []models.Transaction
	for _, tx := range txs {
		if f.matches(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Approve transitions a pending transaction to approved, recording the
// acting supervisor. A terminal transaction is rejected with
// ErrInvalidTransition rather than silently flipped again.
func (s *Store) Approve(id, approver string) (models.Transaction, error) {
	return s.transition(id, models.StatusApproved, approver)
}

// Reject transitions a pending transaction to rejected. The approved_by
// field is never touched on rejection.
func (s *Store) Reject(id string) (models.Transaction, error) {
	return s.transition(id, models.StatusRejected, "")
}

func (s *Store) transition(id string, target models.TransactionStatus, approver string) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, malformed, err := s.readAll()
	if err != nil {
		return models.Transaction{}, err
	}

	for i := range txs {
		if txs[i].ID != id {
			continue
		}
		if txs[i].Status != models.StatusPending {
			return models.Transaction{}, fmt.Errorf("%w: transaction %s is already %s", ErrInvalidTransition, id, txs[i].Status)
		}
		txs[i].Status = target
		if target == models.StatusApproved {
			txs[i].ApprovedBy = approver
		}
		if err := s.writeAll(txs, malformed); err != nil {
			return models.Transaction{}, err
		}
		s.logger.Info("Transaction reviewed",
			zap.String("id", id),
			zap.String("status", target.String()),
			zap.String("approved_by", txs[i].ApprovedBy))
		return txs[i], nil
	}
	return models.Transaction{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Totals scans the full table and returns the fund aggregates. O(n) on
// every call; the table holds hundreds of rows at most.
func (s *Store) Totals() (Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, _, err := s.readAll()
	if err != nil {
		return Totals{}, err
	}

	t := Totals{
		Replenishments:   decimal.Zero,
		ApprovedExpenses: decimal.Zero,
	}
	for _, tx := range txs {
		switch {
		case tx.Kind == models.KindReplenishment:
			t.Replenishments = t.Replenishments.Add(tx.Amount)
		case tx.Kind == models.KindExpense && tx.Status == models.StatusApproved:
			t.ApprovedExpenses = t.ApprovedExpenses.Add(tx.Amount)
		}
	}
	t.Balance = t.Replenishments.Sub(t.ApprovedExpenses)
	return t, nil
}

// readAll loads the whole table. Malformed rows are excluded from the
// parsed set with a warning, but their raw records are carried along so a
// rewrite never deletes them from the file.
func (s *Store) readAll() ([]models.Transaction, [][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	var txs []models.Transaction
	var malformed [][]string
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		tx, err := parseRow(rec)
		if err != nil {
			s.logger.Warn("Ignoring malformed ledger row",
				zap.Int("line", i+1),
				zap.Error(err))
			malformed = append(malformed, rec)
			continue
		}
		txs = append(txs, tx)
	}
	return txs, malformed, nil
}

func parseRow(rec []string) (models.Transaction, error) {
	if len(rec) != len(columns) {
		return models.Transaction{}, fmt.Errorf("expected %d fields, got %d", len(columns), len(rec))
	}
	ts, err := time.ParseInLocation(timeLayout, rec[1], time.Local)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("bad fecha %q: %w", rec[1], err)
	}
	amount, err := decimal.NewFromString(rec[4])
	if err != nil {
		return models.Transaction{}, fmt.Errorf("bad monto %q: %w", rec[4], err)
	}
	return models.Transaction{
		ID:          rec[0],
		Timestamp:   ts,
		User:        rec[2],
		Kind:        models.TransactionKind(rec[3]),
		Amount:      amount,
		Description: rec[5],
		Category:    rec[6],
		ReceiptRef:  rec[7],
		Status:      models.TransactionStatus(rec[8]),
		ApprovedBy:  rec[9],
	}, nil
}

func (s *Store) writeAll(txs []models.Transaction, malformed [][]string) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("failed to write ledger header: %w", err)
	}
	for _, tx := range txs {
		rec := []string{
			tx.ID,
			tx.Timestamp.Format(timeLayout),
			tx.User,
			string(tx.Kind),
			tx.Amount.StringFixed(2),
			tx.Description,
			tx.Category,
			tx.ReceiptRef,
			tx.Status.String(),
			tx.ApprovedBy,
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write ledger row: %w", err)
		}
	}
	// Rows this version could not parse stay in the file untouched.
	for _, rec := range malformed {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write ledger row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
