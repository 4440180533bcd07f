package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes petty-cash outflows from replenishments.
// Values match the `tipo` column of the persisted ledger.
type TransactionKind string

const (
	KindExpense       TransactionKind = "egreso"
	KindReplenishment TransactionKind = "ingreso"
)

var validKinds = map[TransactionKind]bool{
	KindExpense:       true,
	KindReplenishment: true,
}

// IsValid returns true if the kind is a known transaction kind.
func (k TransactionKind) IsValid() bool {
	return validKinds[k]
}

// TransactionStatus is the approval state of a ledger transaction.
// Values match the `estado` column of the persisted ledger.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "Pendiente"
	StatusApproved TransactionStatus = "Aprobado"
	StatusRejected TransactionStatus = "Rechazado"
)

var terminalStatuses = map[TransactionStatus]bool{
	StatusApproved: true,
	StatusRejected: true,
}

// IsTerminal returns true if no further transition is allowed from the status.
func (s TransactionStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status.
func (s TransactionStatus) String() string {
	return string(s)
}

// ApprovedBySystem marks replenishments, which never go through review.
const ApprovedBySystem = "Sistema"

// Transaction is one row of the petty-cash ledger. Rows are append-only;
// the only mutation ever applied is the Pending -> Approved/Rejected
// transition performed by a supervisor.
type Transaction struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"fecha"`
	User        string            `json:"usuario"`
	Kind        TransactionKind   `json:"tipo"`
	Amount      decimal.Decimal   `json:"monto"`
	Description string            `json:"descripcion"`
	Category    string            `json:"categoria"`
	ReceiptRef  string            `json:"comprobante,omitempty"`
	Status      TransactionStatus `json:"estado"`
	ApprovedBy  string            `json:"aprobado_por,omitempty"`
}
