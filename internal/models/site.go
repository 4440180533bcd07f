package models

// SiteDocument is the per-site report file: cumulative expenses, the daily
// progress log, and the fixed budget the semáforo is computed against.
// Field names mirror the persisted JSON document.
type SiteDocument struct {
	Info             string          `json:"info"`
	Avance           []ProgressEntry `json:"avance"`
	PresupuestoTotal Money           `json:"presupuesto_total"`
	Gastos           []ExpenseEntry  `json:"gastos"`
	GastoAcumulado   Money           `json:"gasto_acumulado"`
}

// ProgressEntry is one parte diario: who reported, how far the work got,
// and the photographic evidence captured that day.
type ProgressEntry struct {
	Fecha       string   `json:"fecha"` // YYYY-MM-DD
	Responsable string   `json:"responsable"`
	Avance      int      `json:"avance"` // percent achieved that day
	Obs         string   `json:"obs"`
	Fotos       []string `json:"fotos"`
}

// ExpenseEntry is one line of site spending, categorised.
type ExpenseEntry struct {
	Fecha       string `json:"fecha"`
	Responsable string `json:"responsable"`
	Tipo        string `json:"tipo"` // expense category
	Detalle     string `json:"detalle"`
	Monto       Money  `json:"monto"`
}
