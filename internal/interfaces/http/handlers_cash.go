package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dmezas/control-obras/internal/auth"
	"github.com/dmezas/control-obras/internal/ledger"
	"github.com/dmezas/control-obras/internal/models"
	"github.com/dmezas/control-obras/internal/receipt"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RecordTransaction handles POST /api/v1/cash/transactions. Multipart form:
// tipo, monto, descripcion, categoria and an optional "comprobante" file.
// The transaction is always recorded against the session user.
func (h *Handlers) RecordTransaction(c *gin.Context) {
	session, _ := auth.SessionFrom(c)

	kind := models.TransactionKind(c.PostForm("tipo"))
	if kind == models.KindReplenishment && !session.IsJefe() {
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "only the supervisor can register replenishments"})
		return
	}

	amount, err := decimal.NewFromString(c.PostForm("monto"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "monto must be a number"})
		return
	}

	var receiptRef string
	if fh, err := c.FormFile("comprobante"); err == nil {
		content, err := readUpload(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "could not read comprobante"})
			return
		}
		receiptRef, err = h.deps.Blobs.SaveReceipt(session.User, fh.Filename, content)
		if err != nil {
			h.respondError(c, err)
			return
		}
	}

	tx, err := h.deps.Ledger.Record(models.Transaction{
		User:        session.User,
		Kind:        kind,
		Amount:      amount,
		Description: c.PostForm("descripcion"),
		Category:    c.PostForm("categoria"),
		ReceiptRef:  receiptRef,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: tx})
}

// ListTransactions handles GET /api/v1/cash/transactions. The supervisor
// sees everything and can filter; a pasante only ever sees their own rows.
func (h *Handlers) ListTransactions(c *gin.Context) {
	session, _ := auth.SessionFrom(c)

	f := ledger.Filter{
		User:   c.Query("user"),
		Kind:   models.TransactionKind(c.Query("kind")),
		Status: models.TransactionStatus(c.Query("status")),
	}
	if !session.IsJefe() {
		f.User = session.User
	}

	txs, err := h.deps.Ledger.List(f)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: txs})
}

// CashTotals handles GET /api/v1/cash/totals.
func (h *Handlers) CashTotals(c *gin.Context) {
	totals, err := h.deps.Ledger.Totals()
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: totals})
}

// ApproveTransaction handles POST /api/v1/cash/transactions/:id/approve.
func (h *Handlers) ApproveTransaction(c *gin.Context) {
	session, _ := auth.SessionFrom(c)

	tx, err := h.deps.Ledger.Approve(c.Param("id"), session.User)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: tx})
}

// RejectTransaction handles POST /api/v1/cash/transactions/:id/reject.
func (h *Handlers) RejectTransaction(c *gin.Context) {
	tx, err := h.deps.Ledger.Reject(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: tx})
}

// PreviewReceipt handles GET /api/v1/cash/transactions/:id/receipt/preview.
// PDFs come back rendered as a PNG of the first page, images as-is.
func (h *Handlers) PreviewReceipt(c *gin.Context) {
	id := c.Param("id")

	txs, err := h.deps.Ledger.List(ledger.Filter{})
	if err != nil {
		h.respondError(c, err)
		return
	}

	var ref string
	for _, tx := range txs {
		if tx.ID == id {
			ref = tx.ReceiptRef
			break
		}
	}
	if ref == "" {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "transaction has no comprobante"})
		return
	}

	// The stored path comes from the CSV; the blob store rejects anything
	// outside the receipts directory.
	blob, err := h.deps.Blobs.Read(ref)
	if err != nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "comprobante is not available"})
		return
	}

	data, contentType, err := h.deps.Previewer.Preview(ref, blob)
	if err != nil {
		if errors.Is(err, receipt.ErrUnsupported) {
			c.JSON(http.StatusUnsupportedMediaType, Response{Success: false, Error: err.Error()})
			return
		}
		h.respondError(c, err)
		return
	}

	c.Data(http.StatusOK, contentType, data)
}

// ExportLedger handles GET /api/v1/cash/export with an xlsx download.
func (h *Handlers) ExportLedger(c *gin.Context) {
	txs, err := h.deps.Ledger.List(ledger.Filter{})
	if err != nil {
		h.respondError(c, err)
		return
	}
	totals, err := h.deps.Ledger.Totals()
	if err != nil {
		h.respondError(c, err)
		return
	}

	data, err := h.deps.Exporter.Export(txs, totals)
	if err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("caja_chica_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
