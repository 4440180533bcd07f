package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmezas/control-obras/internal/auth"
	"github.com/dmezas/control-obras/internal/budget"
	"github.com/dmezas/control-obras/internal/ledger"
	"github.com/dmezas/control-obras/internal/models"
	"github.com/dmezas/control-obras/internal/service"
)

// maxPhotoBytes caps a single uploaded file read. Construction photos from
// phones run a few MB; anything past this is a mistake.
const maxPhotoBytes = 20 << 20

// Handlers contains all HTTP request handlers.
type Handlers struct {
	deps   Deps
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps, logger *zap.Logger) *Handlers {
	if deps.Today == nil {
		deps.Today = func() string { return time.Now().Format("2006-01-02") }
	}
	return &Handlers{deps: deps, logger: logger}
}

// Response is the standard JSON envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// LoginRequest is the credentials body for POST /api/v1/login.
type LoginRequest struct {
	User     string `json:"user" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the bearer token and the resolved session.
type LoginResponse struct {
	Token string `json:"token"`
	User  string `json:"user"`
	Role  string `json:"role"`
	Site  string `json:"site,omitempty"`
}

// BudgetResponse is the semáforo block attached to a site document,
// alongside the day's spend for the dashboard.
type BudgetResponse struct {
	Tier        string `json:"tier"`
	Percent     string `json:"percent,omitempty"`
	Message     string `json:"message"`
	Color       string `json:"color"`
	GastoDiario string `json:"gasto_diario"`
}

// SiteResponse is the GET /sites/:site payload.
type SiteResponse struct {
	SiteID      string              `json:"site_id"`
	Name        string              `json:"name"`
	Document    models.SiteDocument `json:"document"`
	Presupuesto BudgetResponse      `json:"presupuesto"`
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// Login handles POST /api/v1/login.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "user and password are required"})
		return
	}

	token, session, err := h.deps.Auth.Login(req.User, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: LoginResponse{
			Token: token,
			User:  session.User,
			Role:  string(session.Role),
			Site:  session.Site,
		},
	})
}

// GetSite handles GET /api/v1/sites/:site.
func (h *Handlers) GetSite(c *gin.Context) {
	siteID := c.Param("site")
	session, _ := auth.SessionFrom(c)
	if !session.CanAccessSite(siteID) {
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "site not assigned to this user"})
		return
	}

	doc, err := h.deps.Sites.Load(siteID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := budget.Evaluate(doc.GastoAcumulado.Decimal, doc.PresupuestoTotal.Decimal)
	daily, _ := budget.DailyTotals(doc.Gastos, h.deps.Today())
	resp := SiteResponse{
		SiteID:   siteID,
		Name:     h.siteName(siteID),
		Document: doc,
		Presupuesto: BudgetResponse{
			Tier:        string(status.Tier),
			Message:     status.Message,
			Color:       status.Color,
			GastoDiario: daily.StringFixed(2),
		},
	}
	if status.HasPercent {
		resp.Presupuesto.Percent = status.Percent.StringFixed(1)
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: resp})
}

// SiteHistory handles GET /api/v1/sites/:site/history. Entries come back
// newest first.
func (h *Handlers) SiteHistory(c *gin.Context) {
	siteID := c.Param("site")
	session, _ := auth.SessionFrom(c)
	if !session.CanAccessSite(siteID) {
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "site not assigned to this user"})
		return
	}

	doc, err := h.deps.Sites.Load(siteID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Ordered by entry date, not insertion: the jefe can backdate reports.
	history := make([]models.ProgressEntry, len(doc.Avance))
	copy(history, doc.Avance)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Fecha > history[j].Fecha
	})

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// gastoForm is one expense row inside the "gastos" form field.
type gastoForm struct {
	Tipo    string       `json:"tipo"`
	Detalle string       `json:"detalle"`
	Monto   models.Money `json:"monto"`
}

// SubmitReport handles POST /api/v1/sites/:site/report. The body is
// multipart: scalar fields plus any number of files under "fotos".
func (h *Handlers) SubmitReport(c *gin.Context) {
	siteID := c.Param("site")
	session, _ := auth.SessionFrom(c)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "multipart form expected"})
		return
	}

	avance, err := strconv.Atoi(c.PostForm("avance"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "avance must be a number"})
		return
	}

	var gastos []gastoForm
	if raw := c.PostForm("gastos"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &gastos); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "gastos must be a JSON array"})
			return
		}
	}

	in := service.SubmitInput{
		Session:       session,
		SiteID:        siteID,
		Date:          c.PostForm("fecha"),
		Responsable:   c.PostForm("responsable"),
		AvancePct:     avance,
		Observaciones: c.PostForm("observaciones"),
	}
	for _, g := range gastos {
		in.Gastos = append(in.Gastos, service.GastoInput{
			Tipo:    g.Tipo,
			Detalle: g.Detalle,
			Monto:   g.Monto.Decimal,
		})
	}

	for _, fh := range form.File["fotos"] {
		content, err := readUpload(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "could not read photo " + fh.Filename})
			return
		}
		in.Fotos = append(in.Fotos, service.PhotoInput{Name: fh.Filename, Content: content})
	}

	result, err := h.deps.Reports.Submit(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

func (h *Handlers) siteName(siteID string) string {
	if name, ok := h.deps.SiteNames[siteID]; ok {
		return name
	}
	return siteID
}

// respondError maps domain errors to HTTP status codes.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, ledger.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidTransition):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Unhandled request error", zap.Error(err))
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxPhotoBytes))
}
