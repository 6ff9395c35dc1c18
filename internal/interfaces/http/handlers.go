package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/obralink/vales/internal/auth"
	"github.com/obralink/vales/internal/delivery"
	"github.com/obralink/vales/internal/domain/entity"
	"github.com/obralink/vales/internal/domain/workflow"
	"github.com/obralink/vales/internal/export"
	"github.com/obralink/vales/internal/issuance"
	"github.com/obralink/vales/internal/rental"
	"github.com/obralink/vales/internal/verify"
)

// VoucherReader is the read surface the handlers need.
type VoucherReader interface {
	GetByFolio(ctx context.Context, folio string) (*entity.Voucher, error)
	GetRentalDetail(ctx context.Context, voucherID int64) (*entity.RentalDetail, error)
	GetMaterialDetail(ctx context.Context, voucherID int64) (*entity.MaterialDetail, error)
}

// Registrar creates vouchers
type Registrar interface {
	Register(ctx context.Context, in issuance.NewVoucherInput) (*entity.Voucher, error)
}

// Coordinator runs closure and issuance
type Coordinator interface {
	Issue(ctx context.Context, req issuance.Request) (*issuance.Result, error)
	Close(ctx context.Context, voucherID int64, in rental.CloseInput) error
}

// Exporter produces the site ledger workbook
type Exporter interface {
	Export(ctx context.Context, siteID string) ([]byte, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	registrar   Registrar
	coordinator Coordinator
	reader      VoucherReader
	exporter    Exporter
	logger      *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(registrar Registrar, coordinator Coordinator, reader VoucherReader, exporter Exporter, logger *zap.Logger) *Handlers {
	return &Handlers{
		registrar:   registrar,
		coordinator: coordinator,
		reader:      reader,
		exporter:    exporter,
		logger:      logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateVoucherRequest is the body of POST /vales
type CreateVoucherRequest struct {
	Type         string     `json:"type" binding:"required"`
	OperatorName string     `json:"operator_name"`
	VehiclePlate string     `json:"vehicle_plate"`
	Notes        string     `json:"notes"`
	StartTime    *time.Time `json:"start_time"`
	TripCount    int        `json:"trip_count"`
	Capacity     string     `json:"capacity"`
	Material     string     `json:"material"`
	UnionRef     string     `json:"union_ref"`
	Volume       float64    `json:"volume"`
	Distance     float64    `json:"distance"`
}

// CloseRequest is the closure body of POST /vales/:ref/close and the optional
// close block of an issue request.
type CloseRequest struct {
	CloseByDay bool       `json:"close_by_day"`
	EndTime    *time.Time `json:"end_time"`
}

// IssueRequest is the body of POST /vales/:ref/issue
type IssueRequest struct {
	Copy  string        `json:"copy"`
	Close *CloseRequest `json:"close"`
}

// VoucherResponse represents a voucher in API responses
type VoucherResponse struct {
	ID           int64          `json:"id,string"`
	Folio        string         `json:"folio"`
	SiteID       string         `json:"site_id"`
	Type         string         `json:"type"`
	State        string         `json:"state"`
	OperatorName string         `json:"operator_name,omitempty"`
	VehiclePlate string         `json:"vehicle_plate,omitempty"`
	Notes        string         `json:"notes,omitempty"`
	CreatedAt    string         `json:"created_at"`
	Rental       *RentalBlock   `json:"rental,omitempty"`
	MaterialInfo *MaterialBlock `json:"material,omitempty"`
}

// RentalBlock carries the rental detail of a voucher response
type RentalBlock struct {
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Hours        float64    `json:"hours"`
	Days         int        `json:"days"`
	TripCount    int        `json:"trip_count"`
	HourlyTariff float64    `json:"hourly_tariff"`
	DailyTariff  float64    `json:"daily_tariff"`
	Capacity     string     `json:"capacity,omitempty"`
	Material     string     `json:"material,omitempty"`
	Subtotal     *float64   `json:"subtotal,omitempty"`
}

// MaterialBlock carries the material detail of a voucher response
type MaterialBlock struct {
	Volume   float64  `json:"volume"`
	Capacity string   `json:"capacity,omitempty"`
	Distance float64  `json:"distance"`
	Weight   *float64 `json:"weight"`
}

// IssueResponse reports an issuance result
type IssueResponse struct {
	Folio    string `json:"folio"`
	State    string `json:"state"`
	Filename string `json:"filename"`
	Bytes    int    `json:"bytes"`
}

// VerificationResponse is the public verification payload
type VerificationResponse struct {
	Folio     string `json:"folio"`
	State     string `json:"state"`
	Type      string `json:"type"`
	SiteID    string `json:"site_id"`
	CreatedAt string `json:"created_at"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateVoucher handles POST /api/v1/vales
func (h *Handlers) CreateVoucher(c *gin.Context) {
	session, ok := auth.FromGin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "no session"})
		return
	}

	var req CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	voucher, err := h.registrar.Register(c.Request.Context(), issuance.NewVoucherInput{
		Type:         entity.VoucherType(req.Type),
		SiteID:       session.SiteID,
		FolioPrefix:  session.FolioPrefix(),
		OperatorName: req.OperatorName,
		VehiclePlate: req.VehiclePlate,
		Notes:        req.Notes,
		StartTime:    req.StartTime,
		TripCount:    req.TripCount,
		Capacity:     req.Capacity,
		Material:     req.Material,
		UnionRef:     req.UnionRef,
		Volume:       req.Volume,
		Distance:     req.Distance,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: h.voucherResponse(c.Request.Context(), voucher)})
}

// GetVoucher handles GET /api/v1/vales/:ref where ref is a folio
func (h *Handlers) GetVoucher(c *gin.Context) {
	folio := c.Param("ref")

	voucher, err := h.reader.GetByFolio(c.Request.Context(), folio)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if voucher == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "voucher not found"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: h.voucherResponse(c.Request.Context(), voucher)})
}

// CloseRental handles POST /api/v1/vales/:ref/close
func (h *Handlers) CloseRental(c *gin.Context) {
	id, ok := h.voucherID(c)
	if !ok {
		return
	}

	var req CloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if err := h.coordinator.Close(c.Request.Context(), id, rental.CloseInput{
		CloseByDay: req.CloseByDay,
		EndTime:    req.EndTime,
	}); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// IssueVoucher handles POST /api/v1/vales/:ref/issue
func (h *Handlers) IssueVoucher(c *gin.Context) {
	id, ok := h.voucherID(c)
	if !ok {
		return
	}

	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	issueReq := issuance.Request{
		VoucherID: id,
		Copy:      entity.CopyColor(req.Copy),
	}
	if req.Close != nil {
		issueReq.Closure = &rental.CloseInput{
			CloseByDay: req.Close.CloseByDay,
			EndTime:    req.Close.EndTime,
		}
	}

	result, err := h.coordinator.Issue(c.Request.Context(), issueReq)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: IssueResponse{
		Folio:    result.Folio,
		State:    result.State,
		Filename: result.Filename,
		Bytes:    result.Bytes,
	}})
}

// VerifyVoucher handles the public verification lookup
func (h *Handlers) VerifyVoucher(c *gin.Context) {
	folio := c.Param("folio")

	voucher, err := h.reader.GetByFolio(c.Request.Context(), folio)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if voucher == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "voucher not found"})
		return
	}

	state := voucher.State
	if voucher.Type == entity.VoucherTypeRental {
		if detail, err := h.reader.GetRentalDetail(c.Request.Context(), voucher.ID); err == nil && detail != nil {
			state = workflow.EffectiveState(workflow.State(voucher.State), detail).String()
		}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: VerificationResponse{
		Folio:     voucher.Folio,
		State:     state,
		Type:      string(voucher.Type),
		SiteID:    voucher.SiteID,
		CreatedAt: voucher.CreatedAt.UTC().Format(time.RFC3339),
	}})
}

// ExportLedger handles GET /api/v1/sites/:site/ledger
func (h *Handlers) ExportLedger(c *gin.Context) {
	siteID := c.Param("site")

	data, err := h.exporter.Export(c.Request.Context(), siteID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+export.Filename(siteID))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *Handlers) voucherID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("ref"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid voucher id"})
		return 0, false
	}
	return id, true
}

func (h *Handlers) voucherResponse(ctx context.Context, v *entity.Voucher) VoucherResponse {
	resp := VoucherResponse{
		ID:           v.ID,
		Folio:        v.Folio,
		SiteID:       v.SiteID,
		Type:         string(v.Type),
		State:        v.State,
		OperatorName: v.OperatorName,
		VehiclePlate: v.VehiclePlate,
		Notes:        v.Notes,
		CreatedAt:    v.CreatedAt.UTC().Format(time.RFC3339),
	}

	switch v.Type {
	case entity.VoucherTypeRental:
		detail, err := h.reader.GetRentalDetail(ctx, v.ID)
		if err != nil {
			h.logger.Error("Failed to load rental detail for response",
				zap.String("folio", v.Folio),
				zap.Error(err))
			return resp
		}
		if detail == nil {
			return resp
		}
		resp.State = workflow.EffectiveState(workflow.State(v.State), detail).String()
		block := &RentalBlock{
			StartTime:    detail.StartTime,
			EndTime:      detail.EndTime,
			Hours:        detail.Hours,
			Days:         detail.Days,
			TripCount:    detail.TripCount,
			HourlyTariff: detail.HourlyTariff,
			DailyTariff:  detail.DailyTariff,
			Capacity:     detail.Capacity,
			Material:     detail.Material,
		}
		if detail.Closed() {
			subtotal := rental.Subtotal(detail)
			block.Subtotal = &subtotal
		}
		resp.Rental = block
	case entity.VoucherTypeMaterial:
		detail, err := h.reader.GetMaterialDetail(ctx, v.ID)
		if err != nil {
			h.logger.Error("Failed to load material detail for response",
				zap.String("folio", v.Folio),
				zap.Error(err))
			return resp
		}
		if detail == nil {
			return resp
		}
		resp.MaterialInfo = &MaterialBlock{
			Volume:   detail.Volume,
			Capacity: detail.Capacity,
			Distance: detail.Distance,
			Weight:   detail.Weight,
		}
	}
	return resp
}

// respondError maps domain errors onto HTTP statuses
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, rental.ErrInvalidCompletionInput):
		status = http.StatusBadRequest
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrGuardFailed):
		status = http.StatusConflict
	case errors.Is(err, issuance.ErrIssuanceInFlight):
		status = http.StatusConflict
	case errors.Is(err, issuance.ErrVoucherNotFound):
		status = http.StatusNotFound
	case errors.Is(err, verify.ErrVerificationImageFailed):
		status = http.StatusBadGateway
	case errors.Is(err, delivery.ErrDeliveryUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}
