package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prestadia/prestadia-api/internal/middleware"
	"github.com/prestadia/prestadia-api/internal/models"
	"github.com/prestadia/prestadia-api/internal/repository"
	"github.com/prestadia/prestadia-api/internal/services"
)

type LoanHandler struct {
	loanService    *services.LoanService
	paymentService *services.PaymentService
}

func NewLoanHandler(loanService *services.LoanService, paymentService *services.PaymentService) *LoanHandler {
	return &LoanHandler{loanService: loanService, paymentService: paymentService}
}

// @Summary List Loans
// @Description Get a paginated list of loans of the current business
// @Tags Loans
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by client name, identity or reference"
// @Param status query string false "Filter by status (comma-separated)"
// @Param lending_model query string false "Filter by lending model"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /loans [get]
func (h *LoanHandler) Index(c *gin.Context) {
	query := &repository.LoanQuery{ListQuery: repository.NewListQuery()}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	query.BusinessID = middleware.GetBusinessID(c)
	query.Status = c.Query("status")
	query.Filters["lending_model"] = c.Query("lending_model")
	query.Filters["start_date"] = c.Query("start_date")
	query.Filters["end_date"] = c.Query("end_date")

	// Parse sort parameter (format: field-direction)
	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}

	loans, total, err := h.loanService.List(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var responses []models.LoanResponse
	for _, l := range loans {
		responses = append(responses, l.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"loans": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Loan Statistics
// @Description Get portfolio counters by status
// @Tags Loans
// @Accept json
// @Produce json
// @Success 200 {object} repository.LoanStats
// @Security BearerAuth
// @Router /loans/stats [get]
func (h *LoanHandler) Stats(c *gin.Context) {
	stats, err := h.loanService.GetStats(c.Request.Context(), middleware.GetBusinessID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Get Loan
// @Description Get a loan with its full schedule and ledger
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} models.LoanResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /loans/{loan_id} [get]
func (h *LoanHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("loan_id"), 10, 32)
	loan, err := h.loanService.FindByIDWithSchedule(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Préstamo no encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse()})
}

// @Summary Get Loan Schedule
// @Description Get the installment schedule of a loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /loans/{loan_id}/schedule [get]
func (h *LoanHandler) Schedule(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("loan_id"), 10, 32)
	installments, err := h.paymentService.FindByLoan(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var responses []models.InstallmentResponse
	for _, inst := range installments {
		responses = append(responses, inst.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"schedule": responses})
}

// @Summary Get Loan Ledger
// @Description Get the ledger entries of a loan (disbursement, payments, penalties, adjustments)
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /loans/{loan_id}/ledger [get]
func (h *LoanHandler) Ledger(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("loan_id"), 10, 32)
	entries, balance, err := h.loanService.GetLedger(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ledger": entries, "balance": balance})
}

type LoanTermsRequest struct {
	Amount            float64  `json:"amount" binding:"required"`
	InterestRate      float64  `json:"interest_rate"`
	Duration          int      `json:"duration"`
	LendingModel      string   `json:"lending_model" binding:"required"`
	FrequencyType     string   `json:"frequency_type" binding:"required"`
	FrequencyInterval int      `json:"frequency_interval"`
	FrequencyWeekday  *int     `json:"frequency_weekday"`
	FrequencyMode     *string  `json:"frequency_mode"`
	StartDate         string   `json:"start_date" binding:"required"`
	FirstPaymentDate  string   `json:"first_payment_date"`
	Currency          string   `json:"currency"`
	ClientID          uint     `json:"client_id"`
	PenaltyKind       *string  `json:"penalty_kind"`
	PenaltyValue      float64  `json:"penalty_value"`
	PenaltyGraceDays  int      `json:"penalty_grace_days"`
	PenaltyPeriodMode string   `json:"penalty_period_mode"`
	PenaltyPerInst    *bool    `json:"penalty_per_installment"`
	PenaltyBase       string   `json:"penalty_base"`
	PenaltyMax        *float64 `json:"penalty_max"`
}

// toLoan maps the request onto a Loan model; date parse errors surface
// to the caller.
func (r *LoanTermsRequest) toLoan() (*models.Loan, error) {
	startDate, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return nil, errors.New("start_date inválida, use YYYY-MM-DD")
	}

	loan := &models.Loan{
		ClientID:          r.ClientID,
		Amount:            r.Amount,
		InterestRate:      r.InterestRate,
		Duration:          r.Duration,
		LendingModel:      r.LendingModel,
		FrequencyType:     r.FrequencyType,
		FrequencyInterval: r.FrequencyInterval,
		FrequencyWeekday:  r.FrequencyWeekday,
		FrequencyMode:     r.FrequencyMode,
		StartDate:         startDate,
		Currency:          r.Currency,
		PenaltyKind:       r.PenaltyKind,
		PenaltyValue:      r.PenaltyValue,
		PenaltyGraceDays:  r.PenaltyGraceDays,
		PenaltyPeriodMode: r.PenaltyPeriodMode,
		PenaltyBase:       r.PenaltyBase,
		PenaltyMax:        r.PenaltyMax,
	}
	if loan.FrequencyInterval == 0 {
		loan.FrequencyInterval = 1
	}
	if loan.PenaltyPeriodMode == "" {
		loan.PenaltyPeriodMode = "daily"
	}
	if loan.PenaltyBase == "" {
		loan.PenaltyBase = "quota"
	}
	loan.PenaltyPerInstallment = true
	if r.PenaltyPerInst != nil {
		loan.PenaltyPerInstallment = *r.PenaltyPerInst
	}

	if r.FirstPaymentDate != "" {
		firstPayment, err := time.Parse("2006-01-02", r.FirstPaymentDate)
		if err != nil {
			return nil, errors.New("first_payment_date inválida, use YYYY-MM-DD")
		}
		loan.FirstPaymentDate = firstPayment
	}

	return loan, nil
}

// @Summary Create Loan
// @Description Create a new loan and generate its schedule
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body LoanTermsRequest true "Loan Terms"
// @Success 201 {object} models.LoanResponse
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /loans [post]
func (h *LoanHandler) Create(c *gin.Context) {
	var req LoanTermsRequest
	if err := BindNestedOrFlat(c, "loan", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ClientID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id es requerido"})
		return
	}

	loan, err := req.toLoan()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	loan.BusinessID = middleware.GetBusinessID(c)
	actorID := middleware.GetUserID(c)
	loan.CreatorID = &actorID

	if err := h.loanService.Create(c.Request.Context(), loan, actorID); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrInvalidAmount), errors.Is(err, services.ErrInvalidTerms):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrUnauthorized), errors.Is(err, services.ErrBusinessInactive):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		}
		return
	}

	created, err := h.loanService.FindByIDWithSchedule(c.Request.Context(), loan.ID)
	if err != nil {
		c.JSON(http.StatusCreated, gin.H{"loan": loan.ToResponse()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"loan": created.ToResponse()})
}

// @Summary Preview Schedule
// @Description Simulate a payment schedule without creating a loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body LoanTermsRequest true "Loan Terms"
// @Success 200 {object} services.SchedulePreview
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /loans/preview [post]
func (h *LoanHandler) Preview(c *gin.Context) {
	var req LoanTermsRequest
	if err := BindNestedOrFlat(c, "loan", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loan, err := req.toLoan()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if loan.FirstPaymentDate.IsZero() {
		loan.FirstPaymentDate = loan.StartDate
	}

	preview, err := h.loanService.PreviewSchedule(c.Request.Context(), middleware.GetBusinessID(c), loan.EngineTerms())
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Negocio no encontrado"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, preview)
}

type DueDatesRequest struct {
	StartDate         string  `json:"start_date" binding:"required"`
	FrequencyType     string  `json:"frequency_type" binding:"required"`
	FrequencyInterval int     `json:"frequency_interval"`
	FrequencyWeekday  *int    `json:"frequency_weekday"`
	FrequencyMode     *string `json:"frequency_mode"`
	Count             int     `json:"count"`
}

// @Summary Preview Due Dates
// @Description Project the next due dates for a frequency configuration
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body DueDatesRequest true "Frequency Configuration"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /loans/due_dates [post]
func (h *LoanHandler) DueDates(c *gin.Context) {
	var req DueDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date inválida, use YYYY-MM-DD"})
		return
	}
	if req.Count <= 0 {
		req.Count = 12
	}
	if req.FrequencyInterval == 0 {
		req.FrequencyInterval = 1
	}

	loan := models.Loan{
		FrequencyType:     req.FrequencyType,
		FrequencyInterval: req.FrequencyInterval,
		FrequencyWeekday:  req.FrequencyWeekday,
		FrequencyMode:     req.FrequencyMode,
	}

	dates, err := h.loanService.PreviewDueDates(c.Request.Context(),
		middleware.GetBusinessID(c), startDate, loan.FrequencyConfig(), req.Count)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	formatted := make([]string, 0, len(dates))
	for _, d := range dates {
		formatted = append(formatted, d.Format("2006-01-02"))
	}
	c.JSON(http.StatusOK, gin.H{"due_dates": formatted})
}

// @Summary Preview Penalty
// @Description Compute the mora a loan owes as of today without persisting
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} engine.PenaltyResult
// @Security BearerAuth
// @Router /loans/{loan_id}/penalty [get]
func (h *LoanHandler) PenaltyPreview(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("loan_id"), 10, 32)
	result, err := h.paymentService.PreviewPenalty(c.Request.Context(), uint(id), time.Now())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Préstamo no encontrado"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Close Loan
// @Description Close a fully paid loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} models.LoanResponse
// @Security BearerAuth
// @Router /loans/{loan_id}/close [post]
func (h *LoanHandler) Close(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("loan_id"), 10, 32)
	loan, err := h.loanService.Close(c.Request.Context(), uint(id), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse(), "message": "Préstamo cerrado"})
}

type CancelLoanRequest struct {
	Note string `json:"note"`
}

// @Summary Cancel Loan
// @Description Void a loan; a compensating ledger entry is recorded
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Param request body CancelLoanRequest false "Cancellation note"
// @Success 200 {object} models.LoanResponse
// @Security BearerAuth
// @Router /loans/{loan_id}/cancel [post]
func (h *LoanHandler) Cancel(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("loan_id"), 10, 32)
	var req CancelLoanRequest
	c.ShouldBindJSON(&req)

	loan, err := h.loanService.Cancel(c.Request.Context(), uint(id), req.Note, middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse(), "message": "Préstamo anulado"})
}

// @Summary Default Loan
// @Description Mark a loan as defaulted (keeps accruing penalties)
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} models.LoanResponse
// @Security BearerAuth
// @Router /loans/{loan_id}/default [post]
func (h *LoanHandler) Default(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("loan_id"), 10, 32)
	loan, err := h.loanService.MarkDefaulted(c.Request.Context(), uint(id), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse(), "message": "Préstamo marcado en mora"})
}

// @Summary Reopen Loan
// @Description Put a closed or defaulted loan back in active state
// @Tags Loans
// @Accept json
// @Produce json
// @Param loan_id path int true "Loan ID"
// @Success 200 {object} models.LoanResponse
// @Security BearerAuth
// @Router /loans/{loan_id}/reopen [post]
func (h *LoanHandler) Reopen(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("loan_id"), 10, 32)
	loan, err := h.loanService.Reopen(c.Request.Context(), uint(id), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan": loan.ToResponse(), "message": "Préstamo reabierto"})
}
