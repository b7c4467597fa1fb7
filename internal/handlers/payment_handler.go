package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prestadia/prestadia-api/internal/middleware"
	"github.com/prestadia/prestadia-api/internal/services"
	"github.com/prestadia/prestadia-api/internal/storage"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	storage        *storage.LocalStorage
}

func NewPaymentHandler(paymentService *services.PaymentService, storage *storage.LocalStorage) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, storage: storage}
}

type PostPaymentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// @Summary Post Payment
// @Description Apply an amount against an installment. Collection order is penalty, interest, capital.
// @Tags Payments
// @Accept json
// @Produce json
// @Param installment_id path int true "Installment ID"
// @Param request body PostPaymentRequest true "Payment Amount"
// @Success 200 {object} services.PaymentBreakdown
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /installments/{installment_id}/payments [post]
func (h *PaymentHandler) Post(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("installment_id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de cuota inválido"})
		return
	}

	var req PostPaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil || req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Monto inválido"})
		return
	}

	breakdown, err := h.paymentService.PostPayment(c.Request.Context(), uint(id), req.Amount,
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotOpen), errors.Is(err, services.ErrInvalidState):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "Cuota no encontrada"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": breakdown, "message": "Pago aplicado"})
}

// @Summary Undo Payment
// @Description Revert everything paid against an installment (Admin)
// @Tags Payments
// @Accept json
// @Produce json
// @Param installment_id path int true "Installment ID"
// @Success 200 {object} models.InstallmentResponse
// @Security BearerAuth
// @Router /installments/{installment_id}/payments/undo [post]
func (h *PaymentHandler) Undo(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("installment_id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de cuota inválido"})
		return
	}

	installment, err := h.paymentService.UndoPayment(c.Request.Context(), uint(id),
		middleware.GetUserID(c), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, services.ErrInvalidState) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Cuota no encontrada"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"installment": installment.ToResponse(), "message": "Pago revertido"})
}

// @Summary Get Installment
// @Description Get an installment by ID
// @Tags Payments
// @Accept json
// @Produce json
// @Param installment_id path int true "Installment ID"
// @Success 200 {object} models.InstallmentResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /installments/{installment_id} [get]
func (h *PaymentHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("installment_id"), 10, 32)
	installment, err := h.paymentService.FindInstallment(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cuota no encontrada"})
		return
	}
	entries, err := h.paymentService.InstallmentLedger(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"installment": installment.ToResponse(), "ledger": entries})
}

// @Summary Upload Receipt
// @Description Upload a payment receipt image/pdf for an installment
// @Tags Payments
// @Accept multipart/form-data
// @Produce json
// @Param installment_id path int true "Installment ID"
// @Param receipt formData file true "Receipt File"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /installments/{installment_id}/receipt [post]
func (h *PaymentHandler) UploadReceipt(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("installment_id"), 10, 32)

	installment, err := h.paymentService.FindInstallment(c.Request.Context(), uint(id))
	if err != nil || installment.ID == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cuota no encontrada"})
		return
	}

	file, header, err := c.Request.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Archivo requerido"})
		return
	}
	defer file.Close()

	if c.Request.ContentLength > 0 && c.Request.ContentLength > storage.MaxFileSize() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Archivo demasiado grande"})
		return
	}
	if !storage.IsValidContentType(header.Header.Get("Content-Type")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tipo de archivo inválido"})
		return
	}

	path, err := h.storage.Upload(file, header, "receipts")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al guardar archivo"})
		return
	}

	if err := h.paymentService.UpdateReceiptPath(c.Request.Context(), uint(id), path, middleware.GetUserID(c)); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comprobante subido exitosamente"})
}

// @Summary Download Receipt
// @Description Download the payment receipt of an installment
// @Tags Payments
// @Produce application/octet-stream
// @Param installment_id path int true "Installment ID"
// @Success 200 {file} file "receipt"
// @Security BearerAuth
// @Router /installments/{installment_id}/receipt [get]
func (h *PaymentHandler) DownloadReceipt(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("installment_id"), 10, 32)
	installment, err := h.paymentService.FindInstallment(c.Request.Context(), uint(id))
	if err != nil || installment.ReceiptPath == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comprobante no encontrado"})
		return
	}

	fullPath, err := h.storage.SafeFullPath(*installment.ReceiptPath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comprobante no encontrado"})
		return
	}
	c.File(fullPath)
}

// @Summary Recalculate Penalties
// @Description Run the mora recalculation for every active loan now (Admin)
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /penalties/recalculate [post]
func (h *PaymentHandler) RecalculatePenalties(c *gin.Context) {
	if err := h.paymentService.RecalculatePenalties(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Recalculo de mora completado"})
}
