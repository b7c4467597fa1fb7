package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prestadia/prestadia-api/internal/middleware"
	"github.com/prestadia/prestadia-api/internal/services"
)

type BusinessHandler struct {
	businessService *services.BusinessService
}

func NewBusinessHandler(businessService *services.BusinessService) *BusinessHandler {
	return &BusinessHandler{businessService: businessService}
}

// @Summary Get Business
// @Description Get the current business settings
// @Tags Business
// @Accept json
// @Produce json
// @Success 200 {object} models.BusinessResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /business [get]
func (h *BusinessHandler) Show(c *gin.Context) {
	business, err := h.businessService.FindByID(c.Request.Context(), middleware.GetBusinessID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Negocio no encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"business": business.ToResponse()})
}

type UpdateBusinessRequest struct {
	Name     string  `json:"name"`
	Currency string  `json:"currency"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

// @Summary Update Business
// @Description Update the current business settings
// @Tags Business
// @Accept json
// @Produce json
// @Param request body UpdateBusinessRequest true "Business Data"
// @Success 200 {object} models.BusinessResponse
// @Security BearerAuth
// @Router /business [put]
func (h *BusinessHandler) Update(c *gin.Context) {
	business, err := h.businessService.FindByID(c.Request.Context(), middleware.GetBusinessID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Negocio no encontrado"})
		return
	}

	var req UpdateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		business.Name = req.Name
	}
	if req.Currency != "" {
		business.Currency = req.Currency
	}
	if req.Phone != nil {
		business.Phone = req.Phone
	}
	if req.Address != nil {
		business.Address = req.Address
	}

	if err := h.businessService.Update(c.Request.Context(), business, middleware.GetUserID(c)); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"business": business.ToResponse()})
}

type UpdateWorkingDaysRequest struct {
	WorkingDays string `json:"working_days"`
}

// @Summary Update Working Days
// @Description Set which weekdays the business collects on (comma-separated, Sunday=0)
// @Tags Business
// @Accept json
// @Produce json
// @Param request body UpdateWorkingDaysRequest true "Working Days"
// @Success 200 {object} models.BusinessResponse
// @Security BearerAuth
// @Router /business/working_days [put]
func (h *BusinessHandler) UpdateWorkingDays(c *gin.Context) {
	var req UpdateWorkingDaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	business, err := h.businessService.UpdateWorkingDays(c.Request.Context(),
		middleware.GetBusinessID(c), req.WorkingDays, middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"business": business.ToResponse()})
}

// @Summary List Holidays
// @Description Get the configured non-working dates of the business
// @Tags Business
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /business/holidays [get]
func (h *BusinessHandler) Holidays(c *gin.Context) {
	holidays, err := h.businessService.Holidays(c.Request.Context(), middleware.GetBusinessID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"holidays": holidays})
}

type AddHolidayRequest struct {
	Date string `json:"date" binding:"required"`
	Name string `json:"name"`
}

// @Summary Add Holiday
// @Description Register a non-working date for the business
// @Tags Business
// @Accept json
// @Produce json
// @Param request body AddHolidayRequest true "Holiday Data"
// @Success 201 {object} models.BusinessHoliday
// @Security BearerAuth
// @Router /business/holidays [post]
func (h *BusinessHandler) AddHoliday(c *gin.Context) {
	var req AddHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formato de fecha inválido, use YYYY-MM-DD"})
		return
	}

	holiday, err := h.businessService.AddHoliday(c.Request.Context(),
		middleware.GetBusinessID(c), date, req.Name, middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"holiday": holiday})
}

// @Summary Remove Holiday
// @Description Delete a non-working date
// @Tags Business
// @Accept json
// @Produce json
// @Param holiday_id path int true "Holiday ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /business/holidays/{holiday_id} [delete]
func (h *BusinessHandler) RemoveHoliday(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("holiday_id"), 10, 32)
	if err := h.businessService.RemoveHoliday(c.Request.Context(),
		middleware.GetBusinessID(c), uint(id), middleware.GetUserID(c)); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feriado eliminado"})
}
