package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prestadia/prestadia-api/internal/middleware"
	"github.com/prestadia/prestadia-api/internal/models"
	"github.com/prestadia/prestadia-api/internal/repository"
	"github.com/prestadia/prestadia-api/internal/services"
)

type ClientHandler struct {
	clientService *services.ClientService
	loanService   *services.LoanService
}

func NewClientHandler(clientService *services.ClientService, loanService *services.LoanService) *ClientHandler {
	return &ClientHandler{clientService: clientService, loanService: loanService}
}

// @Summary List Clients
// @Description Get a paginated list of clients of the current business
// @Tags Clients
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by name, identity or phone"
// @Param active query string false "Filter by active flag"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /clients [get]
func (h *ClientHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	query.Filters["active"] = c.Query("active")

	clients, total, err := h.clientService.List(c.Request.Context(), middleware.GetBusinessID(c), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var responses []models.ClientResponse
	for _, cl := range clients {
		responses = append(responses, cl.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"clients": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Get Client
// @Description Get a client by ID
// @Tags Clients
// @Accept json
// @Produce json
// @Param client_id path int true "Client ID"
// @Success 200 {object} models.ClientResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /clients/{client_id} [get]
func (h *ClientHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("client_id"), 10, 32)
	client, err := h.clientService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cliente no encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": client.ToResponse()})
}

// @Summary Create Client
// @Description Create a new client in the current business
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body models.Client true "Client Data"
// @Success 201 {object} models.ClientResponse
// @Security BearerAuth
// @Router /clients [post]
func (h *ClientHandler) Create(c *gin.Context) {
	var client models.Client
	if err := BindNestedOrFlat(c, "client", &client); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client.BusinessID = middleware.GetBusinessID(c)
	client.Active = true

	if err := h.clientService.Create(c.Request.Context(), &client, middleware.GetUserID(c)); err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"client": client.ToResponse()})
}

// @Summary Update Client
// @Description Update an existing client
// @Tags Clients
// @Accept json
// @Produce json
// @Param client_id path int true "Client ID"
// @Param request body models.Client true "Client Data"
// @Success 200 {object} models.ClientResponse
// @Security BearerAuth
// @Router /clients/{client_id} [put]
func (h *ClientHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("client_id"), 10, 32)
	client, err := h.clientService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cliente no encontrado"})
		return
	}

	var req models.Client
	if err := BindNestedOrFlat(c, "client", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.FullName != "" {
		client.FullName = req.FullName
	}
	if req.Identity != "" {
		client.Identity = req.Identity
	}
	if req.Phone != "" {
		client.Phone = req.Phone
	}
	if req.Email != nil {
		client.Email = req.Email
	}
	if req.Address != nil {
		client.Address = req.Address
	}
	if req.Note != nil {
		client.Note = req.Note
	}

	if err := h.clientService.Update(c.Request.Context(), client, middleware.GetUserID(c)); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"client": client.ToResponse()})
}

// @Summary Delete Client
// @Description Soft delete a client; rejected while the client has open loans
// @Tags Clients
// @Accept json
// @Produce json
// @Param client_id path int true "Client ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /clients/{client_id} [delete]
func (h *ClientHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("client_id"), 10, 32)
	if err := h.clientService.Delete(c.Request.Context(), uint(id), middleware.GetUserID(c)); err != nil {
		if errors.Is(err, services.ErrClientHasLoans) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cliente eliminado"})
}

// @Summary List Client Loans
// @Description Get all loans of a client
// @Tags Clients
// @Accept json
// @Produce json
// @Param client_id path int true "Client ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /clients/{client_id}/loans [get]
func (h *ClientHandler) Loans(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("client_id"), 10, 32)
	loans, err := h.loanService.FindByClient(c.Request.Context(), uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var responses []models.LoanResponse
	for _, l := range loans {
		responses = append(responses, l.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"loans": responses})
}
