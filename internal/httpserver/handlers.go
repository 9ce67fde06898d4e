package httpserver

import (
	"log"
	"net/http"
	"strconv"

	"storefront-checkout/internal/domain"

	"github.com/gin-gonic/gin"
)

type handlers struct {
	auth   AuthService
	orders OrderService
	logger *log.Logger
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"usuario"`
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("username and password are required"))
		return
	}
	u, token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: token, User: *u})
}

func (h *handlers) me(c *gin.Context) {
	u, _ := currentUser(c)
	c.JSON(http.StatusOK, u)
}

func (h *handlers) createOrder(c *gin.Context) {
	caller, _ := currentUser(c)
	var req domain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid order payload"))
		return
	}
	draft, err := domain.FromCreateRequest(req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	created, err := h.orders.Create(c.Request.Context(), caller, draft)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, domain.ToBackend(*created))
}

func (h *handlers) listUserOrders(c *gin.Context) {
	caller, _ := currentUser(c)
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	orders, err := h.orders.ListByUser(c.Request.Context(), caller, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	out := make([]domain.BackendOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, domain.ToBackend(o))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) getOrder(c *gin.Context) {
	caller, _ := currentUser(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.Get(c.Request.Context(), caller, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, domain.ToBackend(*o))
}

func (h *handlers) orderLines(c *gin.Context) {
	caller, _ := currentUser(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	lines, err := h.orders.Lines(c.Request.Context(), caller, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, domain.ToBackend(domain.Order{ID: id, Lines: lines}).Lines)
}

func (h *handlers) cancelOrder(c *gin.Context) {
	caller, _ := currentUser(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.Cancel(c.Request.Context(), caller, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, domain.ToBackend(*o))
}

func (h *handlers) updateStatus(c *gin.Context) {
	caller, _ := currentUser(c)
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req domain.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, errorBody("status is required"))
		return
	}
	o, err := h.orders.UpdateStatus(c.Request.Context(), caller, id, req.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, domain.ToBackend(*o))
}

func (h *handlers) summary(c *gin.Context) {
	caller, _ := currentUser(c)
	s, err := h.orders.Summary(c.Request.Context(), caller)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *handlers) sendDeliveryNote(c *gin.Context) {
	caller, _ := currentUser(c)
	var req domain.DeliveryNoteEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid delivery note payload"))
		return
	}
	if err := h.orders.RequestDeliveryNoteEmail(c.Request.Context(), caller, req); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "delivery note queued for email"})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorBody(name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}
