package handlers

import (
	"casedesk/internal/config"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db      *gorm.DB
	appMode string
	clients func() int
}

// NewHealthHandler creates a new health handler. clients reports the number
// of connected event subscribers and may be nil.
func NewHealthHandler(db *gorm.DB, appMode string, clients func() int) *HealthHandler {
	return &HealthHandler{db: db, appMode: appMode, clients: clients}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns API status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "casedesk API v1 is running",
		"mode":    h.appMode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check API and database health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	code, status := fiber.StatusOK, "ok"
	dbStatus := "healthy"
	if err := config.HealthCheck(h.db); err != nil {
		code, status = fiber.StatusServiceUnavailable, "degraded"
		dbStatus = "unhealthy"
	}

	checks := fiber.Map{
		"api":      "healthy",
		"database": dbStatus,
	}
	if h.clients != nil {
		checks["event_clients"] = h.clients()
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}

// APIInfo handles API v1 info
func (h *HealthHandler) APIInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "casedesk API v1",
		"version": "1.0.0",
	})
}
