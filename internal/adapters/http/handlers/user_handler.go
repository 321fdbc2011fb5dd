package handlers

import (
	"casedesk/internal/core/domain"
	"casedesk/internal/core/services"
	"casedesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles staff directory endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// ListUsers lists the caller's firm
// @Summary List staff
// @Description List the staff of the caller's firm, optionally by role
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Filter by role"
// @Success 200 {object} response.Response
// @Router /users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	users, err := h.userService.ListStaff(c.UserContext(), actor, domain.Role(c.Query("role")))
	if err != nil {
		return writeError(c, err, "list users")
	}

	return response.Success(c, "Users retrieved successfully", fiber.Map{
		"users": users,
	})
}

// GetUser gets a staff member by ID
// @Summary Get staff member
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	user, err := h.userService.GetStaff(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return writeError(c, err, "get user")
	}

	return response.Success(c, "User retrieved successfully", fiber.Map{
		"user": user,
	})
}

// CreateUser adds a staff member (firm admin only)
// @Summary Create staff member
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateStaffInput true "Staff member"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /users [post]
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	var req services.CreateStaffInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.CreateStaff(c.UserContext(), actor, req)
	if err != nil {
		return writeError(c, err, "create user")
	}

	return response.Created(c, "User created successfully", fiber.Map{
		"user": user,
	})
}

// Summary counts the firm's staff per role
func (h *UserHandler) Summary(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	summary, err := h.userService.Summary(c.UserContext(), actor)
	if err != nil {
		return writeError(c, err, "summarize users")
	}

	return response.Success(c, "Staff summary retrieved successfully", summary)
}
