package handlers

import (
	"errors"

	"casedesk/internal/adapters/persistence/repositories"
	"casedesk/internal/core/domain"
	"casedesk/internal/core/services"
	"casedesk/internal/pkg/pagination"
	"casedesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CaseHandler handles credit and legal case endpoints
type CaseHandler struct {
	cases       services.CaseManager
	transitions services.TransitionService
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(cases services.CaseManager, transitions services.TransitionService) *CaseHandler {
	return &CaseHandler{
		cases:       cases,
		transitions: transitions,
	}
}

// TransitionRequest represents a status change request
type TransitionRequest struct {
	ToStatus domain.Status `json:"to_status"`
}

// TransitionResponse is the outcome of an applied transition
type TransitionResponse struct {
	Success  bool          `json:"success"`
	Status   string        `json:"status"`
	Case     domain.Record `json:"case"`
	Degraded bool          `json:"degraded,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// AssignRequest represents an assignment request
type AssignRequest struct {
	UserID string `json:"user_id"`
}

// CommentRequest represents a comment request
type CommentRequest struct {
	Body string `json:"body"`
}

// DocumentRequest represents a document attachment request
type DocumentRequest struct {
	DocumentID string `json:"document_id"`
}

// CreateCredit creates a credit case
// @Summary Create credit case
// @Description Open a credit case in status new (firm admin or credit head)
// @Tags Credit Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateCreditCaseInput true "Credit case data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /credit-cases [post]
func (h *CaseHandler) CreateCredit(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	var req services.CreateCreditCaseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	created, err := h.cases.CreateCreditCase(c.UserContext(), actor, req)
	if err != nil {
		return writeError(c, err, "create credit case")
	}

	return response.Created(c, "Credit case created successfully", fiber.Map{
		"case": created,
	})
}

// CreateLegal creates a legal case
// @Summary Create legal case
// @Description Open a legal case in status pending_assignment (firm admin or legal head)
// @Tags Legal Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateLegalCaseInput true "Legal case data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /legal-cases [post]
func (h *CaseHandler) CreateLegal(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	var req services.CreateLegalCaseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	created, err := h.cases.CreateLegalCase(c.UserContext(), actor, req)
	if err != nil {
		return writeError(c, err, "create legal case")
	}

	return response.Created(c, "Legal case created successfully", fiber.Map{
		"case": created,
	})
}

// ListCredit lists credit cases
// @Summary List credit cases
// @Tags Credit Cases
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority"
// @Param assigned_to query string false "Filter by assignee"
// @Success 200 {object} response.Response
// @Router /credit-cases [get]
func (h *CaseHandler) ListCredit(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	params := pagination.GetParams(c)
	cases, total, err := h.cases.ListCreditCases(c.UserContext(), actor, filterFrom(c), params.Offset, params.Limit)
	if err != nil {
		return writeError(c, err, "list credit cases")
	}

	return response.Success(c, "Credit cases retrieved successfully", pagination.NewResponse(cases, params, total))
}

// ListLegal lists legal cases
// @Summary List legal cases
// @Tags Legal Cases
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /legal-cases [get]
func (h *CaseHandler) ListLegal(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	params := pagination.GetParams(c)
	cases, total, err := h.cases.ListLegalCases(c.UserContext(), actor, filterFrom(c), params.Offset, params.Limit)
	if err != nil {
		return writeError(c, err, "list legal cases")
	}

	return response.Success(c, "Legal cases retrieved successfully", pagination.NewResponse(cases, params, total))
}

// GetCredit gets a credit case by ID
// @Summary Get credit case
// @Tags Credit Cases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /credit-cases/{id} [get]
func (h *CaseHandler) GetCredit(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	view, err := h.cases.GetCreditCase(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return writeError(c, err, "get credit case")
	}

	return response.Success(c, "Credit case retrieved successfully", fiber.Map{
		"case": view,
	})
}

// GetLegal gets a legal case by ID
// @Summary Get legal case
// @Tags Legal Cases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case ID"
// @Success 200 {object} response.Response
// @Router /legal-cases/{id} [get]
func (h *CaseHandler) GetLegal(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	legal, err := h.cases.GetLegalCase(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return writeError(c, err, "get legal case")
	}

	return response.Success(c, "Legal case retrieved successfully", fiber.Map{
		"case": legal,
	})
}

// Transition applies a status change to a case of kind
// @Summary Change case status
// @Description Applies one edge of the case's transition table
// @Tags Transitions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case ID"
// @Param body body TransitionRequest true "Target status"
// @Success 200 {object} TransitionResponse
// @Success 202 {object} TransitionResponse
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /credit-cases/{id}/transitions [post]
// @Router /legal-cases/{id}/transitions [post]
func (h *CaseHandler) Transition(kind domain.CaseKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}

		var req TransitionRequest
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}

		rec, err := h.transitions.ApplyTransition(c.UserContext(), services.TransitionRequest{
			Actor:    actor,
			CaseID:   c.Params("id"),
			Kind:     kind,
			ToStatus: req.ToStatus,
		})

		// escalation committed on the credit side but the legal case is not linked yet
		var partial *domain.PartialEscalationFailure
		if errors.As(err, &partial) && rec != nil {
			return c.Status(fiber.StatusAccepted).JSON(TransitionResponse{
				Success:  false,
				Status:   string(domain.ResultApplied),
				Case:     rec,
				Degraded: true,
				Message:  "Escalation recorded; the legal case will be linked by reconciliation",
			})
		}
		if err != nil {
			return writeError(c, err, "change case status")
		}

		return c.JSON(TransitionResponse{
			Success: true,
			Status:  string(domain.ResultApplied),
			Case:    rec,
		})
	}
}

// Assign hands a case of kind to a staff member
func (h *CaseHandler) Assign(kind domain.CaseKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}

		var req AssignRequest
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}

		rec, err := h.cases.Assign(c.UserContext(), actor, kind, c.Params("id"), req.UserID)
		if err != nil {
			return writeError(c, err, "assign case")
		}

		return response.Success(c, "Case assigned successfully", fiber.Map{
			"case": rec,
		})
	}
}

// AddComment comments on a case of kind
func (h *CaseHandler) AddComment(kind domain.CaseKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}

		var req CommentRequest
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}

		comment, err := h.cases.Comment(c.UserContext(), actor, kind, c.Params("id"), req.Body)
		if err != nil {
			return writeError(c, err, "add comment")
		}

		return response.Created(c, "Comment added successfully", fiber.Map{
			"comment": comment,
		})
	}
}

// ListComments lists the newest comments of a case of kind
func (h *CaseHandler) ListComments(kind domain.CaseKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}

		comments, err := h.cases.Comments(c.UserContext(), actor, kind, c.Params("id"), c.QueryInt("limit", pagination.DefaultLimit))
		if err != nil {
			return writeError(c, err, "list comments")
		}

		return response.Success(c, "Comments retrieved successfully", fiber.Map{
			"comments": comments,
		})
	}
}

// AttachDocument attaches a document reference to a case of kind
func (h *CaseHandler) AttachDocument(kind domain.CaseKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}

		var req DocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}

		rec, err := h.cases.AttachDocument(c.UserContext(), actor, kind, c.Params("id"), req.DocumentID)
		if err != nil {
			return writeError(c, err, "attach document")
		}

		return response.Success(c, "Document attached successfully", fiber.Map{
			"case": rec,
		})
	}
}

// History lists the transition records of a case of kind, newest first
func (h *CaseHandler) History(kind domain.CaseKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}

		records, err := h.cases.History(c.UserContext(), actor, kind, c.Params("id"), c.QueryInt("limit", pagination.DefaultLimit))
		if err != nil {
			return writeError(c, err, "get case history")
		}

		return response.Success(c, "History retrieved successfully", fiber.Map{
			"history": records,
		})
	}
}

// Delete removes a case of kind (firm admin only)
func (h *CaseHandler) Delete(kind domain.CaseKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorOf(c)
		if err != nil {
			return err
		}

		if err := h.cases.Delete(c.UserContext(), actor, kind, c.Params("id")); err != nil {
			return writeError(c, err, "delete case")
		}

		return response.Success(c, "Case deleted successfully", nil)
	}
}

// Enrich merges court metadata into a legal case
// @Summary Enrich legal case
// @Tags Legal Cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case ID"
// @Param body body domain.LegalEnrichment true "Court metadata"
// @Success 200 {object} response.Response
// @Router /legal-cases/{id}/enrichment [put]
func (h *CaseHandler) Enrich(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	var req domain.LegalEnrichment
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	legal, err := h.cases.EnrichLegalCase(c.UserContext(), actor, c.Params("id"), req)
	if err != nil {
		return writeError(c, err, "enrich legal case")
	}

	return response.Success(c, "Legal case updated successfully", fiber.Map{
		"case": legal,
	})
}

// MarkFilingFeePaid records the filing fee of a legal case as paid
func (h *CaseHandler) MarkFilingFeePaid(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	legal, err := h.cases.MarkFilingFeePaid(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return writeError(c, err, "mark filing fee paid")
	}

	return response.Success(c, "Filing fee marked as paid", fiber.Map{
		"case": legal,
	})
}

func filterFrom(c *fiber.Ctx) repositories.CaseFilter {
	return repositories.CaseFilter{
		Status:     domain.Status(c.Query("status")),
		Priority:   domain.Priority(c.Query("priority")),
		AssignedTo: c.Query("assigned_to"),
	}
}
