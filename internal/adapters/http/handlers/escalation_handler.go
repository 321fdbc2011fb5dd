package handlers

import (
	"errors"

	"casedesk/internal/core/domain"
	"casedesk/internal/core/services"
	"casedesk/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// EscalationHandler handles credit-to-legal escalation endpoints
type EscalationHandler struct {
	escalations services.EscalationService
	cases       services.CaseManager
}

// NewEscalationHandler creates a new escalation handler
func NewEscalationHandler(escalations services.EscalationService, cases services.CaseManager) *EscalationHandler {
	return &EscalationHandler{
		escalations: escalations,
		cases:       cases,
	}
}

// EscalateRequest represents an escalation request
type EscalateRequest struct {
	FeeAmount decimal.Decimal `json:"fee_amount"`
	// FilingFee defaults to the debt amount when omitted
	FilingFee  *decimal.Decimal `json:"filing_fee,omitempty"`
	AdvocateID string           `json:"advocate_id,omitempty"`
}

// EscalationResponse reports both sides of an escalation. Degraded means the
// credit case is escalating but its legal case is not linked yet.
type EscalationResponse struct {
	Success    bool               `json:"success"`
	Status     string             `json:"status"`
	CreditCase *domain.CreditCase `json:"credit_case,omitempty"`
	LegalCase  *domain.LegalCase  `json:"legal_case,omitempty"`
	Resumed    bool               `json:"resumed,omitempty"`
	Degraded   bool               `json:"degraded,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// Escalate promotes a credit case into a legal case
// @Summary Escalate credit case
// @Description Moves the credit case to escalated_to_legal and opens the linked legal case
// @Tags Escalations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Credit case ID"
// @Param body body EscalateRequest true "Escalation fee"
// @Success 200 {object} EscalationResponse
// @Success 202 {object} EscalationResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /credit-cases/{id}/escalate [post]
func (h *EscalationHandler) Escalate(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	var req EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	out, err := h.escalations.Escalate(c.UserContext(), services.EscalateInput{
		Actor:        actor,
		CreditCaseID: c.Params("id"),
		FeeAmount:    req.FeeAmount,
		FilingFee:    req.FilingFee,
		AdvocateID:   req.AdvocateID,
	})

	var partial *domain.PartialEscalationFailure
	if errors.As(err, &partial) && out != nil {
		return c.Status(fiber.StatusAccepted).JSON(EscalationResponse{
			Success:    false,
			Status:     string(domain.ResultApplied),
			CreditCase: out.CreditCase,
			Resumed:    out.Resumed,
			Degraded:   true,
			Message:    "Escalation recorded; the legal case will be linked by reconciliation",
		})
	}
	if err != nil {
		return writeError(c, err, "escalate credit case")
	}

	return c.JSON(EscalationResponse{
		Success:    true,
		Status:     string(domain.ResultApplied),
		CreditCase: out.CreditCase,
		LegalCase:  out.LegalCase,
		Resumed:    out.Resumed,
	})
}

// ConfirmFee confirms payment of the escalation fee
// @Summary Confirm escalation fee
// @Tags Escalations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Credit case ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} map[string]interface{}
// @Router /credit-cases/{id}/escalation/confirm-fee [put]
func (h *EscalationHandler) ConfirmFee(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	credit, err := h.cases.ConfirmEscalationFee(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return writeError(c, err, "confirm escalation fee")
	}

	return response.Success(c, "Escalation fee confirmed", fiber.Map{
		"case": credit,
	})
}
