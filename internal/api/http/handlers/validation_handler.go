package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/paraiso-astral/gate-service/internal/api/dto"
	"github.com/paraiso-astral/gate-service/internal/service"
	apperrors "github.com/paraiso-astral/gate-service/pkg/util/errorutil"
)

// ValidationHandler exposes the gate validation pipeline.
type ValidationHandler struct {
	pipeline *service.ValidationPipeline
}

// NewValidationHandler constructs handler.
func NewValidationHandler(pipeline *service.ValidationPipeline) *ValidationHandler {
	return &ValidationHandler{pipeline: pipeline}
}

// Validate POST /validations. Rejections are reported in the body with 200;
// only a malformed request is an HTTP error.
func (h *ValidationHandler) Validate(c *fiber.Ctx) error {
	var req dto.ValidateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Payload) == "" {
		return apperrors.NewValidationError("payload required", nil)
	}
	result := h.pipeline.ValidateTicket(c.UserContext(), req.Payload, validateOptions(req))
	return c.JSON(fiber.Map{"data": result})
}

// History GET /validations/:ticketId/history.
func (h *ValidationHandler) History(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.pipeline.History(c.Params("ticketId"))})
}

// Stats GET /validations/stats.
func (h *ValidationHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.pipeline.Stats()})
}

// ClearCache DELETE /validations/cache.
func (h *ValidationHandler) ClearCache(c *fiber.Ctx) error {
	h.pipeline.ClearCache()
	return c.SendStatus(fiber.StatusNoContent)
}

// ConfirmAdmission POST /admissions/:ticketId.
func (h *ValidationHandler) ConfirmAdmission(c *fiber.Ctx) error {
	record, err := h.pipeline.ConfirmAdmission(c.UserContext(), c.Params("ticketId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketStatusResponse(record)})
}

// Revoke POST /blacklist.
func (h *ValidationHandler) Revoke(c *fiber.Ctx) error {
	var req dto.RevokeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.TicketID) == "" {
		return apperrors.NewValidationError("ticket_id required", nil)
	}
	if req.Reason == "" {
		req.Reason = "revoked"
	}
	err := h.pipeline.Revoke(c.UserContext(), req.TicketID, req.Reason)
	status := fiber.StatusCreated
	if err != nil {
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.RevokeResponse{
		TicketID:  strings.TrimSpace(req.TicketID),
		Revoked:   true,
		Persisted: err == nil,
	}})
}

// ListBlacklist GET /blacklist.
func (h *ValidationHandler) ListBlacklist(c *fiber.Ctx) error {
	entries := h.pipeline.Blacklist().Entries()
	items := make([]dto.BlacklistEntryResponse, 0, len(entries))
	for id, entry := range entries {
		items = append(items, dto.BlacklistEntryResponse{TicketID: id, Reason: entry.Reason, AddedAt: entry.AddedAt})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ReloadBlacklist POST /blacklist/reload.
func (h *ValidationHandler) ReloadBlacklist(c *fiber.Ctx) error {
	bl := h.pipeline.Blacklist()
	if err := bl.Reload(c.UserContext()); err != nil {
		return apperrors.NewUnavailable("blacklist reload failed", err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"entries": bl.Len(), "generation": bl.Generation()}})
}

func validateOptions(req dto.ValidateRequest) service.ValidateOptions {
	opts := service.DefaultValidateOptions()
	setIf(&opts.ForceOnline, req.ForceOnline)
	setIf(&opts.AllowOffline, req.AllowOffline)
	setIf(&opts.CheckBlacklist, req.CheckBlacklist)
	setIf(&opts.CheckDuplicates, req.CheckDuplicates)
	setIf(&opts.SkipOnline, req.SkipOnline)
	return opts
}

func setIf(dst *bool, val *bool) {
	if val != nil {
		*dst = *val
	}
}
