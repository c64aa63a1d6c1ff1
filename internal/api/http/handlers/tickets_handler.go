package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/paraiso-astral/gate-service/internal/api/dto"
	"github.com/paraiso-astral/gate-service/internal/domain"
	"github.com/paraiso-astral/gate-service/internal/repository"
	"github.com/paraiso-astral/gate-service/internal/service"
	apperrors "github.com/paraiso-astral/gate-service/pkg/util/errorutil"
)

// TicketsHandler manages box-office ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// IssueTicket POST /tickets.
func (h *TicketsHandler) IssueTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.EventID) == "" || req.Type == "" || req.Price == nil {
		return apperrors.NewValidationError("event_id, type, price required", nil)
	}
	ticketType, err := service.ParseTicketType(req.Type)
	if err != nil {
		return err
	}

	ticket, err := h.service.IssueTicket(c.UserContext(), service.TicketCreateInput{
		EventID: req.EventID,
		Type:    ticketType,
		Buyer:   req.Buyer,
		Price:   *req.Price,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	if filter.EventID == "" {
		return apperrors.NewValidationError("event_id required", nil)
	}
	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ExportTicket GET /tickets/:id/export.
func (h *TicketsHandler) ExportTicket(c *fiber.Ctx) error {
	export, err := h.service.ExportTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketExportResponse{
		Ticket:    dto.NewTicketResponse(export.Ticket),
		Formatted: export.Formatted,
		Security:  export.Security,
	}})
}

// CancelTicket POST /tickets/:id/cancel.
func (h *TicketsHandler) CancelTicket(c *fiber.Ctx) error {
	var req dto.CancelTicketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if req.Reason == "" {
		req.Reason = "cancelled"
	}
	record, err := h.service.CancelTicket(c.UserContext(), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketStatusResponse(record)})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{EventID: strings.TrimSpace(c.Query("event_id"))}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
