package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/paraiso-astral/gate-service/internal/api/dto"
	"github.com/paraiso-astral/gate-service/internal/service"
	apperrors "github.com/paraiso-astral/gate-service/pkg/util/errorutil"
)

// OperatorsHandler handles operator login and account administration.
type OperatorsHandler struct {
	auth *service.AuthService
}

// NewOperatorsHandler constructs handler.
func NewOperatorsHandler(authService *service.AuthService) *OperatorsHandler {
	return &OperatorsHandler{auth: authService}
}

// Login POST /auth/login.
func (h *OperatorsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	operator, token, meta, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		AccessToken: token,
		ExpiresAt:   meta.ExpiresAt,
		Operator:    dto.NewOperatorResponse(operator),
	}})
}

// CreateOperator POST /operators.
func (h *OperatorsHandler) CreateOperator(c *fiber.Ctx) error {
	var req dto.CreateOperatorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Name) == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		return apperrors.NewValidationError("name, email, password, role required", nil)
	}
	operator, err := h.auth.CreateOperator(c.UserContext(), service.OperatorInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		GateID:   req.GateID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewOperatorResponse(operator)})
}

// SetActive PATCH /operators/:id.
func (h *OperatorsHandler) SetActive(c *fiber.Ctx) error {
	var req dto.SetOperatorActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.auth.SetOperatorActive(c.UserContext(), c.Params("id"), req.Active); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
