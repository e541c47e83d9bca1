package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hasib1010/Happylife-sub003/app/models"
	"github.com/hasib1010/Happylife-sub003/app/repository"
)

// AccountController ingests account state from the upstream authenticator.
// The engine never verifies credentials; it only mirrors who exists and which
// role they hold so entitlement and ownership checks can run locally.
type AccountController struct {
	users repository.UserRepository
}

// NewAccountController wires the internal account sync endpoint.
func NewAccountController(users repository.UserRepository) *AccountController {
	return &AccountController{users: users}
}

type upsertAccountRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// HandleUpsertAccount creates or updates the local account mirror, keyed by
// email. Called by the upstream authenticator whenever an account is created
// or its role changes.
func (ct *AccountController) HandleUpsertAccount(c *fiber.Ctx) error {
	var req upsertAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "could not parse request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))

	switch req.Role {
	case "", models.ROLE_USER, models.ROLE_PROVIDER, models.ROLE_SELLER, models.ROLE_ADMIN:
	default:
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "unknown role")
	}

	existing, err := ct.users.GetByEmail(req.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load account")
	}

	if existing == nil {
		// The mirror never authenticates locally; the password slot is filled
		// with a throwaway secret to satisfy the schema.
		user, err := models.CreateUser(req.Name, req.Email, uuid.NewString(), req.Role)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
		}
		if req.Status != "" {
			user.Status = req.Status
		}
		if err := ct.users.Create(user); err != nil {
			log.Errorf("[Account] Create failed for %s: %v", req.Email, err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not create account")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "id": user.ID})
	}

	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Role != "" {
		existing.Role = req.Role
	}
	if req.Status != "" {
		existing.Status = req.Status
	}
	if err := existing.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}
	if err := ct.users.Update(existing); err != nil {
		log.Errorf("[Account] Update failed for %s: %v", req.Email, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not update account")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "id": existing.ID})
}

// HandleGetAccount returns the mirrored account state, so the upstream can
// verify a sync landed.
func (ct *AccountController) HandleGetAccount(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	user, err := ct.users.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "not_found", "no account with this id")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_error", "could not load account")
	}
	return c.Status(fiber.StatusOK).JSON(user)
}
