package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/hasib1010/Happylife-sub003/app/models"
)

const defaultRequestTimeout = 15 * time.Second

// ErrorHandler renders every error escaping a handler in the same JSON shape
// the handlers use themselves, so helpers and middleware can signal failures
// with fiber.NewError instead of writing responses mid-call.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "unexpected error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		message = fe.Message
	}
	if status >= fiber.StatusInternalServerError {
		log.Errorf("[App] Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
		message = "unexpected error"
	}
	return jsonError(c, status, errorCode(status), message)
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "invalid_request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusConflict:
		return "conflict"
	case fiber.StatusTooManyRequests:
		return "rate_limited"
	case fiber.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal_error"
	}
}

// requestContext derives a bounded context for downstream service calls.
func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultRequestTimeout)
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	raw := strings.TrimSpace(c.Params(name))
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(v), nil
}

// parseListingKind validates the :kind route segment.
func parseListingKind(c *fiber.Ctx) (string, error) {
	kind := strings.ToLower(strings.TrimSpace(c.Params("kind")))
	switch kind {
	case models.ListingKindProduct, models.ListingKindService:
		return kind, nil
	default:
		return "", fiber.NewError(fiber.StatusBadRequest, "unknown listing kind")
	}
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

func parsePagination(c *fiber.Ctx) (offset, limit int) {
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit = c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return offset, limit
}
