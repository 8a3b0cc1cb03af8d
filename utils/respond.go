package utils

import (
	"strconv"

	"institution-manager/logger"
	"institution-manager/types"

	"github.com/gofiber/fiber/v2"
)

// Respond writes an ApiResponse with the given status.
func Respond(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(types.ApiResponse{
		Message: message,
		Status:  status,
		Data:    data,
	})
}

// RespondError maps err to its status. Internal errors are logged and their
// detail is not returned.
func RespondError(c *fiber.Ctx, err error) error {
	status := types.StatusOf(err)
	if status == fiber.StatusInternalServerError {
		logger.Error(c.Method()+" "+c.Path()+" failed", err)
	}
	return Respond(c, status, types.MessageOf(err), nil)
}

// ParseBody decodes the JSON body into req and runs its validation.
func ParseBody(c *fiber.Ctx, req interface{ Validate() error }) error {
	if err := c.BodyParser(req); err != nil {
		return types.Validation("Invalid request body")
	}
	return req.Validate()
}

// ParamID reads a positive integer path parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, types.Validation("Invalid %s", name)
	}
	return uint(v), nil
}

// QueryID reads an optional positive integer query parameter.
func QueryID(c *fiber.Ctx, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, types.Validation("Invalid %s", name)
	}
	id := uint(v)
	return &id, nil
}
