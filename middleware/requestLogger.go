package middleware

import (
	"institution-manager/logger"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestLogger tags each request with an id and hands a sanitized copy of
// the exchange to the async logger once the handler has run.
func RequestLogger(asyncLogger *logger.AsyncLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := uuid.NewString()
		c.Locals("request_id", requestID)
		c.Set("X-Request-ID", requestID)

		if err := c.Next(); err != nil {
			// write the error response now so it is what gets logged
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				return herr
			}
		}

		asyncLogger.Log(utils.CreateSanitizedLogEntry(c, requestID, CurrentUser(c).ID))
		return nil
	}
}
