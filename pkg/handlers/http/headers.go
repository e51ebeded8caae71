package http

import "github.com/gofiber/fiber/v2"

// headersOf flattens fiber's multi-value request headers to the single-
// value map ValidationContext and the policy/audit lookups expect.
func headersOf(c *fiber.Ctx) map[string]string {
	headers := make(map[string]string)
	for key, values := range c.GetReqHeaders() {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	return headers
}
