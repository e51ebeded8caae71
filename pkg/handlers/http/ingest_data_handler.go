package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/mcp-guardrail/pkg/batch"
	"github.com/NeuralTrust/mcp-guardrail/pkg/domain/guardrail"
	"github.com/NeuralTrust/mcp-guardrail/pkg/mirror"
)

type ingestBatchBody struct {
	BatchData []guardrail.IngestRecord `json:"batchData"`
}

type ingestSuccessResponse struct {
	Success bool                              `json:"success"`
	Result  string                            `json:"result"`
	Results []guardrail.ValidationBatchResult `json:"results"`
}

type ingestErrorResponse struct {
	Success bool     `json:"success"`
	Result  string   `json:"result"`
	Errors  []string `json:"errors"`
}

type ingestDataHandler struct {
	processor  *batch.Processor
	mirror     mirror.Teer
	background guardrail.BackgroundGroup
	logger     *logrus.Logger
}

// NewIngestDataHandler serves POST /api/ingestData (spec §6). When a
// mirror target is configured, the raw request body is tee'd to it in
// parallel via background; the tee's outcome never affects the response.
func NewIngestDataHandler(processor *batch.Processor, teer mirror.Teer, background guardrail.BackgroundGroup, logger *logrus.Logger) Handler {
	return &ingestDataHandler{processor: processor, mirror: teer, background: background, logger: logger}
}

func (h *ingestDataHandler) Handle(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.Body()...)

	if h.background != nil {
		h.background.Go(func(ctx context.Context) {
			h.mirror.Tee(ctx, rawBody)
		})
	} else {
		h.mirror.Tee(c.Context(), rawBody)
	}

	var body ingestBatchBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ingestErrorResponse{
			Success: false,
			Result:  "ERROR",
			Errors:  []string{"invalid request body"},
		})
	}

	results, err := h.processor.Process(c.Context(), body.BatchData)
	if err != nil {
		h.logger.WithError(err).Error("failed to process ingest batch")
		return c.Status(fiber.StatusOK).JSON(ingestErrorResponse{
			Success: false,
			Result:  "ERROR",
			Errors:  []string{err.Error()},
		})
	}

	return c.Status(fiber.StatusOK).JSON(ingestSuccessResponse{
		Success: true,
		Result:  "SUCCESS",
		Results: results,
	})
}
