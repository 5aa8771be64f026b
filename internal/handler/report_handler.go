package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lifegpa-api/internal/service"
	"github.com/noah-isme/lifegpa-api/internal/utils"
)

// ReportHandler lists stored baseline report cards.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler constructs a report handler.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register wires report routes.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
}

func (h *ReportHandler) list(c *fiber.Ctx) error {
	reports, err := h.service.ListForUser(requestContext(c), userIDFromContext(c))
	if err != nil {
		var (
			authErr    *service.AuthorizationError
			networkErr *service.NetworkError
		)
		switch {
		case errors.As(err, &authErr):
			return utils.SendError(c, fiber.StatusUnauthorized, authErr.UserMessage())
		case errors.As(err, &networkErr):
			return utils.SendError(c, fiber.StatusServiceUnavailable, networkErr.UserMessage())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to list reports")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to list reports")
		}
	}

	return utils.OK(c, reports, "reports retrieved", fiber.Map{"count": len(reports)})
}
