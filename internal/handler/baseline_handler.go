package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lifegpa-api/internal/dto"
	"github.com/noah-isme/lifegpa-api/internal/models"
	"github.com/noah-isme/lifegpa-api/internal/service"
	"github.com/noah-isme/lifegpa-api/internal/utils"
)

// BaselineHandler exposes the baseline grading step.
type BaselineHandler struct {
	service   service.BaselineService
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewBaselineHandler constructs a baseline handler.
func NewBaselineHandler(service service.BaselineService, validate *validator.Validate, logger zerolog.Logger) *BaselineHandler {
	return &BaselineHandler{
		service:   service,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "baseline_handler").Logger(),
	}
}

// Register wires baseline routes. submitGuard runs in front of the submit
// route only, typically a rate limiter.
func (h *BaselineHandler) Register(router fiber.Router, submitGuard ...fiber.Handler) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.stream))

	router.Get("/grades", h.grades)
	router.Get("/", h.view)
	router.Post("/", h.mount)
	router.Delete("/", h.unmount)
	router.Post("/reload", h.reload)
	router.Put("/grades/:categoryId", h.setGrade)
	router.Put("/descriptions/:categoryId", h.setDescription)
	router.Post("/back", h.back)

	submit := append(append([]fiber.Handler{}, submitGuard...), h.submit)
	router.Post("/submit", submit...)
}

func (h *BaselineHandler) grades(c *fiber.Ctx) error {
	options := make([]string, 0, len(models.Grades))
	for _, grade := range models.Grades {
		options = append(options, grade.String())
	}
	return utils.SendSuccess(c, "grades retrieved", dto.GradeOptionsResponse{Grades: options})
}

func (h *BaselineHandler) view(c *fiber.Ctx) error {
	view, err := h.service.View(requestContext(c), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, &view)
	}
	return utils.SendSuccess(c, "baseline step retrieved", h.render(view))
}

func (h *BaselineHandler) mount(c *fiber.Ctx) error {
	view, err := h.service.Mount(requestContext(c), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, &view)
	}
	return utils.SendSuccess(c, "baseline step mounted", h.render(view))
}

func (h *BaselineHandler) reload(c *fiber.Ctx) error {
	view, err := h.service.Reload(requestContext(c), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, &view)
	}
	return utils.SendSuccess(c, "baseline categories reloaded", h.render(view))
}

func (h *BaselineHandler) unmount(c *fiber.Ctx) error {
	if err := h.service.Unmount(requestContext(c), userIDFromContext(c)); err != nil {
		return h.handleError(c, err, nil)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *BaselineHandler) setGrade(c *fiber.Ctx) error {
	categoryID, err := parseUintParam(c, "categoryId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	payload.Grade = strings.TrimSpace(payload.Grade)
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err, nil)
	}

	view, err := h.service.SetGrade(requestContext(c), userIDFromContext(c), categoryID, payload.Grade)
	if err != nil {
		return h.handleError(c, err, &view)
	}
	return utils.SendSuccess(c, "grade updated", h.render(view))
}

func (h *BaselineHandler) setDescription(c *fiber.Ctx) error {
	categoryID, err := parseUintParam(c, "categoryId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.DescriptionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err, nil)
	}

	view, err := h.service.SetDescription(requestContext(c), userIDFromContext(c), categoryID, payload.Description)
	if err != nil {
		return h.handleError(c, err, &view)
	}
	return utils.SendSuccess(c, "description updated", h.render(view))
}

func (h *BaselineHandler) submit(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Get("Idempotency-Key"))
	if len(key) > 128 {
		return utils.SendError(c, fiber.StatusBadRequest, "idempotency key too long")
	}

	view, err := h.service.Submit(requestContext(c), userIDFromContext(c), key)
	if err != nil {
		return h.handleError(c, err, &view)
	}

	requestLogger(h.logger, c).Info().Str("user_id", userIDFromContext(c)).Msg("baseline submitted")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "baseline report saved", h.render(view))
}

func (h *BaselineHandler) back(c *fiber.Ctx) error {
	view, err := h.service.Back(requestContext(c), userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err, &view)
	}
	return utils.SendSuccess(c, "returned to previous step", h.render(view))
}

func (h *BaselineHandler) stream(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "user id missing"))
		return
	}

	ctx, _ := conn.Locals("request_ctx").(context.Context)
	if ctx == nil {
		ctx = context.Background()
	}

	updates, cancel, err := h.service.Watch(ctx, userID)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("baseline stream rejected")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, service.UserMessage(err)))
		return
	}
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Info().Str("user_id", userID).Msg("baseline stream connected")
	defer h.logger.Info().Str("user_id", userID).Msg("baseline stream disconnected")

	for {
		select {
		case <-closed:
			return
		case view, ok := <-updates:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "baseline step closed"))
				return
			}
			if err := conn.WriteJSON(h.render(view)); err != nil {
				return
			}
		}
	}
}

// render adds an HTML-safe copy of every description. Descriptions themselves
// are returned exactly as entered.
func (h *BaselineHandler) render(view dto.BaselineStepView) dto.BaselineStepView {
	if len(view.Descriptions) == 0 {
		return view
	}
	view.DescriptionsHTML = make(map[uint]string, len(view.Descriptions))
	for id, text := range view.Descriptions {
		view.DescriptionsHTML[id] = h.sanitizer.Sanitize(text)
	}
	return view
}

func (h *BaselineHandler) handleError(c *fiber.Ctx, err error, view *dto.BaselineStepView) error {
	var (
		data          interface{}
		validationErr *service.ValidationError
		authErr       *service.AuthorizationError
		networkErr    *service.NetworkError
	)
	if view != nil && view.Status != "" {
		data = h.render(*view)
	}

	switch {
	case errors.As(err, &validationErr):
		return utils.FailWithData(c, fiber.StatusUnprocessableEntity, validationErr.UserMessage(), fiber.Map{"field": validationErr.Field}, data)
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "invalid request", validationDetails(err))
	case errors.As(err, &authErr):
		return utils.FailWithData(c, fiber.StatusUnauthorized, authErr.UserMessage(), nil, data)
	case errors.As(err, &networkErr):
		requestLogger(h.logger, c).Warn().Err(err).Msg("baseline backend unavailable")
		return utils.FailWithData(c, fiber.StatusServiceUnavailable, networkErr.UserMessage(), nil, data)
	case errors.Is(err, service.ErrStepNotMounted):
		return utils.SendError(c, fiber.StatusConflict, "baseline step is not mounted")
	case errors.Is(err, service.ErrSubmitInProgress):
		return utils.FailWithData(c, fiber.StatusConflict, "a submission is already in progress", nil, data)
	default:
		requestLogger(h.logger, c).Error().Err(err).Str("path", c.Path()).Msg("baseline request failed")
		return utils.FailWithData(c, fiber.StatusInternalServerError, service.UserMessage(err), nil, data)
	}
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
