package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/studiodans/dance-booking/internal/dto"
	"github.com/studiodans/dance-booking/internal/models"
	"github.com/studiodans/dance-booking/internal/repository"
	"github.com/studiodans/dance-booking/internal/service"
	"gorm.io/gorm"
)

type EntitlementHandler struct {
	svc    service.EntitlementService
	passes repository.PassRepository
}

func NewEntitlementHandler(svc service.EntitlementService, passes repository.PassRepository) *EntitlementHandler {
	return &EntitlementHandler{svc: svc, passes: passes}
}

func (h *EntitlementHandler) RegisterRoutes(e *echo.Echo) {
	passes := e.Group("/api/v1/passes")
	passes.POST("", h.CreatePass)
	passes.GET("", h.ListPasses)
	passes.GET("/:id", h.GetPass)

	users := e.Group("/api/v1/users")
	users.GET("/:id/entitlements", h.ListEntitlements)
	users.POST("/:id/entitlements", h.SellPass)

	e.POST("/api/v1/entitlements/:id/upgrade", h.Upgrade)
}

func (h *EntitlementHandler) CreatePass(c echo.Context) error {
	var req dto.CreatePassRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	kind := models.PassKind(req.Kind)
	if kind.Limited() && req.ClassesLimit == nil {
		if kind == models.KindSingle {
			one := 1
			req.ClassesLimit = &one
		} else {
			return echo.NewHTTPError(http.StatusBadRequest, "classes_limit is required for clipcards")
		}
	}
	if !kind.Limited() {
		req.ClassesLimit = nil
	}
	if (req.ValidityDays == nil) == (req.ExpiresAt == nil) {
		return echo.NewHTTPError(http.StatusBadRequest, "exactly one of validity_days or expires_at must be set")
	}

	pass := &models.Pass{
		Name:         req.Name,
		Kind:         kind,
		ClassesLimit: req.ClassesLimit,
		Price:        req.Price,
		ValidityDays: req.ValidityDays,
		ExpiresAt:    req.ExpiresAt,
	}
	if err := h.passes.Create(c.Request().Context(), pass); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, pass)
}

func (h *EntitlementHandler) ListPasses(c echo.Context) error {
	passes, err := h.passes.FindAll(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, passes)
}

func (h *EntitlementHandler) GetPass(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	pass, err := h.passes.FindByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "pass not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pass)
}

func (h *EntitlementHandler) ListEntitlements(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}

	es, err := h.svc.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.EntitlementResponse, len(es))
	for i := range es {
		resp[i] = dto.ToEntitlementResponse(&es[i])
	}
	return c.JSON(http.StatusOK, resp)
}

// SellPass records a front-desk sale: payment was taken in person, so the
// idempotency ref is generated server-side instead of arriving on a webhook.
func (h *EntitlementHandler) SellPass(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user id is required")
	}

	var req dto.SellPassRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	pass, err := h.passes.FindByID(c.Request().Context(), req.PassID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "pass not found")
	}

	e, err := h.svc.Purchase(c.Request().Context(), service.PurchaseInput{
		UserID: userID,
		PassID: pass.ID,
		Price:  pass.Price,
		Ref:    "desk-" + uuid.NewString(),
	})
	if err != nil {
		if errors.Is(err, service.ErrPassNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, dto.ToEntitlementResponse(e))
}

func (h *EntitlementHandler) Upgrade(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.UpgradeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.svc.Upgrade(c.Request().Context(), id, req.TargetPassID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEntitlementNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrPassNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrUpgradeNotAvailable):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	resp := dto.UpgradeResponse{
		SourceID:     result.SourceID,
		TargetPassID: result.TargetPassID,
		UpgradeCost:  result.UpgradeCost,
	}
	if result.Granted != nil {
		granted := dto.ToEntitlementResponse(result.Granted)
		resp.Granted = &granted
	}
	return c.JSON(http.StatusOK, resp)
}
