package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/studiodans/dance-booking/internal/dto"
	"github.com/studiodans/dance-booking/internal/schedule"
	"github.com/studiodans/dance-booking/internal/service"
)

type ScheduleHandler struct {
	svc    service.ScheduleService
	cancel service.CancellationService
}

func NewScheduleHandler(svc service.ScheduleService, cancel service.CancellationService) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, cancel: cancel}
}

func (h *ScheduleHandler) RegisterRoutes(e *echo.Echo) {
	templates := e.Group("/api/v1/templates")
	templates.POST("", h.CreateTemplate)
	templates.GET("", h.ListTemplates)
	templates.GET("/:id", h.GetTemplate)
	templates.POST("/:id/instances", h.ExpandTemplate)
	templates.GET("/:id/instances", h.ListInstances)
	templates.DELETE("/:id/instances", h.CancelSeries)

	instances := e.Group("/api/v1/instances")
	instances.GET("/:id", h.GetInstance)
	instances.DELETE("/:id", h.CancelInstance)
}

func (h *ScheduleHandler) CreateTemplate(c echo.Context) error {
	var req dto.CreateTemplateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tpl := req.ToModel()
	if err := h.svc.CreateTemplate(c.Request().Context(), tpl); err != nil {
		if errors.Is(err, schedule.ErrInvalidSchedule) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, tpl)
}

func (h *ScheduleHandler) GetTemplate(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	tpl, err := h.svc.GetTemplate(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, tpl)
}

func (h *ScheduleHandler) ListTemplates(c echo.Context) error {
	tpls, err := h.svc.ListTemplates(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, tpls)
}

// ExpandTemplate materializes the template's schedule. Safe to call again
// after a partial failure; existing instances are skipped.
func (h *ScheduleHandler) ExpandTemplate(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	created, err := h.svc.ExpandTemplate(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTemplateNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, schedule.ErrInvalidSchedule):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, dto.ToInstanceResponses(created))
}

func (h *ScheduleHandler) ListInstances(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	from := time.Now()
	if s := c.QueryParam("from"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from timestamp")
		}
		from = parsed
	}

	insts, err := h.svc.ListInstances(c.Request().Context(), id, from)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dto.ToInstanceResponses(insts))
}

func (h *ScheduleHandler) GetInstance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	inst, err := h.svc.GetInstance(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrInstanceNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dto.ToInstanceResponse(inst))
}

func (h *ScheduleHandler) CancelInstance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.CancelInstanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	inst, err := h.cancel.CancelInstance(c.Request().Context(), id, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInstanceNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAlreadyCancelled):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, dto.ToInstanceResponse(inst))
}

func (h *ScheduleHandler) CancelSeries(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.CancelSeriesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	count, err := h.cancel.CancelSeries(c.Request().Context(), id, req.From, req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, dto.CancelSeriesResponse{TemplateID: id, Cancelled: count})
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}
