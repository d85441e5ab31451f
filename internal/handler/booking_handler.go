package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/studiodans/dance-booking/internal/dto"
	"github.com/studiodans/dance-booking/internal/service"
)

type BookingHandler struct {
	svc    service.BookingService
	cancel service.CancellationService
}

func NewBookingHandler(svc service.BookingService, cancel service.CancellationService) *BookingHandler {
	return &BookingHandler{svc: svc, cancel: cancel}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo) {
	instances := e.Group("/api/v1/instances")
	instances.POST("/:id/bookings", h.CreateBooking)
	instances.GET("/:id/bookings", h.ListBookings)

	e.GET("/api/v1/bookings/:id", h.GetBooking)
	e.DELETE("/api/v1/bookings/:id", h.CancelBooking)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	instanceID, err := parseID(c)
	if err != nil {
		return err
	}

	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	booking, err := h.svc.Book(c.Request().Context(), req.UserID, instanceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInstanceNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAlreadyCancelled):
			return echo.NewHTTPError(http.StatusGone, err.Error())
		case errors.Is(err, service.ErrCapacityExceeded):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrDuplicateBooking):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrNoValidEntitlement):
			return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
		case errors.Is(err, service.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	bookingID, err := parseID(c)
	if err != nil {
		return err
	}

	booking, err := h.cancel.CancelBooking(c.Request().Context(), bookingID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBookingNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAlreadyCancelled):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ListBookings(c echo.Context) error {
	instanceID, err := parseID(c)
	if err != nil {
		return err
	}

	bookings, err := h.svc.ListByInstance(c.Request().Context(), instanceID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.BookingResponse, len(bookings))
	for i := range bookings {
		resp[i] = dto.ToBookingResponse(&bookings[i])
	}
	return c.JSON(http.StatusOK, resp)
}
