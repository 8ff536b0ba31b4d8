package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

type sessionApi struct {
	svc attendance.Service
}

func registerSessionAPI(g *echo.Group, svc attendance.Service) {
	api := sessionApi{svc: svc}

	sg := g.Group("/sessions")
	sg.POST("", api.create)
	sg.GET("", api.query)

	// detail endpoints
	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.POST("/start", api.start)
	dg.POST("/end", api.end)
	dg.POST("/cancel", api.cancel)
	dg.POST("/attendance", api.recordAttendance)

	g.GET("/classes/:id/report", api.classReport)
}

// Handlers

func (api *sessionApi) create(ctx echo.Context) error {
	var data attendance.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	session, err := api.svc.Schedule(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "scheduling session")
	}

	return ctx.JSON(http.StatusCreated, session)
}

func (api *sessionApi) query(ctx echo.Context) error {
	var filter attendance.QueryFilter
	if err := bindSessionFilter(ctx, &filter); err != nil {
		return err
	}

	sessions, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}

	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	session, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == attendance.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "retrieving session")
	}
	return ctx.JSON(http.StatusOK, session)
}

func (api *sessionApi) start(ctx echo.Context) error {
	session, err := api.svc.Start(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, session)
}

func (api *sessionApi) end(ctx echo.Context) error {
	session, err := api.svc.End(ctx.Request().Context(), ctx.Param("id"), time.Now().UTC())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, session)
}

func (api *sessionApi) cancel(ctx echo.Context) error {
	session, err := api.svc.Cancel(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, session)
}

func (api *sessionApi) recordAttendance(ctx echo.Context) error {
	var data attendance.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rec, err := api.svc.RecordAttendance(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *sessionApi) classReport(ctx echo.Context) error {
	report, err := api.svc.ClassReport(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building class report")
	}
	return ctx.JSON(http.StatusOK, report)
}

// Bindings

func bindSessionFilter(ctx echo.Context, filter *attendance.QueryFilter) error {
	filter.ClassID = core.CleanString(ctx.QueryParam("class"))

	if status := core.CleanString(ctx.QueryParam("status")); status != "" {
		filter.Status = attendance.SessionStatus(status)
		if !filter.Status.Valid() {
			return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid session status"})
		}
	}

	if date := core.CleanString(ctx.QueryParam("date")); date != "" {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "invalid date; expected YYYY-MM-DD"})
		}
		filter.Date = d
	}
	return nil
}
