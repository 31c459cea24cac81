package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core/student"
)

type studentApi struct {
	svc      *student.Service
	validate *validator.Validate
}

// Every route uses `:id`: a classroom id on list/create/rankings, a student id elsewhere.
func registerStudentAPI(g *echo.Group, svc *student.Service, validate *validator.Validate) {
	api := studentApi{svc: svc, validate: validate}

	sg := g.Group("/students")
	sg.GET("/detail/:id", api.retrieve)
	sg.GET("/rankings/:id", api.rankings)
	sg.GET("/:id", api.query)
	sg.POST("/:id", api.create)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
	sg.POST("/:id/points", api.changePoints)
}

func (api *studentApi) query(ctx echo.Context) error {
	students, err := api.svc.Query(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	detail, err := api.svc.Detail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Student deleted"})
}

func (api *studentApi) changePoints(ctx echo.Context) error {
	var data student.PointChange
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PointChange")
	}

	res, err := api.svc.ChangePoints(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "changing points")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentApi) rankings(ctx echo.Context) error {
	var limit Limit
	if err := limit.Bind(ctx); err != nil {
		return err
	}

	entries, err := api.svc.Rankings(ctx.Request().Context(), ctx.Param("id"), int(limit))
	if err != nil {
		return errors.Wrap(err, "getting rankings")
	}
	return ctx.JSON(http.StatusOK, entries)
}
