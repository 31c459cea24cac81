package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core/reward"
)

type rewardApi struct {
	svc      *reward.Service
	validate *validator.Validate
}

func registerRewardAPI(g *echo.Group, svc *reward.Service, validate *validator.Validate) {
	api := rewardApi{svc: svc, validate: validate}

	rg := g.Group("/rewards")
	rg.POST("/redeem", api.redeem)
	rg.GET("/:id", api.query)
	rg.POST("/:id", api.create)
	rg.DELETE("/:id", api.destroy)
}

func (api *rewardApi) query(ctx echo.Context) error {
	rewards, err := api.svc.Query(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying rewards")
	}
	if rewards == nil {
		rewards = []reward.Reward{}
	}
	return ctx.JSON(http.StatusOK, rewards)
}

func (api *rewardApi) create(ctx echo.Context) error {
	var data reward.NewReward
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReward")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Create(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating reward")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *rewardApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting reward")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Reward deleted"})
}

func (api *rewardApi) redeem(ctx echo.Context) error {
	var data reward.RedeemRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RedeemRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Redeem(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "redeeming reward")
	}
	return ctx.JSON(http.StatusOK, res)
}
