package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
)

const limitParam = "limit"

var errInvalidLimit = errors.New("limit must be a positive integer")

// Limit is the optional `limit` query param; 0 means unset.
type Limit int

func (l *Limit) Bind(ctx echo.Context) error {
	val := ctx.QueryParam(limitParam)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return core.NewValidationError(errInvalidLimit, core.FieldError{Field: limitParam, Error: errInvalidLimit.Error()})
	}
	*l = Limit(n)
	return nil
}
