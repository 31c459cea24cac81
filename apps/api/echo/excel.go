package echoapi

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/services/spreadsheet"
)

const fileField = "file"

var errFileRequired = errors.New("file is required")

type excelApi struct {
	svc *spreadsheet.Service
}

func registerExcelAPI(g *echo.Group, svc *spreadsheet.Service, maxUploadSize int64) {
	api := excelApi{svc: svc}

	eg := g.Group("/excel")
	eg.POST("/import/:id", api.importRoster, bodyLimit(maxUploadSize))
	eg.GET("/export/:id", api.exportRoster)
}

func (api *excelApi) importRoster(ctx echo.Context) error {
	fh, err := ctx.FormFile(fileField)
	if err != nil {
		return core.NewValidationError(errFileRequired, core.FieldError{Field: fileField, Error: errFileRequired.Error()})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	res, err := api.svc.Import(ctx.Request().Context(), ctx.Param("id"), fh.Filename, f)
	if err != nil {
		return errors.Wrap(err, "importing roster")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *excelApi) exportRoster(ctx echo.Context) error {
	var buf bytes.Buffer
	filename, err := api.svc.Export(ctx.Request().Context(), ctx.Param("id"), &buf)
	if err != nil {
		return errors.Wrap(err, "exporting roster")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, contentDisposition(filename))
	return ctx.Blob(http.StatusOK, spreadsheet.ContentType, buf.Bytes())
}

// contentDisposition builds an attachment header carrying an ASCII fallback and the RFC 5987 UTF-8 name.
func contentDisposition(filename string) string {
	fallback := strings.Map(func(r rune) rune {
		if r > 0x7e || r < 0x20 || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	encoded := strings.ReplaceAll(url.QueryEscape(filename), "+", "%20")
	return `attachment; filename="` + fallback + `"; filename*=UTF-8''` + encoded
}
