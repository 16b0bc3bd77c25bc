package params

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// QueryParams carries common pagination parameters parsed from the query string.
type QueryParams struct {
	PageNumber int
	PageSize   int
	Search     string
}

func ParseQueryParams(c echo.Context) QueryParams {
	p := QueryParams{
		PageNumber: 1,
		PageSize:   20,
		Search:     c.QueryParam("search"),
	}
	if n, err := strconv.Atoi(c.QueryParam("page")); err == nil && n > 0 {
		p.PageNumber = n
	}
	if n, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && n > 0 && n <= 100 {
		p.PageSize = n
	}
	return p
}
