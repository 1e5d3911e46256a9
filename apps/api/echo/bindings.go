package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mzalendo/daftari/core"
)

var (
	orderingParam           = "ordering"
	errInvalidOrderingField = "invalid ordering field"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses the "ordering" query param ("name,-created_at"). Only fields in
// the allowed list are accepted; ordering fields end up in ORDER BY clauses
// and must never carry raw client input.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) error {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return nil
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return nil
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		var known bool
		for _, f := range allowed {
			if f == field {
				known = true
				break
			}
		}
		if !known {
			return core.NewValidationError(nil, core.FieldError{Field: orderingParam, Error: errInvalidOrderingField})
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return nil
}
