package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/peerval/peerval/core"
	"github.com/peerval/peerval/core/evaluation"
)

// StatisticsRequest is the query surface of GET /students/me/statistics.
type StatisticsRequest struct {
	RosterID string `json:"rosterId" query:"rosterId"`
	evaluation.DateRange
}

func (r *StatisticsRequest) Validate(validate *validator.Validate) error {
	r.RosterID = core.CleanString(r.RosterID)
	r.Start = core.CleanString(r.Start)
	r.End = core.CleanString(r.End)
	return validate.Struct(r)
}

func bindQueryFilter(ctx echo.Context, validate *validator.Validate) (*evaluation.QueryFilter, error) {
	filter := new(evaluation.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return nil, errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()
	if err := validate.Struct(filter); err != nil {
		return nil, err
	}
	return filter, nil
}
