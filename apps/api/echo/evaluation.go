package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/peerval/peerval/core"
	"github.com/peerval/peerval/core/evaluation"
	"github.com/peerval/peerval/core/student"
)

type evaluationApi struct {
	svc        evaluation.Service
	studentSvc student.Service
	validate   *validator.Validate
}

func registerEvaluationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc evaluation.Service,
	studentSvc student.Service,
	validate *validator.Validate,
) {
	api := evaluationApi{
		svc:        svc,
		studentSvc: studentSvc,
		validate:   validate,
	}

	eg := g.Group("/evaluations", jwt)
	eg.POST("", api.save, studentMiddleware())
	eg.GET("", api.query)

	sg := g.Group("/students/me", jwt, studentMiddleware())
	sg.GET("/statistics", api.statistics)
	sg.GET("/rosters", api.myRosters)
}

// Handlers

func (api *evaluationApi) save(ctx echo.Context) error {
	var sub evaluation.Submission
	if err := ctx.Bind(&sub); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err := sub.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	receipt, err := api.svc.Ingest(ctx.Request().Context(), claims.Session(), sub)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"success": true,
		"id":      receipt.ID,
		"saved":   receipt.Saved,
	})
}

func (api *evaluationApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	filter, err := bindQueryFilter(ctx, api.validate)
	if err != nil {
		return err
	}

	switch {
	case claims.IsStudent():
		// students only ever see their own slice of the data
		filter.TargetUsername = claims.Username
		filter.TeacherID = claims.TeacherID
		filter.All = false
	case claims.IsTeacher() || claims.IsAdmin():
		if filter.TeacherID == "" && !filter.All {
			filter.TeacherID = claims.TeacherID
		}
		if !filter.AdminMode() && filter.TargetUsername == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "targetUsername", Error: "a target username is required"})
		}
	default:
		return errHttpForbidden
	}

	records, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying evaluations")
	}
	if records == nil {
		records = []evaluation.Record{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"evaluations": records,
		"count":       len(records),
	})
}

// StatisticsResponse flattens the rollup into the success envelope.
type StatisticsResponse struct {
	Success bool `json:"success"`
	evaluation.Statistics
}

func (api *evaluationApi) statistics(ctx echo.Context) error {
	var req StatisticsRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding to StatisticsRequest")
	}
	if err := req.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	stats, err := api.svc.Aggregate(ctx.Request().Context(), claims.Session(), req.RosterID, req.DateRange)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StatisticsResponse{Success: true, Statistics: stats})
}

func (api *evaluationApi) myRosters(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	rosters, err := api.studentSvc.MyRosters(ctx.Request().Context(), claims.Session())
	if err != nil {
		return errors.Wrap(err, "expanding roster memberships")
	}
	if rosters == nil {
		rosters = []student.Roster{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"success": true,
		"rosters": rosters,
	})
}
