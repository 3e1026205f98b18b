package http_server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danthegoodman1/credittree/encoder"
	"github.com/danthegoodman1/credittree/gologger"
	"github.com/danthegoodman1/credittree/predictor"
	"github.com/danthegoodman1/credittree/table"
	"github.com/danthegoodman1/credittree/tree"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type CustomContext struct {
	echo.Context
	RequestID string
}

func CreateReqContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := uuid.NewString()
		ctx := context.WithValue(c.Request().Context(), gologger.ReqIDKey, reqID)
		ctx = logger.WithContext(ctx)
		c.SetRequest(c.Request().WithContext(ctx))
		logger := zerolog.Ctx(ctx)
		logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("reqID", reqID)
		})
		cc := &CustomContext{
			Context:   c,
			RequestID: reqID,
		}
		return next(cc)
	}
}

// Casts to custom context for the handler, so this doesn't have to be done per handler
func ccHandler(h func(*CustomContext) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h(c.(*CustomContext))
	}
}

func (c *CustomContext) internalErrorMessage() string {
	return "internal error, request id: " + c.RequestID
}

func (c *CustomContext) InternalError(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		zerolog.Ctx(c.Request().Context()).Warn().CallerSkipFrame(1).Msg(err.Error())
	} else {
		zerolog.Ctx(c.Request().Context()).Error().CallerSkipFrame(1).Err(err).Msg(msg)
	}
	return c.String(http.StatusInternalServerError, c.internalErrorMessage())
}

// userError maps errors caused by the request to a status and a single
// message. ok is false for anything the caller could not have fixed.
func userError(err error) (status int, msg string, ok bool) {
	switch {
	case errors.Is(err, encoder.ErrSchemaMismatch),
		errors.Is(err, encoder.ErrBadValue),
		errors.Is(err, table.ErrMalformedCSV),
		errors.Is(err, table.ErrNoHeader),
		errors.Is(err, table.ErrRaggedRow),
		errors.Is(err, table.ErrDuplicateColumn),
		errors.Is(err, table.ErrNotFlatMap),
		errors.Is(err, ErrBadUpload):
		return http.StatusBadRequest, err.Error(), true
	case errors.Is(err, predictor.ErrUnknownModel), errors.Is(err, tree.ErrUnknownCriterion):
		return http.StatusNotFound, err.Error(), true
	}
	return 0, "", false
}

// PredictionError answers with a user-facing message when err came from bad
// input, and falls back to InternalError otherwise.
func (c *CustomContext) PredictionError(err error, msg string) error {
	if status, m, ok := userError(err); ok {
		zerolog.Ctx(c.Request().Context()).Debug().Err(err).Int("status", status).Msg("rejected prediction request")
		return c.String(status, m)
	}
	return c.InternalError(err, msg)
}
