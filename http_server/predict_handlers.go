package http_server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/danthegoodman1/credittree/predictor"
	"github.com/danthegoodman1/credittree/table"
	"github.com/danthegoodman1/credittree/tree"
	"github.com/danthegoodman1/credittree/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
)

const (
	HeaderEncoderOutcome = "X-Encoder-Outcome"
	HeaderUnseenRows     = "X-Unseen-Rows"
	HeaderModelVersion   = "X-Model-Version"

	predictTimeout = 60 * time.Second
)

var ErrBadUpload = errors.New("upload must be a CSV text file")

type (
	PredictRowsReqBody struct {
		Model string           `validate:"required,oneof=gini entropy"`
		Rows  []map[string]any `validate:"required,min=1"`
	}

	PredictionResponse struct {
		Version    string
		Model      tree.Criterion
		Outcome    string
		Columns    []string
		Rows       [][]string
		UnseenRows []uint32
		Warnings   []string
	}
)

func (s *HTTPServer) PredictFile(c *CustomContext) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), predictTimeout)
	defer cancel()

	criterion, err := modelParam(c.QueryParam("model"))
	if err != nil {
		return c.PredictionError(err, "error parsing model")
	}
	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" && format != "parquet" {
		return c.String(http.StatusBadRequest, fmt.Sprintf("unknown format %q, expected csv, json, or parquet", format))
	}

	t, err := readUpload(c)
	if err != nil {
		return c.PredictionError(err, "error reading upload")
	}

	pred, err := s.pred.Predict(ctx, t, criterion)
	if err != nil {
		return c.PredictionError(err, "error in Predict")
	}
	setPredictionHeaders(c, pred)

	switch format {
	case "json":
		return c.JSON(http.StatusOK, predictionResponse(pred))
	case "parquet":
		var buf bytes.Buffer
		if err = table.WriteParquet(&buf, pred.Table); err != nil {
			return c.InternalError(err, "error in WriteParquet")
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, attachment("parquet"))
		return c.Blob(http.StatusOK, "application/vnd.apache.parquet", buf.Bytes())
	default:
		var buf bytes.Buffer
		if err = table.WriteCSV(&buf, pred.Table); err != nil {
			return c.InternalError(err, "error in WriteCSV")
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, attachment("csv"))
		return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	}
}

func (s *HTTPServer) PredictRows(c *CustomContext) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), predictTimeout)
	defer cancel()

	var reqBody PredictRowsReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	t, err := table.FromRecords(reqBody.Rows)
	if err != nil {
		return c.PredictionError(err, "error in FromRecords")
	}

	pred, err := s.pred.Predict(ctx, t, tree.Criterion(reqBody.Model))
	if err != nil {
		return c.PredictionError(err, "error in Predict")
	}
	setPredictionHeaders(c, pred)
	return c.JSON(http.StatusOK, predictionResponse(pred))
}

// modelParam defaults to gini, the first choice on the upload form.
func modelParam(s string) (tree.Criterion, error) {
	if s == "" {
		return tree.Gini, nil
	}
	return tree.ParseCriterion(s)
}

// readUpload parses the multipart "file" field as CSV after checking that it
// sniffs as text.
func readUpload(c echo.Context) (*table.Table, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadUpload, err.Error())
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("error in fh.Open: %w", err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("error in io.ReadAll: %w", err)
	}
	if !isText(mimetype.Detect(b)) {
		return nil, fmt.Errorf("%w: got %s", ErrBadUpload, mimetype.Detect(b).String())
	}
	return table.ReadCSV(bytes.NewReader(b))
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func setPredictionHeaders(c echo.Context, pred *predictor.Prediction) {
	h := c.Response().Header()
	h.Set(HeaderEncoderOutcome, string(pred.Outcome))
	h.Set(HeaderUnseenRows, strconv.FormatUint(pred.UnseenRows.GetCardinality(), 10))
	h.Set(HeaderModelVersion, pred.Version)
}

func predictionResponse(pred *predictor.Prediction) PredictionResponse {
	return PredictionResponse{
		Version:    pred.Version,
		Model:      pred.Criterion,
		Outcome:    string(pred.Outcome),
		Columns:    pred.Table.Columns,
		Rows:       pred.Table.Rows,
		UnseenRows: utils.ArrayOrEmpty(pred.UnseenRows.ToArray()),
		Warnings:   utils.ArrayOrEmpty(pred.Warnings),
	}
}

func attachment(ext string) string {
	return fmt.Sprintf("attachment; filename=\"predictions-%s.%s\"", utils.GenRandomShortID(), ext)
}
