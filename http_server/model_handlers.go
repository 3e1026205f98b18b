package http_server

import (
	"net/http"
	"strconv"

	"github.com/danthegoodman1/credittree/predictor"
	"github.com/danthegoodman1/credittree/tree"
)

type ModelsResponse struct {
	Version string
	// Degraded is true when no encoder registry was loaded.
	Degraded bool
	Features []string
	Target   string
	Models   []predictor.ModelInfo
}

func (s *HTTPServer) ListModels(c *CustomContext) error {
	schema := s.pred.Schema()
	return c.JSON(http.StatusOK, ModelsResponse{
		Version:  s.pred.Version(),
		Degraded: s.pred.Degraded(),
		Features: schema.Features,
		Target:   schema.Target,
		Models:   s.pred.Models(),
	})
}

func (s *HTTPServer) GetImportance(c *CustomContext) error {
	info, err := s.pred.Model(tree.Criterion(c.Param("criterion")))
	if err != nil {
		return c.PredictionError(err, "error in Model")
	}
	return c.JSON(http.StatusOK, info.SortedImportances())
}

func (s *HTTPServer) ListRuns(c *CustomContext) error {
	if s.runs == nil {
		return c.String(http.StatusNotFound, "training run history is disabled")
	}
	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil {
			return c.String(http.StatusBadRequest, "limit must be an integer")
		}
	}
	runs, err := s.runs.ListTrainingRuns(c.Request().Context(), limit)
	if err != nil {
		return c.InternalError(err, "error in ListTrainingRuns")
	}
	return c.JSON(http.StatusOK, runs)
}
