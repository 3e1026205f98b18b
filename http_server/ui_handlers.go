package http_server

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/danthegoodman1/credittree/encoder"
	"github.com/danthegoodman1/credittree/predictor"
	"github.com/danthegoodman1/credittree/table"
	"github.com/danthegoodman1/credittree/tree"
	"github.com/danthegoodman1/credittree/utils"
	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "upload", "results", "models", "importance"}

type (
	renderer struct {
		pages map[string]*template.Template
	}

	basePage struct {
		Title    string
		Active   string
		Version  string
		Degraded bool
		Features []string
		Target   string
		Criteria []tree.Criterion
	}

	uploadPage struct {
		basePage
		Error string
	}

	resultsPage struct {
		basePage
		Model        tree.Criterion
		Outcome      string
		Warnings     []string
		Preview      *table.Table
		Summary      []table.ColumnSummary
		Results      *table.Table
		Flagged      map[int]bool
		Unseen       uint64
		DownloadURL  template.URL
		DownloadName string
	}

	modelsPage struct {
		basePage
		Models []predictor.ModelInfo
	}

	importancePage struct {
		basePage
		Model tree.Criterion
		Chart barChart
	}
)

func newRenderer() *renderer {
	funcs := template.FuncMap{
		"f2":  func(f float64) string { return fmt.Sprintf("%.2f", f) },
		"f3":  func(f float64) string { return fmt.Sprintf("%.3f", f) },
		"pct": func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
	}
	r := &renderer{pages: map[string]*template.Template{}}
	for _, p := range pageNames {
		r.pages[p] = template.Must(template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+p+".html"))
	}
	return r
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

func (s *HTTPServer) base(title, active string) basePage {
	schema := s.pred.Schema()
	return basePage{
		Title:    title,
		Active:   active,
		Version:  s.pred.Version(),
		Degraded: s.pred.Degraded(),
		Features: schema.Features,
		Target:   schema.Target,
		Criteria: s.pred.Criteria(),
	}
}

func (s *HTTPServer) HomePage(c *CustomContext) error {
	return c.Render(http.StatusOK, "home", s.base("Home", "home"))
}

func (s *HTTPServer) UploadPage(c *CustomContext) error {
	return c.Render(http.StatusOK, "upload", uploadPage{basePage: s.base("Upload Data", "upload")})
}

func (s *HTTPServer) ResultsPage(c *CustomContext) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), predictTimeout)
	defer cancel()

	fail := func(err error, msg string) error {
		status, m, ok := userError(err)
		if !ok {
			return c.InternalError(err, msg)
		}
		return c.Render(status, "upload", uploadPage{basePage: s.base("Upload Data", "upload"), Error: m})
	}

	criterion, err := modelParam(c.FormValue("model"))
	if err != nil {
		return fail(err, "error parsing model")
	}
	t, err := readUpload(c)
	if err != nil {
		return fail(err, "error reading upload")
	}
	pred, err := s.pred.Predict(ctx, t, criterion)
	if err != nil {
		return fail(err, "error in Predict")
	}

	var buf bytes.Buffer
	if err = table.WriteCSV(&buf, pred.Table); err != nil {
		return c.InternalError(err, "error in WriteCSV")
	}

	flagged := map[int]bool{}
	for i := range pred.Classes {
		if pred.Outcome != encoder.OutcomeConsistent || pred.UnseenRows.Contains(uint32(i)) {
			flagged[i] = true
		}
	}

	setPredictionHeaders(c, pred)
	return c.Render(http.StatusOK, "results", resultsPage{
		basePage:     s.base("Prediction Results", "upload"),
		Model:        criterion,
		Outcome:      string(pred.Outcome),
		Warnings:     pred.Warnings,
		Preview:      t.Head(int(utils.PREVIEW_ROWS)),
		Summary:      table.Summarize(t),
		Results:      pred.Table,
		Flagged:      flagged,
		Unseen:       pred.UnseenRows.GetCardinality(),
		DownloadURL:  template.URL("data:text/csv;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())),
		DownloadName: "predictions.csv",
	})
}

func (s *HTTPServer) ModelsPage(c *CustomContext) error {
	return c.Render(http.StatusOK, "models", modelsPage{
		basePage: s.base("Model Info", "models"),
		Models:   s.pred.Models(),
	})
}

func (s *HTTPServer) ImportancePage(c *CustomContext) error {
	criterion, err := modelParam(c.QueryParam("model"))
	if err != nil {
		return c.PredictionError(err, "error parsing model")
	}
	info, err := s.pred.Model(criterion)
	if err != nil {
		return c.PredictionError(err, "error in Model")
	}
	return c.Render(http.StatusOK, "importance", importancePage{
		basePage: s.base("Feature Importance", "importance"),
		Model:    criterion,
		Chart:    newBarChart(info.Importances),
	})
}
