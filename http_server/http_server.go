package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/danthegoodman1/credittree/crdb"
	"github.com/danthegoodman1/credittree/gologger"
	"github.com/danthegoodman1/credittree/predictor"
	"github.com/danthegoodman1/credittree/utils"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"
)

var logger = gologger.NewLogger()

type (
	HTTPServer struct {
		Echo *echo.Echo

		pred *predictor.Predictor
		// nil when run history is disabled
		runs RunLister
	}

	RunLister interface {
		ListTrainingRuns(ctx context.Context, limit int) ([]crdb.TrainingRun, error)
	}

	CustomValidator struct {
		validator *validator.Validate
	}
)

// NewHTTPServer wires routes without listening.
func NewHTTPServer(pred *predictor.Predictor, runs RunLister) *HTTPServer {
	s := &HTTPServer{
		Echo: echo.New(),
		pred: pred,
		runs: runs,
	}
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.JSONSerializer = &utils.NoEscapeJSONSerializer{}
	s.Echo.Renderer = newRenderer()

	s.Echo.Use(CreateReqContext)
	s.Echo.Use(LoggerMiddleware)
	s.Echo.Use(middleware.CORS())
	s.Echo.Use(middleware.BodyLimit(fmt.Sprintf("%dM", utils.MAX_UPLOAD_MB)))
	s.Echo.Validator = &CustomValidator{validator: validator.New()}

	// technical - no auth
	s.Echo.GET("/hc", s.HealthCheck)

	limiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStore(rate.Limit(utils.RATE_LIMIT_RPS)),
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.String(http.StatusTooManyRequests, "too many requests")
		},
	})

	api := s.Echo.Group("/api", limiter)
	api.GET("/models", ccHandler(s.ListModels))
	api.GET("/models/:criterion/importance", ccHandler(s.GetImportance))
	api.POST("/predict", ccHandler(s.PredictFile))
	api.POST("/predict/rows", ccHandler(s.PredictRows))
	api.GET("/runs", ccHandler(s.ListRuns))

	s.Echo.GET("/", ccHandler(s.HomePage), limiter)
	s.Echo.GET("/upload", ccHandler(s.UploadPage), limiter)
	s.Echo.POST("/upload", ccHandler(s.ResultsPage), limiter)
	s.Echo.GET("/models", ccHandler(s.ModelsPage), limiter)
	s.Echo.GET("/importance", ccHandler(s.ImportancePage), limiter)

	return s
}

func StartHTTPServer(pred *predictor.Predictor, runs RunLister) *HTTPServer {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", utils.HTTP_PORT))
	if err != nil {
		logger.Error().Err(err).Msg("error creating tcp listener, exiting")
		os.Exit(1)
	}
	s := NewHTTPServer(pred, runs)

	s.Echo.Listener = listener
	go func() {
		logger.Info().Msg("starting h2c server on " + listener.Addr().String())
		err := s.Echo.StartH2CServer("", &http2.Server{})
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("failed to start h2c server, exiting")
			os.Exit(1)
		}
	}()

	return s
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func ValidateRequest(c echo.Context, s interface{}) error {
	if err := c.Bind(s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(s); err != nil {
		return err
	}
	return nil
}

func (*HTTPServer) HealthCheck(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	return err
}

func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			// default handler
			c.Error(err)
		}
		stop := time.Since(start)
		logger := zerolog.Ctx(c.Request().Context())
		req := c.Request()
		res := c.Response()

		p := req.URL.Path
		if p == "" {
			p = "/"
		}

		cl := req.Header.Get(echo.HeaderContentLength)
		if cl == "" {
			cl = "0"
		}
		logger.Debug().Str("method", req.Method).Str("remote_ip", c.RealIP()).Str("req_uri", req.RequestURI).Str("handler_path", c.Path()).Str("path", p).Int("status", res.Status).Int64("latency_ns", int64(stop)).Str("protocol", req.Proto).Str("bytes_in", cl).Int64("bytes_out", res.Size).Msg("req received")
		return nil
	}
}
