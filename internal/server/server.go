package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sahanbull/wikichunker/config"
	"github.com/sahanbull/wikichunker/internal/store"
)

// Run starts the queue API: the pull/push endpoints the enrichment workers
// talk to plus the enrichment lookup endpoint for the collaborator frontend.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	st, err := store.New(context.Background(), cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	th := &TasksHandler{
		Store:        st,
		LeaseTimeout: cfg.Server.LeaseTimeout,
		Logger:       log.New(log.Writer(), "[QUEUE] ", log.LstdFlags),
	}
	th.Register(e.Group("/api/v1"))

	return e.Start(cfg.Server.Address)
}
