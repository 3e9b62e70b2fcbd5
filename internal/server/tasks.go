package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sahanbull/wikichunker/internal/enrich"
	"github.com/sahanbull/wikichunker/internal/store"
)

// TasksHandler serves the enrichment queue endpoints. Pull and push mirror
// what the workers speak; the enrichments endpoint is the producer side that
// bumps task priority on every miss.
type TasksHandler struct {
	Store        *store.Store
	LeaseTimeout time.Duration
	Logger       *log.Logger
}

func (h *TasksHandler) Register(g *echo.Group) {
	g.POST("/most_urgent_unstarted_enrichment_task/", h.pull)
	g.POST("/ingest_wikichunk_enrichment/", h.ingest)
	g.POST("/wikichunk_enrichments/", h.enrichments)
	g.POST("/ingest_oer/", h.ingestResource)
	g.POST("/retry_failed_enrichment_task/", h.retry)
}

// pull claims the most urgent claimable task and returns the full resource
// payload the worker needs to process it.
func (h *TasksHandler) pull(c echo.Context) error {
	ctx := c.Request().Context()
	url, err := h.Store.ClaimMostUrgent(ctx, h.LeaseTimeout)
	if errors.Is(err, store.ErrNoTask) {
		return c.JSON(http.StatusOK, map[string]string{"info": "No tasks available"})
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	res, found, err := h.Store.GetResource(ctx, url)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		// A task without a backing OER record can never succeed; park it as
		// failed instead of letting workers spin on it.
		h.Logger.Printf("task %s has no resource record, marking failed", url)
		if err := h.Store.CompleteFailure(ctx, url, "resource record missing"); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, map[string]string{"info": "No tasks available"})
	}
	h.Logger.Printf("leased task %s", url)
	return c.JSON(http.StatusOK, map[string]interface{}{"data": res})
}

type ingestRequest struct {
	URL   string            `json:"url"`
	Data  enrich.Enrichment `json:"data"`
	Error *string           `json:"error"`
}

// ingest receives a finished enrichment from a worker: clears the task and
// persists the result on success, flags the task on failure.
func (h *TasksHandler) ingest(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url required")
	}
	ctx := c.Request().Context()
	if req.Error != nil {
		h.Logger.Printf("task %s failed: %s", req.URL, *req.Error)
		if err := h.Store.CompleteFailure(ctx, req.URL, *req.Error); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.String(http.StatusOK, "OK")
	}
	if err := h.Store.SaveEnrichment(ctx, req.URL, req.Data); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Store.CompleteSuccess(ctx, req.URL); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.Logger.Printf("task %s completed with %d chunks", req.URL, len(req.Data.Chunks))
	return c.String(http.StatusOK, "OK")
}

type enrichmentsRequest struct {
	URLs []string `json:"urls"`
}

// enrichments returns stored enrichments for the requested urls. Every miss
// bumps a task by one, so repeated demand for an unprocessed resource keeps
// raising its urgency without duplicating work.
func (h *TasksHandler) enrichments(c echo.Context) error {
	var req enrichmentsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	result := make(map[string]enrich.Enrichment)
	for _, url := range req.URLs {
		e, version, found, err := h.Store.GetEnrichment(ctx, url)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if found && version == store.CurrentEnrichmentVersion {
			result[url] = e
			continue
		}
		if err := h.Store.EnqueueOrBump(ctx, url, 1); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, result)
}

// ingestResource stores (or refreshes) an OER record and queues it for
// enrichment unless an up-to-date enrichment already exists.
func (h *TasksHandler) ingestResource(c echo.Context) error {
	var res enrich.Resource
	if err := c.Bind(&res); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if res.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url required")
	}
	ctx := c.Request().Context()
	if err := h.Store.UpsertResource(ctx, res); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Store.EnqueueIfNeeded(ctx, res.URL, 1); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.String(http.StatusOK, "OK")
}

type retryRequest struct {
	URL string `json:"url"`
}

// retry clears the error flag from a failed task so workers can claim it
// again, typically after the underlying resource was fixed.
func (h *TasksHandler) retry(c echo.Context) error {
	var req retryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url required")
	}
	ctx := c.Request().Context()
	task, found, err := h.Store.GetTask(ctx, req.URL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "no task for url")
	}
	if task.Error == nil {
		return c.String(http.StatusOK, "OK")
	}
	if err := h.Store.ClearFailure(ctx, req.URL); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.Logger.Printf("task %s cleared for retry (was: %s)", req.URL, *task.Error)
	return c.String(http.StatusOK, "OK")
}
