package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/metahkg/metahkg-redirect/internal/metrics"
	"github.com/metahkg/metahkg-redirect/internal/model"
)

type handlers struct {
	eval  URLEvaluator
	ready ReadyChecker
	log   *slog.Logger
}

// Info evaluates the url query parameter and responds with a Verdict, or a
// structured error with a matching HTTP status.
func (h *handlers) Info(c *gin.Context) {
	rawURL := c.Query("url")

	v, err := h.eval.Evaluate(c.Request.Context(), rawURL)
	if err != nil {
		var se *model.StatusError
		if !errors.As(err, &se) {
			se = model.ErrUpstream
		}
		metrics.Evaluations.WithLabelValues(strconv.Itoa(se.Code)).Inc()
		c.JSON(se.Code, se)
		return
	}
	metrics.Evaluations.WithLabelValues("200").Inc()
	c.JSON(http.StatusOK, v)
}

// Health reports 200 once the threat feeds have loaded, 503 before.
func (h *handlers) Health(c *gin.Context) {
	if h.ready != nil && !h.ready.Ready() {
		c.String(http.StatusServiceUnavailable, "loading")
		return
	}
	c.String(http.StatusOK, "ok")
}
