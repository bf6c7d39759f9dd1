package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CageChen/ctxhub/internal/aggregate"
	"github.com/CageChen/ctxhub/internal/markdown"
	"github.com/CageChen/ctxhub/internal/report"
	"github.com/CageChen/ctxhub/internal/tokens"
)

// SnapshotResponse is the JSON form of a snapshot.
type SnapshotResponse struct {
	report.Summary
	Alias string `json:"alias"`
	View  string `json:"view,omitempty"`
}

// SnapshotHandler runs aggregations for configured folders.
type SnapshotHandler struct {
	folders  *FolderHandler
	agg      *aggregate.Aggregator
	counter  tokens.Counter
	renderer *markdown.Renderer
	timeout  time.Duration
}

// NewSnapshotHandler creates a snapshot handler. A zero timeout means no
// deadline beyond the request's own.
func NewSnapshotHandler(folders *FolderHandler, agg *aggregate.Aggregator, counter tokens.Counter, timeout time.Duration) *SnapshotHandler {
	if counter == nil {
		counter = tokens.Estimator{}
	}
	return &SnapshotHandler{
		folders:  folders,
		agg:      agg,
		counter:  counter,
		renderer: markdown.NewRenderer(""),
		timeout:  timeout,
	}
}

// run aggregates the folder named by the :alias parameter. It writes the
// error response itself and returns nil when the caller should stop.
func (h *SnapshotHandler) run(c *gin.Context) *aggregate.Result {
	alias := c.Param("alias")
	folder, ok := h.folders.Lookup(alias)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown folder: " + alias})
		return nil
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	res, err := h.agg.Aggregate(ctx, fsForFolder(folder))
	if res == nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return nil
	}
	return res
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, aggregate.ErrRootNotFound):
		return http.StatusNotFound
	case errors.Is(err, aggregate.ErrRootNotDir):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetSnapshot returns the coverage of a fresh snapshot as JSON. With
// ?view=true the view itself is included.
func (h *SnapshotHandler) GetSnapshot(c *gin.Context) {
	res := h.run(c)
	if res == nil {
		return
	}
	view := res.View()
	resp := SnapshotResponse{
		Summary: report.Summarize(res, h.counter.Count(view), h.counter.Name()),
		Alias:   c.Param("alias"),
	}
	if withView, _ := strconv.ParseBool(c.Query("view")); withView {
		resp.View = view
	}
	c.JSON(http.StatusOK, resp)
}

// GetView returns the view as plain text. Coverage is reported in headers.
func (h *SnapshotHandler) GetView(c *gin.Context) {
	res := h.run(c)
	if res == nil {
		return
	}
	c.Header("X-Ctxhub-Status", report.Status(res))
	c.Header("X-Ctxhub-Included", strconv.Itoa(len(res.Included)))
	c.Header("X-Ctxhub-Skipped", strconv.Itoa(len(res.Skipped)))
	c.Header("X-Ctxhub-Size", fmt.Sprintf("%d/%d", res.Size, res.Budget))
	c.String(http.StatusOK, res.View())
}

// GetReport returns the coverage report as an HTML page, or as Markdown
// with ?format=md.
func (h *SnapshotHandler) GetReport(c *gin.Context) {
	res := h.run(c)
	if res == nil {
		return
	}
	md := report.Markdown(res, h.counter.Count(res.View()))
	if c.Query("format") == "md" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}

	doc, err := h.renderer.Render([]byte(md))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(h.renderer.Page(doc)))
}
