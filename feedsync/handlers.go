package feedsync

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/retailbridge_backend/models"
	"github.com/mmdatafocus/retailbridge_backend/utils"
)

// TriggerSyncHandler queues a run for a date + brand and publishes it to
// the worker. An unparseable date is the one fatal input error.
func TriggerSyncHandler(w *Worker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TriggerSyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		feedDate, ok := utils.ParseFeedDate(req.Date)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot parse date"})
			return
		}

		run := models.SyncRun{
			Brand:       req.Brand,
			FeedDate:    feedDate,
			Status:      models.SyncRunStatusQueued,
			TriggeredBy: models.SyncTriggeredManual,
		}
		if err := w.DB.WithContext(c.Request.Context()).Create(&run).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		payload := RunPayload{RunId: run.ID, Brand: req.Brand, Date: req.Date}
		if err := PublishSyncRun(c.Request.Context(), payload); err != nil {
			// No broker available: degrade to inline processing so manual
			// triggers still work in dev.
			bg := detachedRequestContext(c)
			go func() {
				_ = w.ProcessSyncRun(bg, payload)
			}()
		}
		c.JSON(http.StatusAccepted, gin.H{"run_id": run.ID})
	}
}

func SyncHistoryHandler(w *Worker) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		runs, err := models.ListSyncRuns(c.Request.Context(), w.DB, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": runs})
	}
}

func SyncRunDetailHandler(w *Worker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}
		run, err := models.GetSyncRun(c.Request.Context(), w.DB, uint(id))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		errs, err := models.ListSyncErrors(c.Request.Context(), w.DB, run.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"run": run, "errors": errs})
	}
}

// RetrySyncRunHandler queues a child run with the same date + brand.
func RetrySyncRunHandler(w *Worker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}
		parent, err := models.GetSyncRun(c.Request.Context(), w.DB, uint(id))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}

		parentId := parent.ID
		run := models.SyncRun{
			Brand:       parent.Brand,
			FeedDate:    parent.FeedDate,
			Status:      models.SyncRunStatusQueued,
			TriggeredBy: models.SyncTriggeredRetry,
			ParentRunId: &parentId,
		}
		if err := w.DB.WithContext(c.Request.Context()).Create(&run).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		payload := RunPayload{RunId: run.ID, Brand: run.Brand, Date: run.FeedDate.Format("2006-01-02")}
		if err := PublishSyncRun(c.Request.Context(), payload); err != nil {
			bg := detachedRequestContext(c)
			go func() {
				_ = w.ProcessSyncRun(bg, payload)
			}()
		}
		c.JSON(http.StatusAccepted, gin.H{"run_id": run.ID})
	}
}

// detachedRequestContext captures the request context and strips its
// cancellation. Must be called on the handler goroutine: gin pools contexts,
// so c.Request is not safe to touch once the handler returns.
func detachedRequestContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// ResyncUnresolvedHandler clears the unresolved flag for the given doc
// codes so the next derivation pass retries reference lookups for them.
func ResyncUnresolvedHandler(w *Worker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DocCodes []string `json:"doc_codes" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := models.MarkSaleLinesResolved(c.Request.Context(), w.DB, req.DocCodes); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"resynced": len(req.DocCodes)})
	}
}
