package warehouse

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/retailbridge_backend/models"
	"gorm.io/gorm"
)

// ProcessHandler re-runs warehouse processing for one document.
func ProcessHandler(db *gorm.DB, tracker *Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		docCode := strings.TrimSpace(c.Param("docCode"))
		if docCode == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "doc code is empty"})
			return
		}
		rows, err := models.GetStockTransfersByDocCode(c.Request.Context(), db, docCode)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if len(rows) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "no stock rows for document"})
			return
		}
		if err := tracker.ProcessDocument(c.Request.Context(), docCode, rows); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"doc_code": docCode, "status": "posted"})
	}
}

// RetryFailedHandler re-posts every retryable warehouse record, returning a
// partial-success summary.
func RetryFailedHandler(db *gorm.DB, tracker *Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		failedRecs, err := models.ListFailedWarehousePostings(c.Request.Context(), db, 200)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		retried, failed := 0, 0
		var errs []string
		for _, rec := range failedRecs {
			rows, err := models.GetStockTransfersByDocCode(c.Request.Context(), db, rec.DocCode)
			if err != nil {
				failed++
				errs = append(errs, rec.DocCode+": "+err.Error())
				continue
			}
			if err := tracker.ProcessDocument(c.Request.Context(), rec.DocCode, rows); err != nil {
				failed++
				errs = append(errs, rec.DocCode+": "+err.Error())
				continue
			}
			retried++
		}
		c.JSON(http.StatusOK, gin.H{
			"retried": retried,
			"failed":  failed,
			"errors":  errs,
		})
	}
}
