package dispatch

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DispatchHandler derives and submits one document. ?force=true re-enters
// the attempt even after a prior SUCCESS.
func DispatchHandler(builder *PayloadBuilder, tracker *Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		docCode := strings.TrimSpace(c.Param("docCode"))
		if docCode == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "doc code is empty"})
			return
		}
		force := strings.EqualFold(c.Query("force"), "true")

		payload, err := builder.Build(c.Request.Context(), docCode)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrNoSaleLines) || errors.Is(err, gorm.ErrRecordNotFound) {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		result, err := tracker.Dispatch(c.Request.Context(), docCode, payload, force)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"status": result.Status,
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   result.Status,
			"cached":   result.Cached,
			"response": string(result.Response),
		})
	}
}

// BatchDispatchHandler dispatches a list of documents and returns a
// partial-success summary; per-document failures never abort the batch.
func BatchDispatchHandler(builder *PayloadBuilder, tracker *Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DocCodes []string `json:"doc_codes" binding:"required"`
			Force    bool     `json:"force"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		succeeded, cached, failed := 0, 0, 0
		var errs []string
		for _, docCode := range req.DocCodes {
			payload, err := builder.Build(c.Request.Context(), docCode)
			if err != nil {
				failed++
				errs = append(errs, docCode+": "+err.Error())
				continue
			}
			result, err := tracker.Dispatch(c.Request.Context(), docCode, payload, req.Force)
			if err != nil {
				failed++
				errs = append(errs, docCode+": "+err.Error())
				continue
			}
			if result.Cached {
				cached++
			} else {
				succeeded++
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"succeeded": succeeded,
			"cached":    cached,
			"failed":    failed,
			"errors":    errs,
		})
	}
}

// StatusHandler returns the dispatch record for one document.
func StatusHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		docCode := strings.TrimSpace(c.Param("docCode"))
		rec, err := store.Get(c.Request.Context(), docCode)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no dispatch record"})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}
