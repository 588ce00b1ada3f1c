package feedsync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/retailbridge_backend/models"
	"github.com/mmdatafocus/retailbridge_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type fakeWarehouse struct {
	calls []string
	err   error
}

func (f *fakeWarehouse) ProcessDocument(ctx context.Context, docCode string, rows []models.StockTransfer) error {
	f.calls = append(f.calls, docCode)
	return f.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestTriggerWarehouse_ErrorsDoNotAbortOrPropagate(t *testing.T) {
	wh := &fakeWarehouse{err: errors.New("warehouse backend down")}
	w := &Worker{Logger: quietLogger(), Warehouse: wh}
	w.stockRows = func(ctx context.Context, docCode string) ([]models.StockTransfer, error) {
		if docCode == "XK-2" {
			return nil, errors.New("row load failed")
		}
		return []models.StockTransfer{
			{DocCode: docCode, DocType: models.StockDocTypeStockIO, IoType: models.StockIoTypeOut, Quantity: decimal.NewFromInt(1)},
		}, nil
	}

	// Every document is attempted even though every call fails; the method
	// has no way to report failure back to the caller.
	w.triggerWarehouse(context.Background(), []string{"XK-1", "XK-2", "XK-3"})
	if len(wh.calls) != 2 {
		t.Fatalf("expected processing attempted for both loadable docs, got %v", wh.calls)
	}
	if wh.calls[0] != "XK-1" || wh.calls[1] != "XK-3" {
		t.Fatalf("row-load failure should skip only its own doc, got %v", wh.calls)
	}
}

func TestSummaryStatus_IgnoresWarehouseOutcome(t *testing.T) {
	cases := []struct {
		name      string
		summaries []BatchSummary
		expected  string
	}{
		{"all clean", []BatchSummary{{Created: 3}, {Updated: 2}, {}}, models.SyncRunStatusSuccess},
		{"some failures", []BatchSummary{{Created: 3, Failed: 1}, {}, {}}, models.SyncRunStatusPartial},
		{"nothing landed", []BatchSummary{{Failed: 2}, {Failed: 1}, {}}, models.SyncRunStatusFailed},
		{"empty feed", []BatchSummary{{}, {}, {}}, models.SyncRunStatusSuccess},
	}
	for _, tc := range cases {
		status, _, _ := summaryStatus(tc.summaries...)
		if status != tc.expected {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.expected, status)
		}
	}
}

func TestDetachedRequestContext_SurvivesRequestTeardown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	reqCtx, cancel := context.WithCancel(context.Background())
	reqCtx = utils.SetBrandInContext(reqCtx, models.BrandMN)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/retail/sync", nil).WithContext(reqCtx)

	bg := detachedRequestContext(c)

	// Simulate what happens after the handler returns: the request context
	// is cancelled and the pooled gin context is reset for reuse.
	cancel()
	c.Request = nil

	if err := bg.Err(); err != nil {
		t.Fatalf("detached context must outlive request cancellation, got %v", err)
	}
	if brand, _ := utils.GetBrandFromContext(bg); brand != models.BrandMN {
		t.Fatalf("detached context must keep request-scoped values, got %q", brand)
	}
}
