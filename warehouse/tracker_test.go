package warehouse

import (
	"context"
	"testing"

	"github.com/mmdatafocus/retailbridge_backend/erpclient"
	"github.com/mmdatafocus/retailbridge_backend/models"
	"github.com/mmdatafocus/retailbridge_backend/refdata"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

type fakePosting struct {
	ioClass   string
	success   bool
	result    []byte
	lastError *string
}

type fakeStore struct {
	postings map[string]fakePosting
}

func newFakeStore() *fakeStore {
	return &fakeStore{postings: map[string]fakePosting{}}
}

func (s *fakeStore) Upsert(ctx context.Context, docCode, ioClass string, success bool, result []byte, lastError *string) error {
	s.postings[docCode] = fakePosting{ioClass: ioClass, success: success, result: result, lastError: lastError}
	return nil
}

type fakeERP struct {
	transferCalls []erpclient.TransferPayload
	movementCalls []erpclient.MovementPayload
	response      []byte
	err           error
}

func (e *fakeERP) SubmitStockTransfer(ctx context.Context, payload erpclient.TransferPayload) ([]byte, error) {
	e.transferCalls = append(e.transferCalls, payload)
	return e.response, e.err
}

func (e *fakeERP) SubmitStockMovement(ctx context.Context, payload erpclient.MovementPayload) ([]byte, error) {
	e.movementCalls = append(e.movementCalls, payload)
	return e.response, e.err
}

type fakeProducts struct {
	byCode map[string]*refdata.Product
}

func (p *fakeProducts) ResolveProducts(ctx context.Context, itemCodes []string) map[string]*refdata.Product {
	out := map[string]*refdata.Product{}
	for _, code := range itemCodes {
		if product, ok := p.byCode[code]; ok {
			out[code] = product
		}
	}
	return out
}

func newTestTracker(store Store, erp ERPSubmitter, products ProductResolver) *Tracker {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewTracker(store, erp, products, logger)
}

func TestEligibleMovement(t *testing.T) {
	cases := []struct {
		name     string
		row      models.StockTransfer
		expected bool
	}{
		{"stock-io outbound without so", models.StockTransfer{DocType: "STOCK_IO", IoType: "O"}, true},
		{"stock-io inbound without so", models.StockTransfer{DocType: "STOCK_IO", IoType: "I"}, true},
		{"linked sales order is skipped", models.StockTransfer{DocType: "STOCK_IO", IoType: "O", SOCode: "SO123"}, false},
		{"transfer doc type is not a movement", models.StockTransfer{DocType: "TRANSFER", IoType: "O"}, false},
		{"unknown io direction", models.StockTransfer{DocType: "STOCK_IO", IoType: "X"}, false},
		{"empty io direction", models.StockTransfer{DocType: "STOCK_IO"}, false},
	}
	for _, tc := range cases {
		if got := EligibleMovement(tc.row); got != tc.expected {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestProcessDocument_MovementPosting(t *testing.T) {
	store := newFakeStore()
	erp := &fakeERP{response: []byte(`{"ok":true}`)}
	products := &fakeProducts{byCode: map[string]*refdata.Product{
		"SP100": {MaterialCode: "MAT100", Unit: "Cái"},
	}}
	tracker := newTestTracker(store, erp, products)

	rows := []models.StockTransfer{
		{DocCode: "XK-1", DocType: "STOCK_IO", ItemCode: "SP100", IoType: "O", Quantity: decimal.RequireFromString("-3"), StockCode: "K01"},
		{DocCode: "XK-1", DocType: "STOCK_IO", ItemCode: "SP101", IoType: "O", Quantity: decimal.RequireFromString("2"), StockCode: "K01", SOCode: "SO123"},
	}
	if err := tracker.ProcessDocument(context.Background(), "XK-1", rows); err != nil {
		t.Fatalf("ProcessDocument error: %v", err)
	}

	if len(erp.movementCalls) != 1 {
		t.Fatalf("expected one movement call, got %d", len(erp.movementCalls))
	}
	detail := erp.movementCalls[0].Detail
	if len(detail) != 1 {
		t.Fatalf("row linked to a sales order must be skipped, got %d lines", len(detail))
	}
	line := detail[0]
	if line.MaterialCode != "MAT100" || line.Unit != "Cái" {
		t.Fatalf("resolved material/unit expected, got %+v", line)
	}
	if line.MovementType != "XK" {
		t.Fatalf("outbound direction expected XK, got %q", line.MovementType)
	}
	if !line.Quantity.Equal(decimal.RequireFromString("3")) {
		t.Fatalf("quantity must be posted as absolute value, got %s", line.Quantity)
	}

	posting := store.postings["XK-1"]
	if posting.ioClass != IoClassMovement || !posting.success || posting.lastError != nil {
		t.Fatalf("expected successful movement posting, got %+v", posting)
	}
}

func TestProcessDocument_TransferGrouping(t *testing.T) {
	store := newFakeStore()
	erp := &fakeERP{response: []byte(`{"ok":true}`)}
	tracker := newTestTracker(store, erp, nil)

	rows := []models.StockTransfer{
		{DocCode: "CK-1", DocType: "TRANSFER", ItemCode: "SP200", IoType: "O", Quantity: decimal.RequireFromString("5"), StockCode: "K01", RelatedStockCode: "K02"},
		{DocCode: "CK-1", DocType: "TRANSFER", ItemCode: "SP201", IoType: "I", Quantity: decimal.RequireFromString("5"), StockCode: "K02", RelatedStockCode: "K01"},
		// Eligible movement rows lose to transfers within the same doc.
		{DocCode: "CK-1", DocType: "STOCK_IO", ItemCode: "SP202", IoType: "O", Quantity: decimal.RequireFromString("1"), StockCode: "K01"},
	}
	if err := tracker.ProcessDocument(context.Background(), "CK-1", rows); err != nil {
		t.Fatalf("ProcessDocument error: %v", err)
	}

	if len(erp.transferCalls) != 1 || len(erp.movementCalls) != 0 {
		t.Fatalf("expected one transfer and no movement calls, got %d/%d", len(erp.transferCalls), len(erp.movementCalls))
	}
	detail := erp.transferCalls[0].Detail
	if len(detail) != 2 {
		t.Fatalf("expected both transfer rows grouped, got %d", len(detail))
	}
	if detail[0].MovementType != "XK" || detail[1].MovementType != "NK" {
		t.Fatalf("io directions should map to XK/NK, got %q/%q", detail[0].MovementType, detail[1].MovementType)
	}
	if detail[0].RelatedStock != "K02" {
		t.Fatalf("related stock code must carry through, got %q", detail[0].RelatedStock)
	}
	if store.postings["CK-1"].ioClass != IoClassTransfer {
		t.Fatalf("posting should record the transfer class, got %q", store.postings["CK-1"].ioClass)
	}
}

func TestProcessDocument_DedupBeforePosting(t *testing.T) {
	store := newFakeStore()
	erp := &fakeERP{response: []byte(`{"ok":true}`)}
	tracker := newTestTracker(store, erp, nil)

	row := models.StockTransfer{DocCode: "NK-1", DocType: "STOCK_IO", ItemCode: "SP300", IoType: "I", Quantity: decimal.RequireFromString("10"), StockCode: "K01"}
	if err := tracker.ProcessDocument(context.Background(), "NK-1", []models.StockTransfer{row, row, row}); err != nil {
		t.Fatalf("ProcessDocument error: %v", err)
	}
	if len(erp.movementCalls) != 1 {
		t.Fatalf("expected one movement call, got %d", len(erp.movementCalls))
	}
	if got := len(erp.movementCalls[0].Detail); got != 1 {
		t.Fatalf("re-ingested identical rows must collapse to one line, got %d", got)
	}
}

func TestProcessDocument_NoEligibleRows(t *testing.T) {
	store := newFakeStore()
	erp := &fakeERP{}
	tracker := newTestTracker(store, erp, nil)

	rows := []models.StockTransfer{
		{DocCode: "XK-2", DocType: "STOCK_IO", ItemCode: "SP400", IoType: "O", Quantity: decimal.RequireFromString("1"), SOCode: "SO999"},
	}
	if err := tracker.ProcessDocument(context.Background(), "XK-2", rows); err != nil {
		t.Fatalf("ProcessDocument error: %v", err)
	}
	if len(erp.transferCalls) != 0 || len(erp.movementCalls) != 0 {
		t.Fatalf("ineligible documents must not call the ERP")
	}
	if _, ok := store.postings["XK-2"]; ok {
		t.Fatalf("ineligible documents must not record a posting")
	}
}

func TestProcessDocument_FailureRetainedThenCleared(t *testing.T) {
	store := newFakeStore()
	erp := &fakeERP{err: &erpclient.APIError{StatusCode: 500, Body: "warehouse backend down"}}
	tracker := newTestTracker(store, erp, nil)

	rows := []models.StockTransfer{
		{DocCode: "XK-3", DocType: "STOCK_IO", ItemCode: "SP500", IoType: "O", Quantity: decimal.RequireFromString("2"), StockCode: "K01"},
	}
	if err := tracker.ProcessDocument(context.Background(), "XK-3", rows); err == nil {
		t.Fatalf("submit failure must propagate")
	}
	posting := store.postings["XK-3"]
	if posting.success || posting.lastError == nil {
		t.Fatalf("failed posting must stay retryable with the error text, got %+v", posting)
	}

	erp.err = nil
	erp.response = []byte(`{"ok":true}`)
	if err := tracker.ProcessDocument(context.Background(), "XK-3", rows); err != nil {
		t.Fatalf("retry error: %v", err)
	}
	posting = store.postings["XK-3"]
	if !posting.success || posting.lastError != nil {
		t.Fatalf("successful retry must clear the stored error, got %+v", posting)
	}
}

func TestProcessDocument_SkippedRowsVisibleAtDefaultLevel(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	logger.SetLevel(logrus.WarnLevel)
	store := newFakeStore()
	erp := &fakeERP{response: []byte(`{"ok":true}`)}
	products := &fakeProducts{byCode: map[string]*refdata.Product{
		"SP600": {MaterialCode: "MAT600", Unit: "Cái"},
	}}
	tracker := NewTracker(store, erp, products, logger)

	rows := []models.StockTransfer{
		{DocCode: "XK-4", DocType: "STOCK_IO", ItemCode: "SP600", IoType: "O", Quantity: decimal.RequireFromString("1"), StockCode: "K01"},
		{DocCode: "XK-4", DocType: "STOCK_IO", ItemCode: "SP601", IoType: "O", Quantity: decimal.RequireFromString("1"), SOCode: "SO777"},
	}
	if err := tracker.ProcessDocument(context.Background(), "XK-4", rows); err != nil {
		t.Fatalf("ProcessDocument error: %v", err)
	}

	var skippedEntry *logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Message == "stock rows skipped by eligibility rules" {
			skippedEntry = entry
		}
	}
	if skippedEntry == nil {
		t.Fatalf("skipped rows must be logged at the default level")
	}
	if skippedEntry.Level != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %s", skippedEntry.Level)
	}
	if skippedEntry.Data["skipped"] != 1 {
		t.Fatalf("expected skipped count 1, got %v", skippedEntry.Data["skipped"])
	}
}
