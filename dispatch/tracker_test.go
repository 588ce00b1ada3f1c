package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/retailbridge_backend/erpclient"
	"github.com/mmdatafocus/retailbridge_backend/models"
	"github.com/sirupsen/logrus"
)

type fakeStore struct {
	records   map[string]*models.InvoiceDispatch
	processed map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:   map[string]*models.InvoiceDispatch{},
		processed: map[string]bool{},
	}
}

func (s *fakeStore) Get(ctx context.Context, docCode string) (*models.InvoiceDispatch, error) {
	return s.records[docCode], nil
}

func (s *fakeStore) Ensure(ctx context.Context, docCode string) (*models.InvoiceDispatch, error) {
	if rec, ok := s.records[docCode]; ok {
		return rec, nil
	}
	rec := &models.InvoiceDispatch{DocCode: docCode, Status: models.DispatchStatusUnsent}
	s.records[docCode] = rec
	return rec, nil
}

func (s *fakeStore) Update(ctx context.Context, docCode, status string, response []byte, lastError *string) error {
	rec := s.records[docCode]
	rec.Status = status
	rec.LastResponse = response
	rec.Attempts++
	rec.LastError = lastError
	return nil
}

func (s *fakeStore) MarkLinesProcessed(ctx context.Context, docCode string) error {
	s.processed[docCode] = true
	return nil
}

type fakeERP struct {
	calls    int
	response []byte
	err      error
}

func (e *fakeERP) SubmitInvoice(ctx context.Context, payload erpclient.InvoicePayload) ([]byte, error) {
	e.calls++
	return e.response, e.err
}

type fakeLocker struct {
	locks    int
	releases int
}

func (l *fakeLocker) Lock(ctx context.Context, docCode string) (func(), error) {
	l.locks++
	return func() { l.releases++ }, nil
}

func newTestTracker(store Store, erp ERPSubmitter, locker Locker) *Tracker {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewTracker(store, erp, locker, logger)
}

func TestDispatch_SuccessMarksLinesProcessed(t *testing.T) {
	store := newFakeStore()
	erp := &fakeERP{response: []byte(`{"id":"INV-1"}`)}
	locker := &fakeLocker{}
	tracker := newTestTracker(store, erp, locker)

	res, err := tracker.Dispatch(context.Background(), "SO-1", erpclient.InvoicePayload{}, false)
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if res.Status != models.DispatchStatusSuccess || res.Cached {
		t.Fatalf("expected fresh success, got %+v", res)
	}
	if erp.calls != 1 {
		t.Fatalf("expected one ERP call, got %d", erp.calls)
	}
	if !store.processed["SO-1"] {
		t.Fatalf("sale lines should be marked processed on success")
	}
	if store.records["SO-1"].Attempts != 1 {
		t.Fatalf("expected one recorded attempt, got %d", store.records["SO-1"].Attempts)
	}
	if locker.locks != 1 || locker.releases != 1 {
		t.Fatalf("lock must be taken and released exactly once, got %d/%d", locker.locks, locker.releases)
	}
}

func TestDispatch_CachedSuccessSkipsERP(t *testing.T) {
	store := newFakeStore()
	store.records["SO-2"] = &models.InvoiceDispatch{
		DocCode:      "SO-2",
		Status:       models.DispatchStatusSuccess,
		LastResponse: []byte(`{"id":"INV-2"}`),
		Attempts:     1,
	}
	erp := &fakeERP{}
	tracker := newTestTracker(store, erp, nil)

	res, err := tracker.Dispatch(context.Background(), "SO-2", erpclient.InvoicePayload{}, false)
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if !res.Cached {
		t.Fatalf("prior success must short-circuit as cached, got %+v", res)
	}
	if string(res.Response) != `{"id":"INV-2"}` {
		t.Fatalf("cached result should return the stored response, got %s", res.Response)
	}
	if erp.calls != 0 {
		t.Fatalf("cached dispatch must not call the ERP, got %d calls", erp.calls)
	}
	if store.records["SO-2"].Attempts != 1 {
		t.Fatalf("cached dispatch must not record a new attempt")
	}
}

func TestDispatch_ForceRetryResubmitsAfterSuccess(t *testing.T) {
	store := newFakeStore()
	store.records["SO-3"] = &models.InvoiceDispatch{
		DocCode:  "SO-3",
		Status:   models.DispatchStatusSuccess,
		Attempts: 1,
	}
	erp := &fakeERP{response: []byte(`{"id":"INV-3b"}`)}
	tracker := newTestTracker(store, erp, nil)

	res, err := tracker.Dispatch(context.Background(), "SO-3", erpclient.InvoicePayload{}, true)
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if res.Cached {
		t.Fatalf("forceRetry must bypass the cached result")
	}
	if erp.calls != 1 {
		t.Fatalf("forceRetry should resubmit, got %d calls", erp.calls)
	}
	if store.records["SO-3"].Attempts != 2 {
		t.Fatalf("expected second attempt recorded, got %d", store.records["SO-3"].Attempts)
	}
}

func TestDispatch_DuplicateKeyReclassifiedAsSuccess(t *testing.T) {
	store := newFakeStore()
	apiErr := &erpclient.APIError{StatusCode: 409, Body: "Duplicate entry 'SO-4' for key 'doc_code'"}
	erp := &fakeERP{err: apiErr}
	tracker := newTestTracker(store, erp, nil)

	res, err := tracker.Dispatch(context.Background(), "SO-4", erpclient.InvoicePayload{}, false)
	if err != nil {
		t.Fatalf("duplicate-key rejection must not surface as an error, got %v", err)
	}
	if res.Status != models.DispatchStatusSuccess {
		t.Fatalf("expected success status, got %q", res.Status)
	}
	rec := store.records["SO-4"]
	if rec.Status != models.DispatchStatusSuccess {
		t.Fatalf("record should be persisted as success, got %q", rec.Status)
	}
	if rec.LastError == nil || *rec.LastError != apiErr.Error() {
		t.Fatalf("original ERP error text must be retained, got %v", rec.LastError)
	}
	if !store.processed["SO-4"] {
		t.Fatalf("lines should be marked processed on reclassified success")
	}
}

func TestDispatch_FailurePersistsAndReturnsError(t *testing.T) {
	store := newFakeStore()
	apiErr := &erpclient.APIError{StatusCode: 500, Body: "internal error"}
	erp := &fakeERP{response: []byte("internal error"), err: apiErr}
	tracker := newTestTracker(store, erp, nil)

	res, err := tracker.Dispatch(context.Background(), "SO-5", erpclient.InvoicePayload{}, false)
	if !errors.Is(err, apiErr) {
		t.Fatalf("submit error must propagate, got %v", err)
	}
	if res.Status != models.DispatchStatusFailed {
		t.Fatalf("expected failed status, got %q", res.Status)
	}
	rec := store.records["SO-5"]
	if rec.Status != models.DispatchStatusFailed || rec.LastError == nil {
		t.Fatalf("failure must be persisted with the error text, got %+v", rec)
	}
	if store.processed["SO-5"] {
		t.Fatalf("lines must not be marked processed on failure")
	}

	// A failed record re-enters the attempt path without forceRetry.
	erp.err = nil
	erp.response = []byte(`{"id":"INV-5"}`)
	res, err = tracker.Dispatch(context.Background(), "SO-5", erpclient.InvoicePayload{}, false)
	if err != nil {
		t.Fatalf("retry after failure error: %v", err)
	}
	if res.Status != models.DispatchStatusSuccess || res.Cached {
		t.Fatalf("retry should succeed fresh, got %+v", res)
	}
	if rec.Attempts != 2 {
		t.Fatalf("expected two attempts, got %d", rec.Attempts)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	cases := []struct {
		err      error
		expected bool
	}{
		{&erpclient.APIError{StatusCode: 409, Body: "duplicate entry 'X'"}, true},
		{&erpclient.APIError{StatusCode: 400, Body: "Duplicate KEY violation"}, true},
		{&erpclient.APIError{StatusCode: 500, Body: "ORA-00001: unique constraint violated"}, true},
		{&erpclient.APIError{StatusCode: 500, Body: "timeout"}, false},
		{errors.New("duplicate entry"), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := erpclient.IsDuplicateKey(tc.err); got != tc.expected {
			t.Fatalf("IsDuplicateKey(%v) expected %v, got %v", tc.err, tc.expected, got)
		}
	}
}
