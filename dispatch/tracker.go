package dispatch

import (
	"context"

	"github.com/mmdatafocus/retailbridge_backend/config"
	"github.com/mmdatafocus/retailbridge_backend/erpclient"
	"github.com/mmdatafocus/retailbridge_backend/models"
	"github.com/sirupsen/logrus"
)

// ERPSubmitter is the slice of the ERP client the tracker calls.
type ERPSubmitter interface {
	SubmitInvoice(ctx context.Context, payload erpclient.InvoicePayload) ([]byte, error)
}

// Store persists dispatch records and the processed flag. The gorm
// implementation lives in store.go; tests substitute an in-memory fake.
type Store interface {
	Get(ctx context.Context, docCode string) (*models.InvoiceDispatch, error)
	Ensure(ctx context.Context, docCode string) (*models.InvoiceDispatch, error)
	Update(ctx context.Context, docCode, status string, response []byte, lastError *string) error
	MarkLinesProcessed(ctx context.Context, docCode string) error
}

// Locker serializes attempts per document code. A nil Locker disables
// locking (tests, single-instance deployments).
type Locker interface {
	Lock(ctx context.Context, docCode string) (release func(), err error)
}

// Result is the outcome of one Dispatch call. Cached is true when a prior
// SUCCESS short-circuited the attempt.
type Result struct {
	Status   string
	Response []byte
	Cached   bool
}

// Tracker guarantees at most one successful ERP submission per document
// code. State machine: UNSENT -> attempt -> SUCCESS | FAILED; FAILED rows
// re-enter attempt on the next call, SUCCESS rows only with forceRetry.
type Tracker struct {
	store  Store
	erp    ERPSubmitter
	locker Locker
	logger *logrus.Logger
}

func NewTracker(store Store, erp ERPSubmitter, locker Locker, logger *logrus.Logger) *Tracker {
	return &Tracker{
		store:  store,
		erp:    erp,
		locker: locker,
		logger: logger,
	}
}

// Dispatch submits the payload for the document unless a SUCCESS record
// already exists (and forceRetry is false), in which case the cached result
// is returned without an external call. Every attempt is persisted with the
// raw response or error. A duplicate-key rejection from the ERP is
// reclassified as SUCCESS.
func (t *Tracker) Dispatch(ctx context.Context, docCode string, payload erpclient.InvoicePayload, forceRetry bool) (Result, error) {
	if t.locker != nil {
		release, err := t.locker.Lock(ctx, docCode)
		if err != nil {
			return Result{}, err
		}
		defer release()
	}

	rec, err := t.store.Ensure(ctx, docCode)
	if err != nil {
		return Result{}, err
	}
	if rec.Status == models.DispatchStatusSuccess && !forceRetry {
		return Result{Status: rec.Status, Response: rec.LastResponse, Cached: true}, nil
	}

	response, submitErr := t.erp.SubmitInvoice(ctx, payload)
	if submitErr != nil {
		msg := submitErr.Error()
		if erpclient.IsDuplicateKey(submitErr) {
			// Already exists upstream; the business outcome is success.
			if err := t.store.Update(ctx, docCode, models.DispatchStatusSuccess, response, &msg); err != nil {
				return Result{}, err
			}
			if err := t.store.MarkLinesProcessed(ctx, docCode); err != nil {
				config.LogError(t.logger, "dispatch", "Dispatch", docCode, nil, err)
			}
			return Result{Status: models.DispatchStatusSuccess, Response: response}, nil
		}
		if err := t.store.Update(ctx, docCode, models.DispatchStatusFailed, response, &msg); err != nil {
			config.LogError(t.logger, "dispatch", "Dispatch", docCode, nil, err)
		}
		return Result{Status: models.DispatchStatusFailed, Response: response}, submitErr
	}

	if err := t.store.Update(ctx, docCode, models.DispatchStatusSuccess, response, nil); err != nil {
		return Result{}, err
	}
	if err := t.store.MarkLinesProcessed(ctx, docCode); err != nil {
		config.LogError(t.logger, "dispatch", "Dispatch", docCode, nil, err)
	}
	return Result{Status: models.DispatchStatusSuccess, Response: response}, nil
}
