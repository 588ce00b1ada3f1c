package refdata

import (
	"context"
	"sync"

	"github.com/mmdatafocus/retailbridge_backend/config"
	"github.com/sirupsen/logrus"
)

// ProductLookup is the slice of Client the resolver needs; tests substitute
// a fake.
type ProductLookup interface {
	LookupProduct(ctx context.Context, itemCode string) (*Product, error)
	LookupDepartment(ctx context.Context, branchCode string) (*Department, error)
}

// Resolver fans product lookups out in bounded waves. A lookup miss or a
// per-call failure leaves the code unresolved; neither aborts the wave.
type Resolver struct {
	client    ProductLookup
	logger    *logrus.Logger
	batchSize int
}

func NewResolver(client ProductLookup, logger *logrus.Logger, tuning config.SyncTuning) *Resolver {
	batch := tuning.LookupBatchSize
	if batch <= 0 {
		batch = 10
	}
	return &Resolver{
		client:    client,
		logger:    logger,
		batchSize: batch,
	}
}

// ResolveProducts looks up every distinct code and returns the resolved
// subset. Codes absent from the result are unresolved.
func (r *Resolver) ResolveProducts(ctx context.Context, itemCodes []string) map[string]*Product {
	results := make(map[string]*Product, len(itemCodes))
	var mu sync.Mutex

	distinct := distinctNonEmpty(itemCodes)
	for start := 0; start < len(distinct); start += r.batchSize {
		end := start + r.batchSize
		if end > len(distinct) {
			end = len(distinct)
		}
		var wg sync.WaitGroup
		for _, code := range distinct[start:end] {
			wg.Add(1)
			go func(code string) {
				defer wg.Done()
				product, err := r.client.LookupProduct(ctx, code)
				if err != nil {
					config.LogError(r.logger, "refdata", "ResolveProducts", code, nil, err)
					return
				}
				if product == nil {
					return
				}
				mu.Lock()
				results[code] = product
				mu.Unlock()
			}(code)
		}
		wg.Wait()
	}
	return results
}

// ResolveDepartment resolves branch metadata; nil means unresolved.
func (r *Resolver) ResolveDepartment(ctx context.Context, branchCode string) *Department {
	if branchCode == "" {
		return nil
	}
	dept, err := r.client.LookupDepartment(ctx, branchCode)
	if err != nil {
		config.LogError(r.logger, "refdata", "ResolveDepartment", branchCode, nil, err)
		return nil
	}
	return dept
}

func distinctNonEmpty(codes []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}
