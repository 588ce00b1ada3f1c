package refdata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mmdatafocus/retailbridge_backend/config"
	"github.com/sirupsen/logrus"
)

type fakeLookup struct {
	products map[string]*Product

	mu         sync.Mutex
	inFlight   int32
	maxInFlght int32
	calls      map[string]int
	failCodes  map[string]bool
}

func newFakeLookup(products map[string]*Product) *fakeLookup {
	return &fakeLookup{
		products:  products,
		calls:     map[string]int{},
		failCodes: map[string]bool{},
	}
}

func (f *fakeLookup) LookupProduct(ctx context.Context, itemCode string) (*Product, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	f.mu.Lock()
	if current > f.maxInFlght {
		f.maxInFlght = current
	}
	f.calls[itemCode]++
	fail := f.failCodes[itemCode]
	f.mu.Unlock()

	if fail {
		return nil, errors.New("lookup backend unavailable")
	}
	return f.products[itemCode], nil
}

func (f *fakeLookup) LookupDepartment(ctx context.Context, branchCode string) (*Department, error) {
	if branchCode == "FAIL" {
		return nil, errors.New("lookup backend unavailable")
	}
	if dept, ok := map[string]*Department{"HN01": {Code: "HN01"}}[branchCode]; ok {
		return dept, nil
	}
	return nil, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestResolveProducts_ResolvedSubsetOnly(t *testing.T) {
	lookup := newFakeLookup(map[string]*Product{
		"SP001": {MaterialCode: "SP001"},
		"SP002": {MaterialCode: "SP002"},
	})
	lookup.failCodes["SP003"] = true
	resolver := NewResolver(lookup, quietLogger(), config.SyncTuning{LookupBatchSize: 10})

	got := resolver.ResolveProducts(context.Background(), []string{"SP001", "SP002", "SP003", "SP404", ""})
	if len(got) != 2 {
		t.Fatalf("expected 2 resolved products, got %d", len(got))
	}
	if got["SP001"] == nil || got["SP002"] == nil {
		t.Fatalf("known codes should resolve, got %v", got)
	}
	if _, ok := got["SP003"]; ok {
		t.Fatalf("failed lookups must stay unresolved, not error the wave")
	}
	if _, ok := got["SP404"]; ok {
		t.Fatalf("missing codes must stay unresolved")
	}
}

func TestResolveProducts_DeduplicatesCodes(t *testing.T) {
	lookup := newFakeLookup(map[string]*Product{"SP001": {MaterialCode: "SP001"}})
	resolver := NewResolver(lookup, quietLogger(), config.SyncTuning{LookupBatchSize: 10})

	resolver.ResolveProducts(context.Background(), []string{"SP001", "SP001", "SP001"})
	if lookup.calls["SP001"] != 1 {
		t.Fatalf("duplicate codes must be looked up once, got %d calls", lookup.calls["SP001"])
	}
}

func TestResolveProducts_BoundedConcurrency(t *testing.T) {
	products := map[string]*Product{}
	codes := make([]string, 0, 30)
	for _, suffix := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"} {
		for _, n := range []string{"1", "2", "3"} {
			code := "SP" + suffix + n
			products[code] = &Product{MaterialCode: code}
			codes = append(codes, code)
		}
	}
	lookup := newFakeLookup(products)
	resolver := NewResolver(lookup, quietLogger(), config.SyncTuning{LookupBatchSize: 5})

	got := resolver.ResolveProducts(context.Background(), codes)
	if len(got) != len(codes) {
		t.Fatalf("expected all %d codes resolved, got %d", len(codes), len(got))
	}
	if lookup.maxInFlght > 5 {
		t.Fatalf("lookup fan-out must stay within the batch size, peaked at %d", lookup.maxInFlght)
	}
}

func TestResolveDepartment(t *testing.T) {
	resolver := NewResolver(newFakeLookup(nil), quietLogger(), config.SyncTuning{LookupBatchSize: 10})

	if dept := resolver.ResolveDepartment(context.Background(), "HN01"); dept == nil || dept.Code != "HN01" {
		t.Fatalf("known branch should resolve, got %v", dept)
	}
	if dept := resolver.ResolveDepartment(context.Background(), ""); dept != nil {
		t.Fatalf("empty branch code should resolve to nil")
	}
	if dept := resolver.ResolveDepartment(context.Background(), "FAIL"); dept != nil {
		t.Fatalf("lookup failure should resolve to nil, got %v", dept)
	}
	if dept := resolver.ResolveDepartment(context.Background(), "XX99"); dept != nil {
		t.Fatalf("unknown branch should resolve to nil, got %v", dept)
	}
}
