package utils

import (
	"context"

	"github.com/mmdatafocus/retailbridge_backend/appctx"
)

var (
	ContextKeyBrand         = appctx.ContextKeyBrand
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetBrandFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyBrand)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetBrandInContext(ctx context.Context, brand string) context.Context {
	return appctx.Set(ctx, ContextKeyBrand, brand)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
