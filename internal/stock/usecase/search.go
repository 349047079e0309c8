package usecase

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fekuna/omnipos-stock-service/internal/apperr"
	"github.com/fekuna/omnipos-stock-service/internal/stock/dto"
	"go.uber.org/zap"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

func (uc *stockUseCase) Search(ctx context.Context, f *dto.SearchFilters) (res *dto.SearchResult, err error) {
	ctx, span := uc.tracer.Start(ctx, "stock.Search")
	defer func() { uc.finish(ctx, span, "search", err) }()

	if err := normalizeSearch(f); err != nil {
		return nil, err
	}

	// A write committed while the query runs bumps the generation, so a result
	// cached under the old one is never read back.
	var key string
	if gen, ok := uc.searchGeneration(ctx, f.StoreID); ok {
		key = searchKey(f, gen)
		if cached := uc.cachedSearch(ctx, key); cached != nil {
			return cached, nil
		}
	}

	items, total, summary, err := uc.repo.Search(ctx, f, uc.alerts.ThresholdFor(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to search stock: %w", err)
	}
	res = &dto.SearchResult{
		Items:   items,
		Total:   total,
		Page:    f.Page,
		Limit:   f.Limit,
		Summary: *summary,
	}

	if key != "" {
		if b, err := json.Marshal(res); err == nil {
			if err := uc.cache.Set(ctx, key, b, uc.cfg.SearchCacheTTL); err != nil {
				uc.logger.Warn("failed to cache stock search", zap.Error(err))
			}
		}
	}
	return res, nil
}

func normalizeSearch(f *dto.SearchFilters) error {
	if f.StoreID == "" {
		return apperr.Validation("store is required")
	}
	if f.SortBy != "" {
		if _, ok := dto.SortColumns[f.SortBy]; !ok {
			return apperr.Validation("cannot sort by %q", f.SortBy)
		}
	}
	if f.SortOrder != "" && f.SortOrder != "asc" && f.SortOrder != "desc" {
		return apperr.Validation("sort order must be asc or desc")
	}
	for _, s := range f.Statuses {
		if !s.Valid() {
			return apperr.Validation("unknown status %q", s)
		}
	}
	if f.Page < 1 {
		f.Page = defaultPage
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	return nil
}

func (uc *stockUseCase) searchGeneration(ctx context.Context, storeID string) (string, bool) {
	if uc.cache == nil {
		return "", false
	}
	b, ok, err := uc.cache.Get(ctx, generationKey(storeID))
	if err != nil {
		uc.logger.Warn("failed to read stock search generation", zap.String("store_id", storeID), zap.Error(err))
		return "", false
	}
	if !ok {
		return "0", true
	}
	return string(b), true
}

func (uc *stockUseCase) cachedSearch(ctx context.Context, key string) *dto.SearchResult {
	if uc.cache == nil {
		return nil
	}
	b, ok, err := uc.cache.Get(ctx, key)
	if err != nil {
		uc.logger.Warn("failed to read stock search cache", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var res dto.SearchResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil
	}
	return &res
}

func (uc *stockUseCase) InvalidateSearch(ctx context.Context, storeID string) {
	if uc.cache == nil || storeID == "" {
		return
	}
	if _, err := uc.cache.Incr(ctx, generationKey(storeID)); err != nil {
		uc.logger.Warn("failed to bump stock search generation", zap.String("store_id", storeID), zap.Error(err))
	}
	if err := uc.cache.DeletePattern(ctx, searchPrefix(storeID)+"*"); err != nil {
		uc.logger.Warn("failed to invalidate stock search cache", zap.String("store_id", storeID), zap.Error(err))
	}
}

func searchPrefix(storeID string) string {
	return "stock:search:" + storeID + ":"
}

func generationKey(storeID string) string {
	return "stock:search-gen:" + storeID
}

func searchKey(f *dto.SearchFilters, generation string) string {
	b, _ := json.Marshal(f)
	sum := md5.Sum(b)
	return searchPrefix(f.StoreID) + generation + ":" + hex.EncodeToString(sum[:])
}
