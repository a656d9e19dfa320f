package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront-catalog/services/catalog/internal/domain"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/query"
	"github.com/utafrali/storefront-catalog/services/catalog/internal/repository"
)

// DefaultReindexBatch is the page size of a full reindex.
const DefaultReindexBatch = 500

// IndexService copies catalog entries from the primary store into a
// secondary index.
type IndexService struct {
	source repository.CatalogRepository
	index  repository.CatalogIndex
	batch  int
	logger *slog.Logger
}

// NewIndexService creates a new index service.
func NewIndexService(source repository.CatalogRepository, index repository.CatalogIndex, logger *slog.Logger) *IndexService {
	return &IndexService{
		source: source,
		index:  index,
		batch:  DefaultReindexBatch,
		logger: logger,
	}
}

// SyncProduct refreshes one product in the index, removing it when the
// source no longer has it.
func (s *IndexService) SyncProduct(ctx context.Context, productID string) error {
	entries, _, err := s.source.Find(ctx, repository.FindParams{
		Predicate: query.ProductIDs(productID),
		Sort:      domain.SortNewest,
		Limit:     1,
	})
	if err != nil {
		return fmt.Errorf("sync product: %w", err)
	}
	if len(entries) == 0 {
		return s.DeleteProduct(ctx, productID)
	}
	if err := s.index.Index(ctx, entries); err != nil {
		return fmt.Errorf("sync product: %w", err)
	}
	s.logger.InfoContext(ctx, "product indexed", slog.String("product_id", productID))
	return nil
}

// DeleteProduct removes a product from the index.
func (s *IndexService) DeleteProduct(ctx context.Context, productID string) error {
	if err := s.index.Delete(ctx, productID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.InfoContext(ctx, "product deleted from index", slog.String("product_id", productID))
	return nil
}

// Reindex copies every product of the store, or of all stores when storeID
// is empty, and returns how many were indexed.
func (s *IndexService) Reindex(ctx context.Context, storeID string) (int, error) {
	pred := query.And()
	if storeID != "" {
		pred = query.Eq(query.FieldStore, storeID)
	}

	indexed := 0
	for offset := 0; ; offset += s.batch {
		entries, total, err := s.source.Find(ctx, repository.FindParams{
			Predicate: pred,
			Sort:      domain.SortNewest,
			Offset:    offset,
			Limit:     s.batch,
		})
		if err != nil {
			return indexed, fmt.Errorf("reindex: %w", err)
		}
		if len(entries) == 0 {
			break
		}
		if err := s.index.Index(ctx, entries); err != nil {
			return indexed, fmt.Errorf("reindex: %w", err)
		}
		indexed += len(entries)
		if offset+len(entries) >= total {
			break
		}
	}

	s.logger.InfoContext(ctx, "reindex completed",
		slog.String("store_id", storeID),
		slog.Int("count", indexed),
	)
	return indexed, nil
}
