// Package catalog expose le catalogue produits : lecture publique,
// recherche, administration et primitives de stock.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/pricing"
	"vastra_back_end/internal/store"
)

const (
	defaultPageSize = 12
	maxPageSize     = 50
	searchLimit     = 50
)

// Indexer est l'index de recherche plein texte.
type Indexer interface {
	IndexAsync(p models.Product)
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// ImageHost stocke les images produit.
type ImageHost interface {
	Upload(ctx context.Context, productID, filename string, r io.Reader, size int64) (string, error)
	Remove(ctx context.Context, imageURL string) error
}

type Service struct {
	products store.ProductStore
	index    Indexer
	images   ImageHost
	policy   pricing.Policy
	audit    audit.Recorder

	Now func() time.Time
}

func New(products store.ProductStore, index Indexer, images ImageHost, policy pricing.Policy, rec audit.Recorder) *Service {
	if rec == nil {
		rec = audit.LogRecorder{}
	}
	return &Service{
		products: products,
		index:    index,
		images:   images,
		policy:   policy,
		audit:    rec,
		Now:      time.Now,
	}
}

// List ne retourne que les produits actifs.
func (s *Service) List(ctx context.Context, f models.ProductFilter) ([]models.Product, int64, error) {
	if f.Category != "" && !f.Category.Valid() {
		return nil, 0, apperr.Validation("category", "unknown category %q", f.Category)
	}
	switch f.Sort {
	case "", models.SortNewest, models.SortPriceAsc, models.SortPriceDesc:
	default:
		return nil, 0, apperr.Validation("sort", "unknown sort %q", f.Sort)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, 0, apperr.Validation("minPrice", "minPrice must not exceed maxPrice")
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	f.ActiveOnly = true

	products, total, err := s.products.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, total, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	p, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("product", slug)
		}
		return nil, fmt.Errorf("product %s: %w", slug, err)
	}
	if !p.IsActive {
		return nil, apperr.NotFound("product", slug)
	}
	return p, nil
}

// GetByID retourne aussi les produits désactivés (vue admin).
func (s *Service) GetByID(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("product", id)
		}
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	return p, nil
}

// Search interroge Elasticsearch et retombe sur une regex MongoDB quand
// l'index ne répond pas.
func (s *Service) Search(ctx context.Context, q string) ([]models.Product, error) {
	if q == "" {
		return nil, apperr.Validation("q", "search query is required")
	}

	var ids []string
	var err error
	if s.index != nil {
		ids, err = s.index.Search(ctx, q, searchLimit)
	} else {
		err = errors.New("no search index")
	}
	if err != nil {
		log.Printf("⚠️ Recherche Elasticsearch indisponible, repli MongoDB: %v", err)
		products, _, lerr := s.products.List(ctx, models.ProductFilter{Query: q, ActiveOnly: true, Limit: searchLimit})
		if lerr != nil {
			return nil, fmt.Errorf("search fallback: %w", lerr)
		}
		if products == nil {
			products = []models.Product{}
		}
		return products, nil
	}

	out := []models.Product{}
	if len(ids) == 0 {
		return out, nil
	}
	found, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("search results: %w", err)
	}
	byID := make(map[string]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if p, ok := byID[id]; ok && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

// AdjustStock déplace le stock d'une taille de delta, sans passer sous
// zéro.
func (s *Service) AdjustStock(ctx context.Context, productID string, size models.Size, delta int) error {
	if !size.Valid() {
		return apperr.Validation("size", "unknown size %q", size)
	}
	err := s.products.AdjustStock(ctx, productID, size, delta)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("product size", productID+"/"+string(size))
	case errors.Is(err, store.ErrInsufficientStock):
		return apperr.Validation("stock", "not enough stock for size %s", size)
	default:
		return fmt.Errorf("adjust stock %s/%s: %w", productID, size, err)
	}
}

func (s *Service) record(actorID, action, productID, detail string) {
	s.audit.Record(models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   audit.ResourceProduct,
		ResourceID: productID,
		Detail:     detail,
		Success:    true,
		Timestamp:  s.Now().UTC(),
	})
}

func (s *Service) reindex(p *models.Product) {
	if s.index != nil {
		s.index.IndexAsync(*p)
	}
}
