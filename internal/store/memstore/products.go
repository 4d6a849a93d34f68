package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"vastra_back_end/internal/models"
	"vastra_back_end/internal/store"
)

type Products struct {
	mu   sync.Mutex
	byID map[string]*models.Product
}

func NewProducts() *Products {
	return &Products{byID: make(map[string]*models.Product)}
}

func (s *Products) Create(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = newID()
	}
	for _, other := range s.byID {
		if other.Slug == p.Slug || other.ID == p.ID {
			return store.ErrDuplicate
		}
	}
	p.RecomputeTotalStock()
	s.byID[p.ID] = copyProduct(p)
	return nil
}

func (s *Products) Update(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	for _, other := range s.byID {
		if other.ID != p.ID && other.Slug == p.Slug {
			return store.ErrDuplicate
		}
	}
	next := copyProduct(p)
	next.Sizes = cur.Sizes
	next.TotalStock = cur.TotalStock
	next.CreatedAt = cur.CreatedAt
	s.byID[p.ID] = next
	return nil
}

func (s *Products) ReplaceSizes(_ context.Context, id string, sizes []models.SizeStock, at time.Time) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Sizes = append([]models.SizeStock(nil), sizes...)
	p.RecomputeTotalStock()
	p.UpdatedAt = at
	return copyProduct(p), nil
}

func (s *Products) SetSizeStock(_ context.Context, id string, size models.Size, stock int, at time.Time) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for i := range p.Sizes {
		if p.Sizes[i].Size == size {
			p.Sizes[i].Stock = stock
			p.RecomputeTotalStock()
			p.UpdatedAt = at
			return copyProduct(p), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Products) AdjustStock(_ context.Context, id string, size models.Size, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	for i := range p.Sizes {
		if p.Sizes[i].Size != size {
			continue
		}
		if p.Sizes[i].Stock+delta < 0 {
			return store.ErrInsufficientStock
		}
		p.Sizes[i].Stock += delta
		p.TotalStock += delta
		return nil
	}
	return store.ErrNotFound
}

func (s *Products) Get(_ context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyProduct(p), nil
}

func (s *Products) GetBySlug(_ context.Context, slug string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byID {
		if p.Slug == slug {
			return copyProduct(p), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Products) GetMany(_ context.Context, ids []string) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Product
	for _, id := range ids {
		if p, ok := s.byID[id]; ok {
			out = append(out, *copyProduct(p))
		}
	}
	return out, nil
}

func (s *Products) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byID {
		if p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Products) List(_ context.Context, f models.ProductFilter) ([]models.Product, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]bool, len(f.IDs))
	for _, id := range f.IDs {
		ids[id] = true
	}
	q := strings.ToLower(f.Query)

	var matched []models.Product
	for _, p := range s.byID {
		switch {
		case f.ActiveOnly && !p.IsActive:
			continue
		case f.Category != "" && p.Category != f.Category:
			continue
		case f.Featured != nil && p.Featured != *f.Featured:
			continue
		case len(ids) > 0 && !ids[p.ID]:
			continue
		case f.MinPrice != nil && p.EffectivePrice() < *f.MinPrice:
			continue
		case f.MaxPrice != nil && p.EffectivePrice() > *f.MaxPrice:
			continue
		}
		if q != "" {
			hay := strings.ToLower(p.Name + " " + p.Description + " " + p.Fabric + " " + string(p.Category))
			if !strings.Contains(hay, q) {
				continue
			}
		}
		matched = append(matched, *copyProduct(p))
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch f.Sort {
		case models.SortPriceAsc:
			if a.EffectivePrice() != b.EffectivePrice() {
				return a.EffectivePrice() < b.EffectivePrice()
			}
		case models.SortPriceDesc:
			if a.EffectivePrice() != b.EffectivePrice() {
				return a.EffectivePrice() > b.EffectivePrice()
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})

	start, end := paginate(len(matched), f.Page, f.Limit, 12, 50)
	return matched[start:end], int64(len(matched)), nil
}
