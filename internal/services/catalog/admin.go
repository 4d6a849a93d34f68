package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"vastra_back_end/internal/apperr"
	"vastra_back_end/internal/audit"
	"vastra_back_end/internal/models"
	"vastra_back_end/internal/storage"
	"vastra_back_end/internal/store"
	"vastra_back_end/internal/utils"
)

const slugAttempts = 100

type ProductInput struct {
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Fabric        string             `json:"fabric"`
	Price         float64            `json:"price"`
	DiscountPrice *float64           `json:"discountPrice"`
	Category      models.Category    `json:"category"`
	Images        []string           `json:"images"`
	Sizes         []models.SizeStock `json:"sizes"`
	Colors        []models.Color     `json:"colors"`
	IsActive      *bool              `json:"isActive"`
	Featured      bool               `json:"featured"`
}

// ProductPatch : les champs nil ne sont pas modifiés.
type ProductPatch struct {
	Name          *string             `json:"name"`
	Description   *string             `json:"description"`
	Fabric        *string             `json:"fabric"`
	Price         *float64            `json:"price"`
	DiscountPrice *float64            `json:"discountPrice"`
	Category      *models.Category    `json:"category"`
	Images        *[]string           `json:"images"`
	Sizes         *[]models.SizeStock `json:"sizes"`
	Colors        *[]models.Color     `json:"colors"`
	IsActive      *bool               `json:"isActive"`
	Featured      *bool               `json:"featured"`
}

func (s *Service) Create(ctx context.Context, actor models.Principal, in ProductInput) (*models.Product, error) {
	now := s.Now().UTC()
	p := &models.Product{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Fabric:        in.Fabric,
		Price:         in.Price,
		DiscountPrice: in.DiscountPrice,
		Category:      in.Category,
		Images:        orEmpty(in.Images),
		Sizes:         in.Sizes,
		Colors:        in.Colors,
		IsActive:      true,
		Featured:      in.Featured,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if p.Sizes == nil {
		p.Sizes = []models.SizeStock{}
	}
	if p.Colors == nil {
		p.Colors = []models.Color{}
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	p.RecomputeTotalStock()

	for attempt := 0; attempt < 3; attempt++ {
		slug, err := s.uniqueSlug(ctx, p.Name, "")
		if err != nil {
			return nil, err
		}
		p.Slug = slug
		err = s.products.Create(ctx, p)
		if err == nil {
			log.Printf("✅ Produit %s créé (%s)", p.ID, p.Slug)
			s.reindex(p)
			s.record(actor.UserID, audit.ActionProductCreate, p.ID, p.Slug)
			return p, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("create product: %w", err)
		}
		p.ID = ""
	}
	return nil, apperr.Conflict("could not allocate a unique slug for %q", p.Name)
}

// Update applique un patch partiel ; un renommage recalcule le slug.
func (s *Service) Update(ctx context.Context, actor models.Principal, id string, patch ProductPatch) (*models.Product, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	renamed := false
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		renamed = name != p.Name
		p.Name = name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Fabric != nil {
		p.Fabric = *patch.Fabric
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.DiscountPrice != nil {
		if *patch.DiscountPrice == 0 {
			p.DiscountPrice = nil
		} else {
			d := *patch.DiscountPrice
			p.DiscountPrice = &d
		}
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Images != nil {
		p.Images = orEmpty(*patch.Images)
	}
	if patch.Sizes != nil {
		p.Sizes = *patch.Sizes
	}
	if patch.Colors != nil {
		p.Colors = *patch.Colors
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if patch.Featured != nil {
		p.Featured = *patch.Featured
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if renamed {
		if p.Slug, err = s.uniqueSlug(ctx, p.Name, p.ID); err != nil {
			return nil, err
		}
	}
	p.UpdatedAt = s.Now().UTC()

	if err := s.products.Update(ctx, p); err != nil {
		return nil, s.writeErr(id, err)
	}
	if patch.Sizes != nil {
		if p, err = s.products.ReplaceSizes(ctx, id, *patch.Sizes, p.UpdatedAt); err != nil {
			return nil, s.writeErr(id, err)
		}
	}
	log.Printf("✅ Produit %s mis à jour", p.ID)
	s.reindex(p)
	s.record(actor.UserID, audit.ActionProductUpdate, p.ID, "")
	return p, nil
}

// Delete désactive le produit ; les commandes existantes gardent leur
// copie.
func (s *Service) Delete(ctx context.Context, actor models.Principal, id string) (*models.Product, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.IsActive = false
	p.UpdatedAt = s.Now().UTC()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, s.writeErr(id, err)
	}
	log.Printf("🗑️ Produit %s désactivé", p.ID)
	s.reindex(p)
	s.record(actor.UserID, audit.ActionProductDelete, p.ID, "")
	return p, nil
}

// SetSizeStock fixe le stock d'une taille, en l'ajoutant au produit si
// elle n'existe pas encore.
func (s *Service) SetSizeStock(ctx context.Context, actor models.Principal, id string, size models.Size, stock int) (*models.Product, error) {
	if !size.Valid() {
		return nil, apperr.Validation("size", "unknown size %q", size)
	}
	if stock < 0 {
		return nil, apperr.Validation("stock", "stock must not be negative")
	}
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.Now().UTC()
	if _, ok := p.StockFor(size); ok {
		p, err = s.products.SetSizeStock(ctx, id, size, stock, now)
	} else {
		sizes := append(append([]models.SizeStock{}, p.Sizes...), models.SizeStock{Size: size, Stock: stock})
		p, err = s.products.ReplaceSizes(ctx, id, sizes, now)
	}
	if err != nil {
		return nil, s.writeErr(id, err)
	}
	log.Printf("📦 Stock %s/%s = %d", p.Slug, size, stock)
	s.reindex(p)
	s.record(actor.UserID, audit.ActionStockUpdate, p.ID, fmt.Sprintf("%s=%d", size, stock))
	return p, nil
}

func (s *Service) UploadImage(ctx context.Context, actor models.Principal, id, filename string, r io.Reader, size int64) (*models.Product, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.images == nil {
		return nil, errors.New("image storage is not configured")
	}
	url, err := s.images.Upload(ctx, p.ID, filename, r, size)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedExt) {
			return nil, apperr.Validation("file", "only jpg, png and webp images are accepted")
		}
		return nil, fmt.Errorf("upload image: %w", err)
	}

	p.Images = append(p.Images, url)
	p.UpdatedAt = s.Now().UTC()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, s.writeErr(id, err)
	}
	log.Printf("🪣 Image ajoutée à %s: %s", p.Slug, url)
	s.reindex(p)
	s.record(actor.UserID, audit.ActionProductUpdate, p.ID, "image+")
	return p, nil
}

func (s *Service) RemoveImage(ctx context.Context, actor models.Principal, id, url string) (*models.Product, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	kept := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		if img != url {
			kept = append(kept, img)
		}
	}
	if len(kept) == len(p.Images) {
		return nil, apperr.NotFound("image", url)
	}

	p.Images = kept
	p.UpdatedAt = s.Now().UTC()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, s.writeErr(id, err)
	}
	if s.images != nil {
		if err := s.images.Remove(ctx, url); err != nil && !errors.Is(err, storage.ErrForeignURL) {
			log.Printf("⚠️ Suppression objet %s: %v", url, err)
		}
	}
	s.reindex(p)
	s.record(actor.UserID, audit.ActionProductUpdate, p.ID, "image-")
	return p, nil
}

// uniqueSlug dérive le slug du nom et ajoute -2, -3, ... en cas de
// collision avec un autre produit.
func (s *Service) uniqueSlug(ctx context.Context, name, excludeID string) (string, error) {
	base := utils.Slugify(name)
	candidate := base
	for n := 2; n < slugAttempts; n++ {
		taken, err := s.products.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("slug lookup: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", apperr.Conflict("too many products named %q", name)
}

func (s *Service) writeErr(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("product", id)
	}
	return fmt.Errorf("write product %s: %w", id, err)
}

func validateProduct(p *models.Product) error {
	if p.Name == "" {
		return apperr.Validation("name", "name is required")
	}
	if p.Price <= 0 {
		return apperr.Validation("price", "price must be greater than 0")
	}
	if p.DiscountPrice != nil && *p.DiscountPrice != 0 {
		if *p.DiscountPrice < 0 || *p.DiscountPrice >= p.Price {
			return apperr.Validation("discountPrice", "discountPrice must be below price")
		}
	}
	if !p.Category.Valid() {
		return apperr.Validation("category", "unknown category %q", p.Category)
	}
	seen := make(map[models.Size]bool, len(p.Sizes))
	for i, sz := range p.Sizes {
		if !sz.Size.Valid() {
			return apperr.Validation(fmt.Sprintf("sizes[%d].size", i), "unknown size %q", sz.Size)
		}
		if seen[sz.Size] {
			return apperr.Validation(fmt.Sprintf("sizes[%d].size", i), "size %s appears twice", sz.Size)
		}
		seen[sz.Size] = true
		if sz.Stock < 0 {
			return apperr.Validation(fmt.Sprintf("sizes[%d].stock", i), "stock must not be negative")
		}
	}
	for i, c := range p.Colors {
		if err := apperr.CheckVar(fmt.Sprintf("colors[%d].hex", i), c.Hex, "required,hexcolor,len=7"); err != nil {
			return err
		}
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
