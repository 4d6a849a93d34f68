// Package store contient l'accès MongoDB aux produits, commandes et
// utilisateurs. Les services dépendent des interfaces ; memstore fournit
// une implémentation en mémoire pour les tests.
package store

import (
	"context"
	"errors"
	"time"

	"vastra_back_end/internal/models"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicate         = errors.New("duplicate key")
	ErrVersionConflict   = errors.New("version conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPrecondition signale qu'une mise à jour conditionnelle n'a rien
	// modifié parce que le document a changé entre-temps.
	ErrPrecondition = errors.New("precondition failed")
)

type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	// Update écrit tous les champs sauf sizes et totalStock.
	Update(ctx context.Context, p *models.Product) error
	// ReplaceSizes remplace la grille de tailles et recalcule totalStock.
	ReplaceSizes(ctx context.Context, id string, sizes []models.SizeStock, at time.Time) (*models.Product, error)
	SetSizeStock(ctx context.Context, id string, size models.Size, stock int, at time.Time) (*models.Product, error)
	// AdjustStock déplace le stock d'une taille et totalStock du même delta,
	// sans jamais passer sous zéro.
	AdjustStock(ctx context.Context, id string, size models.Size, delta int) error
	Get(ctx context.Context, id string) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	GetMany(ctx context.Context, ids []string) ([]models.Product, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context, f models.ProductFilter) ([]models.Product, int64, error)
}

type OrderStore interface {
	Insert(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	List(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error)
	Stats(ctx context.Context) (*models.OrderStats, error)
	ListStalePending(ctx context.Context, cutoff time.Time) ([]models.Order, error)

	ApplyStatus(ctx context.Context, id string, upd models.StatusUpdate) (*models.Order, error)
	// ApplyStatusIf n'écrit que si paymentStatus vaut encore expect ;
	// sinon ErrPrecondition.
	ApplyStatusIf(ctx context.Context, id string, expect models.PaymentStatus, upd models.StatusUpdate) (*models.Order, error)
	// CompletePayment passe la commande à paid/confirmed si elle attend
	// encore un paiement : pending hors annulation, ou failed. Sinon
	// ErrPrecondition.
	CompletePayment(ctx context.Context, id string, details models.PaymentDetails, at time.Time) (*models.Order, error)
	AttachGatewayOrder(ctx context.Context, id, gatewayOrderID string, at time.Time) error
	// SwapStockReserved passe stockReserved de from à to ; false si l'état
	// courant n'était pas from.
	SwapStockReserved(ctx context.Context, id string, from, to bool) (bool, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	LinkExternalID(ctx context.Context, id, externalID, provider string, at time.Time) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch, at time.Time) (*models.User, error)
	ReplaceAddresses(ctx context.Context, id string, expectVersion int64, addrs []models.Address, at time.Time) (*models.User, error)
	AddToWishlist(ctx context.Context, id, productID string) (*models.User, error)
	RemoveFromWishlist(ctx context.Context, id, productID string) (*models.User, error)
	List(ctx context.Context, page, limit int) ([]models.User, int64, error)
}

// Page normalise une pagination 1-indexée et retourne (skip, limit).
func Page(page, limit, def, max int) (int64, int64) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if page < 1 {
		page = 1
	}
	return int64((page - 1) * limit), int64(limit)
}
