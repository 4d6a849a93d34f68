package models

import "time"

type Category string

const (
	CategoryMen         Category = "men"
	CategoryWomen       Category = "women"
	CategoryKids        Category = "kids"
	CategoryAccessories Category = "accessories"
	CategoryEthnic      Category = "ethnic"
	CategoryWinterwear  Category = "winterwear"
)

var Categories = []Category{
	CategoryMen, CategoryWomen, CategoryKids, CategoryAccessories, CategoryEthnic, CategoryWinterwear,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Size string

const (
	SizeXS   Size = "XS"
	SizeS    Size = "S"
	SizeM    Size = "M"
	SizeL    Size = "L"
	SizeXL   Size = "XL"
	SizeXXL  Size = "XXL"
	SizeFree Size = "FREE"
)

var Sizes = []Size{SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL, SizeFree}

func (s Size) Valid() bool {
	for _, known := range Sizes {
		if s == known {
			return true
		}
	}
	return false
}

type SizeStock struct {
	Size  Size `json:"size" bson:"size"`
	Stock int  `json:"stock" bson:"stock"`
}

type Color struct {
	Name string `json:"name" bson:"name"`
	Hex  string `json:"hex" bson:"hex"`
}

type Product struct {
	ID            string      `json:"id" bson:"_id"`
	Slug          string      `json:"slug" bson:"slug"`
	Name          string      `json:"name" bson:"name"`
	Description   string      `json:"description" bson:"description"`
	Fabric        string      `json:"fabric" bson:"fabric"`
	Price         float64     `json:"price" bson:"price"`
	DiscountPrice *float64    `json:"discountPrice,omitempty" bson:"discountPrice,omitempty"`
	Category      Category    `json:"category" bson:"category"`
	Images        []string    `json:"images" bson:"images"`
	Sizes         []SizeStock `json:"sizes" bson:"sizes"`
	Colors        []Color     `json:"colors" bson:"colors"`
	TotalStock    int         `json:"totalStock" bson:"totalStock"`
	IsActive      bool        `json:"isActive" bson:"isActive"`
	Featured      bool        `json:"featured" bson:"featured"`
	CreatedAt     time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// EffectivePrice is the discount price when one is set and non-zero,
// otherwise the base price.
func (p *Product) EffectivePrice() float64 {
	if p.DiscountPrice != nil && *p.DiscountPrice > 0 {
		return *p.DiscountPrice
	}
	return p.Price
}

// MainImage returns the first image, or "" for a product without images.
func (p *Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// RecomputeTotalStock sets TotalStock to the sum of the size stocks.
// Call it after every change to Sizes.
func (p *Product) RecomputeTotalStock() {
	total := 0
	for _, s := range p.Sizes {
		total += s.Stock
	}
	p.TotalStock = total
}

// StockFor returns the stock of one size and whether the product carries it.
func (p *Product) StockFor(size Size) (int, bool) {
	for _, s := range p.Sizes {
		if s.Size == size {
			return s.Stock, true
		}
	}
	return 0, false
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
)

type ProductFilter struct {
	Category   Category
	Featured   *bool
	MinPrice   *float64
	MaxPrice   *float64
	Query      string
	IDs        []string
	ActiveOnly bool
	Sort       ProductSort
	Page       int
	Limit      int
}
