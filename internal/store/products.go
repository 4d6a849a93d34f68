package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vastra_back_end/internal/database"
	"vastra_back_end/internal/models"
)

type MongoProducts struct {
	coll *mongo.Collection
}

func NewMongoProducts(db *mongo.Database) *MongoProducts {
	return &MongoProducts{coll: db.Collection(database.ProductsCollection)}
}

func (s *MongoProducts) Create(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = primitive.NewObjectID().Hex()
	}
	p.RecomputeTotalStock()
	if _, err := s.coll.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *MongoProducts) Update(ctx context.Context, p *models.Product) error {
	set := bson.M{
		"slug":        p.Slug,
		"name":        p.Name,
		"description": p.Description,
		"fabric":      p.Fabric,
		"price":       p.Price,
		"category":    p.Category,
		"images":      p.Images,
		"colors":      p.Colors,
		"isActive":    p.IsActive,
		"featured":    p.Featured,
		"updatedAt":   p.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if p.DiscountPrice != nil {
		set["discountPrice"] = *p.DiscountPrice
	} else {
		update["$unset"] = bson.M{"discountPrice": ""}
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": p.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoProducts) ReplaceSizes(ctx context.Context, id string, sizes []models.SizeStock, at time.Time) (*models.Product, error) {
	total := 0
	for _, sz := range sizes {
		total += sz.Stock
	}
	update := bson.M{"$set": bson.M{"sizes": sizes, "totalStock": total, "updatedAt": at}}
	return s.findAndUpdate(ctx, bson.M{"_id": id}, update)
}

// SetSizeStock réécrit une taille existante et recalcule totalStock dans
// le même pipeline de mise à jour.
func (s *MongoProducts) SetSizeStock(ctx context.Context, id string, size models.Size, stock int, at time.Time) (*models.Product, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"sizes": bson.M{"$map": bson.M{
				"input": "$sizes",
				"as":    "s",
				"in": bson.M{"$cond": bson.A{
					bson.M{"$eq": bson.A{"$$s.size", size}},
					bson.M{"size": "$$s.size", "stock": stock},
					"$$s",
				}},
			}},
			"updatedAt": at,
		}}},
		{{Key: "$set", Value: bson.M{"totalStock": bson.M{"$sum": "$sizes.stock"}}}},
	}
	return s.findAndUpdate(ctx, bson.M{"_id": id, "sizes.size": size}, pipeline)
}

func (s *MongoProducts) AdjustStock(ctx context.Context, id string, size models.Size, delta int) error {
	filter := bson.M{"_id": id, "sizes": bson.M{"$elemMatch": bson.M{"size": size}}}
	if delta < 0 {
		filter["sizes"] = bson.M{"$elemMatch": bson.M{"size": size, "stock": bson.M{"$gte": -delta}}}
	}
	update := bson.M{"$inc": bson.M{"sizes.$.stock": delta, "totalStock": delta}}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("adjust stock %s/%s: %w", id, size, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, ok := p.StockFor(size); !ok {
		return ErrNotFound
	}
	return ErrInsufficientStock
}

func (s *MongoProducts) Get(ctx context.Context, id string) (*models.Product, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoProducts) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return s.findOne(ctx, bson.M{"slug": slug})
}

func (s *MongoProducts) GetMany(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (s *MongoProducts) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	filter := bson.M{"slug": slug}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count slug: %w", err)
	}
	return n > 0, nil
}

// effectivePrice reproduit Product.EffectivePrice côté serveur.
var effectivePrice = bson.M{"$cond": bson.A{
	bson.M{"$gt": bson.A{bson.M{"$ifNull": bson.A{"$discountPrice", 0}}, 0}},
	"$discountPrice",
	"$price",
}}

func (s *MongoProducts) List(ctx context.Context, f models.ProductFilter) ([]models.Product, int64, error) {
	match := bson.M{}
	if f.ActiveOnly {
		match["isActive"] = true
	}
	if f.Category != "" {
		match["category"] = f.Category
	}
	if f.Featured != nil {
		match["featured"] = *f.Featured
	}
	if len(f.IDs) > 0 {
		match["_id"] = bson.M{"$in": f.IDs}
	}
	if f.Query != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
		match["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"description": rx},
			bson.M{"fabric": rx},
			bson.M{"category": rx},
		}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.M{"effectivePrice": effectivePrice}}},
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		rng := bson.M{}
		if f.MinPrice != nil {
			rng["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			rng["$lte"] = *f.MaxPrice
		}
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"effectivePrice": rng}}})
	}

	sort := bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	switch f.Sort {
	case models.SortPriceAsc:
		sort = bson.D{{Key: "effectivePrice", Value: 1}, {Key: "_id", Value: 1}}
	case models.SortPriceDesc:
		sort = bson.D{{Key: "effectivePrice", Value: -1}, {Key: "_id", Value: 1}}
	}

	skip, limit := Page(f.Page, f.Limit, 12, 50)
	pipeline = append(pipeline, bson.D{{Key: "$facet", Value: bson.M{
		"items": bson.A{
			bson.M{"$sort": sort},
			bson.M{"$skip": skip},
			bson.M{"$limit": limit},
			bson.M{"$project": bson.M{"effectivePrice": 0}},
		},
		"total": bson.A{bson.M{"$count": "n"}},
	}}})

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	var out []struct {
		Items []models.Product `bson:"items"`
		Total []struct {
			N int64 `bson:"n"`
		} `bson:"total"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	if len(out) == 0 {
		return []models.Product{}, 0, nil
	}
	var total int64
	if len(out[0].Total) > 0 {
		total = out[0].Total[0].N
	}
	return out[0].Items, total, nil
}

func (s *MongoProducts) findOne(ctx context.Context, filter bson.M) (*models.Product, error) {
	var p models.Product
	if err := s.coll.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &p, nil
}

func (s *MongoProducts) findAndUpdate(ctx context.Context, filter bson.M, update any) (*models.Product, error) {
	var p models.Product
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return &p, nil
}
