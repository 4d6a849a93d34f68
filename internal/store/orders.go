package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vastra_back_end/internal/database"
	"vastra_back_end/internal/models"
)

type MongoOrders struct {
	coll *mongo.Collection
}

func NewMongoOrders(db *mongo.Database) *MongoOrders {
	return &MongoOrders{coll: db.Collection(database.OrdersCollection)}
}

func (s *MongoOrders) Insert(ctx context.Context, o *models.Order) error {
	if o.ID == "" {
		o.ID = primitive.NewObjectID().Hex()
	}
	if _, err := s.coll.InsertOne(ctx, o); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *MongoOrders) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoOrders) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	return s.findOne(ctx, bson.M{"gatewayOrderId": gatewayOrderID})
}

func (s *MongoOrders) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.find(ctx, bson.M{"user": userID}, opts)
}

func (s *MongoOrders) List(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	filter := bson.M{}
	if f.OrderStatus != "" {
		filter["orderStatus"] = f.OrderStatus
	}
	if f.PaymentStatus != "" {
		filter["paymentStatus"] = f.PaymentStatus
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	skip, limit := Page(f.Page, f.Limit, 20, 100)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	orders, err := s.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *MongoOrders) Stats(ctx context.Context) (*models.OrderStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$orderStatus",
			"count": bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$paymentStatus", models.PaymentPaid}},
				"$totalAmount",
				0,
			}}},
		}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	var rows []struct {
		Status  models.OrderStatus `bson:"_id"`
		Count   int                `bson:"count"`
		Revenue float64            `bson:"revenue"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode order stats: %w", err)
	}

	stats := &models.OrderStats{ByStatus: make(map[models.OrderStatus]int)}
	for _, st := range models.OrderStatuses {
		stats.ByStatus[st] = 0
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.TotalOrders += r.Count
		stats.TotalRevenue += r.Revenue
	}
	return stats, nil
}

func (s *MongoOrders) ListStalePending(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	filter := bson.M{
		"paymentStatus": models.PaymentPending,
		"paymentMethod": bson.M{"$in": bson.A{models.PaymentRazorpay, models.PaymentStripe}},
		"orderStatus":   bson.M{"$ne": models.OrderCancelled},
		"createdAt":     bson.M{"$lt": cutoff},
	}
	return s.find(ctx, filter, options.Find().SetLimit(500))
}

func (s *MongoOrders) ApplyStatus(ctx context.Context, id string, upd models.StatusUpdate) (*models.Order, error) {
	return s.findAndUpdate(ctx, bson.M{"_id": id}, statusUpdateDoc(upd))
}

func (s *MongoOrders) ApplyStatusIf(ctx context.Context, id string, expect models.PaymentStatus, upd models.StatusUpdate) (*models.Order, error) {
	o, err := s.findAndUpdate(ctx, bson.M{"_id": id, "paymentStatus": expect}, statusUpdateDoc(upd))
	if errors.Is(err, ErrNotFound) {
		return nil, s.missOrPrecondition(ctx, id)
	}
	return o, err
}

func (s *MongoOrders) CompletePayment(ctx context.Context, id string, details models.PaymentDetails, at time.Time) (*models.Order, error) {
	filter := bson.M{"_id": id, "$or": bson.A{
		bson.M{"paymentStatus": models.PaymentPending, "orderStatus": bson.M{"$ne": models.OrderCancelled}},
		bson.M{"paymentStatus": models.PaymentFailed},
	}}
	update := bson.M{"$set": bson.M{
		"paymentStatus":  models.PaymentPaid,
		"orderStatus":    models.OrderConfirmed,
		"paymentDetails": details,
		"updatedAt":      at,
	}}
	o, err := s.findAndUpdate(ctx, filter, update)
	if errors.Is(err, ErrNotFound) {
		return nil, s.missOrPrecondition(ctx, id)
	}
	return o, err
}

func (s *MongoOrders) AttachGatewayOrder(ctx context.Context, id, gatewayOrderID string, at time.Time) error {
	filter := bson.M{"_id": id, "paymentStatus": models.PaymentPending}
	update := bson.M{"$set": bson.M{"gatewayOrderId": gatewayOrderID, "updatedAt": at}}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("attach gateway order: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.missOrPrecondition(ctx, id)
	}
	return nil
}

func (s *MongoOrders) SwapStockReserved(ctx context.Context, id string, from, to bool) (bool, error) {
	filter := bson.M{"_id": id, "stockReserved": from}
	if !from {
		// les commandes anciennes n'ont pas forcément le champ
		filter["stockReserved"] = bson.M{"$ne": true}
	}
	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"stockReserved": to}})
	if err != nil {
		return false, fmt.Errorf("swap stockReserved: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func statusUpdateDoc(upd models.StatusUpdate) bson.M {
	set := bson.M{"updatedAt": upd.UpdatedAt}
	if upd.OrderStatus != "" {
		set["orderStatus"] = upd.OrderStatus
	}
	if upd.PaymentStatus != nil {
		set["paymentStatus"] = *upd.PaymentStatus
	}
	if upd.TrackingNumber != nil {
		set["trackingNumber"] = *upd.TrackingNumber
	}
	if upd.DeliveredAt != nil {
		set["deliveredAt"] = *upd.DeliveredAt
	}
	if upd.CancelledAt != nil {
		set["cancelledAt"] = *upd.CancelledAt
	}
	if upd.RefundID != nil {
		set["refundId"] = *upd.RefundID
	}
	return bson.M{"$set": set}
}

func (s *MongoOrders) missOrPrecondition(ctx context.Context, id string) error {
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("count order: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrPrecondition
}

func (s *MongoOrders) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Order, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (s *MongoOrders) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var o models.Order
	if err := s.coll.FindOne(ctx, filter).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &o, nil
}

func (s *MongoOrders) findAndUpdate(ctx context.Context, filter bson.M, update bson.M) (*models.Order, error) {
	var o models.Order
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("update order: %w", err)
	}
	return &o, nil
}
