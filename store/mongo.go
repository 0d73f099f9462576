package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"nongxian/apperr"
	"nongxian/utils"
)

// MongoRepository implements Repository over a MongoDB collection.
type MongoRepository[T any] struct {
	coll *mongo.Collection
}

func NewMongoRepository[T any](db *mongo.Database, collection string) *MongoRepository[T] {
	return &MongoRepository[T]{coll: db.Collection(collection)}
}

func (r *MongoRepository[T]) Add(ctx context.Context, doc T) (string, error) {
	id := utils.GetUUID()
	if err := r.AddWithID(ctx, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (r *MongoRepository[T]) AddWithID(ctx context.Context, id string, doc T) error {
	m, err := toDocument(doc, id)
	if err != nil {
		return apperr.InternalError("資料格式錯誤", err)
	}
	if _, err := r.coll.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.ConflictError("資料已存在", fmt.Errorf("%s/%s: %w", r.coll.Name(), id, err))
		}
		return apperr.InternalError("資料寫入失敗", fmt.Errorf("%s/%s: %w", r.coll.Name(), id, err))
	}
	return nil
}

func (r *MongoRepository[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return apperr.InternalError("資料更新失敗", fmt.Errorf("%s/%s: %w", r.coll.Name(), id, err))
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundError("找不到資料", fmt.Errorf("%s/%s", r.coll.Name(), id))
	}
	return nil
}

func (r *MongoRepository[T]) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.InternalError("資料刪除失敗", fmt.Errorf("%s/%s: %w", r.coll.Name(), id, err))
	}
	if res.DeletedCount == 0 {
		return apperr.NotFoundError("找不到資料", fmt.Errorf("%s/%s", r.coll.Name(), id))
	}
	return nil
}

func (r *MongoRepository[T]) GetByID(ctx context.Context, id string) (T, error) {
	var out T
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return out, apperr.NotFoundError("找不到資料", fmt.Errorf("%s/%s", r.coll.Name(), id))
	}
	if err != nil {
		return out, apperr.InternalError("資料讀取失敗", fmt.Errorf("%s/%s: %w", r.coll.Name(), id, err))
	}
	return out, nil
}

func (r *MongoRepository[T]) GetAll(ctx context.Context, orderField string, dir Direction, limit int) ([]T, error) {
	opts := options.Find()
	if orderField != "" {
		opts.SetSort(bson.D{{Key: orderField, Value: int(dir)}})
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{}, opts)
}

func (r *MongoRepository[T]) GetWhere(ctx context.Context, field string, op Operator, value any) ([]T, error) {
	filter, err := mongoFilter(field, op, value)
	if err != nil {
		return nil, err
	}
	return r.find(ctx, filter, options.Find())
}

func (r *MongoRepository[T]) Increment(ctx context.Context, id, field string, limit *int) error {
	filter := bson.M{"_id": id}
	if limit != nil {
		filter[field] = bson.M{"$lt": *limit}
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{field: 1}})
	if err != nil {
		return apperr.InternalError("資料更新失敗", fmt.Errorf("%s/%s: %w", r.coll.Name(), id, err))
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.InternalError("資料讀取失敗", fmt.Errorf("%s/%s: %w", r.coll.Name(), id, err))
	}
	if n == 0 {
		return apperr.NotFoundError("找不到資料", fmt.Errorf("%s/%s", r.coll.Name(), id))
	}
	return apperr.ConflictError("已達上限", fmt.Errorf("%s/%s: %s reached %d", r.coll.Name(), id, field, *limit))
}

func (r *MongoRepository[T]) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.InternalError("資料讀取失敗", fmt.Errorf("%s: %w", r.coll.Name(), err))
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, apperr.InternalError("資料讀取失敗", fmt.Errorf("%s: %w", r.coll.Name(), err))
	}
	return out, nil
}

// mongoFilter translates a single equality-style condition into a filter.
func mongoFilter(field string, op Operator, value any) (bson.M, error) {
	switch op {
	case Eq, ArrayContains:
		return bson.M{field: value}, nil
	case Ne:
		return bson.M{field: bson.M{"$ne": value}}, nil
	case Lt:
		return bson.M{field: bson.M{"$lt": value}}, nil
	case Lte:
		return bson.M{field: bson.M{"$lte": value}}, nil
	case Gt:
		return bson.M{field: bson.M{"$gt": value}}, nil
	case Gte:
		return bson.M{field: bson.M{"$gte": value}}, nil
	case In:
		return bson.M{field: bson.M{"$in": value}}, nil
	}
	return nil, apperr.ValidationError(fmt.Sprintf("不支援的查詢運算子: %s", op))
}
