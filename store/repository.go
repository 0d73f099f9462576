// Package store is the document store client: one typed repository per
// collection over MongoDB, plus an in-process implementation with the same
// semantics for tests and local demos.
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

type Direction int

const (
	Asc  Direction = 1
	Desc Direction = -1
)

// Operator is the comparison used by GetWhere.
type Operator string

const (
	Eq            Operator = "=="
	Ne            Operator = "!="
	Lt            Operator = "<"
	Lte           Operator = "<="
	Gt            Operator = ">"
	Gte           Operator = ">="
	In            Operator = "in"
	ArrayContains Operator = "array-contains"
)

func (o Operator) Valid() bool {
	switch o {
	case Eq, Ne, Lt, Lte, Gt, Gte, In, ArrayContains:
		return true
	}
	return false
}

// Repository is a typed view over one collection. Documents are keyed by a
// string _id. Missing ids yield apperr.NotFound, duplicate ids apperr.Conflict.
type Repository[T any] interface {
	// Add stores doc under a generated id and returns it.
	Add(ctx context.Context, doc T) (string, error)
	AddWithID(ctx context.Context, id string, doc T) error
	// Update sets the given top-level or dotted fields.
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (T, error)
	// GetAll sorts by orderField when non-empty; limit <= 0 means no limit.
	GetAll(ctx context.Context, orderField string, dir Direction, limit int) ([]T, error)
	GetWhere(ctx context.Context, field string, op Operator, value any) ([]T, error)
	// Increment adds one to field. With a non-nil limit it only does so while
	// the current value is below limit, atomically, and returns a conflict
	// otherwise.
	Increment(ctx context.Context, id, field string, limit *int) error
}

// toDocument flattens doc into a bson.M and stamps the id on it.
func toDocument(doc any, id string) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	m["_id"] = id
	return m, nil
}

func fromDocument[T any](m bson.M) (T, error) {
	var out T
	raw, err := bson.Marshal(m)
	if err != nil {
		return out, fmt.Errorf("marshal document: %w", err)
	}
	if err := bson.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}
