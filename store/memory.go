package store

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nongxian/apperr"
	"nongxian/utils"
)

// MemoryRepository keeps documents in process, normalized through BSON so
// that filters and sorting behave like the Mongo implementation.
type MemoryRepository[T any] struct {
	mu   sync.RWMutex
	name string
	docs map[string]bson.M
	ids  []string // insertion order
}

func NewMemoryRepository[T any](name string) *MemoryRepository[T] {
	return &MemoryRepository[T]{name: name, docs: make(map[string]bson.M)}
}

func (r *MemoryRepository[T]) Add(ctx context.Context, doc T) (string, error) {
	id := utils.GetUUID()
	if err := r.AddWithID(ctx, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (r *MemoryRepository[T]) AddWithID(_ context.Context, id string, doc T) error {
	m, err := toDocument(doc, id)
	if err != nil {
		return apperr.InternalError("資料格式錯誤", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.docs[id]; exists {
		return apperr.ConflictError("資料已存在", fmt.Errorf("%s/%s", r.name, id))
	}
	r.docs[id] = m
	r.ids = append(r.ids, id)
	return nil
}

func (r *MemoryRepository[T]) Update(_ context.Context, id string, fields map[string]any) error {
	normalized := make(map[string]any, len(fields))
	for k, v := range fields {
		nv, err := normalize(v)
		if err != nil {
			return apperr.InternalError("資料格式錯誤", err)
		}
		normalized[k] = nv
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return apperr.NotFoundError("找不到資料", fmt.Errorf("%s/%s", r.name, id))
	}
	for k, v := range normalized {
		assign(doc, k, v)
	}
	return nil
}

func (r *MemoryRepository[T]) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return apperr.NotFoundError("找不到資料", fmt.Errorf("%s/%s", r.name, id))
	}
	delete(r.docs, id)
	for i, v := range r.ids {
		if v == id {
			r.ids = append(r.ids[:i], r.ids[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepository[T]) GetByID(_ context.Context, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		var zero T
		return zero, apperr.NotFoundError("找不到資料", fmt.Errorf("%s/%s", r.name, id))
	}
	out, err := fromDocument[T](doc)
	if err != nil {
		return out, apperr.InternalError("資料讀取失敗", err)
	}
	return out, nil
}

func (r *MemoryRepository[T]) GetAll(_ context.Context, orderField string, dir Direction, limit int) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.snapshot()

	if orderField != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			a, aok := lookup(docs[i], orderField)
			b, bok := lookup(docs[j], orderField)
			var c int
			switch {
			case !aok && !bok:
				c = 0
			case !aok:
				c = -1
			case !bok:
				c = 1
			default:
				c, _ = compare(a, b)
			}
			if dir == Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return decodeAll[T](docs)
}

func (r *MemoryRepository[T]) GetWhere(_ context.Context, field string, op Operator, value any) ([]T, error) {
	if !op.Valid() {
		return nil, apperr.ValidationError(fmt.Sprintf("不支援的查詢運算子: %s", op))
	}
	want, err := normalize(value)
	if err != nil {
		return nil, apperr.InternalError("查詢條件格式錯誤", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.snapshot()

	matched := docs[:0]
	for _, doc := range docs {
		if matches(doc, field, op, want) {
			matched = append(matched, doc)
		}
	}
	return decodeAll[T](matched)
}

func (r *MemoryRepository[T]) Increment(_ context.Context, id, field string, limit *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return apperr.NotFoundError("找不到資料", fmt.Errorf("%s/%s", r.name, id))
	}

	cur, _ := lookup(doc, field)
	n, _ := toFloat(cur)
	if limit != nil && n >= float64(*limit) {
		return apperr.ConflictError("已達上限", fmt.Errorf("%s/%s: %s reached %d", r.name, id, field, *limit))
	}
	switch cur.(type) {
	case float64:
		assign(doc, field, n+1)
	case int64:
		assign(doc, field, int64(n)+1)
	default:
		assign(doc, field, int32(n)+1)
	}
	return nil
}

// snapshot lists the documents in insertion order. Callers hold the lock.
func (r *MemoryRepository[T]) snapshot() []bson.M {
	docs := make([]bson.M, 0, len(r.ids))
	for _, id := range r.ids {
		docs = append(docs, r.docs[id])
	}
	return docs
}

func decodeAll[T any](docs []bson.M) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := fromDocument[T](doc)
		if err != nil {
			return nil, apperr.InternalError("資料讀取失敗", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// normalize round-trips a value through BSON so Go values compare against
// stored ones: ints become int32/int64, time.Time becomes DateTime, slices
// become bson.A and structs become bson.M.
func normalize(v any) (any, error) {
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m["v"], nil
}

func asMap(v any) (bson.M, bool) {
	switch t := v.(type) {
	case bson.M:
		return t, true
	case map[string]any:
		return bson.M(t), true
	case primitive.D:
		m := bson.M{}
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

func lookup(doc bson.M, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func assign(doc bson.M, path string, value any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(cur[part])
		if !ok {
			next = bson.M{}
		}
		cur[part] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// compare orders two normalized values. ok is false for values of
// different or unordered kinds.
func compare(a, b any) (c int, ok bool) {
	if af, isNum := toFloat(a); isNum {
		bf, isNum := toFloat(b)
		if !isNum {
			return 0, false
		}
		return cmp.Compare(af, bf), true
	}
	switch av := a.(type) {
	case string:
		bv, isStr := b.(string)
		if !isStr {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, isBool := b.(bool)
		if !isBool {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case primitive.DateTime:
		bv, isTime := b.(primitive.DateTime)
		if !isTime {
			return 0, false
		}
		return cmp.Compare(int64(av), int64(bv)), true
	}
	return 0, false
}

func equal(a, b any) bool {
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

func matches(doc bson.M, field string, op Operator, want any) bool {
	got, exists := lookup(doc, field)
	switch op {
	case Eq:
		if want == nil {
			return !exists || got == nil
		}
		return exists && equal(got, want)
	case Ne:
		if want == nil {
			return exists && got != nil
		}
		return !exists || !equal(got, want)
	case Lt, Lte, Gt, Gte:
		if !exists {
			return false
		}
		c, ok := compare(got, want)
		if !ok {
			return false
		}
		switch op {
		case Lt:
			return c < 0
		case Lte:
			return c <= 0
		case Gt:
			return c > 0
		default:
			return c >= 0
		}
	case In:
		candidates, ok := want.(bson.A)
		if !ok || !exists {
			return false
		}
		for _, v := range candidates {
			if equal(got, v) {
				return true
			}
		}
	case ArrayContains:
		arr, ok := got.(bson.A)
		if !ok {
			return false
		}
		for _, v := range arr {
			if equal(v, want) {
				return true
			}
		}
	}
	return false
}
