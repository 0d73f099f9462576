package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nongxian/apperr"
	"nongxian/store"
)

type produce struct {
	ID       string    `bson:"_id,omitempty"`
	Name     string    `bson:"name"`
	Category string    `bson:"category"`
	Price    int       `bson:"price"`
	Tags     []string  `bson:"tags"`
	Sold     int       `bson:"sold"`
	Listed   time.Time `bson:"listed"`
	Meta     struct {
		Farm string `bson:"farm"`
	} `bson:"meta"`
}

func seed(t *testing.T) *store.MemoryRepository[produce] {
	t.Helper()
	repo := store.NewMemoryRepository[produce]("produce")
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	items := []produce{
		{ID: "apple", Name: "蘋果", Category: "fruit", Price: 300, Tags: []string{"organic"}, Listed: base},
		{ID: "cabbage", Name: "高麗菜", Category: "vegetable", Price: 80, Tags: []string{"local"}, Listed: base.Add(time.Hour)},
		{ID: "mango", Name: "芒果", Category: "fruit", Price: 450, Tags: []string{"organic", "seasonal"}, Listed: base.Add(2 * time.Hour)},
	}
	for _, it := range items {
		require.NoError(t, repo.AddWithID(ctx, it.ID, it))
	}
	return repo
}

func TestMemoryRepository_AddAndGet(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()

	got, err := repo.GetByID(ctx, "mango")
	require.NoError(t, err)
	assert.Equal(t, "芒果", got.Name)
	assert.Equal(t, "mango", got.ID)
	assert.True(t, got.Listed.Equal(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)))

	id, err := repo.Add(ctx, produce{Name: "香蕉", Category: "fruit", Price: 60})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	banana, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, banana.ID)

	_, err = repo.GetByID(ctx, "durian")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestMemoryRepository_AddWithIDConflict(t *testing.T) {
	repo := seed(t)
	err := repo.AddWithID(context.Background(), "apple", produce{Name: "again"})
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestMemoryRepository_UpdateDottedAndDelete(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()

	require.NoError(t, repo.Update(ctx, "apple", map[string]any{
		"price":     320,
		"meta.farm": "梨山果園",
	}))
	got, err := repo.GetByID(ctx, "apple")
	require.NoError(t, err)
	assert.Equal(t, 320, got.Price)
	assert.Equal(t, "梨山果園", got.Meta.Farm)

	assert.True(t, apperr.Is(repo.Update(ctx, "durian", map[string]any{"price": 1}), apperr.NotFound))

	require.NoError(t, repo.Delete(ctx, "apple"))
	_, err = repo.GetByID(ctx, "apple")
	assert.True(t, apperr.Is(err, apperr.NotFound))
	assert.True(t, apperr.Is(repo.Delete(ctx, "apple"), apperr.NotFound))
}

func TestMemoryRepository_GetAllOrdering(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()

	byPrice, err := repo.GetAll(ctx, "price", store.Desc, 0)
	require.NoError(t, err)
	require.Len(t, byPrice, 3)
	assert.Equal(t, []string{"mango", "apple", "cabbage"}, ids(byPrice))

	newest, err := repo.GetAll(ctx, "listed", store.Desc, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"mango"}, ids(newest))

	insertion, err := repo.GetAll(ctx, "", store.Asc, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "cabbage", "mango"}, ids(insertion))
}

func TestMemoryRepository_GetWhere(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		field string
		op    store.Operator
		value any
		want  []string
	}{
		{"equal", "category", store.Eq, "fruit", []string{"apple", "mango"}},
		{"not equal", "category", store.Ne, "fruit", []string{"cabbage"}},
		{"less than", "price", store.Lt, 300, []string{"cabbage"}},
		{"at least", "price", store.Gte, 300, []string{"apple", "mango"}},
		{"in", "_id", store.In, []string{"apple", "cabbage", "durian"}, []string{"apple", "cabbage"}},
		{"array contains", "tags", store.ArrayContains, "organic", []string{"apple", "mango"}},
		{"after time", "listed", store.Gt, time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC), []string{"cabbage", "mango"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.GetWhere(ctx, tc.field, tc.op, tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(got))
		})
	}

	_, err := repo.GetWhere(ctx, "price", store.Operator("~"), 1)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestMemoryRepository_IncrementBounded(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()
	limit := 2

	require.NoError(t, repo.Increment(ctx, "apple", "sold", &limit))
	require.NoError(t, repo.Increment(ctx, "apple", "sold", &limit))
	err := repo.Increment(ctx, "apple", "sold", &limit)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	got, err := repo.GetByID(ctx, "apple")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Sold)

	require.NoError(t, repo.Increment(ctx, "apple", "sold", nil))
	got, _ = repo.GetByID(ctx, "apple")
	assert.Equal(t, 3, got.Sold)

	assert.True(t, apperr.Is(repo.Increment(ctx, "durian", "sold", nil), apperr.NotFound))
}

func ids(items []produce) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
