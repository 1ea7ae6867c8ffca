package option

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/partnerdesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type row struct {
	ID    int64 `gorm:"primaryKey"`
	Score int
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&row{}))
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, db.Create(&row{ID: i, Score: int(i) * 10}).Error)
	}
	return db
}

func find(t *testing.T, db *gorm.DB, opts ...QueryOption) []row {
	t.Helper()
	stmt := db.Model(&row{})
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	var out []row
	require.NoError(t, stmt.Find(&out).Error)
	return out
}

func TestApplyOperator(t *testing.T) {
	db := setupDB(t)

	got := find(t, db, ApplyOperator(Condition{Field: "score", Operator: GTE, Value: 30}))
	assert.Len(t, got, 3)

	got = find(t, db, ApplyOperator(Condition{Field: "score", Operator: Operator("; DROP"), Value: 1}))
	assert.Len(t, got, 5)
}

func TestWithSortByIgnoresUnknownColumns(t *testing.T) {
	db := setupDB(t)

	got := find(t, db, WithSortBy(WithQuerySortBy("score", "desc", map[string]bool{"score": true})))
	require.Len(t, got, 5)
	assert.Equal(t, int64(5), got[0].ID)

	got = find(t, db,
		WithSortBy(WithQuerySortBy("password", "desc", map[string]bool{"score": true})),
		WithSortBy(WithQuerySortBy("score", "asc", map[string]bool{"score": true})),
	)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestApplyPaginationFetchesOneExtra(t *testing.T) {
	db := setupDB(t)

	got := find(t, db, ApplyPagination(pagination.Pagination{PageSize: 2}))
	assert.Len(t, got, 3)

	token, err := pagination.EncodeCursor(pagination.Cursor{ID: "3"})
	require.NoError(t, err)
	got = find(t, db, ApplyPagination(pagination.Pagination{PageSize: 10, PageToken: token}))
	assert.Len(t, got, 2)
}
