package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"unionhall/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect to test database")
	}
	return db
}

func stores(t *testing.T) map[string]Store {
	db, err := NewDBStore(setupTestDB())
	require.NoError(t, err)
	return map[string]Store{
		"file":   NewFileStore(t.TempDir()),
		"memory": NewMemoryStore(),
		"db":     db,
	}
}

func TestStores(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var posts []*models.Post
			assert.ErrorIs(t, s.Load(KeyPosts, &posts), ErrNotFound)

			content := "body"
			in := []*models.Post{{ID: "p1", Board: models.BoardFree, Title: "t", Content: &content}}
			require.NoError(t, s.Save(KeyPosts, in))
			require.NoError(t, s.Load(KeyPosts, &posts))
			require.Len(t, posts, 1)
			assert.Equal(t, "p1", posts[0].ID)
			assert.Equal(t, "body", *posts[0].Content)

			require.NoError(t, s.Save(KeyPosts, []*models.Post{}))
			require.NoError(t, s.Load(KeyPosts, &posts))
			assert.Empty(t, posts)

			settings := models.SiteSettings{Greeting: "welcome"}
			require.NoError(t, s.Save(KeySettings, settings))
			var got models.SiteSettings
			require.NoError(t, s.Load(KeySettings, &got))
			assert.Equal(t, "welcome", got.Greeting)
		})
	}
}
