package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"deview/domain/core"
	"deview/domain/upload"
	"deview/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]*Catalog {
	t.Helper()
	ctx := context.Background()

	mem, err := Open(ctx, config.DatabaseConfig{Driver: config.DriverMemory})
	require.NoError(t, err)

	lite, err := Open(ctx, config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "catalog.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })

	return map[string]*Catalog{"memory": mem, "sqlite": lite}
}

func record(session core.SessionID, name, content string, at time.Time) *upload.Upload {
	u := upload.New(session, name, "uploads/"+name, []byte(content), 3)
	u.CreatedAt = at
	return u
}

func TestUploadRepository(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s1 := core.SessionID(core.NewID())
	s2 := core.SessionID(core.NewID())

	for name, cat := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := cat.Uploads
			require.NoError(t, cat.Ping(ctx))

			first := record(s1, "a.csv", "one", base)
			second := record(s1, "b.csv", "two", base.Add(time.Minute))
			other := record(s2, "c.csv", "one", base.Add(2*time.Minute))
			for _, u := range []*upload.Upload{first, second, other} {
				require.NoError(t, repo.Create(ctx, u))
			}

			got, err := repo.GetByID(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, first.Name, got.Name)
			assert.Equal(t, first.Hash, got.Hash)
			assert.Equal(t, int64(3), got.Size)
			assert.Equal(t, 3, got.Rows)
			assert.WithinDuration(t, first.CreatedAt, got.CreatedAt, time.Second)

			recent, err := repo.ListRecent(ctx, 2)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			assert.Equal(t, other.ID, recent[0].ID)
			assert.Equal(t, second.ID, recent[1].ID)

			mine, err := repo.ListBySession(ctx, s1, 0)
			require.NoError(t, err)
			require.Len(t, mine, 2)
			assert.Equal(t, second.ID, mine[0].ID)

			dup, err := repo.FindByHash(ctx, core.NewHash([]byte("one")))
			require.NoError(t, err)
			assert.Equal(t, other.ID, dup.ID, "newest upload with that content")

			require.NoError(t, repo.Delete(ctx, first.ID))
			_, err = repo.GetByID(ctx, first.ID)
			assert.True(t, core.IsNotFoundError(err))
			assert.True(t, core.IsNotFoundError(repo.Delete(ctx, first.ID)))

			_, err = repo.FindByHash(ctx, core.NewHash([]byte("missing")))
			assert.True(t, core.IsNotFoundError(err))
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}
