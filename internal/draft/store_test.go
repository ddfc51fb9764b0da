package draft

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/barangay/internal/config"
)

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, NewOfficialKey)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, NewOfficialKey, []byte(`{"a":1}`)))
	got, err := s.Load(ctx, NewOfficialKey)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"a":1}`), got)

	// last write wins
	require.NoError(t, s.Save(ctx, NewOfficialKey, []byte(`{"a":2}`)))
	got, err = s.Load(ctx, NewOfficialKey)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"a":2}`), got)

	require.NoError(t, s.Save(ctx, "other", []byte(`x`)))
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{NewOfficialKey, "other"}, keys)

	require.NoError(t, s.Delete(ctx, NewOfficialKey))
	_, err = s.Load(ctx, NewOfficialKey)
	require.ErrorIs(t, err, ErrNotFound)

	// deleting a missing key is not an error
	require.NoError(t, s.Delete(ctx, NewOfficialKey))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	require.NoError(t, s.Close())
}

func TestMemoryStore_CopiesPayload(t *testing.T) {
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Save(context.Background(), "k", buf))
	buf[0] = 'z'

	got, err := s.Load(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "drafts.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteStore_CreatesPrivateDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "drafts")
	s, err := OpenSQLite(filepath.Join(dir, "drafts.db"))
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")

	s1, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s1.Save(context.Background(), NewOfficialKey, []byte("payload")))
	require.NoError(t, s1.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Load(context.Background(), NewOfficialKey)
	require.NoError(t, err)
	require.Equal(t, "payload", string(got))

	_, err = os.Stat(path + ".bak")
	require.NoError(t, err, "existing database is backed up before migrating")
}

func TestSQLiteStore_Pragmas(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "drafts.db"))
	require.NoError(t, err)
	defer s.Close()

	var journal string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journal))
	require.Equal(t, "wal", journal)

	var timeout int
	require.NoError(t, s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	require.Equal(t, 5000, timeout)
}

func TestSQLiteStore_MigrationVersion(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "drafts.db"))
	require.NoError(t, err)
	defer s.Close()

	drv, err := newMigrationDriver(s.db)
	require.NoError(t, err)
	version, dirty, err := drv.Version()
	require.NoError(t, err)
	require.Equal(t, 1, version)
	require.False(t, dirty)
}

func TestMigrationDriver_Lock(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "drafts.db"))
	require.NoError(t, err)
	defer s.Close()

	drv, err := newMigrationDriver(s.db)
	require.NoError(t, err)
	require.NoError(t, drv.Lock())
	require.Error(t, drv.Lock())
	require.NoError(t, drv.Unlock())
	require.Error(t, drv.Unlock())
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestRedisStore(t *testing.T) {
	_, c := newMiniredis(t)
	exerciseStore(t, NewRedisStoreWithClient(c, "", 0))
}

func TestRedisStore_PrefixAndTTL(t *testing.T) {
	mr, c := newMiniredis(t)
	s := NewRedisStoreWithClient(c, "test:", time.Hour)

	require.NoError(t, s.Save(context.Background(), NewOfficialKey, []byte("x")))
	require.True(t, mr.Exists("test:"+NewOfficialKey))
	require.Equal(t, time.Hour, mr.TTL("test:"+NewOfficialKey))

	mr.FastForward(2 * time.Hour)
	_, err := s.Load(context.Background(), NewOfficialKey)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisStore(ctx, RedisOptions{Addr: addr})
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	tests := []struct {
		name string
		cfg  config.DraftConfig
		want any
	}{
		{name: "memory", cfg: config.DraftConfig{Backend: config.DraftBackendMemory}, want: &MemoryStore{}},
		{name: "sqlite", cfg: config.DraftConfig{Backend: config.DraftBackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "d.db")}, want: &SQLiteStore{}},
		{name: "redis", cfg: config.DraftConfig{Backend: config.DraftBackendRedis, RedisAddr: mr.Addr()}, want: &RedisStore{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(context.Background(), tt.cfg)
			require.NoError(t, err)
			defer s.Close()
			require.IsType(t, tt.want, s)
		})
	}

	_, err := Open(context.Background(), config.DraftConfig{Backend: "tape"})
	require.Error(t, err)
}
