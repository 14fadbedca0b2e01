package vendorimport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestcart/harvestcart/internal/domain/vendor"
	"github.com/harvestcart/harvestcart/internal/storage/memory"
)

func writeGzip(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func vendorNames(t *testing.T, reg *vendor.Registry) []string {
	t.Helper()
	list, err := reg.List(context.Background())
	require.NoError(t, err)
	names := make([]string, len(list))
	for i, v := range list {
		names[i] = v.Name
	}
	return names
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := writeGzip(t, dir, "a.gz", "AgroSupplies", "  Green   Fields ", "", "SeedCo", "seedco")
	b := writeGzip(t, dir, "b.gz", "green fields", "Tractor Hub", strings.Repeat("x", vendor.MaxNameLength+1))

	reg := vendor.NewRegistry(memory.New().Vendors(), nil)
	_, err := reg.Create(ctx, "agrosupplies")
	require.NoError(t, err)

	stats, err := New(reg, nil).Run(ctx, []string{a, b}, false)
	require.NoError(t, err)

	assert.Equal(t, 8, stats.Lines)
	assert.Equal(t, 1, stats.Existing)
	assert.Equal(t, 4, stats.Unique)
	assert.Equal(t, 3, stats.Created)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, []string{"agrosupplies", "Green Fields", "SeedCo", "Tractor Hub"}, vendorNames(t, reg))

	// Re-running is a no-op.
	stats, err = New(reg, nil).Run(ctx, []string{a, b}, false)
	require.NoError(t, err)
	assert.Zero(t, stats.Created)
}

func TestRun_DryRun(t *testing.T) {
	dir := t.TempDir()
	a := writeGzip(t, dir, "a.gz", "AgroSupplies")

	reg := vendor.NewRegistry(memory.New().Vendors(), nil)
	stats, err := New(reg, nil).Run(context.Background(), []string{a}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Unique)
	assert.Zero(t, stats.Created)
	assert.Empty(t, vendorNames(t, reg))
}

func TestRun_PlainTextAndGzip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(plain, []byte("Orchard Co\nSeedCo\n"), 0o600))
	gz := writeGzip(t, dir, "b.gz", "seedco", "Tractor Hub")

	reg := vendor.NewRegistry(memory.New().Vendors(), nil)
	stats, err := New(reg, nil).Run(context.Background(), []string{plain, gz}, false)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Lines)
	assert.Equal(t, 3, stats.Created)
	assert.Equal(t, []string{"Orchard Co", "SeedCo", "Tractor Hub"}, vendorNames(t, reg))
}

func TestRun_MissingFile(t *testing.T) {
	reg := vendor.NewRegistry(memory.New().Vendors(), nil)
	_, err := New(reg, nil).Run(context.Background(), []string{filepath.Join(t.TempDir(), "nope.gz")}, false)
	require.Error(t, err)
}

func TestKnown(t *testing.T) {
	k := newKnown([]string{"AgroSupplies", " Seed  Co "})
	assert.True(t, k.has(nameKey("agrosupplies")))
	assert.True(t, k.has(nameKey("seed co")))
	assert.False(t, k.has(nameKey("Tractor Hub")))
}
