// Package vendorimport bulk-loads vendors from plain or gzip-compressed text
// files with one vendor name per line. Names are de-duplicated case-insensitively within
// and across files and against vendors already registered.
package vendorimport

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
	"github.com/harvestcart/harvestcart/internal/domain/vendor"
)

const (
	bloomFPR      = 0.001
	minBloomSize  = 1024
	progressEvery = 100_000
)

// Stats summarizes an import run.
type Stats struct {
	Lines    int
	Unique   int
	Existing int
	Created  int
	Rejected int
}

// Importer feeds names through the vendor registry so the usual validation
// applies.
type Importer struct {
	registry *vendor.Registry
	lg       *zap.Logger
}

// New creates an Importer.
func New(registry *vendor.Registry, lg *zap.Logger) *Importer {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Importer{registry: registry, lg: lg}
}

// known is the set of registered vendor names. The bloom filter answers the
// common "definitely new" case; positives are confirmed against the map.
type known struct {
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

func newKnown(names []string) *known {
	k := &known{
		filter: bloom.NewWithEstimates(uint(max(len(names), minBloomSize)), bloomFPR),
		exact:  make(map[string]struct{}, len(names)),
	}
	for _, n := range names {
		key := nameKey(n)
		k.filter.AddString(key)
		k.exact[key] = struct{}{}
	}
	return k
}

func (k *known) has(key string) bool {
	if !k.filter.TestString(key) {
		return false
	}
	_, ok := k.exact[key]
	return ok
}

// fileScan is the per-file result: new names in first-seen order.
type fileScan struct {
	names    []string
	lines    int
	existing int
}

// Run scans files concurrently and creates every new vendor. With dryRun no
// vendor is created. Names rejected by the registry are counted and skipped;
// storage failures abort the run.
func (im *Importer) Run(ctx context.Context, files []string, dryRun bool) (Stats, error) {
	var stats Stats

	current, err := im.registry.List(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "list vendors")
	}
	names := make([]string, len(current))
	for i, v := range current {
		names[i] = v.Name
	}
	registered := newKnown(names)

	scans := make([]fileScan, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			s, err := im.scanFile(gctx, path, registered)
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}
			scans[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	// Merge in file order so output is deterministic.
	seen := make(map[string]struct{})
	var pending []string
	for _, s := range scans {
		stats.Lines += s.lines
		stats.Existing += s.existing
		for _, n := range s.names {
			key := nameKey(n)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			pending = append(pending, n)
		}
	}
	stats.Unique = len(pending)
	im.lg.Info("Scan complete",
		zap.Int("files", len(files)),
		zap.Int("lines", stats.Lines),
		zap.Int("new", stats.Unique),
		zap.Int("existing", stats.Existing),
	)
	if dryRun {
		return stats, nil
	}

	for i, n := range pending {
		if _, err := im.registry.Create(ctx, n); err != nil {
			if errors.Is(err, apperr.ErrValidation) {
				stats.Rejected++
				im.lg.Warn("Vendor rejected", zap.String("name", n), zap.Error(err))
				continue
			}
			return stats, errors.Wrapf(err, "create vendor %q", n)
		}
		stats.Created++
		if (i+1)%1000 == 0 {
			im.lg.Info("Import progress", zap.Int("created", stats.Created), zap.Int("total", len(pending)))
		}
	}
	return stats, nil
}

func (im *Importer) scanFile(ctx context.Context, path string, registered *known) (fileScan, error) {
	var s fileScan
	local := make(map[string]struct{})

	err := streamLines(ctx, path, func(line string) {
		s.lines++
		if s.lines%progressEvery == 0 {
			im.lg.Debug("Scan progress", zap.String("file", path), zap.Int("lines", s.lines))
		}

		name := normalizeName(line)
		if name == "" {
			return
		}
		key := nameKey(name)
		if registered.has(key) {
			s.existing++
			return
		}
		if _, dup := local[key]; dup {
			return
		}
		local[key] = struct{}{}
		s.names = append(s.names, name)
	})
	return s, err
}

// normalizeName trims and collapses inner whitespace.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func nameKey(s string) string {
	return strings.ToLower(normalizeName(s))
}

// streamLines calls fn for every line of a file. Files starting with the gzip
// magic bytes are decompressed; anything else is read as plain text.
func streamLines(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	br := bufio.NewReader(f)
	var src io.Reader = br
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return errors.Wrap(err, "gzip reader")
		}
		defer func() { _ = gz.Close() }()
		src = gz
	}

	sc := bufio.NewScanner(src)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(sc.Text())
	}
	return errors.Wrap(sc.Err(), "read lines")
}
