// Package folio computes site-scoped, human-readable voucher numbers.
package folio

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TempPrefix marks a degraded folio issued while the lookup was unavailable.
// Temporary folios are visually distinct and reconciled by hand later.
const TempPrefix = "TEMP-"

// counterWidth is the zero-padded width of the trailing counter
const counterWidth = 5

// Lookup is the read side of the data collaborator the sequencer needs.
type Lookup interface {
	// MaxFolio returns the highest existing folio for the exact prefix,
	// or "" when no folio exists yet.
	MaxFolio(ctx context.Context, prefix string) (string, error)

	// FolioExists reports whether the exact folio is already taken.
	FolioExists(ctx context.Context, folio string) (bool, error)
}

// Sequencer computes the next folio for a site prefix. It never returns an
// error: folio generation failure degrades to a temporary folio rather than
// blocking voucher creation.
type Sequencer struct {
	lookup Lookup
	now    func() time.Time
	logger *zap.Logger
}

// NewSequencer creates a sequencer backed by the given lookup
func NewSequencer(lookup Lookup, logger *zap.Logger) *Sequencer {
	return &Sequencer{
		lookup: lookup,
		now:    time.Now,
		logger: logger,
	}
}

// NextFolio returns the next folio for the prefix, e.g. "CD-140-" → "CD-140-00001".
//
// The candidate is the highest existing counter plus one. After computing it,
// existence is re-checked once; if a concurrent issuer took the candidate in
// the meantime, the counter is bumped once more and returned without a further
// check. This is a best-effort single retry, not a strict allocator; the
// UNIQUE constraint on the folio column still rejects a true duplicate at the
// commit point.
func (s *Sequencer) NextFolio(ctx context.Context, prefix string) string {
	last, err := s.lookup.MaxFolio(ctx, prefix)
	if err != nil {
		return s.temporary(prefix, err)
	}

	seq := 0
	if last != "" {
		seq = parseCounter(prefix, last)
	}

	candidate := format(prefix, seq+1)

	taken, err := s.lookup.FolioExists(ctx, candidate)
	if err != nil {
		return s.temporary(prefix, err)
	}
	if taken {
		s.logger.Warn("Folio candidate taken by concurrent issuer, retrying once",
			zap.String("candidate", candidate))
		return format(prefix, seq+2)
	}

	return candidate
}

// IsTemporary reports whether the folio is a degraded temporary folio
func IsTemporary(folio string) bool {
	return strings.HasPrefix(folio, TempPrefix)
}

// temporary builds the coarse-timestamp fallback folio
func (s *Sequencer) temporary(prefix string, cause error) string {
	folio := fmt.Sprintf("%s%s", TempPrefix, s.now().UTC().Format("20060102150405"))
	s.logger.Error("Folio lookup failed, degrading to temporary folio",
		zap.String("prefix", prefix),
		zap.String("folio", folio),
		zap.Error(cause))
	return folio
}

// parseCounter extracts the trailing counter of a folio; malformed suffixes
// restart the sequence rather than failing.
func parseCounter(prefix, folio string) int {
	suffix := strings.TrimPrefix(folio, prefix)
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func format(prefix string, counter int) string {
	return fmt.Sprintf("%s%0*d", prefix, counterWidth, counter)
}
