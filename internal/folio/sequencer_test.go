package folio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

type mockLookup struct {
	maxFolioFunc    func(ctx context.Context, prefix string) (string, error)
	folioExistsFunc func(ctx context.Context, folio string) (bool, error)
}

func (m *mockLookup) MaxFolio(ctx context.Context, prefix string) (string, error) {
	if m.maxFolioFunc != nil {
		return m.maxFolioFunc(ctx, prefix)
	}
	return "", nil
}

func (m *mockLookup) FolioExists(ctx context.Context, folio string) (bool, error) {
	if m.folioExistsFunc != nil {
		return m.folioExistsFunc(ctx, folio)
	}
	return false, nil
}

func newTestSequencer(lookup Lookup) *Sequencer {
	s := NewSequencer(lookup, zap.NewNop())
	s.now = func() time.Time {
		return time.Date(2024, 3, 12, 15, 4, 5, 0, time.UTC)
	}
	return s
}

func TestNextFolio_FirstFolioForSite(t *testing.T) {
	s := newTestSequencer(&mockLookup{})

	got := s.NextFolio(context.Background(), "CD-140-")
	if got != "CD-140-00001" {
		t.Errorf("NextFolio() = %q, want %q", got, "CD-140-00001")
	}
}

func TestNextFolio_Increments(t *testing.T) {
	tests := []struct {
		last string
		want string
	}{
		{"CD-140-00001", "CD-140-00002"},
		{"CD-140-00042", "CD-140-00043"},
		{"CD-140-00999", "CD-140-01000"},
		{"CD-140-99998", "CD-140-99999"},
	}

	for _, tt := range tests {
		t.Run(tt.last, func(t *testing.T) {
			s := newTestSequencer(&mockLookup{
				maxFolioFunc: func(ctx context.Context, prefix string) (string, error) {
					return tt.last, nil
				},
			})
			if got := s.NextFolio(context.Background(), "CD-140-"); got != tt.want {
				t.Errorf("NextFolio() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNextFolio_MalformedSuffixRestartsSequence(t *testing.T) {
	s := newTestSequencer(&mockLookup{
		maxFolioFunc: func(ctx context.Context, prefix string) (string, error) {
			return "CD-140-ABCDE", nil
		},
	})

	if got := s.NextFolio(context.Background(), "CD-140-"); got != "CD-140-00001" {
		t.Errorf("NextFolio() = %q, want %q", got, "CD-140-00001")
	}
}

func TestNextFolio_CollisionRetriesOnce(t *testing.T) {
	checks := 0
	s := newTestSequencer(&mockLookup{
		maxFolioFunc: func(ctx context.Context, prefix string) (string, error) {
			return "CD-140-00007", nil
		},
		folioExistsFunc: func(ctx context.Context, folio string) (bool, error) {
			checks++
			return folio == "CD-140-00008", nil
		},
	})

	got := s.NextFolio(context.Background(), "CD-140-")
	if got != "CD-140-00009" {
		t.Errorf("NextFolio() = %q, want %q", got, "CD-140-00009")
	}
	if checks != 1 {
		t.Errorf("existence checked %d times, want exactly 1 (single retry, no re-check)", checks)
	}
}

func TestNextFolio_LookupFailureDegradesToTemporary(t *testing.T) {
	tests := []struct {
		name   string
		lookup *mockLookup
	}{
		{
			name: "max folio query fails",
			lookup: &mockLookup{
				maxFolioFunc: func(ctx context.Context, prefix string) (string, error) {
					return "", errors.New("connection reset")
				},
			},
		},
		{
			name: "existence re-check fails",
			lookup: &mockLookup{
				folioExistsFunc: func(ctx context.Context, folio string) (bool, error) {
					return false, errors.New("connection reset")
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSequencer(tt.lookup)

			got := s.NextFolio(context.Background(), "CD-140-")
			if !IsTemporary(got) {
				t.Fatalf("NextFolio() = %q, want a TEMP- folio", got)
			}
			if got != "TEMP-20240312150405" {
				t.Errorf("NextFolio() = %q, want coarse-timestamp suffix", got)
			}
		})
	}
}

func TestNextFolio_ConsecutiveIssuance(t *testing.T) {
	// First issuance on an empty site, then a second one seeing the first
	var issued []string
	s := newTestSequencer(&mockLookup{
		maxFolioFunc: func(ctx context.Context, prefix string) (string, error) {
			if len(issued) == 0 {
				return "", nil
			}
			return issued[len(issued)-1], nil
		},
		folioExistsFunc: func(ctx context.Context, folio string) (bool, error) {
			for _, f := range issued {
				if f == folio {
					return true, nil
				}
			}
			return false, nil
		},
	})

	for i, want := range []string{"CD-140-00001", "CD-140-00002"} {
		got := s.NextFolio(context.Background(), "CD-140-")
		if got != want {
			t.Fatalf("issuance %d: NextFolio() = %q, want %q", i+1, got, want)
		}
		issued = append(issued, got)
	}
}

func TestNextFolio_WideCounterRange(t *testing.T) {
	for _, n := range []int{0, 1, 500, 99998} {
		last := ""
		if n > 0 {
			last = fmt.Sprintf("CD-140-%05d", n)
		}
		s := newTestSequencer(&mockLookup{
			maxFolioFunc: func(ctx context.Context, prefix string) (string, error) {
				return last, nil
			},
		})
		want := fmt.Sprintf("CD-140-%05d", n+1)
		if got := s.NextFolio(context.Background(), "CD-140-"); got != want {
			t.Errorf("n=%d: NextFolio() = %q, want %q", n, got, want)
		}
	}
}

func TestIsTemporary(t *testing.T) {
	if !IsTemporary("TEMP-20240312150405") {
		t.Error("IsTemporary() should accept TEMP- folios")
	}
	if IsTemporary("CD-140-00001") {
		t.Error("IsTemporary() should reject regular folios")
	}
	if IsTemporary(strings.ToLower("TEMP-1")) {
		t.Error("IsTemporary() is case sensitive")
	}
}
