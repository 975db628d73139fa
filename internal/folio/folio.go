// Package folio assigns the human-readable sequential order reference.
package folio

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/orders/internal/models"
)

const sequenceName = "orders"

// DefaultBase is the first folio number handed out on an empty system.
const DefaultBase = 14043

// DefaultPrefix prefixes every generated folio.
const DefaultPrefix = "FO-"

// Store is the persistence surface the sequencer needs. LockSequence must
// hold a row lock on the counter for the remainder of the transaction.
type Store interface {
	LockSequence(ctx context.Context, tx *gorm.DB, name string) (*models.FolioSequence, error)
	CreateSequence(ctx context.Context, tx *gorm.DB, seq *models.FolioSequence) error
	SaveSequence(ctx context.Context, tx *gorm.DB, seq *models.FolioSequence) error
	LastAssignedFolio(ctx context.Context, tx *gorm.DB) (string, error)
}

// Sequencer produces strictly increasing, globally unique folios. The counter
// lives in a dedicated locked row; incrementing inside the confirmation
// transaction keeps concurrent confirmations from observing the same value.
type Sequencer struct {
	store  Store
	prefix string
	base   int64
}

// NewSequencer creates a folio sequencer.
func NewSequencer(store Store, prefix string, base int64) *Sequencer {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if base <= 0 {
		base = DefaultBase
	}
	return &Sequencer{store: store, prefix: prefix, base: base}
}

// Next returns the next folio, e.g. "FO-14043". On first use the counter is
// seeded from the latest assigned folio's numeric suffix so existing data
// keeps its numbering; when no parseable folio exists it starts at the base.
func (s *Sequencer) Next(ctx context.Context, tx *gorm.DB) (string, error) {
	seq, err := s.store.LockSequence(ctx, tx, sequenceName)
	if err != nil {
		return "", errors.Wrap(err, "failed to lock folio sequence")
	}

	if seq == nil {
		seed, err := s.seed(ctx, tx)
		if err != nil {
			return "", err
		}
		seq = &models.FolioSequence{Name: sequenceName, Value: seed}
		if err := s.store.CreateSequence(ctx, tx, seq); err != nil {
			return "", errors.Wrap(err, "failed to create folio sequence")
		}
	}

	seq.Value++
	if err := s.store.SaveSequence(ctx, tx, seq); err != nil {
		return "", errors.Wrap(err, "failed to advance folio sequence")
	}

	return s.Format(seq.Value), nil
}

// Format renders a folio number with the configured prefix.
func (s *Sequencer) Format(n int64) string {
	return fmt.Sprintf("%s%d", s.prefix, n)
}

func (s *Sequencer) seed(ctx context.Context, tx *gorm.DB) (int64, error) {
	last, err := s.store.LastAssignedFolio(ctx, tx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to look up last assigned folio")
	}

	if n, ok := ParseSuffix(last); ok {
		return n, nil
	}
	return s.base - 1, nil
}

// ParseSuffix extracts the numeric portion of a folio. Returns false when the
// folio carries no digits.
func ParseSuffix(f string) (int64, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, f)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
