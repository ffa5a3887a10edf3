package pages

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const defaultMaxAttempts = 3

// Locker serialises work on a key. The returned function releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// VersionLedger is the slice of the store the numbering authority needs.
type VersionLedger interface {
	MaxVersionNumber(ctx context.Context, pageID int64) (int, error)
	// InsertVersion persists the version and its translations atomically.
	// It must return an error matching ErrVersionConflict when the number is taken.
	InsertVersion(ctx context.Context, version *Version) error
}

// NumberingOptions configures a NumberingAuthority.
type NumberingOptions struct {
	Ledger      VersionLedger
	Locker      Locker
	MaxAttempts int
	Logger      *logrus.Logger
}

// NumberingAuthority hands out version numbers and appends versions under a per-page lock.
type NumberingAuthority struct {
	ledger      VersionLedger
	locker      Locker
	maxAttempts int
	logger      *logrus.Logger
}

// NewNumberingAuthority validates its collaborators and applies defaults.
func NewNumberingAuthority(opts NumberingOptions) (*NumberingAuthority, error) {
	if opts.Ledger == nil {
		return nil, eris.New("version ledger is required")
	}
	if opts.Locker == nil {
		return nil, eris.New("locker is required")
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &NumberingAuthority{
		ledger:      opts.Ledger,
		locker:      opts.Locker,
		maxAttempts: maxAttempts,
		logger:      opts.Logger,
	}, nil
}

// NextVersionNumber returns the highest existing number plus one, starting at 1.
func (a *NumberingAuthority) NextVersionNumber(ctx context.Context, pageID int64) (int, error) {
	highest, err := a.ledger.MaxVersionNumber(ctx, pageID)
	if err != nil {
		return 0, eris.Wrapf(err, "reading highest version of page %d", pageID)
	}
	return highest + 1, nil
}

// Append numbers and persists the version produced by build. build may run more than once
// when a concurrent writer wins a number; each call must return a fresh value.
func (a *NumberingAuthority) Append(ctx context.Context, pageID int64, build func(number int) Version) (*Version, error) {
	unlock, err := a.locker.Lock(ctx, lockKey(pageID))
	if err != nil {
		return nil, eris.Wrapf(err, "locking page %d for numbering", pageID)
	}
	defer unlock()

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		number, err := a.NextVersionNumber(ctx, pageID)
		if err != nil {
			return nil, err
		}

		version := build(number)
		version.PageID = pageID
		version.Number = number

		err = a.ledger.InsertVersion(ctx, &version)
		if err == nil {
			return &version, nil
		}

		if !eris.Is(err, ErrVersionConflict) {
			return nil, eris.Wrapf(err, "appending version %d to page %d", number, pageID)
		}

		if a.logger != nil {
			a.logger.WithFields(logrus.Fields{
				"component": "pages.numbering",
				"page_id":   pageID,
				"number":    number,
				"attempt":   attempt,
			}).Warn("version number taken by a concurrent writer, retrying")
		}
	}

	return nil, eris.Wrapf(ErrConcurrency, "page %d: gave up after %d attempts", pageID, a.maxAttempts)
}

func lockKey(pageID int64) string {
	return PermissionIDPrefix + strconv.FormatInt(pageID, 10) + ":versions"
}
