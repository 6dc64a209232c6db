package elasticsearch

import (
	"context"
	"log/slog"
	"time"

	"alertscope/internal/metrics"
	"alertscope/internal/models"
)

const (
	// DefaultPageSize is the number of hits requested per scroll page.
	DefaultPageSize = 100
	// DefaultScrollTTL keeps the cursor alive between two page fetches.
	DefaultScrollTTL = time.Minute

	clearScrollTimeout = 10 * time.Second
)

// Pager is the cursor protocol the scroll engine drives. *Client
// implements it.
type Pager interface {
	OpenScroll(ctx context.Context, index string, query Query, size int, ttl time.Duration) (*Page, error)
	NextPage(ctx context.Context, scrollID string, ttl time.Duration) (*Page, error)
	ClearScroll(ctx context.Context, scrollID string) error
}

// ScrollOptions configure a Scroller.
type ScrollOptions struct {
	Index    string
	PageSize int
	TTL      time.Duration
}

// Scroller drains every hit of a query through a scroll cursor.
type Scroller struct {
	pager   Pager
	opts    ScrollOptions
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewScroller creates a scroll engine over pager. Zero PageSize and TTL take
// the package defaults.
func NewScroller(pager Pager, opts ScrollOptions, m *metrics.Metrics, logger *slog.Logger) *Scroller {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultScrollTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scroller{
		pager:   pager,
		opts:    opts,
		metrics: m,
		logger:  logger,
	}
}

// FetchAll opens a scroll for query and follows it until a page comes back
// empty. The most recent scroll ID is always used for the next request and
// released when FetchAll returns, whatever the outcome.
//
// A failed page fetch stops pagination. The result then holds the documents
// gathered so far with Complete false and Err set, so callers can tell an
// interrupted scan from an empty one.
func (s *Scroller) FetchAll(ctx context.Context, query Query) *models.ScrollResult {
	result := &models.ScrollResult{Complete: true}

	var scrollID string
	defer func() {
		if scrollID != "" {
			s.clear(ctx, scrollID)
		}
	}()

	page, err := s.pager.OpenScroll(ctx, s.opts.Index, query, s.opts.PageSize, s.opts.TTL)
	for {
		if err != nil {
			s.logger.Error("Error fetching alerts",
				"index", s.opts.Index,
				"index_missing", IsNotFound(err),
				"pages", result.Pages,
				"documents", len(result.Documents),
				"error", err,
			)
			s.metrics.ObserveScrollFailure()
			result.Complete = false
			result.Err = err
			return result
		}

		if page.ScrollID != "" {
			scrollID = page.ScrollID
		}
		result.Pages++
		s.metrics.ObservePage(len(page.Documents))

		if len(page.Documents) == 0 {
			break
		}
		result.Documents = append(result.Documents, page.Documents...)

		page, err = s.pager.NextPage(ctx, scrollID, s.opts.TTL)
	}

	s.logger.Debug("Scroll drained",
		"index", s.opts.Index,
		"pages", result.Pages,
		"documents", len(result.Documents),
	)
	return result
}

// clear releases the cursor even when the request context is already done.
func (s *Scroller) clear(ctx context.Context, scrollID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearScrollTimeout)
	defer cancel()

	if err := s.pager.ClearScroll(ctx, scrollID); err != nil {
		s.logger.Warn("Failed to clear scroll", "error", err)
	}
}
