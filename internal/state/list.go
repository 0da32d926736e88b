package state

import (
	"context"

	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

// ListOptions configures a paginated list. Zero values fall back to page 1
// and utils.DefaultLimit.
type ListOptions[F any] struct {
	Page      int
	Limit     int
	Filters   F
	AutoFetch bool
}

type fetchPage[T, F any] func(ctx context.Context, page, limit int, filters F) (services.Page[T], error)

// list is the paginated, filtered view shared by the entity lists.
type list[T, F any] struct {
	tracker
	fetch     fetchPage[T, F]
	items     []T
	total     int64
	page      int
	limit     int
	filters   F
	autoFetch bool
}

func newList[T, F any](fetch fetchPage[T, F], opts ListOptions[F]) list[T, F] {
	pg := utils.NewPagination(opts.Page, opts.Limit)
	return list[T, F]{
		fetch:     fetch,
		items:     []T{},
		page:      pg.Page,
		limit:     pg.Limit,
		filters:   opts.Filters,
		autoFetch: opts.AutoFetch,
	}
}

// Init performs the initial fetch when AutoFetch is set.
func (l *list[T, F]) Init(ctx context.Context) error {
	if !l.autoFetch {
		return nil
	}
	return l.Fetch(ctx)
}

// Fetch loads the current page with the current filters.
func (l *list[T, F]) Fetch(ctx context.Context) error {
	var (
		page, limit int
		filters     F
	)
	token := l.begin(func() { page, limit, filters = l.page, l.limit, l.filters })
	res, err := l.fetch(ctx, page, limit, filters)
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("page", page).Error("list fetch failed")
	}
	l.finish(token, err, func() {
		l.items = res.Items
		l.total = res.Total
	})
	return err
}

// SetPage moves to page and re-fetches when AutoFetch is set.
func (l *list[T, F]) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	l.read(func() { l.page = page })
	if !l.autoFetch {
		return nil
	}
	return l.Fetch(ctx)
}

// SetFilters replaces the filters and returns to the first page.
func (l *list[T, F]) SetFilters(ctx context.Context, filters F) error {
	l.read(func() {
		l.filters = filters
		l.page = 1
	})
	if !l.autoFetch {
		return nil
	}
	return l.Fetch(ctx)
}

func (l *list[T, F]) Items() []T {
	var out []T
	l.read(func() { out = clone(l.items) })
	return out
}

func (l *list[T, F]) Total() int64 {
	var n int64
	l.read(func() { n = l.total })
	return n
}

func (l *list[T, F]) Page() int {
	var n int
	l.read(func() { n = l.page })
	return n
}

func (l *list[T, F]) Limit() int {
	return l.limit
}

func (l *list[T, F]) Filters() F {
	var f F
	l.read(func() { f = l.filters })
	return f
}

// dropped removes matching items and decrements the total, never below 0.
func (l *list[T, F]) dropped(match func(T) bool) {
	l.items = removeWhere(l.items, match)
	if l.total > 0 {
		l.total--
	}
}
