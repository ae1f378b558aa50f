package orders

import (
	"context"
	"strconv"

	"github.com/foodly/storefront/internal/model"
)

// DefaultPageSize is used when the caller does not ask for a page size.
const DefaultPageSize = 10

// MaxPageSize caps page_size.
const MaxPageSize = 50

// Lister fetches one page of orders. Pages start at 1.
type Lister interface {
	ListOrders(ctx context.Context, page, pageSize int) ([]model.Order, error)
}

// Feed accumulates order pages for infinite scrolling. Each order id appears
// once in the merged list; on overlap between pages the first copy wins.
// A Feed is not safe for concurrent use.
type Feed struct {
	src      Lister
	pageSize int

	page    int
	hasMore bool
	orders  []model.Order
	seen    map[model.ID]bool
}

func NewFeed(src Lister, pageSize int) *Feed {
	return &Feed{src: src, pageSize: normalizePageSize(pageSize), hasMore: true, seen: map[model.ID]bool{}}
}

// Refresh drops everything and loads page 1.
func (f *Feed) Refresh(ctx context.Context) error {
	batch, err := f.src.ListOrders(ctx, 1, f.pageSize)
	if err != nil {
		return err
	}
	f.page = 0
	f.orders = nil
	f.seen = map[model.ID]bool{}
	f.append(batch)
	return nil
}

// LoadMore fetches the next page. It is a no-op once the last page was seen.
func (f *Feed) LoadMore(ctx context.Context) error {
	if !f.hasMore {
		return nil
	}
	batch, err := f.src.ListOrders(ctx, f.page+1, f.pageSize)
	if err != nil {
		return err
	}
	f.append(batch)
	return nil
}

func (f *Feed) append(batch []model.Order) {
	f.page++
	f.hasMore = len(batch) == f.pageSize
	f.orders, f.seen = mergeUnique(f.orders, f.seen, batch)
}

func (f *Feed) Orders() []model.Order { return f.orders }
func (f *Feed) HasMore() bool         { return f.hasMore }
func (f *Feed) Page() int             { return f.page }

// Dedup returns orders with repeated ids removed, keeping the first occurrence.
func Dedup(orders []model.Order) []model.Order {
	out, _ := mergeUnique(nil, map[model.ID]bool{}, orders)
	return out
}

func mergeUnique(dst []model.Order, seen map[model.ID]bool, batch []model.Order) ([]model.Order, map[model.ID]bool) {
	for _, o := range batch {
		id := canonicalID(o.ID)
		if seen[id] {
			continue
		}
		seen[id] = true
		dst = append(dst, o)
	}
	return dst, seen
}

// canonicalID folds "007" and 7 together so mixed upstream typing does not
// defeat dedup.
func canonicalID(id model.ID) model.ID {
	if n, ok := id.Int(); ok {
		return model.ID("#" + strconv.FormatInt(n, 10))
	}
	return id
}

func normalizePageSize(n int) int {
	if n < 1 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}
