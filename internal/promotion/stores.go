package promotion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foodly/storefront/internal/model"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// MatchID compares two store ids with the fallback tiers the backend's mixed
// typing needs: exact text, trimmed text, then numeric value ("007" == 7).
func MatchID(a, b model.ID) bool {
	if a == b {
		return true
	}
	if strings.TrimSpace(string(a)) == strings.TrimSpace(string(b)) {
		return true
	}
	na, okA := a.Int()
	nb, okB := b.Int()
	return okA && okB && na == nb
}

// StoreIndex resolves store names for promotion cards. Build it once per
// store list rather than scanning the list for every card.
type StoreIndex struct {
	exact   map[model.ID]string
	trimmed map[string]string
	numeric map[int64]string
}

func NewStoreIndex(stores []model.Store) *StoreIndex {
	idx := &StoreIndex{
		exact:   make(map[model.ID]string, len(stores)),
		trimmed: make(map[string]string, len(stores)),
		numeric: make(map[int64]string, len(stores)),
	}
	// First store wins on duplicate ids, matching a linear scan.
	for _, s := range stores {
		if _, ok := idx.exact[s.ID]; !ok {
			idx.exact[s.ID] = s.Name
		}
		t := strings.TrimSpace(string(s.ID))
		if _, ok := idx.trimmed[t]; !ok {
			idx.trimmed[t] = s.Name
		}
		if n, ok := s.ID.Int(); ok {
			if _, seen := idx.numeric[n]; !seen {
				idx.numeric[n] = s.Name
			}
		}
	}
	return idx
}

// Lookup returns the name of the store with id, trying each tier in turn.
func (idx *StoreIndex) Lookup(id model.ID) (string, bool) {
	if name, ok := idx.exact[id]; ok {
		return name, true
	}
	if name, ok := idx.trimmed[strings.TrimSpace(string(id))]; ok {
		return name, true
	}
	if n, ok := id.Int(); ok {
		if name, ok := idx.numeric[n]; ok {
			return name, true
		}
	}
	return "", false
}

// StoreLabel is the store line printed on a promotion card.
func (idx *StoreIndex) StoreLabel(p model.Promotion) string {
	if p.SystemWide() {
		return SystemWideLabel
	}
	if name, ok := idx.Lookup(p.StoreID); ok && name != "" {
		return name
	}
	return "Cửa hàng #" + strings.TrimSpace(p.StoreID.String())
}

// Card is a promotion as the promotions screen renders it.
type Card struct {
	model.Promotion
	Status        Status `json:"status"`
	DiscountLabel string `json:"discount_label"`
	StoreName     string `json:"store_name"`
	Target        string `json:"target"`
}

// Cards decorates promos for display, resolving store names through idx.
func (idx *StoreIndex) Cards(promos []model.Promotion, now time.Time) []Card {
	cards := make([]Card, 0, len(promos))
	for _, p := range promos {
		cards = append(cards, Card{
			Promotion:     p,
			Status:        StatusAt(p, now),
			DiscountLabel: DiscountLabel(p),
			StoreName:     idx.StoreLabel(p),
			Target:        Target(p),
		})
	}
	return cards
}

// BoardSource is satisfied by *apiclient.Client.
type BoardSource interface {
	ListPromotions(ctx context.Context) ([]model.Promotion, error)
	ListStores(ctx context.Context) ([]model.Store, error)
}

// Board loads promotions and stores concurrently and returns display cards.
// A failed store listing only degrades names to the "#id" fallback.
func Board(ctx context.Context, src BoardSource, now time.Time, log zerolog.Logger) ([]Card, error) {
	var (
		promos []model.Promotion
		stores []model.Store
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		promos, err = src.ListPromotions(gctx)
		if err != nil {
			return fmt.Errorf("list promotions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if stores, err = src.ListStores(gctx); err != nil {
			log.Warn().Err(err).Msg("list stores for promotion names")
			stores = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewStoreIndex(stores).Cards(promos, now), nil
}
