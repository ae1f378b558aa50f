package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foodly/storefront/internal/apiclient"
	"github.com/foodly/storefront/internal/model"
	"github.com/foodly/storefront/internal/promotion"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RemoteCart mirrors cart changes upstream. Satisfied by *apiclient.Client.
type RemoteCart interface {
	PutCartLine(ctx context.Context, line model.CartLine) error
}

// FoodSource resolves the food being added. Satisfied by *apiclient.Client.
type FoodSource interface {
	GetFood(ctx context.Context, id model.ID) (model.Food, error)
}

// AddRequest is a food with the options the customer picked.
type AddRequest struct {
	FoodID   model.ID
	Size     string
	Toppings []model.ID
	Quantity int32
}

// Service applies cart mutations locally and mirrors them upstream. When the
// upstream call fails the local change is reverted.
type Service struct {
	store  Store
	remote RemoteCart
	foods  FoodSource
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(store Store, remote RemoteCart, foods FoodSource, log zerolog.Logger) *Service {
	return &Service{
		store:  store,
		remote: remote,
		foods:  foods,
		log:    log.With().Str("component", "cart").Logger(),
		now:    time.Now,
	}
}

func (s *Service) Items(ctx context.Context, customer uuid.UUID) ([]Item, error) {
	return s.store.Items(ctx, customer)
}

// Add puts a food in the cart, merging with an existing line that has the
// same options. The merged quantity is clamped to MaxQuantity.
func (s *Service) Add(ctx context.Context, customer uuid.UUID, req AddRequest) (Item, error) {
	if req.Quantity < 1 {
		return Item{}, ErrInvalidQuantity
	}

	food, err := s.foods.GetFood(ctx, req.FoodID)
	if err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			return Item{}, ErrFoodNotFound
		}
		return Item{}, fmt.Errorf("get food: %w", err)
	}

	item, err := buildItem(food, req)
	if err != nil {
		return Item{}, err
	}

	release, err := s.lock(ctx, customer)
	if err != nil {
		return Item{}, err
	}
	defer release()

	prev, err := s.store.Get(ctx, customer, item.Key)
	switch {
	case err == nil:
		item.Quantity = clamp(prev.Quantity + req.Quantity)
		item.AddedAt = prev.AddedAt
		if err := s.commit(ctx, customer, &prev, &item); err != nil {
			return Item{}, err
		}
	case errors.Is(err, ErrItemNotFound):
		item.Quantity = clamp(req.Quantity)
		item.AddedAt = s.now().UTC()
		if err := s.commit(ctx, customer, nil, &item); err != nil {
			return Item{}, err
		}
	default:
		return Item{}, err
	}
	return item, nil
}

// buildItem prices a food with its chosen size and toppings. Topping ids are
// matched like other backend ids, so "03" picks topping 3; the line records
// the food's own ids.
func buildItem(food model.Food, req AddRequest) (Item, error) {
	item := Item{
		FoodID:  food.ID,
		StoreID: food.StoreID,
		Title:   food.Title,
		Image:   food.Image,
		Price:   food.Price,
	}

	if size := strings.TrimSpace(req.Size); size != "" {
		found := false
		for _, fs := range food.Sizes {
			if strings.EqualFold(fs.Name, size) {
				item.Size = fs.Name
				item.Price = item.Price.Add(fs.ExtraPrice)
				found = true
				break
			}
		}
		if !found {
			return Item{}, fmt.Errorf("%w: %s", ErrUnknownSize, size)
		}
	}

	seen := make(map[model.ID]bool, len(req.Toppings))
	for _, id := range req.Toppings {
		var topping *model.Topping
		for i := range food.Toppings {
			if promotion.MatchID(food.Toppings[i].ID, id) {
				topping = &food.Toppings[i]
				break
			}
		}
		if topping == nil {
			return Item{}, fmt.Errorf("%w: %s", ErrUnknownTopping, id)
		}
		if seen[topping.ID] {
			continue
		}
		seen[topping.ID] = true
		item.ToppingIDs = append(item.ToppingIDs, topping.ID)
		item.Toppings = append(item.Toppings, topping.Name)
		item.Price = item.Price.Add(topping.Price)
	}

	item.Key = Key(food.ID, item.Size, item.ToppingIDs)
	return item, nil
}

// Increment adds one unit. At MaxQuantity the item is returned unchanged.
func (s *Service) Increment(ctx context.Context, customer uuid.UUID, key string) (Item, error) {
	release, err := s.lock(ctx, customer)
	if err != nil {
		return Item{}, err
	}
	defer release()

	prev, err := s.store.Get(ctx, customer, key)
	if err != nil {
		return Item{}, err
	}
	if prev.Quantity >= MaxQuantity {
		return prev, nil
	}
	next := prev
	next.Quantity++
	if err := s.commit(ctx, customer, &prev, &next); err != nil {
		return Item{}, err
	}
	return next, nil
}

// Decrement removes one unit. Taking the last unit removes the item, which
// requires confirm; the returned item is nil when the line was removed.
func (s *Service) Decrement(ctx context.Context, customer uuid.UUID, key string, confirm bool) (*Item, error) {
	release, err := s.lock(ctx, customer)
	if err != nil {
		return nil, err
	}
	defer release()

	prev, err := s.store.Get(ctx, customer, key)
	if err != nil {
		return nil, err
	}
	if prev.Quantity <= 1 {
		if !confirm {
			return nil, ErrRemovalNeedsConfirm
		}
		if err := s.remove(ctx, customer, prev); err != nil {
			return nil, err
		}
		return nil, nil
	}
	next := prev
	next.Quantity--
	if err := s.commit(ctx, customer, &prev, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// SetQuantity sets an absolute quantity, clamped to MaxQuantity.
func (s *Service) SetQuantity(ctx context.Context, customer uuid.UUID, key string, q int32) (Item, error) {
	if q < 1 {
		return Item{}, ErrInvalidQuantity
	}
	release, err := s.lock(ctx, customer)
	if err != nil {
		return Item{}, err
	}
	defer release()

	prev, err := s.store.Get(ctx, customer, key)
	if err != nil {
		return Item{}, err
	}
	next := prev
	next.Quantity = clamp(q)
	if next.Quantity == prev.Quantity {
		return prev, nil
	}
	if err := s.commit(ctx, customer, &prev, &next); err != nil {
		return Item{}, err
	}
	return next, nil
}

func (s *Service) Remove(ctx context.Context, customer uuid.UUID, key string) error {
	release, err := s.lock(ctx, customer)
	if err != nil {
		return err
	}
	defer release()

	prev, err := s.store.Get(ctx, customer, key)
	if err != nil {
		return err
	}
	return s.remove(ctx, customer, prev)
}

func (s *Service) remove(ctx context.Context, customer uuid.UUID, prev Item) error {
	if err := s.commit(ctx, customer, &prev, nil); err != nil {
		return err
	}
	if err := s.store.Deselect(ctx, customer, prev.Key); err != nil {
		s.log.Warn().Err(err).Str("key", prev.Key).Msg("stale selection left after removal")
	}
	return nil
}

// Clear empties the cart. If upstream rejects any removal, the lines already
// zeroed upstream are restored and the local cart is put back.
func (s *Service) Clear(ctx context.Context, customer uuid.UUID) error {
	release, err := s.lock(ctx, customer)
	if err != nil {
		return err
	}
	defer release()

	items, err := s.store.Items(ctx, customer)
	if err != nil {
		return err
	}
	selected, err := s.store.Selected(ctx, customer)
	if err != nil {
		return err
	}
	if err := s.store.Clear(ctx, customer); err != nil {
		return err
	}

	for i, it := range items {
		if err := s.remote.PutCartLine(ctx, it.Line(0)); err != nil {
			for _, done := range items[:i] {
				if rerr := s.remote.PutCartLine(ctx, done.Line(done.Quantity)); rerr != nil {
					s.log.Error().Err(rerr).Str("key", done.Key).Msg("restore upstream cart line")
				}
			}
			s.restore(ctx, customer, items, selected)
			return fmt.Errorf("%w: %w", ErrSyncFailed, err)
		}
	}
	return nil
}

func (s *Service) restore(ctx context.Context, customer uuid.UUID, items []Item, selected []string) {
	for _, it := range items {
		if err := s.store.Put(ctx, customer, it); err != nil {
			s.log.Error().Err(err).Str("key", it.Key).Msg("restore cart item")
		}
	}
	if err := s.store.SetSelected(ctx, customer, selected); err != nil {
		s.log.Error().Err(err).Msg("restore cart selection")
	}
}

// Select replaces the set of keys chosen for checkout. Every key must exist.
func (s *Service) Select(ctx context.Context, customer uuid.UUID, keys []string) error {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, err := s.store.Get(ctx, customer, k); err != nil {
			if errors.Is(err, ErrItemNotFound) {
				return fmt.Errorf("%w: %s", ErrItemNotFound, k)
			}
			return err
		}
		uniq = append(uniq, k)
	}
	return s.store.SetSelected(ctx, customer, uniq)
}

// Selected returns the selected items that are still in the cart, in cart order.
func (s *Service) Selected(ctx context.Context, customer uuid.UUID) ([]Item, error) {
	keys, err := s.store.Selected(ctx, customer)
	if err != nil {
		return nil, err
	}
	return s.pick(ctx, customer, keys)
}

// Pick returns the items for keys, failing if any key is missing.
func (s *Service) Pick(ctx context.Context, customer uuid.UUID, keys []string) ([]Item, error) {
	items, err := s.pick(ctx, customer, keys)
	if err != nil {
		return nil, err
	}
	if len(items) != len(dedup(keys)) {
		return nil, ErrItemNotFound
	}
	return items, nil
}

func (s *Service) pick(ctx context.Context, customer uuid.UUID, keys []string) ([]Item, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	all, err := s.store.Items(ctx, customer)
	if err != nil {
		return nil, err
	}
	var out []Item
	for _, it := range all {
		if want[it.Key] {
			out = append(out, it)
		}
	}
	return out, nil
}

// Consume drops purchased lines after an order is placed. Upstream clears
// its own cart when it accepts the order, so nothing is mirrored.
func (s *Service) Consume(ctx context.Context, customer uuid.UUID, keys []string) error {
	if err := s.store.Delete(ctx, customer, keys...); err != nil {
		return err
	}
	return s.store.SetSelected(ctx, customer, nil)
}

// lock serializes mutations of one cart so read-modify-write steps and their
// upstream mirrors never interleave.
func (s *Service) lock(ctx context.Context, customer uuid.UUID) (func(), error) {
	release, err := s.store.Lock(ctx, customer)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := release(); err != nil {
			s.log.Warn().Err(err).Str("customer", customer.String()).Msg("release cart lock")
		}
	}, nil
}

// commit writes after locally (nil means removal), mirrors it upstream and
// reverts to before if upstream fails.
func (s *Service) commit(ctx context.Context, customer uuid.UUID, before, after *Item) error {
	var line model.CartLine
	if after != nil {
		if err := s.store.Put(ctx, customer, *after); err != nil {
			return err
		}
		line = after.Line(after.Quantity)
	} else {
		if err := s.store.Delete(ctx, customer, before.Key); err != nil {
			return err
		}
		line = before.Line(0)
	}

	if err := s.remote.PutCartLine(ctx, line); err != nil {
		var rerr error
		if before != nil {
			rerr = s.store.Put(ctx, customer, *before)
		} else {
			rerr = s.store.Delete(ctx, customer, after.Key)
		}
		if rerr != nil {
			s.log.Error().Err(rerr).Str("customer", customer.String()).Msg("revert cart change")
		}
		return fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}
	return nil
}

func dedup(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
