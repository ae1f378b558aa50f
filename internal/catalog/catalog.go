package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/foodly/storefront/internal/apiclient"
	"github.com/foodly/storefront/internal/model"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Errors returned by the catalog.
var (
	ErrStoreNotFound = errors.New("store not found")
	ErrFoodNotFound  = errors.New("food not found")
)

// Source is the upstream catalog. Satisfied by *apiclient.Client.
type Source interface {
	ListStores(ctx context.Context) ([]model.Store, error)
	GetStore(ctx context.Context, id model.ID) (model.Store, error)
	ListStoreFoods(ctx context.Context, storeID model.ID) ([]model.Food, error)
	GetFood(ctx context.Context, id model.ID) (model.Food, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// Filter narrows listings. Zero values match everything.
type Filter struct {
	Query      string
	CategoryID model.ID
	OpenOnly   bool
}

// Service proxies the upstream catalog with search applied locally.
type Service struct {
	src Source
}

func NewService(src Source) *Service {
	return &Service{src: src}
}

func (s *Service) ListStores(ctx context.Context, f Filter) ([]model.Store, error) {
	stores, err := s.src.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	q := Fold(f.Query)
	out := make([]model.Store, 0, len(stores))
	for _, st := range stores {
		if f.OpenOnly && !st.IsOpen {
			continue
		}
		if q != "" && !strings.Contains(Fold(st.Name), q) && !strings.Contains(Fold(st.Address), q) {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (s *Service) GetStore(ctx context.Context, id model.ID) (model.Store, error) {
	st, err := s.src.GetStore(ctx, id)
	if errors.Is(err, apiclient.ErrNotFound) {
		return model.Store{}, ErrStoreNotFound
	}
	if err != nil {
		return model.Store{}, fmt.Errorf("get store: %w", err)
	}
	return st, nil
}

func (s *Service) ListFoods(ctx context.Context, storeID model.ID, f Filter) ([]model.Food, error) {
	foods, err := s.src.ListStoreFoods(ctx, storeID)
	if errors.Is(err, apiclient.ErrNotFound) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("list foods: %w", err)
	}
	q := Fold(f.Query)
	out := make([]model.Food, 0, len(foods))
	for _, fd := range foods {
		if !f.CategoryID.IsZero() && fd.CategoryID != f.CategoryID {
			continue
		}
		if q != "" && !strings.Contains(Fold(fd.Title), q) && !strings.Contains(Fold(fd.Description), q) {
			continue
		}
		out = append(out, fd)
	}
	return out, nil
}

func (s *Service) GetFood(ctx context.Context, id model.ID) (model.Food, error) {
	fd, err := s.src.GetFood(ctx, id)
	if errors.Is(err, apiclient.ErrNotFound) {
		return model.Food{}, ErrFoodNotFound
	}
	if err != nil {
		return model.Food{}, fmt.Errorf("get food: %w", err)
	}
	return fd, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	cats, err := s.src.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Fold lower-cases s and strips Vietnamese diacritics so "pho" matches "Phở".
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.NewReplacer("đ", "d", "Đ", "d").Replace(out)
	return strings.ToLower(out)
}
