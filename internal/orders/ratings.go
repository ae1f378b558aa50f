package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/foodly/storefront/internal/apiclient"
	"github.com/foodly/storefront/internal/events"
	"github.com/foodly/storefront/internal/model"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// RatingTTL is how long a submitted rating blocks a duplicate.
const RatingTTL = 7 * 24 * time.Hour

// ratingConcurrency bounds parallel upstream rating calls per request.
const ratingConcurrency = 4

// Rating outcomes.
const (
	RatingCreated   = "created"
	RatingDuplicate = "duplicate"
	RatingFailed    = "failed"
)

// Markers records which (order, food) pairs were already rated.
type Markers interface {
	// Claim marks key and reports false if it was already marked.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// EventPublisher is satisfied by *events.Publisher.
type EventPublisher interface {
	NewRating(ctx context.Context, e events.NewRating) error
}

// RedisMarkers implements Markers with SET NX.
type RedisMarkers struct {
	rdb redis.Cmdable
}

func NewRedisMarkers(rdb redis.Cmdable) *RedisMarkers {
	return &RedisMarkers{rdb: rdb}
}

func (m *RedisMarkers) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return m.rdb.SetNX(ctx, key, 1, ttl).Result()
}

func (m *RedisMarkers) Release(ctx context.Context, key string) error {
	return m.rdb.Del(ctx, key).Err()
}

// ratingKey is keyed on the integer form of numeric ids so "1", " 1" and
// "01" share one marker.
func ratingKey(orderID, foodID model.ID) string {
	return "rating:" + keyPart(orderID) + ":" + keyPart(foodID)
}

func keyPart(id model.ID) string {
	if n, ok := id.Int(); ok {
		return strconv.FormatInt(n, 10)
	}
	return strings.TrimSpace(id.String())
}

// RatingInput is the customer's rating for one food of an order.
type RatingInput struct {
	FoodID  model.ID `json:"food_id"`
	Stars   int      `json:"stars"`
	Comment string   `json:"comment"`
}

// RatingResult is the outcome for one RatingInput.
type RatingResult struct {
	FoodID model.ID `json:"food_id"`
	Status string   `json:"status"`
	Error  string   `json:"error,omitempty"`
}

// Rate submits one rating per food concurrently. Input problems fail the whole
// request; upstream problems are reported per food. Food ids are matched
// numerically and sent upstream as they appear on the order.
func (s *Service) Rate(ctx context.Context, orderID model.ID, inputs []RatingInput) ([]RatingResult, error) {
	if len(inputs) == 0 {
		return nil, ErrNoRatings
	}

	o, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.Rateable() {
		return nil, ErrNotRateable
	}

	inOrder := make(map[model.ID]model.ID, len(o.Items))
	for _, it := range o.Items {
		inOrder[canonicalID(it.FoodID)] = it.FoodID
	}

	seen := make(map[model.ID]bool, len(inputs))
	todo := make([]RatingInput, 0, len(inputs))
	for _, in := range inputs {
		if in.Stars < 1 || in.Stars > 5 {
			return nil, fmt.Errorf("%w: food %s", ErrInvalidStars, in.FoodID)
		}
		id := canonicalID(in.FoodID)
		foodID, ok := inOrder[id]
		if !ok {
			return nil, fmt.Errorf("%w: food %s", ErrFoodNotInOrder, in.FoodID)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		in.FoodID = foodID
		in.Comment = strings.TrimSpace(in.Comment)
		todo = append(todo, in)
	}

	results := make([]RatingResult, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ratingConcurrency)
	for i, in := range todo {
		g.Go(func() error {
			results[i] = s.rateOne(gctx, o, in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) rateOne(ctx context.Context, o model.Order, in RatingInput) RatingResult {
	res := RatingResult{FoodID: in.FoodID}
	key := ratingKey(o.ID, in.FoodID)

	claimed, err := s.markers.Claim(ctx, key, RatingTTL)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("claim rating marker")
		res.Status, res.Error = RatingFailed, "internal error"
		return res
	}
	if !claimed {
		res.Status = RatingDuplicate
		return res
	}

	err = s.api.CreateRating(ctx, model.Rating{OrderID: o.ID, FoodID: in.FoodID, Stars: in.Stars, Comment: in.Comment})
	if err != nil {
		if rerr := s.markers.Release(context.WithoutCancel(ctx), key); rerr != nil {
			s.log.Error().Err(rerr).Str("key", key).Msg("release rating marker")
		}
		res.Status, res.Error = RatingFailed, upstreamMessage(err)
		return res
	}

	if err := s.events.NewRating(ctx, events.NewRating{FoodID: in.FoodID, OrderID: o.ID, StoreID: o.StoreID, Stars: in.Stars}); err != nil {
		s.log.Warn().Err(err).Str("food_id", in.FoodID.String()).Msg("publish new_rating")
	}
	res.Status = RatingCreated
	return res
}

func upstreamMessage(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.ClientError() {
		return apiErr.Message
	}
	return "upstream unavailable"
}
