package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/foodly/storefront/internal/enum"
	"github.com/foodly/storefront/internal/events"
	"github.com/foodly/storefront/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// LocationTTL is how long a shipper's last reported position is kept.
const LocationTTL = 2 * time.Hour

var ErrInvalidLocation = errors.New("lat must be within [-90, 90] and lng within [-180, 180]")

// Location is a shipper position for an order.
type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the coordinate ranges.
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lng) ||
		l.Lat < -90 || l.Lat > 90 || l.Lng < -180 || l.Lng > 180 {
		return ErrInvalidLocation
	}
	return nil
}

type statusPayload struct {
	Status    model.OrderStatus `json:"status"`
	Label     string            `json:"label"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// OrderGetter is satisfied by *apiclient.Client.
type OrderGetter interface {
	GetOrder(ctx context.Context, id model.ID) (model.Order, error)
}

// Tracker feeds shipper positions and status changes into the hub.
type Tracker struct {
	hub    *Hub
	rdb    redis.Cmdable
	orders OrderGetter
	log    zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a Tracker. rdb may be nil, in which case positions are
// only broadcast and not remembered.
func NewTracker(hub *Hub, orders OrderGetter, rdb redis.Cmdable, log zerolog.Logger) *Tracker {
	return &Tracker{
		hub:    hub,
		rdb:    rdb,
		orders: orders,
		log:    log.With().Str("component", "tracking").Logger(),
		now:    time.Now,
	}
}

// UpdateLocation records the shipper's position for orderID and pushes it to
// the order's watchers.
func (t *Tracker) UpdateLocation(ctx context.Context, orderID model.ID, lat, lng float64) (Location, error) {
	loc := Location{Lat: lat, Lng: lng, UpdatedAt: t.now().UTC()}
	if err := loc.Validate(); err != nil {
		return Location{}, err
	}

	payload, err := json.Marshal(loc)
	if err != nil {
		return Location{}, fmt.Errorf("marshal location: %w", err)
	}
	if t.rdb != nil {
		if err := t.rdb.Set(ctx, locationKey(orderID), payload, LocationTTL).Err(); err != nil {
			// the live broadcast still goes out
			t.log.Warn().Err(err).Str("order_id", orderID.String()).Msg("store shipper location")
		}
	}

	t.hub.Broadcast(orderID, Event{Type: enum.EventShipperLocation, OrderID: orderID, Payload: payload})
	return loc, nil
}

// LastLocation returns the most recent position for orderID, or nil.
func (t *Tracker) LastLocation(ctx context.Context, orderID model.ID) (*Location, error) {
	if t.rdb == nil {
		return nil, nil
	}
	raw, err := t.rdb.Get(ctx, locationKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shipper location: %w", err)
	}
	var loc Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return nil, fmt.Errorf("decode shipper location: %w", err)
	}
	return &loc, nil
}

// StatusChanged pushes an order status change to the order's watchers. It is
// the handler passed to events.ConsumeStatus.
func (t *Tracker) StatusChanged(e events.StatusChanged) {
	at := e.Timestamp
	if at.IsZero() {
		at = t.now().UTC()
	}
	payload, err := json.Marshal(statusPayload{Status: e.Status, Label: e.Status.Label(), UpdatedAt: at})
	if err != nil {
		t.log.Error().Err(err).Msg("marshal status event")
		return
	}
	t.hub.Broadcast(e.OrderID, Event{Type: enum.EventOrderStatus, OrderID: e.OrderID, Payload: payload})
	t.log.Debug().Str("order_id", e.OrderID.String()).Str("status", string(e.Status)).Msg("status broadcast")
}

func locationKey(orderID model.ID) string {
	return "track:" + roomKey(orderID).String() + ":location"
}
