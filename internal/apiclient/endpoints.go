package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/foodly/storefront/internal/model"
)

// --- Catalog ---

func (c *Client) ListStores(ctx context.Context) ([]model.Store, error) {
	raw, err := c.list(ctx, "/stores/", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Store](raw)
}

func (c *Client) GetStore(ctx context.Context, id model.ID) (model.Store, error) {
	var s model.Store
	err := c.do(ctx, http.MethodGet, "/stores/"+url.PathEscape(id.String())+"/", nil, nil, &s)
	return s, err
}

func (c *Client) ListStoreFoods(ctx context.Context, storeID model.ID) ([]model.Food, error) {
	raw, err := c.list(ctx, "/stores/"+url.PathEscape(storeID.String())+"/foods/", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Food](raw)
}

func (c *Client) GetFood(ctx context.Context, id model.ID) (model.Food, error) {
	var f model.Food
	err := c.do(ctx, http.MethodGet, "/foods/"+url.PathEscape(id.String())+"/", nil, nil, &f)
	return f, err
}

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	raw, err := c.list(ctx, "/categories/", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Category](raw)
}

// --- Promotions ---

func (c *Client) ListPromotions(ctx context.Context) ([]model.Promotion, error) {
	raw, err := c.list(ctx, "/promotions/", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Promotion](raw)
}

// FindPromotionByCode returns ErrNotFound when no promotion carries code.
func (c *Client) FindPromotionByCode(ctx context.Context, code string) (model.Promotion, error) {
	raw, err := c.list(ctx, "/promotions/", url.Values{"code": {code}})
	if err != nil {
		return model.Promotion{}, err
	}
	promos, err := decodeList[model.Promotion](raw)
	if err != nil {
		return model.Promotion{}, err
	}
	// The filter is advisory on some deployments; match exactly here.
	for _, p := range promos {
		if equalFoldCode(p.Code, code) {
			return p, nil
		}
	}
	return model.Promotion{}, ErrNotFound
}

// --- Orders ---

// ListOrders fetches one page of the caller's orders. Pages start at 1.
func (c *Client) ListOrders(ctx context.Context, page, pageSize int) ([]model.Order, error) {
	q := url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(pageSize)},
	}
	raw, err := c.list(ctx, "/orders/", q)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Order](raw)
}

func (c *Client) GetOrder(ctx context.Context, id model.ID) (model.Order, error) {
	var o model.Order
	err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id.String())+"/", nil, nil, &o)
	return o, err
}

func (c *Client) CreateOrder(ctx context.Context, req model.CreateOrder) (model.Order, error) {
	var o model.Order
	err := c.do(ctx, http.MethodPost, "/orders/", nil, req, &o)
	return o, err
}

type updateStatusBody struct {
	Status model.OrderStatus `json:"status"`
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id model.ID, status model.OrderStatus) (model.Order, error) {
	var o model.Order
	err := c.do(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id.String())+"/status/", nil, updateStatusBody{Status: status}, &o)
	return o, err
}

// --- Cart / ratings / admin ---

func (c *Client) PutCartLine(ctx context.Context, line model.CartLine) error {
	return c.do(ctx, http.MethodPost, "/cart/add/", nil, line, nil)
}

func (c *Client) CreateRating(ctx context.Context, r model.Rating) error {
	return c.do(ctx, http.MethodPost, "/ratings/", nil, r, nil)
}

func (c *Client) ListCustomers(ctx context.Context, search string) ([]model.Customer, error) {
	var q url.Values
	if search != "" {
		q = url.Values{"search": {search}}
	}
	raw, err := c.list(ctx, "/auth/admin/customers/", q)
	if err != nil {
		return nil, err
	}
	return decodeList[model.Customer](raw)
}

func equalFoldCode(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
