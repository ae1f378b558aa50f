package model

// Customer is an account row from the admin customers endpoint.
type Customer struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	IsActive bool   `json:"is_active"`
}

// Rating is one star rating for a food item of a delivered order.
type Rating struct {
	OrderID ID     `json:"order_id"`
	FoodID  ID     `json:"food_id"`
	Stars   int    `json:"stars"`
	Comment string `json:"comment,omitempty"`
}

// CartLine is the remote cart representation of one cart entry.
// Quantity zero removes the entry.
type CartLine struct {
	FoodID   ID       `json:"food_id"`
	Quantity int32    `json:"quantity"`
	Size     string   `json:"size,omitempty"`
	Toppings []string `json:"toppings,omitempty"`
}
