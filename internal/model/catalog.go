package model

import "github.com/shopspring/decimal"

type Store struct {
	ID      ID      `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Image   string  `json:"image"`
	Rating  float64 `json:"rating"`
	IsOpen  bool    `json:"is_open"`
}

type Category struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

type Food struct {
	ID          ID              `json:"id"`
	StoreID     ID              `json:"store_id"`
	CategoryID  ID              `json:"category_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Available   bool            `json:"available"`
	Sizes       []FoodSize      `json:"sizes"`
	Toppings    []Topping       `json:"toppings"`
}

type FoodSize struct {
	Name       string          `json:"name"`
	ExtraPrice decimal.Decimal `json:"extra_price"`
}

type Topping struct {
	ID    ID              `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
