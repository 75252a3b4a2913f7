package models

import (
	"strconv"
	"time"
)

// Category groups menu items on the storefront.
type Category string

const (
	CategoryCoffee Category = "Coffee"
	CategoryFood   Category = "Food"
)

// MenuItem is a single item the café sells.
type MenuItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name" validate:"required,min=1,max=100"`
	Desc        string   `json:"desc" validate:"omitempty,max=500"`
	Price       int      `json:"price" validate:"gte=0"`
	Category    Category `json:"category" validate:"required,oneof=Coffee Food"`
	IsAvailable bool     `json:"isAvailable"`
	ImageURL    string   `json:"imageUrl,omitempty" validate:"omitempty,url"`
}

// ToMap returns the fields written by a partial update.
func (m MenuItem) ToMap() map[string]any {
	return map[string]any{
		"id":          m.ID,
		"name":        m.Name,
		"desc":        m.Desc,
		"price":       m.Price,
		"category":    string(m.Category),
		"isAvailable": m.IsAvailable,
		"imageUrl":    m.ImageURL,
	}
}

// NewTimeID returns a millisecond timestamp id, the scheme used for menu and order ids.
func NewTimeID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}
