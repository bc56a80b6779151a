package models

import "strings"

// Dish is a catalog entry. Price is in minor currency units.
type Dish struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Category string `json:"category" db:"category"`
	Price    int64  `json:"price" db:"price"`
}

// Validate checks a dish before it is written to the catalog
func (d *Dish) Validate() error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return ValidationError{Field: "name", Message: "dish name is required"}
	}
	if len(name) > 100 {
		return ValidationError{Field: "name", Message: "dish name must not exceed 100 characters"}
	}
	if strings.TrimSpace(d.Category) == "" {
		return ValidationError{Field: "category", Message: "category is required"}
	}
	if d.Price <= 0 {
		return ValidationError{Field: "price", Message: "price must be greater than 0"}
	}
	return nil
}
