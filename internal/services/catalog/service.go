package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
)

// Repository is the dish storage the catalog needs
type Repository interface {
	ListDishes(ctx context.Context) ([]models.Dish, error)
	GetDish(ctx context.Context, id int64) (*models.Dish, error)
	InsertDish(ctx context.Context, dish *models.Dish) error
	UpdateDish(ctx context.Context, dish *models.Dish) error
}

// DefaultDishes seeds the memory driver; Postgres gets the same menu from
// migrations/002_seed_dishes.sql.
var DefaultDishes = []models.Dish{
	{Name: "Spaghetti Bolognese", Category: "Main Course", Price: 1200},
	{Name: "Margherita Pizza", Category: "Main Course", Price: 1000},
	{Name: "Caesar Salad", Category: "Appetizer", Price: 800},
	{Name: "Minestrone Soup", Category: "Appetizer", Price: 700},
	{Name: "Tiramisu", Category: "Dessert", Price: 600},
	{Name: "Masala Chai", Category: "Beverages", Price: 150},
	{Name: "Fresh Lime Soda", Category: "Beverages", Price: 200},
}

// Service provides read-mostly access to the dish catalog
type Service struct {
	repo   Repository
	logger *logger.Logger
}

// NewService creates a new catalog service
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log,
	}
}

// ListDishes returns every dish ordered by id
func (s *Service) ListDishes(ctx context.Context) ([]models.Dish, error) {
	dishes, err := s.repo.ListDishes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dishes: %w", err)
	}
	return dishes, nil
}

// GetDish returns a single dish or a NotFoundError
func (s *Service) GetDish(ctx context.Context, id int64) (*models.Dish, error) {
	dish, err := s.repo.GetDish(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get dish: %w", err)
	}
	return dish, nil
}

// Menu returns dishes grouped by category
func (s *Service) Menu(ctx context.Context) (*Menu, error) {
	dishes, err := s.ListDishes(ctx)
	if err != nil {
		return nil, err
	}
	return NewMenu(dishes), nil
}

// Categories returns the distinct dish categories in menu order
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	menu, err := s.Menu(ctx)
	if err != nil {
		return nil, err
	}
	categories := make([]string, 0, len(menu.Categories()))
	return append(categories, menu.Categories()...), nil
}

// CreateDish adds a dish to the catalog
func (s *Service) CreateDish(ctx context.Context, dish models.Dish, requestID string) (*models.Dish, error) {
	dish.ID = 0
	dish.Name = strings.TrimSpace(dish.Name)
	dish.Category = strings.TrimSpace(dish.Category)
	if err := dish.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.InsertDish(ctx, &dish); err != nil {
		return nil, fmt.Errorf("create dish: %w", err)
	}

	s.logger.Info("dish_created", "Dish added to catalog", requestID, map[string]interface{}{
		"dish_id":  dish.ID,
		"category": dish.Category,
		"price":    dish.Price,
	})
	return &dish, nil
}

// UpdateDish edits a catalog entry. Orders already placed keep their snapshots.
func (s *Service) UpdateDish(ctx context.Context, dish models.Dish, requestID string) (*models.Dish, error) {
	dish.Name = strings.TrimSpace(dish.Name)
	dish.Category = strings.TrimSpace(dish.Category)
	if err := dish.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateDish(ctx, &dish); err != nil {
		return nil, fmt.Errorf("update dish: %w", err)
	}

	s.logger.Info("dish_updated", "Dish updated", requestID, map[string]interface{}{
		"dish_id": dish.ID,
		"price":   dish.Price,
	})
	return &dish, nil
}

// MenuEntry is a dish as listed under its category
type MenuEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Menu maps category to dishes, keeping categories in first-seen order
type Menu struct {
	categories []string
	entries    map[string][]MenuEntry
}

// NewMenu groups dishes by category in the order they are given
func NewMenu(dishes []models.Dish) *Menu {
	m := &Menu{entries: make(map[string][]MenuEntry)}
	for _, d := range dishes {
		if _, ok := m.entries[d.Category]; !ok {
			m.categories = append(m.categories, d.Category)
		}
		m.entries[d.Category] = append(m.entries[d.Category], MenuEntry{
			ID:    d.ID,
			Name:  d.Name,
			Price: d.Price,
		})
	}
	return m
}

// Categories returns category names in menu order
func (m *Menu) Categories() []string {
	return m.categories
}

// Dishes returns the entries of one category
func (m *Menu) Dishes(category string) []MenuEntry {
	return m.entries[category]
}

// MarshalJSON writes the menu as a JSON object whose keys keep menu order
func (m *Menu) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, category := range m.categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(category)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.entries[category])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
