package main

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"storefront-bff/internal/models"
)

type catalog struct {
	mu       sync.RWMutex
	products []models.Product
	nextID   int
}

func newCatalog() *catalog {
	price := decimal.RequireFromString
	return &catalog{
		nextID: 100,
		products: []models.Product{
			{ID: "1", Name: "Nebula Runner", Category: models.CategorySneakers, Price: price("89.99"), Description: "Light-up sole, breathable knit.", ImageURL: "/img/nebula.jpg", Popularity: 4.7},
			{ID: "2", Name: "Pulse High-Top", Category: models.CategorySneakers, Price: price("119.00"), Description: "Reactive LED trim.", ImageURL: "/img/pulse.jpg", Popularity: 4.2},
			{ID: "3", Name: "Aurora Strip", Category: models.CategoryGlow, Price: price("24.50"), Description: "Five metres of RGB.", ImageURL: "/img/aurora.jpg", Popularity: 4.9},
			{ID: "4", Name: "Firefly Jar", Category: models.CategoryGlow, Price: price("15.00"), Description: "Warm glow, USB powered.", ImageURL: "/img/firefly.jpg", Popularity: 3.8},
			{ID: "5", Name: "Moon Lamp", Category: models.CategoryLamps, Price: price("39.99"), Description: "3D printed lunar surface.", ImageURL: "/img/moon.jpg", Popularity: 4.8},
			{ID: "6", Name: "Lava Classic", Category: models.CategoryLamps, Price: price("54.00"), Description: "The original wax lamp.", ImageURL: "/img/lava.jpg", Popularity: 4.0},
		},
	}
}

func (c *catalog) list(category string) []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []models.Product{}
	for _, p := range c.products {
		if category == "" || string(p.Category) == category {
			out = append(out, p)
		}
	}
	return out
}

func (c *catalog) get(id string) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := slices.IndexFunc(c.products, func(p models.Product) bool { return p.ID == id })
	if i < 0 {
		return models.Product{}, false
	}
	return c.products[i], true
}

func (c *catalog) search(q string) []models.Product {
	q = strings.ToLower(q)
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []models.Product{}
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}

func (c *catalog) add(in models.ProductInput) models.Product {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	p := fromInput(fmt.Sprint(c.nextID), in)
	c.products = append(c.products, p)
	return p
}

func (c *catalog) update(id string, in models.ProductInput) (models.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.products, func(p models.Product) bool { return p.ID == id })
	if i < 0 {
		return models.Product{}, false
	}
	p := fromInput(id, in)
	p.Popularity = c.products[i].Popularity
	c.products[i] = p
	return p, true
}

func (c *catalog) remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.products)
	c.products = slices.DeleteFunc(c.products, func(p models.Product) bool { return p.ID == id })
	return len(c.products) < n
}

func fromInput(id string, in models.ProductInput) models.Product {
	return models.Product{
		ID:          id,
		Name:        in.Name,
		Category:    in.Category,
		Price:       in.Price,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Gallery:     in.Gallery,
	}
}
