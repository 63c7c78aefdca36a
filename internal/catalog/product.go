package catalog

import (
	"errors"
	"fmt"
	"strings"
)

type Category string

const (
	CategoryElectric Category = "Electric"
	CategoryMountain Category = "Mountain"
	CategoryRoad     Category = "Road"
	CategoryCity     Category = "City"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryElectric, CategoryMountain, CategoryRoad, CategoryCity}

var ErrUnknownCategory = errors.New("unknown category")

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func ParseCategory(s string) (Category, error) {
	for _, known := range Categories {
		if strings.EqualFold(string(known), strings.TrimSpace(s)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

type Product struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Price       float64  `json:"price" yaml:"price"`
	Category    Category `json:"category" yaml:"category"`
	Image       string   `json:"image" yaml:"image"`
	Stock       int      `json:"stock" yaml:"stock"`
	Description string   `json:"description" yaml:"description"`
	Specs       []string `json:"specs" yaml:"specs"`
	Weight      string   `json:"weight,omitempty" yaml:"weight,omitempty"`
	FrameSize   string   `json:"frameSize,omitempty" yaml:"frameSize,omitempty"`
}

// Clone returns a copy that shares no slices with p.
func (p Product) Clone() Product {
	if p.Specs != nil {
		p.Specs = append([]string(nil), p.Specs...)
	}
	return p
}

// Clamped returns a clone with stock and price floored at zero.
func (p Product) Clamped() Product {
	out := p.Clone()
	out.Stock = ClampStock(out.Stock)
	out.Price = ClampPrice(out.Price)
	return out
}

func ClampStock(stock int) int {
	if stock < 0 {
		return 0
	}
	return stock
}

func ClampPrice(price float64) float64 {
	if price < 0 {
		return 0
	}
	return price
}

const (
	DefaultImageURL    = "https://plus.unsplash.com/premium_photo-1674672910218-bbaa2493c6a0?q=80&w=837&auto=format&fit=crop&ixlib=rb-4.1.0&ixid=M3wxMjA3fDB8MHxwaG90by1wYWdlfHx8fGVufDB8fHx8fA%3D%3D"
	DefaultDescription = "No description available."
)

var ErrInvalidDraft = errors.New("name and price are required")

// Draft is the seller's add-product form before an id and image are assigned.
type Draft struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Category    Category `json:"category"`
	Image       string   `json:"image"`
	Stock       int      `json:"stock"`
	Description string   `json:"description"`
	Specs       string   `json:"specs"` // comma separated
	Weight      string   `json:"weight"`
	FrameSize   string   `json:"frameSize"`
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" || d.Price == 0 {
		return ErrInvalidDraft
	}
	if d.Category != "" && !d.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, d.Category)
	}
	return nil
}

// Build turns the draft into a product. An empty imageURL falls back to the
// draft's own image reference and then to DefaultImageURL.
func (d Draft) Build(id, imageURL string) Product {
	if imageURL == "" {
		imageURL = d.Image
	}
	if imageURL == "" {
		imageURL = DefaultImageURL
	}
	category := d.Category
	if category == "" {
		category = CategoryRoad
	}
	description := d.Description
	if description == "" {
		description = DefaultDescription
	}

	specs := []string{}
	if d.Specs != "" {
		for _, s := range strings.Split(d.Specs, ",") {
			specs = append(specs, strings.TrimSpace(s))
		}
	}

	return Product{
		ID:          id,
		Name:        d.Name,
		Price:       d.Price,
		Category:    category,
		Image:       imageURL,
		Stock:       d.Stock,
		Description: description,
		Specs:       specs,
		Weight:      d.Weight,
		FrameSize:   d.FrameSize,
	}
}
