package catalog

import "math/rand"

const (
	ItemsPerPage  = 8
	AllCategories = "All"
)

type Page struct {
	Items      []Product `json:"items"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
	Total      int       `json:"total"`
}

// Filter keeps the products in category; "" and "All" keep everything.
func Filter(products []Product, category string) []Product {
	if category == "" || category == AllCategories {
		return products
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if string(p.Category) == category {
			out = append(out, p)
		}
	}
	return out
}

// Paginate returns the 1-based page of products. Out of range pages are empty.
func Paginate(products []Product, page int) Page {
	total := len(products)
	totalPages := (total + ItemsPerPage - 1) / ItemsPerPage
	if page < 1 {
		page = 1
	}

	res := Page{Items: []Product{}, Page: page, TotalPages: totalPages, Total: total}
	start := (page - 1) * ItemsPerPage
	if start >= total {
		return res
	}
	end := start + ItemsPerPage
	if end > total {
		end = total
	}
	res.Items = products[start:end]
	return res
}

// Featured picks up to n distinct products in random order.
func Featured(products []Product, n int, rng *rand.Rand) []Product {
	shuffled := append([]Product(nil), products...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if n < len(shuffled) {
		shuffled = shuffled[:n]
	}
	return shuffled
}
