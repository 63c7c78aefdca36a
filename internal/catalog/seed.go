package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// SalesPoint is one bar of the seller dashboard's monthly sales chart.
type SalesPoint struct {
	Name  string `json:"name" yaml:"name"`
	Sales int    `json:"sales" yaml:"sales"`
}

type Seed struct {
	Products []Product    `yaml:"products"`
	Sales    []SalesPoint `yaml:"sales"`
}

var (
	seedOnce sync.Once
	seed     Seed
	seedErr  error
)

// LoadSeed parses the embedded demo catalog. Callers get their own copies.
func LoadSeed() (Seed, error) {
	seedOnce.Do(func() {
		seed, seedErr = ParseSeed(seedYAML)
	})
	if seedErr != nil {
		return Seed{}, seedErr
	}

	out := Seed{
		Products: make([]Product, 0, len(seed.Products)),
		Sales:    append([]SalesPoint(nil), seed.Sales...),
	}
	for _, p := range seed.Products {
		out.Products = append(out.Products, p.Clone())
	}
	return out, nil
}

func ParseSeed(data []byte) (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed catalog: %w", err)
	}
	for i, p := range s.Products {
		if p.ID == "" {
			return Seed{}, fmt.Errorf("seed product %d: missing id", i)
		}
		if !p.Category.Valid() {
			return Seed{}, fmt.Errorf("seed product %s: %w: %q", p.ID, ErrUnknownCategory, p.Category)
		}
	}
	return s, nil
}
