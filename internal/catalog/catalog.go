// Package catalog holds the fixed set of countries a participant may join
// and the salary attached to each.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/louisbranch/fheworlds/internal/fhe"
)

// MaxCountries bounds a catalog so its salary polynomial stays within the
// degree the FHE parameters can evaluate.
const MaxCountries = fhe.MaxPolynomialDegree + 1

// Country is one selectable entry.
type Country struct {
	ID     uint32 `yaml:"id"`
	Name   string `yaml:"name"`
	Salary uint64 `yaml:"salary"`
}

// Catalog is an immutable, ordered set of countries.
type Catalog struct {
	countries []Country
	byID      map[uint32]int
}

type catalogFile struct {
	Countries []Country `yaml:"countries"`
}

// Default returns the catalog the ledger ships with.
func Default() *Catalog {
	c, err := New([]Country{
		{ID: 1, Name: "Aurora Union", Salary: 5200},
		{ID: 2, Name: "Harbor Coalition", Salary: 4800},
		{ID: 3, Name: "Skyreach Republic", Salary: 6100},
		{ID: 4, Name: "Verdant League", Salary: 4500},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// New validates countries and builds a catalog in the given order.
func New(countries []Country) (*Catalog, error) {
	if len(countries) == 0 {
		return nil, errors.New("catalog: at least one country is required")
	}
	if len(countries) > MaxCountries {
		return nil, fmt.Errorf("catalog: %d countries, at most %d are supported", len(countries), MaxCountries)
	}
	c := &Catalog{
		countries: make([]Country, 0, len(countries)),
		byID:      make(map[uint32]int, len(countries)),
	}
	for _, country := range countries {
		country.Name = strings.TrimSpace(country.Name)
		if country.ID == 0 {
			return nil, errors.New("catalog: country id 0 is reserved")
		}
		if country.Name == "" {
			return nil, fmt.Errorf("catalog: country %d has no name", country.ID)
		}
		if _, dup := c.byID[country.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate country id %d", country.ID)
		}
		c.byID[country.ID] = len(c.countries)
		c.countries = append(c.countries, country)
	}
	return c, nil
}

// Parse reads a YAML catalog of the form
//
//	countries:
//	  - {id: 1, name: Aurora Union, salary: 5200}
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog: parse yaml: %w", err)
	}
	return New(file.Countries)
}

// Load reads a catalog file, or returns Default when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Len returns the number of countries.
func (c *Catalog) Len() int {
	return len(c.countries)
}

// IDs returns the country ids in catalog order.
func (c *Catalog) IDs() []uint32 {
	ids := make([]uint32, len(c.countries))
	for i, country := range c.countries {
		ids[i] = country.ID
	}
	return ids
}

// Countries returns a copy of the entries in catalog order.
func (c *Catalog) Countries() []Country {
	out := make([]Country, len(c.countries))
	copy(out, c.countries)
	return out
}

// Lookup returns the country with id.
func (c *Catalog) Lookup(id uint32) (Country, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Country{}, false
	}
	return c.countries[i], true
}

// Contains reports whether id is supported.
func (c *Catalog) Contains(id uint32) bool {
	_, ok := c.byID[id]
	return ok
}
