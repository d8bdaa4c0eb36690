// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package averages

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/quickly-weigh/models"
)

// Ids of the averages used internally for custom-period exports
const (
	CustomPeriod            = "CustomPeriod"
	CustomPeriodNotWeighted = "CustomPeriodNotWeighted"
)

var ErrDuplicateAverage = errors.New("duplicate average id")

// Repository holds the descriptors a server was started with.
// It is read-only after construction and safe for concurrent use.
type Repository struct {
	byID    map[string]models.AverageDescriptor
	ordered []models.AverageDescriptor
}

// New validates descs and indexes them by lower-cased id
func New(descs []models.AverageDescriptor) (*Repository, error) {
	r := &Repository{byID: make(map[string]models.AverageDescriptor, len(descs))}
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(d.ID)
		if _, ok := r.byID[key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAverage, d.ID)
		}
		r.byID[key] = d
		r.ordered = append(r.ordered, d)
	}
	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].Order < r.ordered[j].Order
	})
	return r, nil
}

// Get looks an average up by id, ignoring case
func (r *Repository) Get(id string) (models.AverageDescriptor, bool) {
	d, ok := r.byID[strings.ToLower(id)]
	return d, ok
}

// All returns every descriptor sorted by display order
func (r *Repository) All() []models.AverageDescriptor {
	return append([]models.AverageDescriptor(nil), r.ordered...)
}

// Visible returns enabled descriptors that are not hidden from users
func (r *Repository) Visible() []models.AverageDescriptor {
	var out []models.AverageDescriptor
	for _, d := range r.ordered {
		if !d.Disabled && !d.IsHidden {
			out = append(out, d)
		}
	}
	return out
}

type file struct {
	Averages []models.AverageDescriptor `yaml:"averages"`
}

// LoadFile reads descriptors from a YAML file of the form
//
//	averages:
//	  - id: Monthly
//	    totalisation_unit: Month
//	    number_of_periods: 1
//	    make_up_to: MonthEnd
//
// The custom-period averages are appended when the file does not define them.
func LoadFile(path string) (*Repository, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read averages file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse averages file %s: %w", path, err)
	}

	descs := f.Averages
	for _, custom := range customPeriodAverages() {
		if !containsID(descs, custom.ID) {
			descs = append(descs, custom)
		}
	}
	return New(descs)
}

// Default returns a repository of the built-in averages
func Default() *Repository {
	r, err := New(Defaults())
	if err != nil {
		panic(fmt.Sprintf("built-in averages are invalid: %v", err))
	}
	return r
}

func containsID(descs []models.AverageDescriptor, id string) bool {
	for _, d := range descs {
		if d.Is(id) {
			return true
		}
	}
	return false
}
