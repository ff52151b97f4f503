// Package coupon resolves coupon codes to discount amounts.
package coupon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownCoupon       = errors.New("unknown or inactive coupon")
	ErrCouponNotApplicable = errors.New("coupon minimum subtotal not reached")
	ErrInvalidCatalogue    = errors.New("invalid coupon catalogue")
)

type Kind string

const (
	KindFixed   Kind = "fixed"
	KindPercent Kind = "percent"
)

// Coupon is a named discount. Value is rupiah for fixed coupons and 0-100 for percent coupons.
type Coupon struct {
	Code        string `yaml:"code" json:"code"`
	Kind        Kind   `yaml:"kind" json:"kind"`
	Value       int    `yaml:"value" json:"value"`
	MinSubtotal int    `yaml:"min_subtotal" json:"min_subtotal"`
	Active      bool   `yaml:"active" json:"active"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

func (c Coupon) validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return fmt.Errorf("%w: coupon without code", ErrInvalidCatalogue)
	}
	switch c.Kind {
	case KindFixed:
		if c.Value < 0 {
			return fmt.Errorf("%w: %s has negative value", ErrInvalidCatalogue, c.Code)
		}
	case KindPercent:
		if c.Value < 0 || c.Value > 100 {
			return fmt.Errorf("%w: %s percent out of range", ErrInvalidCatalogue, c.Code)
		}
	default:
		return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidCatalogue, c.Code, c.Kind)
	}
	return nil
}

// amount is the raw discount before capping at the subtotal
func (c Coupon) amount(subtotal int) int {
	if c.Kind == KindPercent {
		return subtotal * c.Value / 100
	}
	return c.Value
}

// Catalogue is a case-insensitive set of coupons. It is read-only after construction.
type Catalogue struct {
	coupons map[string]Coupon
}

func NewCatalogue(coupons ...Coupon) (*Catalogue, error) {
	c := &Catalogue{coupons: make(map[string]Coupon, len(coupons))}
	for _, cp := range coupons {
		if err := cp.validate(); err != nil {
			return nil, err
		}
		c.coupons[normalize(cp.Code)] = cp
	}
	return c, nil
}

// Defaults returns the built-in catalogue used when no file is configured
func Defaults() *Catalogue {
	c, _ := NewCatalogue(
		Coupon{Code: "SEHAT10", Kind: KindPercent, Value: 10, MinSubtotal: 50000, Active: true, Description: "10% off orders from Rp50.000"},
		Coupon{Code: "HEMAT20K", Kind: KindFixed, Value: 20000, MinSubtotal: 150000, Active: true, Description: "Rp20.000 off orders from Rp150.000"},
		Coupon{Code: "WELCOME5K", Kind: KindFixed, Value: 5000, Active: true, Description: "Rp5.000 off your first order"},
	)
	return c
}

type file struct {
	Coupons []Coupon `yaml:"coupons"`
}

// LoadFile reads a YAML catalogue:
//
//	coupons:
//	  - code: SEHAT10
//	    kind: percent
//	    value: 10
//	    min_subtotal: 50000
//	    active: true
func LoadFile(path string) (*Catalogue, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read coupon file %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalogue, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalogue, err)
	}
	return NewCatalogue(f.Coupons...)
}

// Lookup finds an active coupon by code
func (c *Catalogue) Lookup(code string) (Coupon, bool) {
	cp, ok := c.coupons[normalize(code)]
	if !ok || !cp.Active {
		return Coupon{}, false
	}
	return cp, true
}

// Resolve returns the discount for code against subtotal. An empty code yields no discount.
// The discount never exceeds the subtotal.
func (c *Catalogue) Resolve(code string, subtotal int) (int, error) {
	if strings.TrimSpace(code) == "" {
		return 0, nil
	}
	cp, ok := c.Lookup(code)
	if !ok {
		return 0, ErrUnknownCoupon
	}
	if subtotal < cp.MinSubtotal {
		return 0, ErrCouponNotApplicable
	}
	d := cp.amount(subtotal)
	if d > subtotal {
		d = subtotal
	}
	if d < 0 {
		d = 0
	}
	return d, nil
}

// Active lists the active coupons sorted by code
func (c *Catalogue) Active() []Coupon {
	out := make([]Coupon, 0, len(c.coupons))
	for _, cp := range c.coupons {
		if cp.Active {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Normalize upper-cases and trims a code
func Normalize(code string) string { return normalize(code) }

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
