package money

import (
	"math"
	"sort"
	"strings"
)

// Platform is one sales channel and the share of the sale price it keeps.
type Platform struct {
	ID    string  `toml:"id" json:"id"`
	Label string  `toml:"label" json:"label"`
	Rate  float64 `toml:"rate" json:"rate"`
}

// FeeTable maps platform id to its fee configuration.
type FeeTable map[string]Platform

const (
	PlatformFacebook = "facebook"
	PlatformEbay     = "ebay"
)

// DefaultFeeTable is used when the config file does not declare platforms.
func DefaultFeeTable() FeeTable {
	return NewFeeTable([]Platform{
		{ID: PlatformFacebook, Label: "Facebook Marketplace", Rate: 0},
		{ID: PlatformEbay, Label: "eBay", Rate: 0.135},
	})
}

// NewFeeTable builds a table from a list, dropping entries without an id or
// with a rate outside [0, 1].
func NewFeeTable(platforms []Platform) FeeTable {
	table := make(FeeTable, len(platforms))
	for _, p := range platforms {
		id := strings.ToLower(strings.TrimSpace(p.ID))
		if id == "" || math.IsNaN(p.Rate) || p.Rate < 0 || p.Rate > 1 {
			continue
		}
		if strings.TrimSpace(p.Label) == "" {
			p.Label = id
		}
		p.ID = id
		table[id] = p
	}
	return table
}

// Rate returns the fee rate for id; unknown platforms are fee-free.
func (t FeeTable) Rate(id string) float64 {
	p, ok := t[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return 0
	}
	return p.Rate
}

func (t FeeTable) Known(id string) bool {
	_, ok := t[strings.ToLower(strings.TrimSpace(id))]
	return ok
}

// ChargesFees reports whether sales on id pay a platform fee. Seller-paid
// shipping only applies to those channels.
func (t FeeTable) ChargesFees(id string) bool {
	return t.Rate(id) > 0
}

// Label falls back to the raw id for unknown platforms.
func (t FeeTable) Label(id string) string {
	if p, ok := t[strings.ToLower(strings.TrimSpace(id))]; ok {
		return p.Label
	}
	return id
}

// List returns the platforms sorted by id.
func (t FeeTable) List() []Platform {
	out := make([]Platform, 0, len(t))
	for _, p := range t {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
