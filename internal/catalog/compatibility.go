package catalog

import "github.com/safar/repair-orders/internal/models"

// Tier says how a compatibility row matched a vehicle.
type Tier int

const (
	TierNone Tier = iota
	TierGeneration
	TierModel
	TierBrand
)

// Match checks one compatibility row against a vehicle. Rows are tried from
// the most to the least specific: generation (with the year range), then
// model-wide, then brand-wide.
func Match(c models.PartCompatibility, v models.Vehicle) Tier {
	switch {
	case c.GenerationID != nil:
		if *c.GenerationID == v.GenerationID && yearInRange(v.Year, c.YearFrom, c.YearTo) {
			return TierGeneration
		}
	case c.ModelID != nil:
		if *c.ModelID == v.ModelID {
			return TierModel
		}
	default:
		if c.BrandID == v.BrandID {
			return TierBrand
		}
	}
	return TierNone
}

// yearInRange treats a nil bound as open. An unknown vehicle year matches
// any range.
func yearInRange(year, from, to *int) bool {
	if year == nil {
		return true
	}
	if from != nil && *year < *from {
		return false
	}
	if to != nil && *year > *to {
		return false
	}
	return true
}

// Eligible returns the parts usable on v: universal parts plus parts with at
// least one matching compatibility row. Input order is kept and each part
// appears once.
func Eligible(v models.Vehicle, parts []models.Part, compat []models.PartCompatibility) []models.Part {
	matched := make(map[int64]bool)
	for _, c := range compat {
		if Match(c, v) != TierNone {
			matched[c.PartID] = true
		}
	}

	eligible := make([]models.Part, 0, len(parts))
	seen := make(map[int64]bool, len(parts))
	for _, p := range parts {
		if seen[p.ID] {
			continue
		}
		if p.IsUniversal || matched[p.ID] {
			eligible = append(eligible, p)
			seen[p.ID] = true
		}
	}
	return eligible
}
