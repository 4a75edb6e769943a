/*
Package factory provides JSON to Go tier-table conversion.

PURPOSE:
  Converts JSON tier schedules into commission.TierTable values. This
  enables rate changes without code changes - sales ops can author the
  schedule in JSON, and the factory validates and builds the table the
  engine is constructed with.

WHY JSON?
  - Non-developers can adjust rates
  - Version control for rate schedules
  - The engine keeps its immutable, injected table; only the source
    of the value changes

JSON SCHEMA:
  {
    "tiers": [
      {"min_deals": 0,  "max_deals": 12, "closer_rate": 8,  "setter_rate": 3},
      {"min_deals": 13, "max_deals": 19, "closer_rate": 9,  "setter_rate": 4},
      {"min_deals": 31,                  "closer_rate": 12, "setter_rate": 7}
    ]
  }

  Omitting max_deals marks the unbounded top band. The partition
  invariant (ascending, adjacent, covering [0, inf)) is validated; a
  bad schedule fails loudly at startup, never silently at runtime.

USAGE:
  table, err := factory.LoadTierTable("./tiers.json")
  calc := commission.NewCalculator(store, table, logger)

SEE ALSO:
  - commission/tiers.go: TierTable type and validation
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/salesdash/commission-engine/commission"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TierTableJSON is the JSON representation of a tier schedule.
type TierTableJSON struct {
	Tiers []TierJSON `json:"tiers"`
}

// TierJSON is one volume band. MaxDeals nil = unbounded top band.
type TierJSON struct {
	MinDeals   int     `json:"min_deals"`
	MaxDeals   *int    `json:"max_deals,omitempty"`
	CloserRate float64 `json:"closer_rate"`
	SetterRate float64 `json:"setter_rate"`
}

// =============================================================================
// CONVERSION
// =============================================================================

// ParseTierTable converts a JSON schedule into a validated TierTable.
func ParseTierTable(data []byte) (commission.TierTable, error) {
	var schema TierTableJSON
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse tier table: %w", err)
	}

	tiers := make([]commission.Tier, len(schema.Tiers))
	for i, t := range schema.Tiers {
		tiers[i] = commission.Tier{
			MinDeals:   t.MinDeals,
			MaxDeals:   t.MaxDeals,
			CloserRate: decimal.NewFromFloat(t.CloserRate),
			SetterRate: decimal.NewFromFloat(t.SetterRate),
		}
	}

	table, err := commission.NewTierTable(tiers)
	if err != nil {
		return nil, fmt.Errorf("tier table rejected: %w", err)
	}
	return table, nil
}

// LoadTierTable reads and validates a schedule file.
func LoadTierTable(path string) (commission.TierTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tier table %s: %w", path, err)
	}
	return ParseTierTable(data)
}

// TierTableToJSON converts a table back to its JSON schema, for the
// read-only display export.
func TierTableToJSON(table commission.TierTable) TierTableJSON {
	out := TierTableJSON{Tiers: make([]TierJSON, len(table))}
	for i, t := range table {
		closer, _ := t.CloserRate.Float64()
		setter, _ := t.SetterRate.Float64()
		out.Tiers[i] = TierJSON{
			MinDeals:   t.MinDeals,
			MaxDeals:   t.MaxDeals,
			CloserRate: closer,
			SetterRate: setter,
		}
	}
	return out
}
