package quota

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TierLimits maps an account tier to the number of links it may create.
type TierLimits map[int]int64

// DefaultTierLimits is the standard tier table.
func DefaultTierLimits() TierLimits {
	return TierLimits{
		1: 5,
		2: 10,
		3: 100,
		4: 1000,
	}
}

// Limit returns the allowance for a tier. Unknown tiers get zero.
func (t TierLimits) Limit(tier int) int64 {
	return t[tier]
}

// String renders the table in the format accepted by ParseTierLimits.
func (t TierLimits) String() string {
	tiers := make([]int, 0, len(t))
	for tier := range t {
		tiers = append(tiers, tier)
	}

	sort.Ints(tiers)

	parts := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		parts = append(parts, fmt.Sprintf("%d=%d", tier, t[tier]))
	}

	return strings.Join(parts, ",")
}

// ParseTierLimits parses "tier=limit" pairs separated by commas, e.g. "1=5,2=10".
func ParseTierLimits(s string) (TierLimits, error) {
	limits := TierLimits{}

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		tierText, limitText, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("tier limit %q: expected tier=limit", pair)
		}

		tier, err := strconv.Atoi(strings.TrimSpace(tierText))
		if err != nil || tier < 1 {
			return nil, fmt.Errorf("tier limit %q: tier must be a positive integer", pair)
		}

		limit, err := strconv.ParseInt(strings.TrimSpace(limitText), 10, 64)
		if err != nil || limit < 0 {
			return nil, fmt.Errorf("tier limit %q: limit must be a non-negative integer", pair)
		}

		if _, dup := limits[tier]; dup {
			return nil, fmt.Errorf("tier limit %q: tier %d listed twice", pair, tier)
		}

		limits[tier] = limit
	}

	if len(limits) == 0 {
		return nil, fmt.Errorf("tier limits %q: no tiers configured", s)
	}

	return limits, nil
}
