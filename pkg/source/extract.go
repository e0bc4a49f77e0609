package source

import (
	"github.com/quotawatch/quotawatch/pkg/model"
)

// The upstream payload shape has drifted over time, so the remaining
// amount is pulled out by an ordered list of extraction rules; the
// first rule that produces a value wins.
type extractRule struct {
	name string
	fn   func(map[string]any) (float64, bool)
}

var remainingRules = []extractRule{
	{"totals block", blockKeys("totals", "remaining", "remaining_yen", "remain", "remain_yen")},
	{"top level", topKeys("remaining", "remaining_yen", "remain", "remain_yen")},
	{"credit block", blockKeys("credit", "remaining", "remaining_yen")},
	{"money scan", moneyScan("summary", "stats", "balance", "limits")},
	{"total minus used", totalMinusUsed},
}

// ExtractRemaining pulls the remaining amount out of an API payload.
func ExtractRemaining(data map[string]any) (float64, bool) {
	for _, rule := range remainingRules {
		if v, ok := rule.fn(data); ok {
			return v, true
		}
	}
	return 0, false
}

// ExtractDetails assembles a full snapshot from an API payload. Any
// field the payload does not carry stays zero.
func ExtractDetails(name string, data map[string]any) model.Snapshot {
	snap := model.Snapshot{Name: name}

	if v, ok := topKeys("total_yen", "total", "total_amount")(data); ok {
		snap.Total = v
	}
	if v, ok := topKeys("used_yen", "used", "used_amount")(data); ok {
		snap.Used = v
	}
	if v, ok := ExtractRemaining(data); ok {
		snap.Remaining = v
	}
	if v, ok := topKeys("used_percent", "usage_percent")(data); ok {
		snap.UsedPercent = v
	} else if snap.Total > 0 {
		snap.UsedPercent = snap.Used / snap.Total * 100
	}
	return snap
}

// topKeys tries a list of top-level keys in priority order.
func topKeys(keys ...string) func(map[string]any) (float64, bool) {
	return func(data map[string]any) (float64, bool) {
		for _, k := range keys {
			if v, ok := data[k]; ok {
				return model.ParseMoney(v), true
			}
		}
		return 0, false
	}
}

// blockKeys tries a list of keys inside a named sub-object.
func blockKeys(block string, keys ...string) func(map[string]any) (float64, bool) {
	inner := topKeys(keys...)
	return func(data map[string]any) (float64, bool) {
		blk, ok := data[block].(map[string]any)
		if !ok {
			return 0, false
		}
		return inner(blk)
	}
}

// moneyScan takes the first positive money-looking value found inside
// any of the named sub-objects. Best guess, last resorts only.
func moneyScan(blocks ...string) func(map[string]any) (float64, bool) {
	return func(data map[string]any) (float64, bool) {
		for _, name := range blocks {
			blk, ok := data[name].(map[string]any)
			if !ok {
				continue
			}
			for _, v := range blk {
				if val := model.ParseMoney(v); val > 0 {
					return val, true
				}
			}
		}
		return 0, false
	}
}

// totalMinusUsed derives remaining when the payload only reports the
// total and used amounts.
func totalMinusUsed(data map[string]any) (float64, bool) {
	total, okT := topKeys("total_yen", "total", "total_amount")(data)
	used, okU := topKeys("used_yen", "used", "used_amount")(data)
	if !okT || !okU {
		return 0, false
	}
	rem := total - used
	if rem < 0 {
		rem = 0
	}
	return rem, true
}
