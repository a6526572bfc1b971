package categories

import "github.com/dvloznov/ledgr/internal/domain"

// legacyValues maps category values of the flat, pre-taxonomy category list
// onto current values.
var legacyValues = map[string]string{
	"credit_card_payment": "credit_card_payment",
	"dining":              "restaurants",
	"entertainment":       "movies",
	"gift":                "gifts",
	"groceries":           "groceries",
	"gym":                 "gym_memberships",
	"health":              domain.Untagged,
	"internet":            "internet",
	"investment":          domain.Untagged,
	"emi":                 "loan_payments",
	"netflix":             "streaming_services",
	"other":               "other",
	"pets":                "pet_care",
	"phone":               "mobile_phone",
	"rent":                "rent",
	"self_transfer":       "self_transfer",
	"shopping":            domain.Untagged,
	"streaming":           "streaming_services",
	"swiggy":              "food_delivery",
	"travel":              domain.Untagged,
	"untagged":            domain.Untagged,
	"utilities":           domain.Untagged,
	"transport":           domain.Untagged,
	"work":                domain.Untagged,
}

// MapLegacy returns the current value for a legacy category value. Unknown
// values are returned unchanged.
func MapLegacy(value string) string {
	if mapped, ok := legacyValues[value]; ok {
		return mapped
	}
	return value
}

// MigrateSnapshot rewrites legacy category values in a snapshot that predates
// the category taxonomy, one without a categories section. Snapshots that
// carry their own categories are returned as-is.
func MigrateSnapshot(snap domain.Snapshot) domain.Snapshot {
	if len(snap.Categories) > 0 {
		return snap
	}
	txns := make([]domain.Transaction, len(snap.Transactions))
	for i, t := range snap.Transactions {
		if t.Category != "" {
			t.Category = MapLegacy(t.Category)
		}
		txns[i] = t
	}
	snap.Transactions = txns
	return snap
}
