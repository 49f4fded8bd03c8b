package core

import (
	"encoding/json"
	"strings"
)

// Category is a bounded set of labels. Labels are the ones shown to owners.
type Category string

const (
	CategoryEntertainment Category = "Entretenimiento"
	CategoryMusic         Category = "Música"
	CategorySoftware      Category = "Software"
	CategoryHome          Category = "Hogar"
	CategoryInsurance     Category = "Seguros"
	CategoryFood          Category = "Comida"
	CategoryTransport     Category = "Transporte"
	CategoryClothing      Category = "Ropa"
	CategoryLeisure       Category = "Ocio"
	CategoryHealth        Category = "Salud"
	CategoryGifts         Category = "Regalos"
	CategoryOther         Category = "Otros"
)

var (
	// SubscriptionCategories are offered when editing a subscription.
	SubscriptionCategories = []Category{
		CategoryEntertainment, CategoryMusic, CategorySoftware,
		CategoryHome, CategoryInsurance, CategoryOther,
	}
	// ExpenseCategories are offered when adding a one-off expense.
	ExpenseCategories = []Category{
		CategoryFood, CategoryTransport, CategoryClothing, CategoryLeisure,
		CategoryHealth, CategoryGifts, CategoryOther,
	}

	knownCategories = func() map[string]Category {
		m := make(map[string]Category)
		for _, c := range append(append([]Category{}, SubscriptionCategories...), ExpenseCategories...) {
			m[strings.ToLower(string(c))] = c
		}
		return m
	}()
)

// ParseCategory maps free text to a known category, case-insensitively.
// Anything unrecognised becomes CategoryOther.
func ParseCategory(s string) Category {
	if c, ok := knownCategories[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c
	}
	return CategoryOther
}

func (c Category) IsKnown() bool {
	known, ok := knownCategories[strings.ToLower(string(c))]
	return ok && known == c
}

func (c *Category) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidCategory
	}
	*c = ParseCategory(s)
	return nil
}
