package domain

import "strings"

// Gender selects which category tree and exclusion terms a user's searches use.
type Gender string

const (
	GenderMen   Gender = "men"
	GenderWomen Gender = "women"
)

// Sizes holds a user's size preferences per clothing type.
type Sizes struct {
	Tops          []string `json:"tops"`
	BottomsWaist  []string `json:"bottoms_waist"`
	BottomsLetter []string `json:"bottoms_letter"`
	Outerwear     []string `json:"outerwear"`
}

// All returns the union of all size lists, deduplicated, preserving first
// occurrence order.
func (s Sizes) All() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{s.Tops, s.BottomsWaist, s.BottomsLetter, s.Outerwear} {
		for _, size := range group {
			key := strings.ToUpper(strings.TrimSpace(size))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

// Preferences holds a user's shopping thresholds and filters.
type Preferences struct {
	Brands           []string `json:"brands"`
	MinROI           float64  `json:"min_roi"`
	MaxPrice         float64  `json:"max_price"`
	ExcludedKeywords []string `json:"excluded_keywords"`
}

// User is a shopper profile that deal scans run against.
type User struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Gender      Gender      `json:"gender"`
	Sizes       Sizes       `json:"sizes"`
	Preferences Preferences `json:"preferences"`
}
