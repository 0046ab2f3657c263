// Package details regenerates the descriptive text of catalog products. A
// Backend turns a product subset into the same products with new title,
// description, brand, and features plus a quality score. The mock backend is a
// seeded template engine; live text-generation backends are not bundled.
package details

import "slices"

// Product is one catalog entry as seen by a detail backend.
type Product struct {
	ID           string   `json:"product_identifier"`
	Category     string   `json:"category"`
	Price        float64  `json:"price"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Brand        string   `json:"brand"`
	Features     []string `json:"features"`
	QualityScore float64  `json:"quality_score"`
	Enriched     bool     `json:"enriched"`
}

// Clone returns a copy that shares no slices with p.
func (p Product) Clone() Product {
	p.Features = slices.Clone(p.Features)
	return p
}

// QualityScore rates how complete a product's descriptive fields are, from
// 0 to 1: title length up to 50 chars (30%), description length up to 100
// chars (35%), up to 4 features (20%), and a non-empty brand (15%).
func QualityScore(p Product) float64 {
	score := 0.30 * min(float64(len(p.Title))/50, 1.0)
	score += 0.35 * min(float64(len(p.Description))/100, 1.0)
	score += 0.20 * min(float64(len(p.Features))/4, 1.0)
	if p.Brand != "" {
		score += 0.15
	}
	return roundTo(score, 3)
}

func roundTo(v float64, places int) float64 {
	pow := 1.0
	for range places {
		pow *= 10
	}
	return float64(int64(v*pow+0.5)) / pow
}
