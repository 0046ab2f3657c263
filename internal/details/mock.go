package details

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
)

type vocabulary struct {
	brands     []string
	adjectives []string
	features   []string
}

var baselineVocab = map[string]vocabulary{
	"Electronics": {
		brands:     []string{"TechPro", "DigiMax", "SmartLife", "ElectraVolt", "NexGen"},
		adjectives: []string{"Advanced", "Ultra", "Pro", "Smart", "Wireless"},
		features:   []string{"Long battery life", "Fast charging", "Bluetooth connectivity", "LCD display", "Voice control"},
	},
	"Home & Kitchen": {
		brands:     []string{"HomeStyle", "KitchenPro", "CozyLiving", "DomesticPlus", "ChefMate"},
		adjectives: []string{"Premium", "Deluxe", "Essential", "Modern", "Classic"},
		features:   []string{"Dishwasher safe", "Heat resistant", "Non-stick coating", "Easy to clean", "Space saving"},
	},
	"Clothing": {
		brands:     []string{"UrbanWear", "StyleFit", "ComfortPlus", "TrendyThreads", "ClassicWear"},
		adjectives: []string{"Comfortable", "Stylish", "Premium", "Casual", "Lightweight"},
		features:   []string{"Machine washable", "Breathable fabric", "Wrinkle resistant", "Stretch fit", "Quick dry"},
	},
	"default": {
		brands:     []string{"ValueBrand", "QualityFirst", "TrustMark", "PrimePick", "BestChoice"},
		adjectives: []string{"Quality", "Premium", "Essential", "Classic", "Professional"},
		features:   []string{"High quality materials", "Durable construction", "Easy to use", "Great value", "Long lasting"},
	},
}

// treatmentVocab simulates improved copy for treated products.
var treatmentVocab = map[string]vocabulary{
	"Electronics": {
		brands:     []string{"TechPro Elite", "DigiMax Pro", "SmartLife AI", "ElectraVolt Plus", "NexGen Ultra"},
		adjectives: []string{"Revolutionary", "AI-Powered", "Next-Generation", "Premium", "Cutting-Edge"},
		features: []string{
			"Industry-leading battery life", "Lightning-fast charging", "Advanced Bluetooth 5.0",
			"Crystal-clear OLED display", "Intelligent voice assistant",
		},
	},
	"Home & Kitchen": {
		brands:     []string{"HomeStyle Pro", "KitchenPro Elite", "CozyLiving Plus", "DomesticPlus Premium", "ChefMate Pro"},
		adjectives: []string{"Award-Winning", "Chef-Recommended", "Eco-Friendly", "Designer", "Restaurant-Grade"},
		features: []string{
			"Commercial-grade durability", "Premium heat distribution", "Advanced non-stick technology",
			"Effortless maintenance", "Compact space-saving design",
		},
	},
	"Clothing": {
		brands:     []string{"UrbanWear Elite", "StyleFit Pro", "ComfortPlus Premium", "TrendyThreads Luxe", "ClassicWear Plus"},
		adjectives: []string{"Luxurious", "Designer", "Eco-Conscious", "Performance", "Premium"},
		features: []string{
			"Easy-care machine washable", "Advanced moisture-wicking fabric", "Permanent wrinkle-free technology",
			"4-way stretch comfort", "Rapid-dry technology",
		},
	},
	"default": {
		brands:     []string{"ValueBrand Pro", "QualityFirst Elite", "TrustMark Premium", "PrimePick Plus", "BestChoice Pro"},
		adjectives: []string{"Award-Winning", "Best-in-Class", "Premium", "Professional-Grade", "Industry-Leading"},
		features: []string{
			"Premium-grade materials", "Enhanced durability", "Intuitive design",
			"Exceptional value", "Extended lifespan",
		},
	},
}

// MockBackend fills descriptive fields from category templates. Output is a
// pure function of (seed, input products, treatment).
type MockBackend struct {
	seed int64
}

// NewMockBackend creates a template backend seeded with seed.
func NewMockBackend(seed int64) *MockBackend {
	return &MockBackend{seed: seed}
}

// Name implements Backend.
func (m *MockBackend) Name() string { return "mock" }

// Regenerate implements Backend.
func (m *MockBackend) Regenerate(ctx context.Context, products []Product, treatment bool) ([]Product, error) {
	rng := rand.New(rand.NewPCG(uint64(m.seed), uint64(m.seed)>>1|1))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		category := p.Category
		if category == "" {
			category = "General"
		}
		v := lookupVocab(category, treatment)

		brand := v.brands[rng.IntN(len(v.brands))]
		adj := v.adjectives[rng.IntN(len(v.adjectives))]
		features := sample(rng, v.features, 4)

		q := p.Clone()
		q.Brand = brand
		q.Features = features
		q.Title = fmt.Sprintf("%s %s %s Item", brand, adj, category)
		if treatment {
			q.Description = fmt.Sprintf("Premium %s product with exceptional quality. %s. %s.", strings.ToLower(category), features[0], features[1])
		} else {
			q.Description = fmt.Sprintf("Quality %s product for everyday use. %s. %s.", strings.ToLower(category), features[0], features[1])
		}
		q.QualityScore = QualityScore(q)
		out = append(out, q)
	}
	return out, nil
}

// lookupVocab matches the first vocabulary key contained in category,
// case-insensitively, in a fixed key order.
func lookupVocab(category string, treatment bool) vocabulary {
	src := baselineVocab
	if treatment {
		src = treatmentVocab
	}
	lc := strings.ToLower(category)
	for _, key := range []string{"Electronics", "Home & Kitchen", "Clothing"} {
		if strings.Contains(lc, strings.ToLower(key)) {
			return src[key]
		}
	}
	return src["default"]
}

// sample draws k distinct items without replacement, in draw order.
func sample(rng *rand.Rand, items []string, k int) []string {
	pool := append([]string(nil), items...)
	k = min(k, len(pool))
	for i := range k {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
