// Package knowledge holds the crop knowledge base: a built-in catalog of
// crops grown in Portugal plus a repository-backed store for crops added at
// runtime, fronted by an expiring cache.
package knowledge

import "github.com/agroalert/agroalert/internal/datastore/entities"

// Crop is one knowledge entry. Monetary fields are euros, areas m², yields
// kg per m² per cycle.
type Crop struct {
	Key            string   `json:"key"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Type           string   `json:"type"`
	PlantingMonths []string `json:"planting_months"`
	GrowthDays     int      `json:"growth_days"`
	MinArea        float64  `json:"min_area"`
	CostPerM2      float64  `json:"cost_per_m2"`
	YieldPerM2     float64  `json:"yield_per_m2"`
	Difficulty     string   `json:"difficulty"`
	IdealClimate   string   `json:"ideal_climate"`
	Notes          string   `json:"notes"`
	Icon           string   `json:"icon"`
}

// Difficulty levels as the catalog spells them.
const (
	DifficultyEasy   = "Fácil"
	DifficultyMedium = "Média"
	DifficultyHard   = "Difícil"
)

// builtinCatalog is the compiled-in crop knowledge for Portugal. Entries
// added at runtime live in the crop profile store, not here.
var builtinCatalog = []Crop{
	{
		Key: "tomate", Name: "Tomate", Category: "Hortícola", Type: "Fruto",
		PlantingMonths: []string{"Março", "Abril", "Maio"},
		GrowthDays:     90, MinArea: 1, CostPerM2: 5.0, YieldPerM2: 15,
		Difficulty: DifficultyMedium, IdealClimate: "Temperado",
		Notes: "Necessita de suporte para trepar. Sensível a geadas.", Icon: "🍅",
	},
	{
		Key: "alface", Name: "Alface", Category: "Hortícola", Type: "Folha",
		PlantingMonths: []string{"Fevereiro", "Março", "Setembro", "Outubro"},
		GrowthDays:     45, MinArea: 0.5, CostPerM2: 2.0, YieldPerM2: 8,
		Difficulty: DifficultyEasy, IdealClimate: "Fresco",
		Notes: "Cresce rapidamente. Ideal para iniciantes.", Icon: "🥬",
	},
	{
		Key: "cenoura", Name: "Cenoura", Category: "Hortícola", Type: "Raiz",
		PlantingMonths: []string{"Março", "Abril", "Julho", "Agosto"},
		GrowthDays:     120, MinArea: 1, CostPerM2: 3.0, YieldPerM2: 12,
		Difficulty: DifficultyMedium, IdealClimate: "Temperado",
		Notes: "Solo deve ser bem trabalhado e sem pedras.", Icon: "🥕",
	},
	{
		Key: "batata", Name: "Batata", Category: "Hortícola", Type: "Tubérculo",
		PlantingMonths: []string{"Fevereiro", "Março", "Abril"},
		GrowthDays:     100, MinArea: 2, CostPerM2: 4.0, YieldPerM2: 25,
		Difficulty: DifficultyEasy, IdealClimate: "Temperado",
		Notes: "Importante fazer a amontoa. Rica em amido.", Icon: "🥔",
	},
	{
		Key: "cebola", Name: "Cebola", Category: "Hortícola", Type: "Bolbo",
		PlantingMonths: []string{"Setembro", "Outubro", "Novembro"},
		GrowthDays:     180, MinArea: 1, CostPerM2: 3.5, YieldPerM2: 10,
		Difficulty: DifficultyMedium, IdealClimate: "Temperado",
		Notes: "Plantio no outono para colheita no verão.", Icon: "🧅",
	},
	{
		Key: "alecrim", Name: "Alecrim", Category: "Aromática", Type: "Arbusto perene",
		PlantingMonths: []string{"Março", "Abril", "Setembro"},
		GrowthDays:     90, MinArea: 0.5, CostPerM2: 2.0, YieldPerM2: 1.5,
		Difficulty: DifficultyEasy, IdealClimate: "Mediterrânico",
		Notes: "Atrai polinizadores. Não tolera encharcamento.", Icon: "🌿",
	},
	{
		Key: "salsa", Name: "Salsa", Category: "Aromática", Type: "Erva bienal",
		PlantingMonths: []string{"Março", "Setembro"},
		GrowthDays:     70, MinArea: 0.3, CostPerM2: 1.2, YieldPerM2: 2,
		Difficulty: DifficultyEasy, IdealClimate: "Temperado",
		Notes: "Melhor colhida antes da floração.", Icon: "🌿",
	},
	{
		Key: "coentros", Name: "Coentros", Category: "Aromática", Type: "Erva anual",
		PlantingMonths: []string{"Março", "Outubro"},
		GrowthDays:     50, MinArea: 0.3, CostPerM2: 1.3, YieldPerM2: 1.8,
		Difficulty: DifficultyMedium, IdealClimate: "Fresco",
		Notes: "Rápida floração em tempo quente.", Icon: "🌿",
	},
	{
		Key: "milho", Name: "Milho", Category: "Cereal", Type: "Grão",
		PlantingMonths: []string{"Abril", "Maio"},
		GrowthDays:     120, MinArea: 2, CostPerM2: 3.0, YieldPerM2: 10,
		Difficulty: DifficultyMedium, IdealClimate: "Quente e húmido",
		Notes: "Exige boa irrigação e solos férteis.", Icon: "🌽",
	},
	{
		Key: "feijao", Name: "Feijão", Category: "Leguminosa", Type: "Vagem",
		PlantingMonths: []string{"Abril", "Maio", "Junho"},
		GrowthDays:     90, MinArea: 2, CostPerM2: 3.0, YieldPerM2: 8,
		Difficulty: DifficultyEasy, IdealClimate: "Temperado",
		Notes: "Fixa nitrogénio no solo. Boa rotação de culturas.", Icon: "🫘",
	},
	{
		Key: "ervilha", Name: "Ervilha", Category: "Leguminosa", Type: "Vagem",
		PlantingMonths: []string{"Fevereiro", "Março"},
		GrowthDays:     70, MinArea: 1.5, CostPerM2: 2.5, YieldPerM2: 7,
		Difficulty: DifficultyEasy, IdealClimate: "Fresco",
		Notes: "Boa para cultivo no fim do inverno e início da primavera.", Icon: "🫛",
	},
	{
		Key: "fava", Name: "Fava", Category: "Leguminosa", Type: "Vagem",
		PlantingMonths: []string{"Outubro", "Novembro"},
		GrowthDays:     150, MinArea: 2, CostPerM2: 2.2, YieldPerM2: 5,
		Difficulty: DifficultyMedium, IdealClimate: "Fresco",
		Notes: "Cresce bem em solos profundos e bem drenados.", Icon: "🫘",
	},
}

// salePrices are average sale prices in euros per kilo, used by the cost
// estimator. Unlisted crops fall back to defaultSalePrice.
var salePrices = map[string]float64{
	"tomate":  2.50,
	"alface":  1.80,
	"cenoura": 1.20,
	"batata":  1.00,
	"cebola":  1.30,
	"salsa":   6.00,
	"milho":   0.80,
	"feijao":  3.50,
	"ervilha": 4.00,
}

const defaultSalePrice = 2.00

// fromProfile converts a stored crop profile into a catalog entry.
func fromProfile(p *entities.CropProfile) Crop {
	return Crop{
		Key:            p.Key,
		Name:           p.Name,
		Category:       p.Category,
		Type:           p.Type,
		PlantingMonths: p.PlantingMonthList(),
		GrowthDays:     p.GrowthDays,
		MinArea:        p.MinArea,
		CostPerM2:      p.CostPerM2,
		YieldPerM2:     p.YieldPerM2,
		Difficulty:     p.Difficulty,
		IdealClimate:   p.IdealClimate,
		Notes:          p.Notes,
		Icon:           p.Icon,
	}
}

// toProfile converts a catalog entry into its persisted form.
func toProfile(c *Crop) (*entities.CropProfile, error) {
	profile := &entities.CropProfile{
		Key:          c.Key,
		Name:         c.Name,
		Category:     c.Category,
		Type:         c.Type,
		GrowthDays:   c.GrowthDays,
		MinArea:      c.MinArea,
		CostPerM2:    c.CostPerM2,
		YieldPerM2:   c.YieldPerM2,
		Difficulty:   c.Difficulty,
		IdealClimate: c.IdealClimate,
		Notes:        c.Notes,
		Icon:         c.Icon,
	}
	if err := profile.SetPlantingMonths(c.PlantingMonths); err != nil {
		return nil, err
	}
	return profile, nil
}
