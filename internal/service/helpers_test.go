package service_test

import (
	"github.com/dietvite/backend/config"
	"github.com/dietvite/backend/internal/diet"
)

const (
	protein  = "Protein (g)"
	calories = "Calories (kcal)"
)

// testDietConfig uses the agent name as system message so mocks can match on it
func testDietConfig() *config.DietConfig {
	prompts := make(map[string]config.PromptTemplate)
	for _, agent := range []string{
		config.AgentClassifier,
		config.AgentKnowledgeBot,
		config.AgentNutriScanner,
		config.AgentDietBuilder,
		config.AgentNutriReflector,
		config.AgentMissyMonitor,
	} {
		prompts[agent] = config.PromptTemplate{
			System: agent,
			User:   "query={user_query} sheet={nutrient_sheet_per_food_item} gaps={gap_sheet} days={days_string}",
		}
	}

	return &config.DietConfig{
		Nutrients:         []string{protein, calories},
		BalancedDietSheet: diet.BalancedDietSheet{protein: 50, calories: 2000},
		Prompts:           prompts,
	}
}
