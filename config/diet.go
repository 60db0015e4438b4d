package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dietvite/backend/internal/diet"
)

// Agent names used as prompt template keys
const (
	AgentClassifier     = "classification"
	AgentKnowledgeBot   = "omni_knowledge_bot"
	AgentNutriScanner   = "nutriscanner"
	AgentDietBuilder    = "diet_builder"
	AgentNutriReflector = "nutri_reflector"
	AgentMissyMonitor   = "missy_monitor"
)

// PromptTemplate is the pair of messages sent for one agent. User may
// contain {user_query}, {nutrient_sheet_per_food_item}, {gap_sheet} or
// {days_string} placeholders.
type PromptTemplate struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// DietConfig is the static nutrition configuration handed to the services
// at startup.
type DietConfig struct {
	Nutrients         []string                  `json:"nutrients"`
	BalancedDietSheet diet.BalancedDietSheet    `json:"balanced_diet_sheet"`
	Prompts           map[string]PromptTemplate `json:"prompts"`
}

// promptEnv maps an agent to its user and system template variables
var promptEnv = map[string][2]string{
	AgentClassifier:     {"CLASSIFICATION_PROMPT", "CLASSIFICATION_SYSTEM_PROMPT"},
	AgentKnowledgeBot:   {"OMNI_KNOWLEDGE_BOT_PROMPT", "OMNI_KNOWLEDGE_BOT_SYSTEM_MESSAGE"},
	AgentNutriScanner:   {"NUTRISCANNER_PROMPT", "NUTRISCANNER_SYSTEM_MESSAGE"},
	AgentDietBuilder:    {"DIET_BUILDER_PROMPT", "DIET_BUILDER_SYSTEM_MESSAGE"},
	AgentNutriReflector: {"NUTRI_REFLECTOR_PROMPT", "NUTRI_REFLECTOR_SYSTEM_MESSAGE"},
	AgentMissyMonitor:   {"MISSY_MONITOR_PROMPT", "MISSY_MONITOR_SYSTEM_MESSAGE"},
}

// LoadDietConfig starts from DefaultDietConfig and overrides it with
// NUTRIENT_LIST, BALANCED_DIET_SHEET and the per-agent prompt variables.
func LoadDietConfig() (*DietConfig, error) {
	cfg := DefaultDietConfig()

	if raw := os.Getenv("NUTRIENT_LIST"); raw != "" {
		var nutrients []string
		if err := json.Unmarshal([]byte(raw), &nutrients); err != nil {
			return nil, fmt.Errorf("invalid NUTRIENT_LIST: %w", err)
		}
		cfg.Nutrients = nutrients
	}

	if raw := os.Getenv("BALANCED_DIET_SHEET"); raw != "" {
		var sheet diet.BalancedDietSheet
		if err := json.Unmarshal([]byte(raw), &sheet); err != nil {
			return nil, fmt.Errorf("invalid BALANCED_DIET_SHEET: %w", err)
		}
		cfg.BalancedDietSheet = sheet
	}

	for agent, vars := range promptEnv {
		tmpl := cfg.Prompts[agent]
		if v := os.Getenv(vars[0]); v != "" {
			tmpl.User = v
		}
		if v := os.Getenv(vars[1]); v != "" {
			tmpl.System = v
		}
		cfg.Prompts[agent] = tmpl
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the balanced sheet only names known nutrients and
// that every agent has both templates.
func (c *DietConfig) Validate() error {
	if len(c.Nutrients) == 0 {
		return fmt.Errorf("nutrient list is empty")
	}
	known := make(map[string]bool, len(c.Nutrients))
	for _, n := range c.Nutrients {
		if known[n] {
			return fmt.Errorf("nutrient %q listed twice", n)
		}
		known[n] = true
	}
	for n, v := range c.BalancedDietSheet {
		if !known[n] {
			return fmt.Errorf("balanced diet sheet names unknown nutrient %q", n)
		}
		if v < 0 {
			return fmt.Errorf("balanced diet sheet has negative target for %q", n)
		}
	}
	for agent := range promptEnv {
		tmpl, ok := c.Prompts[agent]
		if !ok || tmpl.System == "" || tmpl.User == "" {
			return fmt.Errorf("prompt templates for %s are incomplete", agent)
		}
	}
	return nil
}

// DefaultDietConfig returns the built-in vocabulary, adult daily targets and
// prompts.
func DefaultDietConfig() *DietConfig {
	return &DietConfig{
		Nutrients: []string{
			"Calories (kcal)",
			"Protein (g)",
			"Carbohydrates (g)",
			"Fat (g)",
			"Fiber (g)",
			"Sugar (g)",
			"Sodium (mg)",
			"Potassium (mg)",
			"Calcium (mg)",
			"Iron (mg)",
			"Vitamin C (mg)",
			"Vitamin D (mg)",
		},
		BalancedDietSheet: diet.BalancedDietSheet{
			"Calories (kcal)":   2000,
			"Protein (g)":       50,
			"Carbohydrates (g)": 275,
			"Fat (g)":           78,
			"Fiber (g)":         28,
			"Sugar (g)":         50,
			"Sodium (mg)":       2300,
			"Potassium (mg)":    4700,
			"Calcium (mg)":      1300,
			"Iron (mg)":         18,
			"Vitamin C (mg)":    90,
			"Vitamin D (mg)":    0.02,
		},
		Prompts: map[string]PromptTemplate{
			AgentClassifier: {
				System: `You route messages for a nutrition tracker. Respond only with JSON like {"category": "food"} when the user reports something they ate or drank, otherwise {"category": "general"}.`,
				User:   "Message: {user_query}",
			},
			AgentKnowledgeBot: {
				System: "You are a friendly nutrition expert. Answer briefly and accurately.",
				User:   "{user_query}",
			},
			AgentNutriScanner: {
				System: "You estimate nutrient content of foods. Respond only with a JSON object using exactly the keys of the template, with numeric values for the total amount eaten.",
				User:   "Food eaten: {user_query}\nTemplate: {nutrient_sheet_per_food_item}",
			},
			AgentDietBuilder: {
				System: "You are a dietitian. Suggest concrete meals that close the given nutrient gaps. Positive gaps are deficits, negative gaps are excess.",
				User:   "Average daily gaps against a balanced diet: {gap_sheet}",
			},
			AgentNutriReflector: {
				System: "You are a supportive coach. Reflect on the user's eating pattern in a short paragraph.",
				User:   "Average daily gaps against a balanced diet: {gap_sheet}",
			},
			AgentMissyMonitor: {
				System: "You are a caring accountability partner. Write a short, kind reminder to keep logging meals.",
				User:   "The user did not log any food on: {days_string}",
			},
		},
	}
}
