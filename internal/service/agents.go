package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dietvite/backend/config"
	"github.com/dietvite/backend/internal/diet"
)

// Query categories returned by the classifier
const (
	CategoryFood    = "food"
	CategoryGeneral = "general"
)

// Agents renders the configured prompt templates and sends them to a Generator
type Agents struct {
	gen       Generator
	prompts   map[string]config.PromptTemplate
	nutrients []string
}

func NewAgents(gen Generator, cfg *config.DietConfig) *Agents {
	return &Agents{
		gen:       gen,
		prompts:   cfg.Prompts,
		nutrients: cfg.Nutrients,
	}
}

func (a *Agents) run(ctx context.Context, agent string, vars map[string]string) (string, error) {
	tmpl, ok := a.prompts[agent]
	if !ok {
		return "", fmt.Errorf("no prompt template for %s", agent)
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	out, err := a.gen.Generate(ctx, tmpl.System, strings.NewReplacer(pairs...).Replace(tmpl.User))
	if err != nil {
		return "", fmt.Errorf("%s: %w", agent, err)
	}
	return out, nil
}

// Classify reports whether the query logs food or asks something else
func (a *Agents) Classify(ctx context.Context, query string) (string, error) {
	out, err := a.run(ctx, config.AgentClassifier, map[string]string{"user_query": query})
	if err != nil {
		return "", err
	}

	var parsed struct {
		Category string `json:"category"`
	}
	if err := RepairAndParseJSON(out, &parsed); err != nil {
		return "", fmt.Errorf("classifier: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(parsed.Category), CategoryFood) {
		return CategoryFood, nil
	}
	return CategoryGeneral, nil
}

// Answer replies to a general nutrition question
func (a *Agents) Answer(ctx context.Context, query string) (string, error) {
	return a.run(ctx, config.AgentKnowledgeBot, map[string]string{"user_query": query})
}

// ScanNutrients estimates the nutrients in the food described by query
func (a *Agents) ScanNutrients(ctx context.Context, query string) (map[string]float64, error) {
	template := make(map[string]float64, len(a.nutrients))
	for _, n := range a.nutrients {
		template[n] = 0
	}
	sheet, err := json.Marshal(template)
	if err != nil {
		return nil, err
	}

	out, err := a.run(ctx, config.AgentNutriScanner, map[string]string{
		"user_query":                   query,
		"nutrient_sheet_per_food_item": string(sheet),
	})
	if err != nil {
		return nil, err
	}

	var deltas map[string]float64
	if err := RepairAndParseJSON(out, &deltas); err != nil {
		return nil, fmt.Errorf("nutriscanner: %w", err)
	}
	return deltas, nil
}

// BuildDiet suggests meals that close the gaps
func (a *Agents) BuildDiet(ctx context.Context, gaps diet.GapSheet) (string, error) {
	return a.runWithGaps(ctx, config.AgentDietBuilder, gaps)
}

// Reflect comments on the eating pattern behind the gaps
func (a *Agents) Reflect(ctx context.Context, gaps diet.GapSheet) (string, error) {
	return a.runWithGaps(ctx, config.AgentNutriReflector, gaps)
}

func (a *Agents) runWithGaps(ctx context.Context, agent string, gaps diet.GapSheet) (string, error) {
	b, err := json.Marshal(gaps)
	if err != nil {
		return "", err
	}
	return a.run(ctx, agent, map[string]string{"gap_sheet": string(b)})
}

// RemindMissed writes a reminder about the skipped dates
func (a *Agents) RemindMissed(ctx context.Context, dates []string) (string, error) {
	return a.run(ctx, config.AgentMissyMonitor, map[string]string{"days_string": strings.Join(dates, ", ")})
}
