package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// ValidateConfig checks that the values every environment needs are present
func ValidateConfig(cfg *Config) error {
	var errs ValidationErrors

	required := map[string]string{
		"db_host":     cfg.DBHost,
		"db_user":     cfg.DBUser,
		"db_password": cfg.DBPassword,
		"jwt_secret":  cfg.JWTSecret,
	}
	for _, field := range []string{"db_host", "db_user", "db_password", "jwt_secret"} {
		if required[field] == "" {
			errs = append(errs, ValidationError{Field: field, Message: "is required"})
		}
	}

	if cfg.RedisURL == "" && cfg.RedisHost == "" {
		errs = append(errs, ValidationError{Field: "redis_host", Message: "redis_host or redis_url is required"})
	}

	if len(cfg.GroqAPIKeys) == 0 {
		errs = append(errs, ValidationError{Field: "groq_api_keys", Message: "at least one API key is required"})
	}

	if IsProduction() && len(cfg.JWTSecret) < 32 {
		errs = append(errs, ValidationError{Field: "jwt_secret", Message: "must be at least 32 characters in production"})
	}

	if cfg.ArchiveBucket != "" && cfg.AWSRegion == "" {
		errs = append(errs, ValidationError{Field: "aws_region", Message: "is required when s3_bucket_name is set"})
	}

	if cfg.Diet != nil {
		if err := cfg.Diet.Validate(); err != nil {
			errs = append(errs, ValidationError{Field: "diet", Message: err.Error()})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
