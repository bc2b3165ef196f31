package evaluation

import (
	"fmt"
	"os"
	"strings"

	"embedding-bench/internal/config"
)

// RequiredPlaceholders must appear in any custom grading template. Variant
// answer placeholders are optional: a template may deliberately grade a
// subset of variants.
var RequiredPlaceholders = []string{"{question}", "{reference_answer}"}

// PromptStore manages the grading prompt template: the built-in default
// plus an optional user-customized template persisted to a file.
type PromptStore struct {
	path     string
	fallback string
}

func NewPromptStore(path string, variants []config.ModelVariant) *PromptStore {
	return &PromptStore{path: path, fallback: DefaultTemplate(variants)}
}

// Template returns the custom template when one is saved, otherwise the
// default. An unreadable custom file falls back to the default rather than
// failing a running pipeline.
func (s *PromptStore) Template() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.fallback
	}
	return string(data)
}

// Default returns the built-in template.
func (s *PromptStore) Default() string { return s.fallback }

// IsCustom reports whether a custom template is currently saved.
func (s *PromptStore) IsCustom() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Save validates and persists a custom template. Validation happens here,
// at configuration time, so a broken template can never reach a running
// pipeline.
func (s *PromptStore) Save(template string) error {
	template = strings.TrimSpace(template)
	if template == "" {
		return fmt.Errorf("prompt template is empty")
	}
	var missing []string
	for _, ph := range RequiredPlaceholders {
		if !strings.Contains(template, ph) {
			missing = append(missing, ph)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("prompt template missing placeholders: %s", strings.Join(missing, ", "))
	}
	return os.WriteFile(s.path, []byte(template), 0o644)
}

// Reset removes the custom template, reverting to the default.
func (s *PromptStore) Reset() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
