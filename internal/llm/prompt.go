package llm

import (
	"fmt"
	"os"
	"strings"
)

// LoadPromptTemplate reads the fixed instruction template sent with every
// region image. Failure to load it is a configuration-time error for the
// whole pipeline, not a per-record error.
func LoadPromptTemplate(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt template %s: %w", path, err)
	}
	prompt := strings.TrimSpace(string(b))
	if prompt == "" {
		return "", fmt.Errorf("prompt template %s is empty", path)
	}
	return prompt, nil
}
