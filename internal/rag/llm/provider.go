package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/StudyHelper/internal/config"
)

type Provider interface {
	Generate(ctx context.Context, query string, matches []string) (string, error)
}

// BuildPrompt puts the retrieved notes ahead of the question. An empty match
// list still produces a prompt so the model can say it found nothing.
func BuildPrompt(query string, matches []string) string {
	contextText := config.NoNotesContext
	if len(matches) > 0 {
		contextText = strings.Join(matches, "\n\n")
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s\nAnswer:", contextText, query)
}
