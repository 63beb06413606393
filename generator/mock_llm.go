package generator

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM is an offline stand-in for local debugging. It never calls a model
// and echoes the first prompt line back as post text.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt, _ string) (string, error) {
	subject := strings.SplitN(prompt.User, "\n", 2)[0]

	if strings.Contains(prompt.User, VariantMarker(1)) {
		var sb strings.Builder
		for i := 1; i <= VariationCount; i++ {
			sb.WriteString(VariantMarker(i))
			sb.WriteString("\n")
			sb.WriteString(fmt.Sprintf("Variant %d. %s\nWhat do you think? Share your thoughts below.\n#Draft #Mock\n\n", i, subject))
		}
		return sb.String(), nil
	}
	return fmt.Sprintf("%s\n\nWhat would you add? Let me know in the comments.\n#Draft #Mock", subject), nil
}
