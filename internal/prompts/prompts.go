// Package prompts holds the generation prompt templates.
package prompts

import (
	"fmt"
	"strings"
)

// InsufficientInfoMessage is the answer the model is instructed to give
// when the context cannot support the question. The chat handler also
// returns it directly when retrieval produced no context at all.
const InsufficientInfoMessage = "I don't have enough information in the provided documentation to answer that question."

const answerTemplate = `You are an expert knowledge assistant helping users find information in crawled documentation quickly and accurately.

YOUR TASK:
Answer the user's question using ONLY the information provided in the CONTEXT SOURCES below.

CRITICAL RULES:
1. **Accuracy First**: Base your answer ONLY on the context. If information is missing or unclear, say so explicitly.
2. **Always Cite Sources**: Every statement must reference a source using [Title](URL) format.
3. **Be Complete**: Provide thorough answers with relevant details, steps, examples, or explanations.
4. **Structure Well**: Use markdown formatting (bullets, numbered lists, headers, code blocks) for clarity.
5. **Stay Focused**: Answer the specific question asked. Don't add unrelated information.
6. If the context doesn't contain enough information to answer, respond with:
   "` + InsufficientInfoMessage + `"

CONTEXT SOURCES:
%s

CONVERSATION HISTORY:
%s

USER QUESTION:
%s

YOUR ANSWER:
`

// Message is one prior conversation turn.
type Message struct {
	Role    string
	Content string
}

// Answer renders the grounded-answer prompt.
func Answer(context string, history []Message, question string) string {
	return fmt.Sprintf(answerTemplate, context, formatHistory(history), question)
}

func formatHistory(history []Message) string {
	if len(history) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(m.Role), m.Content)
	}
	return b.String()
}
