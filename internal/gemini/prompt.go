package gemini

import (
	"fmt"

	"github.com/omnisearch/omnisearch/internal/session"
)

// categoryInstructions maps each domain category to the instruction injected
// into the model prompt. The table is fixed configuration; categories are not
// user-extensible.
var categoryInstructions = map[session.Category]string{
	session.CategoryGeneral:   "Provide a broad, general overview covering all aspects.",
	session.CategoryHealth:    "Strictly focus on healthcare, medical applications, clinical research papers, and health-tech. Prioritize medical accuracy.",
	session.CategoryEmotion:   "Strictly focus on sentiment analysis, emotional AI (Affective Computing), psychology papers, and human interactions.",
	session.CategoryBusiness:  "Strictly focus on enterprise solutions, financial models, business automation, and market ecosystem trends.",
	session.CategoryEducation: "Strictly focus on educational technology, learning analytics, tutoring systems, and pedagogical research.",
	session.CategoryCreative:  "Strictly focus on generative art, music, creative writing tools, and entertainment industry applications.",
}

// CategoryInstruction returns the instruction text for a category, falling
// back to the General instruction for anything unrecognized.
func CategoryInstruction(cat session.Category) string {
	if instr, ok := categoryInstructions[cat]; ok {
		return instr
	}
	return categoryInstructions[session.CategoryGeneral]
}

func applicationsHeader(cat session.Category) string {
	if cat == session.CategoryGeneral {
		return "Applications & Models"
	}
	return fmt.Sprintf("%s Applications & Tools", cat)
}

// BuildSearchPrompt assembles the grounded-search prompt. The model is
// required to structure its answer into three numbered ## sections so the
// partitioner can split it downstream.
func BuildSearchPrompt(query string, cat session.Category) string {
	return fmt.Sprintf(`You are an advanced AI Research Assistant. The user is searching for information related to: %q.

CONTEXT FILTER: %s

Your goal is to provide a comprehensive overview using Google Search data, specifically tailored to the %q domain.
You MUST structure your response into the following three distinct sections using Markdown Headers (##):

## 1. %s
List and describe specific LLMs or AI applications relevant to %s in the context of the query.

## 2. Research & Technical Papers
Identify relevant research papers, technical reports, or architectural concepts specifically within the %s field. Summarize key findings.

## 3. Ecosystem & News
Provide broader context, recent news, or community discussions related to the query within the %s sector.

Format the output in clean, readable Markdown. Use bullet points for lists.`,
		query, CategoryInstruction(cat), cat,
		applicationsHeader(cat), cat, cat, cat)
}

// BuildChatInstruction assembles the system instruction for chat turns.
// Chat answers stay conversational; the category filter applies to every
// subsequent turn without forcing the sectioned layout.
func BuildChatInstruction(cat session.Category) string {
	return fmt.Sprintf(`You are an advanced AI Research Assistant grounded in Google Search data.

CONTEXT FILTER: %s

Answer the user's questions conversationally in clean, readable Markdown, citing concrete applications, research, and ecosystem developments where relevant.`,
		CategoryInstruction(cat))
}
