package knowledge

import (
	"encoding/json"
	"fmt"
	"strings"

	"artivox/internal/domain"
)

const extractionSystemPrompt = `You are a knowledge extraction expert. Process the given article and extract:
1. A concise summary (2-3 sentences)
2. Key points and important facts (5-10 bullet points)
3. Main topics covered (3-5 topics)
4. Conversational context (what someone should know to discuss this article)

Return the result as a JSON object with keys: summary, key_points, topics, context`

// formatArticle renders the extraction payload: metadata header lines for
// whichever fields are present, then a blank line and the body text.
func formatArticle(article *domain.ArticleRecord) string {
	var parts []string

	if article.Title != "" {
		parts = append(parts, "Title: "+article.Title)
	}
	if article.Author != "" {
		parts = append(parts, "Author: "+article.Author)
	}
	if article.PublishedDate != "" {
		parts = append(parts, "Date: "+article.PublishedDate)
	}

	parts = append(parts, "", "Article Content:", article.Text)
	return strings.Join(parts, "\n")
}

// extraction mirrors the JSON document the model is asked to return.
type extraction struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Topics    []string `json:"topics"`
	Context   string   `json:"context"`
}

// parseExtraction decodes the model response. Missing fields default to
// empty values; a response that is not a JSON object of the expected shape
// is an error.
func parseExtraction(content string) (*extraction, error) {
	payload := extractJSONObject(content)
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var ext extraction
	if err := json.Unmarshal([]byte(payload), &ext); err != nil {
		return nil, fmt.Errorf("malformed extraction payload: %w", err)
	}

	if ext.KeyPoints == nil {
		ext.KeyPoints = []string{}
	}
	if ext.Topics == nil {
		ext.Topics = []string{}
	}
	return &ext, nil
}

// extractJSONObject returns the outermost JSON object in s. Models
// occasionally wrap structured output in markdown fences even when a JSON
// response format was requested.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
