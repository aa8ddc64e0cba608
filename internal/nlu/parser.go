package nlu

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/service"
)

// understandingJSON is the JSON document the model is instructed to return.
type understandingJSON struct {
	Candidates []struct {
		IntentID   string  `json:"intent_id"`
		Confidence float64 `json:"confidence"`
	} `json:"candidates"`
	Entities []struct {
		Type       string  `json:"type"`
		RawText    string  `json:"raw_text"`
		Value      string  `json:"value"`
		Confidence float64 `json:"confidence"`
	} `json:"entities"`
}

// cleanMarkdownWrapper strips code fences some models wrap around JSON output.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	// Some models prepend commentary despite instructions; recover by
	// slicing to the outermost JSON object.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}

	return strings.TrimSpace(content)
}

// parseUnderstanding converts raw model output into an UnderstandingResult.
// Confidences are clamped to [0,1]; entities with no type are dropped.
func parseUnderstanding(content string) (*service.UnderstandingResult, error) {
	content = cleanMarkdownWrapper(content)

	var doc understandingJSON
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse understanding JSON: %w", err)
	}

	if len(doc.Candidates) == 0 {
		return nil, fmt.Errorf("no intent candidates in response")
	}

	result := &service.UnderstandingResult{}
	for _, c := range doc.Candidates {
		if c.IntentID == "" {
			continue
		}
		result.Candidates = append(result.Candidates, model.IntentCandidate{
			IntentID:   c.IntentID,
			Confidence: clamp01(c.Confidence),
			Origin:     "service",
		})
	}

	for _, e := range doc.Entities {
		if e.Type == "" {
			continue
		}
		value := e.Value
		if value == "" {
			value = e.RawText
		}
		result.Entities = append(result.Entities, service.EntitySpan{
			Type:       model.EntityType(e.Type),
			RawText:    e.RawText,
			Value:      value,
			Confidence: clamp01(e.Confidence),
		})
	}

	if len(result.Candidates) == 0 {
		return nil, fmt.Errorf("no usable intent candidates in response")
	}

	return result, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
