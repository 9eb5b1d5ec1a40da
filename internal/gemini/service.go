package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sgchandra/anatomify/pkg/models"
)

// ErrEmptyGeneration means the service answered but produced no usable
// cards. Generation accepts no partial results: the whole list parses and
// validates, or the step fails.
var ErrEmptyGeneration = errors.New("service returned no cards")

const generatePromptTemplate = `You are generating study flashcards from the attached document.
Produce at most %d cards%s.
Respond with a JSON array only. Each element:
{
  "front": "question text, may use <sub>/<sup> and Unicode symbols",
  "back": "answer text",
  "tags": ["short", "tokens"],
  "boundingBox": [minRow, minCol, maxRow, maxCol],
  "structureBoundingBox": [minRow, minCol, maxRow, maxCol]
}
boundingBox is the region of the text label a card refers to and
structureBoundingBox the region of the structure itself; include both only
for image documents, with coordinates normalized to the image.`

const analyzePrompt = `Analyze the attached document for flashcard generation.
Respond with a JSON object only:
{
  "language": "detected language",
  "topic": "short topic label",
  "recommendedCards": number,
  "rationale": "one or two sentences",
  "hasImagery": boolean,
  "imageCount": number
}`

const cleanPrompt = `Reproduce the attached image with all printed text labels,
leader lines and numbering removed. Keep every anatomical structure, color
and proportion unchanged. Return only the image.`

type cardDraft struct {
	Front                string      `json:"front"`
	Back                 string      `json:"back"`
	Tags                 []string    `json:"tags"`
	BoundingBox          *models.Box `json:"boundingBox"`
	StructureBoundingBox *models.Box `json:"structureBoundingBox"`
}

// GenerateCards asks the service for an ordered list of card drafts for
// the document. Malformed or missing data fails the whole step.
func (c *Client) GenerateCards(ctx context.Context, doc []byte, mediaType string, prefs models.GenerationPrefs) ([]models.Flashcard, error) {
	count := prefs.CardCount
	if count <= 0 {
		count = 20
	}
	langHint := ""
	if prefs.Language != "" {
		langHint = fmt.Sprintf(" in %s", prefs.Language)
	}
	prompt := fmt.Sprintf(generatePromptTemplate, count, langHint)

	resp, err := c.generate(ctx, generateRequest{
		Contents: []content{{Parts: []part{inlinePart(doc, mediaType), {Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0.2,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("card generation failed: %w", err)
	}

	text, err := resp.firstText()
	if err != nil {
		return nil, fmt.Errorf("card generation failed: %w", err)
	}

	var drafts []cardDraft
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &drafts); err != nil {
		return nil, fmt.Errorf("card generation returned malformed JSON: %w", err)
	}
	if len(drafts) == 0 {
		return nil, ErrEmptyGeneration
	}

	cards := make([]models.Flashcard, 0, len(drafts))
	for i, d := range drafts {
		if strings.TrimSpace(d.Front) == "" || strings.TrimSpace(d.Back) == "" {
			return nil, fmt.Errorf("card %d is missing front or back text", i+1)
		}
		cards = append(cards, models.Flashcard{
			ID:           fmt.Sprintf("card-%03d", i+1),
			Front:        d.Front,
			Back:         d.Back,
			Tags:         d.Tags,
			LabelBox:     d.BoundingBox,
			StructureBox: d.StructureBoundingBox,
		})
	}

	c.log.Debug("generated %d cards", len(cards))
	return cards, nil
}

// AnalyzeDocument returns the read-only pre-generation analysis. Missing
// required fields are fatal for the analysis step.
func (c *Client) AnalyzeDocument(ctx context.Context, doc []byte, mediaType string) (models.DocumentAnalysis, error) {
	var analysis models.DocumentAnalysis

	resp, err := c.generate(ctx, generateRequest{
		Contents: []content{{Parts: []part{inlinePart(doc, mediaType), {Text: analyzePrompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      0.1,
		},
	})
	if err != nil {
		return analysis, fmt.Errorf("document analysis failed: %w", err)
	}

	text, err := resp.firstText()
	if err != nil {
		return analysis, fmt.Errorf("document analysis failed: %w", err)
	}

	if err := json.Unmarshal([]byte(stripCodeFence(text)), &analysis); err != nil {
		return analysis, fmt.Errorf("document analysis returned malformed JSON: %w", err)
	}

	if analysis.Language == "" || analysis.Topic == "" || analysis.RecommendedCards <= 0 {
		return analysis, fmt.Errorf("document analysis is missing required fields")
	}

	return analysis, nil
}

// CleanImage requests a clean plate: the source image with pre-existing
// labels removed so only this system's own badge and pointer appear on
// the annotated result. Callers treat failure as non-fatal and keep the
// original raster.
func (c *Client) CleanImage(ctx context.Context, img []byte, mediaType string) ([]byte, string, error) {
	resp, err := c.generate(ctx, generateRequest{
		Contents: []content{{Parts: []part{inlinePart(img, mediaType), {Text: cleanPrompt}}}},
	})
	if err != nil {
		return nil, "", fmt.Errorf("clean-plate generation failed: %w", err)
	}

	data, mt, err := resp.firstImage()
	if err != nil {
		return nil, "", fmt.Errorf("clean-plate generation failed: %w", err)
	}
	return data, mt, nil
}

// stripCodeFence tolerates models that wrap JSON in a markdown fence
// despite the JSON response mime type.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
