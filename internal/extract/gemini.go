// Package extract proposes metadata corrections from raw document text
// using the Gemini API.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/wgilpin/paperstore/internal/paper"
)

const prompt = "You are a research paper metadata extractor. " +
	"The following is text extracted from the first pages of a research paper PDF. " +
	"Return ONLY a valid JSON object with these keys:\n" +
	"  \"title\": string or null,\n" +
	"  \"authors\": array of strings (full names),\n" +
	"  \"date\": string in YYYY or YYYY-MM or YYYY-MM-DD format, or null,\n" +
	"  \"abstract\": string or null\n" +
	"Return nothing except the JSON object - no markdown, no explanation."

// Gemini implements paper.MetadataExtractor against the Gemini API.
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini builds a Gemini extractor.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &Gemini{client: client, modelName: modelName}, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Extract sends the document text to Gemini and returns the proposed
// metadata. Fields already present in current are passed along as hints.
// An unreachable model fails with ExtractionError; an unparseable
// response yields an empty proposal instead.
func (g *Gemini) Extract(ctx context.Context, text string, current paper.Metadata) (paper.Metadata, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompt)},
	}

	parts := []genai.Part{genai.Text(text)}
	if current.Title != "" {
		parts = append(parts, genai.Text("The paper is believed to be titled: "+current.Title))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return paper.Metadata{}, &paper.ExtractionError{Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return paper.Metadata{}, &paper.ExtractionError{Err: fmt.Errorf("empty response")}
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return ParseResponse(b.String()), nil
}
