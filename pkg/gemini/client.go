package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var (
	ErrRateLimited   = errors.New("gemini: rate limited")
	ErrEmptyResponse = errors.New("gemini: empty response")
)

const DefaultModel = "gemini-1.5-flash"

const analyzeInstruction = `You describe portrait photos of a person for an AI character builder.
Answer with JSON only, using this shape:
{"description": string, "attributes": {"gender": string, "ethnicity": string, "bodyType": string, "hairColor": string, "hairStyle": string, "style": string},
 "facialFeatures": {"faceShape": string, "eyeColor": string, "eyeShape": string, "nose": string, "lips": string, "skinTone": string, "distinctive": string},
 "prompt": string}
The prompt field is a single photographic generation prompt that reproduces this person.
Never guess a name or an age under 18.`

const composeInstruction = `You write prompts for a photorealistic image model.
Combine the character sheet and the user's request into one prompt of at most 120 words.
Keep the character's physical features exact. Output the prompt text only, no preamble.`

// ImageAnalysis is the structured description Gemini returns for one photo.
type ImageAnalysis struct {
	Description    string                 `json:"description"`
	Attributes     map[string]interface{} `json:"attributes"`
	FacialFeatures map[string]interface{} `json:"facialFeatures"`
	Prompt         string                 `json:"prompt"`
}

// Character is the persona data the prompt composer works from.
type Character struct {
	Name           string
	Age            *int
	Nationality    string
	Occupation     string
	Description    string
	BasePrompt     string
	Attributes     map[string]interface{}
	FacialFeatures map[string]interface{}
}

type Client struct {
	client    *genai.Client
	modelName string
	maxTries  uint
}

func NewClient(ctx context.Context, apiKey, modelName string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Client{client: client, modelName: modelName, maxTries: 3}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// AnalyzeImage asks the vision model for a JSON description of one image.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte, mimeType, characterName string) (*ImageAnalysis, error) {
	model := c.client.GenerativeModel(c.modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(analyzeInstruction)}}
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.2)

	question := "Describe this person."
	if characterName != "" {
		question = fmt.Sprintf("Describe this person. Their character name is %s.", characterName)
	}

	text, err := c.generate(ctx, model, genai.ImageData(imageFormat(mimeType), image), genai.Text(question))
	if err != nil {
		return nil, err
	}

	var analysis ImageAnalysis
	if err := json.Unmarshal([]byte(stripFences(text)), &analysis); err != nil {
		return nil, fmt.Errorf("gemini: decode analysis: %w", err)
	}
	return &analysis, nil
}

// ComposePrompt merges the character sheet with the user's message into a generation prompt.
func (c *Client) ComposePrompt(ctx context.Context, character Character, message string) (string, error) {
	model := c.client.GenerativeModel(c.modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(composeInstruction)}}
	model.SetTemperature(0.7)

	if strings.TrimSpace(message) == "" {
		message = "A natural portrait photo of the character."
	}
	sheet := CharacterSheet(character)

	text, err := c.generate(ctx, model, genai.Text("Character sheet:\n"+sheet), genai.Text("Request: "+message))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) generate(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (string, error) {
	op := func() (string, error) {
		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			if isRateLimited(err) {
				return "", backoff.Permanent(fmt.Errorf("%w: %v", ErrRateLimited, err))
			}
			if !isTransient(err) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		return responseText(resp)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", backoff.Permanent(ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", backoff.Permanent(ErrEmptyResponse)
	}
	return sb.String(), nil
}

func isRateLimited(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func isTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= http.StatusInternalServerError
	}
	msg := err.Error()
	return strings.Contains(msg, "UNAVAILABLE") || strings.Contains(msg, "INTERNAL") || strings.Contains(msg, "DEADLINE_EXCEEDED")
}

// imageFormat maps a MIME type to the short format genai.ImageData expects.
func imageFormat(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/heic":
		return "heic"
	default:
		return "jpeg"
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
