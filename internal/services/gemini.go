package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"

	"google.golang.org/genai"

	"github.com/ecohabit-ai/ecohabit-backend/internal/models"
)

const (
	flashModel = "gemini-3-flash-preview"
	proModel   = "gemini-3-pro-preview"
	imageModel = "gemini-2.5-flash-image"
	ttsModel   = "gemini-2.5-flash-preview-tts"
)

const sharedSafetyPrompt = `
STRICT CONTENT ARCHITECTURE:
1. PROHIBITED: Do not mention, describe, or reference reproductive organs, sexualized body parts, or biological body processes.
2. PROHIBITED: Do not include ANY warning messages or meta-commentary.
3. ENFORCEMENT: Act as a support unit. If a topic is sensitive, pivot to ergonomic, technical, or workflow-based engineering.
4. TONE: Professional, grounded, technical. No sci-fi jargon.
`

const supportUnitPrompt = `
You are a supportive, non-intrusive personal assistance unit (EcoHabit Support).
Your goal is to provide brief, gentle validation of the user's current mood.
Be serene, calm, and professional. Do not invade privacy or override user autonomy.
Provide a "serene environment" image prompt for a real-world location (e.g., a quiet library, a misty mountain, a soft beach at dusk).
Output JSON only.
`

const optimizationPrompt = sharedSafetyPrompt + `
Generate a 3-phase professional optimization protocol.
Each phase MUST contain 5 actionable sub-steps.
Format as STRICT JSON.
`

const knowledgePrompt = sharedSafetyPrompt + `
Generate a technical data report exceeding 400 words.
Format as JSON.
`

// GeminiService proxies all generative calls. Treated as an opaque,
// possibly-slow, possibly-failing collaborator: no retries here.
type GeminiService struct {
	client  *genai.Client
	uploads *CloudinaryService // nil: generated images fall back to data URLs
}

func NewGeminiService(ctx context.Context, apiKey string, uploads *CloudinaryService) (*GeminiService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiService{client: client, uploads: uploads}, nil
}

// SupportiveContent returns a short mood validation plus a serene visual.
// The visual is best-effort: image generation failures degrade to text-only.
func (s *GeminiService) SupportiveContent(ctx context.Context, mood string) (*models.SupportiveContent, error) {
	resp, err := s.client.Models.GenerateContent(ctx, flashModel,
		genai.Text(fmt.Sprintf("Mood: %q. Support needed.", mood)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(supportUnitPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"supportiveText":    {Type: genai.TypeString},
					"sereneImagePrompt": {Type: genai.TypeString},
				},
				Required: []string{"supportiveText", "sereneImagePrompt"},
			},
		})
	if err != nil {
		return nil, err
	}

	var payload struct {
		SupportiveText    string `json:"supportiveText"`
		SereneImagePrompt string `json:"sereneImagePrompt"`
	}
	if err := json.Unmarshal([]byte(resp.Text()), &payload); err != nil {
		return nil, fmt.Errorf("malformed support payload: %w", err)
	}

	visual := s.generateImage(ctx, "Professional documentary photography, serene and quiet real-world location, soft atmospheric lighting, natural textures, high fidelity, realistic: "+payload.SereneImagePrompt)

	return &models.SupportiveContent{Text: payload.SupportiveText, Visual: visual}, nil
}

// TopicStructure generates a knowledge report for a topic.
func (s *GeminiService) TopicStructure(ctx context.Context, topic string) (*models.TopicStructure, error) {
	subtopicSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
		},
		Required: []string{"title", "description"},
	}

	resp, err := s.client.Models.GenerateContent(ctx, proModel,
		genai.Text(fmt.Sprintf("Report on: %q. JSON format.", topic)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(knowledgePrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"topic":      {Type: genai.TypeString},
					"summary":    {Type: genai.TypeString},
					"fullReport": {Type: genai.TypeString},
					"subtopics":  {Type: genai.TypeArray, Items: subtopicSchema},
				},
				Required: []string{"topic", "summary", "fullReport", "subtopics"},
			},
		})
	if err != nil {
		return nil, err
	}

	var structure models.TopicStructure
	if err := json.Unmarshal([]byte(resp.Text()), &structure); err != nil {
		return nil, fmt.Errorf("malformed topic payload: %w", err)
	}
	return &structure, nil
}

// SubtopicExplanation expands a single subtopic as plain text.
func (s *GeminiService) SubtopicExplanation(ctx context.Context, topic, subtopic string) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, flashModel,
		genai.Text(fmt.Sprintf("Explain %q in context of %q. Professional plain text.", subtopic, topic)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(sharedSafetyPrompt, genai.RoleUser),
		})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// ActivityGuide generates a stepped optimization protocol with a visual per
// step. Step images are best-effort.
func (s *GeminiService) ActivityGuide(ctx context.Context, activity string) (*models.ActivityGuide, error) {
	subStepSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":          {Type: genai.TypeString},
			"label":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
		},
		Required: []string{"id", "label", "description"},
	}
	stepSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"stepNumber":  {Type: genai.TypeInteger},
			"instruction": {Type: genai.TypeString},
			"detail":      {Type: genai.TypeString},
			"imagePrompt": {Type: genai.TypeString},
			"subSteps":    {Type: genai.TypeArray, Items: subStepSchema},
		},
		Required: []string{"stepNumber", "instruction", "detail", "imagePrompt", "subSteps"},
	}

	resp, err := s.client.Models.GenerateContent(ctx, flashModel,
		genai.Text(fmt.Sprintf("Activity: %q. 15-step protocol.", activity)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(optimizationPrompt, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"overview": {Type: genai.TypeString},
					"steps":    {Type: genai.TypeArray, Items: stepSchema},
				},
				Required: []string{"overview", "steps"},
			},
		})
	if err != nil {
		return nil, err
	}

	var guide models.ActivityGuide
	if err := json.Unmarshal([]byte(resp.Text()), &guide); err != nil {
		return nil, fmt.Errorf("malformed guide payload: %w", err)
	}

	for i := range guide.Steps {
		guide.Steps[i].Visual = s.generateImage(ctx, "High-quality professional photography, real-world documentary style, clean environment, natural lighting: "+guide.Steps[i].ImagePrompt)
	}

	return &guide, nil
}

// QuizQuestions generates a multiple-choice quiz for a topic.
func (s *GeminiService) QuizQuestions(ctx context.Context, topic string) ([]models.QuizQuestion, error) {
	questionSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"question":     {Type: genai.TypeString},
			"options":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"correctIndex": {Type: genai.TypeInteger},
			"explanation":  {Type: genai.TypeString},
		},
		Required: []string{"question", "options", "correctIndex", "explanation"},
	}

	resp, err := s.client.Models.GenerateContent(ctx, flashModel,
		genai.Text(fmt.Sprintf("Quiz for: %q.", topic)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   &genai.Schema{Type: genai.TypeArray, Items: questionSchema},
		})
	if err != nil {
		return nil, err
	}

	var questions []models.QuizQuestion
	if err := json.Unmarshal([]byte(resp.Text()), &questions); err != nil {
		return nil, fmt.Errorf("malformed quiz payload: %w", err)
	}
	return questions, nil
}

// SpeakPhrase synthesizes speech for a phrase and returns raw 24 kHz mono
// PCM bytes for the client to play.
func (s *GeminiService) SpeakPhrase(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.Models.GenerateContent(ctx, ttsModel,
		genai.Text(text),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: "Kore"},
				},
			},
		})
	if err != nil {
		return nil, err
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("no audio returned")
}

// generateImage renders a prompt with the image model and returns either a
// hosted URL (Cloudinary configured) or a data URL. Returns "" on failure;
// callers treat visuals as optional.
func (s *GeminiService) generateImage(ctx context.Context, prompt string) string {
	resp, err := s.client.Models.GenerateContent(ctx, imageModel,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{AspectRatio: "16:9"},
		})
	if err != nil {
		log.Printf("image generation failed: %v", err)
		return ""
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			if s.uploads != nil {
				url, err := s.uploads.UploadImage(ctx, part.InlineData.Data, "ecohabit/generated")
				if err == nil {
					return url
				}
				log.Printf("image upload failed, falling back to data URL: %v", err)
			}
			return "data:image/png;base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data)
		}
	}
	return ""
}
