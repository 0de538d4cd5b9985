// services/prediction_service.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

// Prediction is the structured result shown next to the queue status.
type Prediction struct {
	Explanation  string `json:"explanation"`
	OptimizedTip string `json:"optimizedTip"`
}

// Fallbacks returned whenever the generative API misbehaves in any way.
// Prediction failures are never surfaced to the caller.
var fallbackPrediction = Prediction{
	Explanation:  "Wait times are currently fluctuating.",
	OptimizedTip: "We suggest staying close as your turn might come sooner than expected.",
}

const fallbackAnalytics = "Staff allocation looks optimal for current traffic."

// PredictionService talks to a hosted generative-language API. The base URL
// is configurable so tests can point it at a local fake.
type PredictionService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewPredictionService() *PredictionService {
	baseURL := os.Getenv("GENAI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := os.Getenv("GENAI_MODEL")
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &PredictionService{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		apiKey:  os.Getenv("GENAI_API_KEY"),
		model:   model,
	}
}

// NewPredictionServiceWithClient is used by tests.
func NewPredictionServiceWithClient(client *http.Client, baseURL, apiKey, model string) *PredictionService {
	return &PredictionService{client: client, baseURL: baseURL, apiKey: apiKey, model: model}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// WaitTime asks the model for a friendly wait estimate and a tip. On any
// failure it returns the fixed fallback pair and never an error.
func (p *PredictionService) WaitTime(serviceName string, queueLength, avgMinutes int) Prediction {
	prompt := fmt.Sprintf(
		`Predict wait time and give a smart tip for a queue of %d people for %q (avg %d mins/person). Respond as JSON with keys "explanation" and "optimizedTip".`,
		queueLength, serviceName, avgMinutes)

	text, err := p.generate(prompt, true)
	if err != nil {
		log.Printf("Prediction API error: %v", err)
		return fallbackPrediction
	}

	var prediction Prediction
	if err := json.Unmarshal([]byte(text), &prediction); err != nil ||
		prediction.Explanation == "" || prediction.OptimizedTip == "" {
		log.Printf("Prediction API returned unusable payload")
		return fallbackPrediction
	}
	return prediction
}

// AdminAnalytics asks for a staffing suggestion given a queue summary.
func (p *PredictionService) AdminAnalytics(queueSummary interface{}) string {
	data, err := json.Marshal(queueSummary)
	if err != nil {
		return fallbackAnalytics
	}

	prompt := fmt.Sprintf(
		"Analyze this queue data and provide a brief strategic suggestion for staff allocation to reduce wait times: %s", data)

	text, err := p.generate(prompt, false)
	if err != nil || text == "" {
		return fallbackAnalytics
	}
	return text
}

func (p *PredictionService) generate(prompt string, jsonMode bool) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	if jsonMode {
		reqBody.GenerationConfig = &generationConfig{ResponseMimeType: "application/json"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	resp, err := p.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
