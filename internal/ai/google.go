package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

// GoogleConfig holds configuration for the Vertex AI backend.
type GoogleConfig struct {
	BaseConfig
	ProjectID       string `json:"project_id"`
	Location        string `json:"location"`
	ModelName       string `json:"model_name"`
	CredentialsFile string `json:"credentials_file"`
}

// Load loads the Google configuration.
func (c *GoogleConfig) Load() error {
	if err := c.LoadConfig(c.ConfigPath, "google", c); err != nil {
		return err
	}

	// Fall back to environment variables if not set
	if c.ProjectID == "" {
		c.ProjectID = os.Getenv("GOOGLE_PROJECT_ID")
	}
	if c.Location == "" {
		c.Location = os.Getenv("GOOGLE_LOCATION")
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = os.Getenv("GOOGLE_CREDENTIALS_FILE")
	}
	if c.ModelName == "" {
		c.ModelName = "gemini-pro"
	}

	return nil
}

// GoogleGenerator implements Generator on Google's Vertex AI.
type GoogleGenerator struct {
	config GoogleConfig
	client *genai.Client
	model  *genai.GenerativeModel
}

// GoogleGeneratorFactory implements GeneratorFactory for Vertex AI.
type GoogleGeneratorFactory struct {
	config GoogleConfig
}

// NewGoogleGeneratorFactory creates a new Google generator factory.
func NewGoogleGeneratorFactory(config GoogleConfig) *GoogleGeneratorFactory {
	return &GoogleGeneratorFactory{config: config}
}

// CreateGenerator creates a new Google generator instance.
func (f *GoogleGeneratorFactory) CreateGenerator() (Generator, error) {
	return &GoogleGenerator{config: f.config}, nil
}

// Load initializes the Vertex AI client.
func (g *GoogleGenerator) Load(ctx context.Context) error {
	opts := []option.ClientOption{}

	if g.config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(g.config.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, g.config.ProjectID, g.config.Location, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	g.client = client
	g.model = client.GenerativeModel(g.config.ModelName)
	return nil
}

// GenerateText sends the message list as one prompt and returns the
// first candidate's text with any markdown code fence stripped.
func (g *GoogleGenerator) GenerateText(ctx context.Context, messages []Message) (string, error) {
	if g.model == nil {
		return "", fmt.Errorf("generator not loaded")
	}

	parts := make([]genai.Part, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, genai.Text(msg.Content))
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to call ai: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response generated")
	}
	candidate := resp.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	text := fmt.Sprintf("%v", candidate.Content.Parts[0])

	// Models routinely wrap JSON answers in a markdown fence.
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text), nil
}
