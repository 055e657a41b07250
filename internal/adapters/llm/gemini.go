package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/PabloGalante/solace-api/internal/domain"
)

// GeminiConfig selects the backend: an API key uses the Gemini API, otherwise
// Vertex AI is used with Project and Location.
type GeminiConfig struct {
	APIKey    string
	Project   string
	Location  string
	ModelName string
}

// GeminiGateway implements domain.ModelGateway on top of genai chats.
type GeminiGateway struct {
	client    *genai.Client
	modelName string
	genConfig *genai.GenerateContentConfig

	mu    sync.RWMutex
	chats map[domain.ConversationHandle]*genai.Chat
}

// NewGeminiGateway creates a gateway backed by Gemini.
func NewGeminiGateway(ctx context.Context, cfg GeminiConfig) (*GeminiGateway, error) {
	clientCfg := &genai.ClientConfig{}
	switch {
	case cfg.APIKey != "":
		clientCfg.APIKey = cfg.APIKey
		clientCfg.Backend = genai.BackendGeminiAPI
	case cfg.Project != "" && cfg.Location != "":
		clientCfg.Project = cfg.Project
		clientCfg.Location = cfg.Location
		clientCfg.Backend = genai.BackendVertexAI
	default:
		return nil, fmt.Errorf("gemini: either an API key or project and location must be set")
	}

	modelName := cfg.ModelName
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return newGeminiGateway(client, modelName), nil
}

func newGeminiGateway(client *genai.Client, modelName string) *GeminiGateway {
	// Model config (without genai.Ptr to avoid generic issues)
	temp := float32(0.7)
	topP := float32(0.9)

	return &GeminiGateway{
		client:    client,
		modelName: modelName,
		genConfig: &genai.GenerateContentConfig{
			Temperature:     &temp,
			TopP:            &topP,
			MaxOutputTokens: int32(8192),
		},
		chats: make(map[domain.ConversationHandle]*genai.Chat),
	}
}

// OpenConversation creates a new chat on the provider and returns its handle.
func (g *GeminiGateway) OpenConversation(ctx context.Context) (domain.ConversationHandle, error) {
	chat, err := g.client.Chats.Create(ctx, g.modelName, g.genConfig, nil)
	if err != nil {
		return "", domain.UpstreamError("gemini create chat", err)
	}

	handle := domain.ConversationHandle(uuid.NewString())

	g.mu.Lock()
	g.chats[handle] = chat
	g.mu.Unlock()

	return handle, nil
}

// Send sends text on the chat behind handle and returns the reply text.
func (g *GeminiGateway) Send(ctx context.Context, handle domain.ConversationHandle, text string) (string, error) {
	g.mu.RLock()
	chat, ok := g.chats[handle]
	g.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("conversation %q: %w", handle, domain.ErrSessionNotFound)
	}

	res, err := chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", domain.UpstreamError("gemini send message", err)
	}
	return replyText(res)
}

// GenerateOnce runs a single stateless turn.
func (g *GeminiGateway) GenerateOnce(ctx context.Context, text string) (string, error) {
	res, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(text), g.genConfig)
	if err != nil {
		return "", domain.UpstreamError("gemini generate content", err)
	}
	return replyText(res)
}

// CloseConversation drops the local chat state. The provider keeps no
// server-side session for chats, so nothing is sent upstream.
func (g *GeminiGateway) CloseConversation(_ context.Context, handle domain.ConversationHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.chats[handle]; !ok {
		return fmt.Errorf("conversation %q: %w", handle, domain.ErrSessionNotFound)
	}
	delete(g.chats, handle)
	return nil
}

// EXTRACT ONLY THE TEXT, do not pass the structs around
func replyText(res *genai.GenerateContentResponse) (string, error) {
	if res == nil {
		return "", domain.UpstreamError("gemini response", errors.New("nil response"))
	}
	text := res.Text()
	if text == "" {
		return "", domain.UpstreamError("gemini response", errors.New("empty text"))
	}
	return text, nil
}
