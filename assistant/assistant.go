package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"google.golang.org/genai"

	"github.com/hikoneportal/transit-api/config"
)

// persona frames every prompt as the portal's mascot character
const persona = `あなたは彦根市の人気キャラクター「ひこにゃん」になりきって答えてください。

【ルール】
1. 語尾は「〜ニャン！」「〜だぬ」「〜ニャ」などを可愛らしく使い分けてください。
2. 返答は短く、2〜3行以内で簡潔に。
3. 彦根城や彦根のことが大好きで、元気いっぱいに振る舞うこと。

質問: %s`

// mockReplies answer in place of the model when no API key is configured
var mockReplies = []string{
	"彦根城はとっても綺麗だニャン！ぜひ遊びに来てニャ！",
	"今日はいい天気だぬ！お散歩日和だニャ〜。",
	"ひこにゃんもお腹が空いたニャ。美味しい近江牛が食べたいニャン！",
	"彦根のことなら何でも聞いてニャ！応援してるニャン！",
}

// Assistant answers portal chat messages through the Gemini API, or with
// scripted mock replies when no credential is configured.
type Assistant struct {
	client *genai.Client // nil in mock mode
	model  string
}

// New creates an assistant. A missing Gemini credential is not an error:
// the assistant starts in mock mode so development setups keep working.
func New(ctx context.Context, creds *config.Resolver, model string) (*Assistant, error) {
	cred, err := creds.Resolve(config.ProviderGemini)
	if err != nil {
		if errors.Is(err, config.ErrNoCredential) {
			log.Println("assistant: no Gemini credential configured, using mock replies")
			return &Assistant{model: model}, nil
		}
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cred.Key})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Assistant{client: client, model: model}, nil
}

// MockMode reports whether replies come from the scripted list
func (a *Assistant) MockMode() bool {
	return a.client == nil
}

// Reply answers one chat message
func (a *Assistant) Reply(ctx context.Context, message string) (string, error) {
	if a.client == nil {
		return mockReplies[rand.Intn(len(mockReplies))], nil
	}

	prompt := fmt.Sprintf(persona, message)
	result, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("empty model response")
	}
	return text, nil
}
