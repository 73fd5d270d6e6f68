package splitter

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/turtacn/MedRecord-NER/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedRecord-NER/pkg/errors"
)

// ErrNotConfigured is returned by an LLM splitter without an API key.
var ErrNotConfigured = errors.New(errors.ErrCodeSplitterFailed, "patient splitter has no API key")

// ChatClient is the part of the go-openai client the splitter uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMConfig addresses an OpenAI-compatible chat completion endpoint.  The
// default points at Gemini's compatibility layer.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// LLM asks a chat model to rewrite the text as one block per patient and
// parses the blocks with ParseSegments.
type LLM struct {
	cfg    LLMConfig
	client ChatClient
	logger logging.Logger
}

// NewLLM builds a splitter over the go-openai client.
func NewLLM(cfg LLMConfig, logger logging.Logger) *LLM {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	l := &LLM{cfg: cfg, logger: logger.Named("splitter.llm")}
	if cfg.APIKey != "" {
		l.client = newChatClient(cfg)
	}
	return l
}

// NewLLMWithClient builds a splitter over an existing client.
func NewLLMWithClient(cfg LLMConfig, client ChatClient, logger logging.Logger) *LLM {
	l := NewLLM(LLMConfig{BaseURL: cfg.BaseURL, Model: cfg.Model, Temperature: cfg.Temperature, Timeout: cfg.Timeout}, logger)
	l.cfg.APIKey = cfg.APIKey
	l.client = client
	return l
}

func newChatClient(cfg LLMConfig) ChatClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return openai.NewClientWithConfig(oc)
}

func (l *LLM) Name() string { return ProviderLLM }

// Configured reports whether the splitter can call the model.
func (l *LLM) Configured() bool { return l.client != nil }

// WithAPIKey returns a copy of l that authenticates with key.  An empty key
// returns l itself.
func (l *LLM) WithAPIKey(key string) *LLM {
	if key == "" || key == l.cfg.APIKey {
		return l
	}
	cfg := l.cfg
	cfg.APIKey = key
	return &LLM{cfg: cfg, client: newChatClient(cfg), logger: l.logger}
}

// Split sends the segmentation prompt and parses the reply.
func (l *LLM) Split(ctx context.Context, text string) ([]string, error) {
	if l.client == nil {
		return nil, ErrNotConfigured
	}
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.cfg.Model,
		Temperature: l.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(text)},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if stderrors.As(err, &apiErr) {
			return nil, errors.Wrap(err, errors.ErrCodeSplitterFailed, "splitter model rejected the request").
				WithDetail(fmt.Sprintf("HTTP %d", apiErr.HTTPStatusCode))
		}
		return nil, errors.Wrap(err, errors.ErrCodeSplitterFailed, "splitter model call failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(errors.ErrCodeSplitterFailed, "splitter model returned no choices")
	}

	segments := ParseSegments(resp.Choices[0].Message.Content)
	l.logger.Debug("llm split completed",
		logging.String("model", l.cfg.Model),
		logging.Int("segments", len(segments)),
		logging.Int("total_tokens", resp.Usage.TotalTokens))
	return segments, nil
}

// BuildPrompt renders the segmentation instructions around text.
func BuildPrompt(text string) string {
	return promptHead + text + promptTail
}

const promptHead = `Nhiệm vụ: Phân tích văn bản sau và tách thành các đoạn văn bản riêng biệt, trong đó MỖI ĐOẠN chỉ chứa thông tin về MỘT bệnh nhân duy nhất.

Hướng dẫn:
1. Đọc kỹ văn bản và xác định có bao nhiêu bệnh nhân được nhắc đến
2. Tách văn bản thành các đoạn, mỗi đoạn chỉ nói về 1 bệnh nhân
3. Mỗi đoạn nên bao gồm TẤT CẢ thông tin liên quan đến bệnh nhân đó (ID, tên, tuổi, giới tính, địa điểm, ngày tháng, triệu chứng, v.v.)
4. KHÔNG bịa thêm thông tin, chỉ trích xuất từ văn bản gốc
5. GIỮ NGUYÊN các con số, tên riêng, địa điểm, ngày tháng

Format trả về:
---PATIENT_1---
[Toàn bộ thông tin của bệnh nhân 1]
---END---

---PATIENT_2---
[Toàn bộ thông tin của bệnh nhân 2]
---END---

(Tiếp tục cho các bệnh nhân khác nếu có)

Văn bản cần phân tích:
`

const promptTail = `

Kết quả (chỉ trả về các đoạn đã tách, không giải thích):
`

//Personal.AI order the ending
