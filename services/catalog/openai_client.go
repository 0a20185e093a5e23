package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"screenscout/models"
)

const openaiBaseURL = "https://api.openai.com/v1"

// similarTitleLimit caps the similar-title suggestions parsed from the model.
const similarTitleLimit = 3

// openaiClient generates spoiler-free overviews via the chat-completions API.
type openaiClient struct {
	apiKey      string
	model       string
	httpc       *http.Client
	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func newOpenAIClient(apiKey, model string, httpc *http.Client) *openaiClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &openaiClient{
		apiKey:      strings.TrimSpace(apiKey),
		model:       model,
		httpc:       httpc,
		minInterval: 100 * time.Millisecond,
	}
}

func (c *openaiClient) isConfigured() bool {
	return c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// overviewContext carries the metadata embedded in the generation prompt.
type overviewContext struct {
	Title    string
	Type     models.MediaType
	Year     string
	Runtime  *int
	Genres   []string
	Overview string
}

const overviewSystemPrompt = "You are a helpful assistant that provides concise, spoiler-free overviews of movies and TV shows. Never include spoilers and only use information provided in the context."

// buildOverviewPrompt renders the user prompt for one title. The response
// format is two labeled sections so the parser can stay a plain pattern match.
func buildOverviewPrompt(octx overviewContext) string {
	kind := "Movie"
	runtimeText := ""
	if octx.Type == models.MediaTypeTV {
		kind = "TV Show"
		runtimeText = "TV series"
	}
	if octx.Runtime != nil && *octx.Runtime > 0 {
		runtimeText = fmt.Sprintf("%d minutes", *octx.Runtime)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", octx.Title)
	fmt.Fprintf(&b, "Type: %s\n", kind)
	fmt.Fprintf(&b, "Year: %s\n", octx.Year)
	fmt.Fprintf(&b, "Runtime: %s\n", runtimeText)
	fmt.Fprintf(&b, "Genres: %s\n", strings.Join(octx.Genres, ", "))
	fmt.Fprintf(&b, "\nOriginal Overview:\n%s\n", octx.Overview)
	b.WriteString(`
Provide a 2-4 sentence overview that:
1. Is engaging and captures the essence of the title
2. Contains NO spoilers
3. Only uses information from the provided context (do not invent facts)
4. Is written in a natural, conversational tone
5. Is approximately 80-120 words

Then, suggest 3 similar titles that fans of this would enjoy, separated by commas.

Format your response as:
OVERVIEW: [your overview text]
SIMILAR: [title1, title2, title3]`)
	return b.String()
}

// generateOverview asks the model for a spoiler-free overview plus similar
// titles. Transient failures (429, 5xx, transport errors) are retried with
// backoff; other API errors abort immediately.
func (c *openaiClient) generateOverview(ctx context.Context, octx overviewContext) (*models.AIOverview, error) {
	if !c.isConfigured() {
		return nil, errors.New("openai api key not configured")
	}

	c.throttleMu.Lock()
	since := time.Since(c.lastRequest)
	if since < c.minInterval {
		time.Sleep(c.minInterval - since)
	}
	c.lastRequest = time.Now()
	c.throttleMu.Unlock()

	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: overviewSystemPrompt},
			{Role: "user", Content: buildOverviewPrompt(octx)},
		},
		Temperature: 0.7,
		MaxTokens:   300,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	var content string
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiBaseURL+"/chat/completions", bytes.NewReader(bodyBytes))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create openai request: %w", err))
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+c.apiKey)

			resp, err := c.httpc.Do(req)
			if err != nil {
				log.Printf("[openai] http error: %v", err)
				return fmt.Errorf("openai request: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				log.Printf("[openai] rate limited or server error: status %d", resp.StatusCode)
				return fmt.Errorf("openai request failed: status %d", resp.StatusCode)
			}
			if resp.StatusCode >= 400 {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return retry.Unrecoverable(fmt.Errorf("openai API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
			}

			var completion chatCompletionResponse
			if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode openai response: %w", err))
			}
			if completion.Error != nil {
				return retry.Unrecoverable(fmt.Errorf("openai API error: %s", completion.Error.Message))
			}
			if len(completion.Choices) == 0 {
				return retry.Unrecoverable(errors.New("openai returned empty response"))
			}
			content = completion.Choices[0].Message.Content
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	overview := parseOverviewResponse(content)
	if overview.OverviewText == "" {
		return nil, errors.New("openai returned no overview text")
	}
	return &overview, nil
}

// parseOverviewResponse splits the model output on its two labeled sections.
// The parser is deliberately lenient: when the SIMILAR label is absent the
// whole response is treated as overview text and the similar list stays empty.
func parseOverviewResponse(content string) models.AIOverview {
	overviewPart := content
	similarPart := ""
	if idx := strings.Index(content, "SIMILAR:"); idx >= 0 {
		overviewPart = content[:idx]
		similarPart = content[idx+len("SIMILAR:"):]
	}

	overviewPart = strings.TrimSpace(overviewPart)
	overviewPart = strings.TrimSpace(strings.TrimPrefix(overviewPart, "OVERVIEW:"))

	similarTitles := []string{}
	for _, part := range strings.Split(similarPart, ",") {
		title := strings.TrimSpace(part)
		if title == "" {
			continue
		}
		similarTitles = append(similarTitles, title)
		if len(similarTitles) == similarTitleLimit {
			break
		}
	}

	return models.AIOverview{
		OverviewText:  overviewPart,
		SimilarTitles: similarTitles,
	}
}
