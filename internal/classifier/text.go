package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"postguard/internal/cache"
	"postguard/internal/models"
	"postguard/internal/observability"
	"postguard/internal/ratelimit"

	"resty.dev/v3"
)

const textAnalyzePath = "/v1/text:analyze"

// bannedCategoryKeywords flags returned classification categories by
// case-insensitive substring match.
var bannedCategoryKeywords = []string{
	"adult", "violence", "hate", "expletive", "drug", "crime", "spam", "scam",
}

// negative sentiment is only a rejection reason when it is both strong and
// emphatic, matching the moderation policy thresholds.
const (
	sentimentScoreThreshold     = -0.5
	sentimentMagnitudeThreshold = 1.5
)

type textSentiment struct {
	Score     float64 `json:"score"`
	Magnitude float64 `json:"magnitude"`
}

type textCategory struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type textAnalysis struct {
	Sentiment  textSentiment  `json:"sentiment"`
	Categories []textCategory `json:"categories"`
}

// TextClassifier calls the external sentiment/category service. All calls
// pass through the shared rate limiter.
type TextClassifier struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// NewTextClassifier returns a text classifier adapter for the backend at
// baseURL.
func NewTextClassifier(baseURL, apiKey string, limiter *ratelimit.Limiter) *TextClassifier {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second)
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	return &TextClassifier{client: client, limiter: limiter}
}

// Close releases the underlying HTTP client.
func (c *TextClassifier) Close() error {
	return c.client.Close()
}

// ClassifyText returns a safety verdict for the given text. Empty text is
// always safe and makes no network call. Backend failures surface as
// CLASSIFIER_UNAVAILABLE so the caller can abort without partial writes.
func (c *TextClassifier) ClassifyText(ctx context.Context, text string) (TextVerdict, error) {
	if strings.TrimSpace(text) == "" {
		return TextVerdict{Safe: true}, nil
	}

	key := cache.TextVerdictKey(text)
	var cached TextVerdict
	if cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return TextVerdict{}, models.NewClassifierUnavailableError("text", err)
	}

	start := time.Now()
	res, err := c.client.R().
		WithContext(ctx).
		SetBody(map[string]string{"text": text}).
		SetResult(&textAnalysis{}).
		Post(textAnalyzePath)
	observability.ClassifierLatency.WithLabelValues("text").Observe(time.Since(start).Seconds())

	if err != nil {
		observability.ClassifierCalls.WithLabelValues("text", "error").Inc()
		return TextVerdict{}, models.NewClassifierUnavailableError("text", err)
	}
	if res.IsError() {
		observability.ClassifierCalls.WithLabelValues("text", "error").Inc()
		if res.StatusCode() >= 400 && res.StatusCode() < 500 {
			return TextVerdict{}, models.NewMalformedContentError(
				fmt.Sprintf("text rejected by classifier backend (status %d)", res.StatusCode()))
		}
		return TextVerdict{}, models.NewClassifierUnavailableError("text",
			fmt.Errorf("backend returned status %d", res.StatusCode()))
	}

	verdict := evaluateTextAnalysis(res.Result().(*textAnalysis))
	if verdict.Safe {
		observability.ClassifierCalls.WithLabelValues("text", "safe").Inc()
	} else {
		observability.ClassifierCalls.WithLabelValues("text", "unsafe").Inc()
	}
	cache.SetJSON(ctx, key, verdict, cache.VerdictTTL)
	return verdict, nil
}

func evaluateTextAnalysis(a *textAnalysis) TextVerdict {
	var reasons []string
	if a.Sentiment.Score < sentimentScoreThreshold && a.Sentiment.Magnitude > sentimentMagnitudeThreshold {
		reasons = append(reasons, fmt.Sprintf("Negative sentiment (%.2f)", a.Sentiment.Score))
	}
	for _, cat := range a.Categories {
		low := strings.ToLower(cat.Name)
		for _, kw := range bannedCategoryKeywords {
			if strings.Contains(low, kw) {
				reasons = append(reasons, "Category: "+cat.Name)
				break
			}
		}
	}
	return TextVerdict{Safe: len(reasons) == 0, Reasons: reasons}
}
