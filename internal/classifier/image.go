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

const imageSafeSearchPath = "/v1/images:safeSearch"

// safeSearchCategories are the verdict dimensions checked on every image.
var safeSearchCategories = []string{"adult", "violence", "racy", "medical"}

type safeSearchResult struct {
	Adult    string `json:"adult"`
	Violence string `json:"violence"`
	Racy     string `json:"racy"`
	Medical  string `json:"medical"`
}

type imageAnalysis struct {
	SafeSearch safeSearchResult `json:"safeSearch"`
}

func (s safeSearchResult) likelihood(category string) string {
	switch category {
	case "adult":
		return s.Adult
	case "violence":
		return s.Violence
	case "racy":
		return s.Racy
	case "medical":
		return s.Medical
	}
	return ""
}

// flaggedLikelihood reports whether a safe-search likelihood string is high
// enough to reject the image.
func flaggedLikelihood(likelihood string) bool {
	switch strings.ToUpper(likelihood) {
	case "LIKELY", "VERY_LIKELY":
		return true
	}
	return false
}

// ImageClassifier calls the external safe-search service. All calls pass
// through the shared rate limiter.
type ImageClassifier struct {
	client  *resty.Client
	limiter *ratelimit.Limiter
}

// NewImageClassifier returns an image classifier adapter for the backend at
// baseURL.
func NewImageClassifier(baseURL, apiKey string, limiter *ratelimit.Limiter) *ImageClassifier {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	return &ImageClassifier{client: client, limiter: limiter}
}

// Close releases the underlying HTTP client.
func (c *ImageClassifier) Close() error {
	return c.client.Close()
}

// ClassifyImage returns a safety verdict for the image at imageRef. An empty
// reference is always safe and makes no network call.
func (c *ImageClassifier) ClassifyImage(ctx context.Context, imageRef string) (ImageVerdict, error) {
	if strings.TrimSpace(imageRef) == "" {
		return ImageVerdict{Safe: true}, nil
	}

	key := cache.ImageVerdictKey(imageRef)
	var cached ImageVerdict
	if cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return ImageVerdict{}, models.NewClassifierUnavailableError("image", err)
	}

	start := time.Now()
	res, err := c.client.R().
		WithContext(ctx).
		SetBody(map[string]any{"image": map[string]string{"source": imageRef}}).
		SetResult(&imageAnalysis{}).
		Post(imageSafeSearchPath)
	observability.ClassifierLatency.WithLabelValues("image").Observe(time.Since(start).Seconds())

	if err != nil {
		observability.ClassifierCalls.WithLabelValues("image", "error").Inc()
		return ImageVerdict{}, models.NewClassifierUnavailableError("image", err)
	}
	if res.IsError() {
		observability.ClassifierCalls.WithLabelValues("image", "error").Inc()
		if res.StatusCode() >= 400 && res.StatusCode() < 500 {
			return ImageVerdict{}, models.NewMalformedContentError(
				fmt.Sprintf("image rejected by classifier backend (status %d)", res.StatusCode()))
		}
		return ImageVerdict{}, models.NewClassifierUnavailableError("image",
			fmt.Errorf("backend returned status %d", res.StatusCode()))
	}

	verdict := evaluateSafeSearch(res.Result().(*imageAnalysis))
	if verdict.Safe {
		observability.ClassifierCalls.WithLabelValues("image", "safe").Inc()
	} else {
		observability.ClassifierCalls.WithLabelValues("image", "unsafe").Inc()
	}
	cache.SetJSON(ctx, key, verdict, cache.VerdictTTL)
	return verdict, nil
}

func evaluateSafeSearch(a *imageAnalysis) ImageVerdict {
	var reasons []string
	for _, category := range safeSearchCategories {
		if flaggedLikelihood(a.SafeSearch.likelihood(category)) {
			reasons = append(reasons, "Image flagged: "+category)
		}
	}
	return ImageVerdict{Safe: len(reasons) == 0, Reasons: reasons}
}
