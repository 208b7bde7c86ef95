package service

import (
	"context"

	"postguard/internal/observability"
)

// AIGeneratedLabel annotates approved submissions whose image is synthetic.
const AIGeneratedLabel = "AI GENERATED IMAGE"

// PrecheckResult is the advisory outcome of the submission-time gate.
type PrecheckResult struct {
	Approved     bool     `json:"approved"`
	Message      string   `json:"message"`
	Details      []string `json:"details"`
	ContentLabel string   `json:"content_label,omitempty"`
}

// GateService is the synchronous pre-storage check run at submission time.
// It never writes to the store; the caller decides what to do with the
// verdict.
type GateService struct {
	text  TextChecker
	image ImageChecker
}

// NewGateService creates the submission gate. Both checkers must share the
// rate limiter with the background pipeline.
func NewGateService(text TextChecker, image ImageChecker) *GateService {
	return &GateService{text: text, image: image}
}

// Precheck runs title, caption and image checks in that order, stopping at
// the first unsafe verdict so clearly bad submissions spend at most one
// classifier call. A safe but AI-generated image approves with a content
// label rather than rejecting.
func (g *GateService) Precheck(ctx context.Context, title, caption, imageRef string) (PrecheckResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "gate.Precheck")
	defer span.End()

	titleVerdict, err := g.text.ClassifyText(ctx, title)
	if err != nil {
		return PrecheckResult{}, err
	}
	if !titleVerdict.Safe {
		return rejection("Title unsafe", titleVerdict.Reasons), nil
	}

	captionVerdict, err := g.text.ClassifyText(ctx, caption)
	if err != nil {
		return PrecheckResult{}, err
	}
	if !captionVerdict.Safe {
		return rejection("Caption unsafe", captionVerdict.Reasons), nil
	}

	imageVerdict, err := g.image.ClassifyImage(ctx, imageRef)
	if err != nil {
		return PrecheckResult{}, err
	}
	if !imageVerdict.Safe {
		return rejection("Image unsafe", imageVerdict.Reasons), nil
	}

	result := PrecheckResult{Approved: true, Message: "Content approved", Details: []string{}}
	if imageVerdict.AIGenerated {
		result.ContentLabel = AIGeneratedLabel
	}
	return result, nil
}

func rejection(message string, reasons []string) PrecheckResult {
	details := reasons
	if details == nil {
		details = []string{}
	}
	return PrecheckResult{Approved: false, Message: message, Details: details}
}
