package service

import (
	"context"
	"sync/atomic"
	"testing"

	"postguard/internal/classifier"
	"postguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrecheckApprovesEmptySubmission(t *testing.T) {
	gate := NewGateService(safeText(), safeImage())

	res, err := gate.Precheck(context.Background(), "", "", "")
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.Empty(t, res.Details)
}

func TestPrecheckRejectsSpamTitle(t *testing.T) {
	text := &textCheckerStub{classifyFn: func(_ context.Context, input string) (classifier.TextVerdict, error) {
		if input == "Free gift cards, click now!!!" {
			return classifier.TextVerdict{Safe: false, Reasons: []string{"Category: Spam/Scams"}}, nil
		}
		return classifier.TextVerdict{Safe: true}, nil
	}}
	image := safeImage()
	gate := NewGateService(text, image)

	res, err := gate.Precheck(context.Background(), "Free gift cards, click now!!!", "", "")
	require.NoError(t, err)
	assert.False(t, res.Approved)
	assert.Equal(t, []string{"Category: Spam/Scams"}, res.Details)
	assert.Zero(t, atomic.LoadInt64(&image.calls), "rejection must short-circuit before the image check")
}

func TestPrecheckApprovesCleanSubmission(t *testing.T) {
	gate := NewGateService(safeText(), safeImage())

	res, err := gate.Precheck(context.Background(), "Sunset at the lake", "so peaceful", "https://cdn.example.com/sunset.jpg")
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.Equal(t, "Content approved", res.Message)
	assert.Empty(t, res.Details)
	assert.Empty(t, res.ContentLabel)
}

func TestPrecheckCaptionCheckedAfterTitle(t *testing.T) {
	var order []string
	text := &textCheckerStub{classifyFn: func(_ context.Context, input string) (classifier.TextVerdict, error) {
		order = append(order, input)
		if input == "bad caption" {
			return classifier.TextVerdict{Safe: false, Reasons: []string{"Category: /Adult"}}, nil
		}
		return classifier.TextVerdict{Safe: true}, nil
	}}
	image := safeImage()
	gate := NewGateService(text, image)

	res, err := gate.Precheck(context.Background(), "fine title", "bad caption", "https://cdn.example.com/a.jpg")
	require.NoError(t, err)
	assert.False(t, res.Approved)
	assert.Equal(t, []string{"fine title", "bad caption"}, order)
	assert.Zero(t, atomic.LoadInt64(&image.calls))
}

func TestPrecheckLabelsAIGeneratedImage(t *testing.T) {
	image := &imageCheckerStub{classifyFn: func(_ context.Context, _ string) (classifier.ImageVerdict, error) {
		return classifier.ImageVerdict{Safe: true, AIGenerated: true}, nil
	}}
	gate := NewGateService(safeText(), image)

	res, err := gate.Precheck(context.Background(), "a render", "", "https://cdn.example.com/render.png")
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.Equal(t, AIGeneratedLabel, res.ContentLabel)
}

func TestPrecheckPropagatesClassifierOutage(t *testing.T) {
	text := &textCheckerStub{classifyFn: func(_ context.Context, _ string) (classifier.TextVerdict, error) {
		return classifier.TextVerdict{}, models.NewClassifierUnavailableError("text", assert.AnError)
	}}
	gate := NewGateService(text, safeImage())

	_, err := gate.Precheck(context.Background(), "anything", "", "")
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeClassifierUnavailable))
}
