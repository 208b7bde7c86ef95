// Package classifier wraps the external text and image classification
// backends behind a shared rate limiter and exposes boolean safety verdicts.
package classifier

// TextVerdict is the outcome of classifying one piece of text.
type TextVerdict struct {
	Safe    bool     `json:"safe"`
	Reasons []string `json:"reasons,omitempty"`
}

// ImageVerdict is the outcome of classifying one image reference.
type ImageVerdict struct {
	Safe    bool     `json:"safe"`
	Reasons []string `json:"reasons,omitempty"`
	// AIGenerated is a stable false default; the detection heuristic is
	// disabled and must stay disabled until a real detector is supplied.
	AIGenerated bool `json:"ai_generated"`
}
