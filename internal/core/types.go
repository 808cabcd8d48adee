package core

import "time"

// ModelDescriptor is one upstream model variant as reported by the catalog listing.
// Descriptors are snapshots of a single fetch and are never persisted.
type ModelDescriptor struct {
	ID                 string `json:"id"`
	DisplayName        string `json:"display_name"`
	SupportsGeneration bool   `json:"supports_generation"`
	InputTokenLimit    int    `json:"input_token_limit,omitempty"`
	OutputTokenLimit   int    `json:"output_token_limit,omitempty"`
}

// RankedModel is a descriptor annotated with its heuristic score and live cooldown state.
type RankedModel struct {
	ModelDescriptor
	Score    int      `json:"score"`
	Disabled bool     `json:"disabled"`
	Tags     []string `json:"tags,omitempty"`
	// AvailableAt is the cooldown expiry of a disabled model.
	AvailableAt *time.Time `json:"available_at,omitempty"`
}
