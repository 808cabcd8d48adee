package catalog

import (
	"strings"

	"modelgate/internal/core"
)

// Category tags reported for display.
const (
	TagMultimodal   = "multimodal"
	TagEmbedding    = "embedding"
	TagTTS          = "tts"
	TagImage        = "image"
	TagExperimental = "experimental"
	TagPreview      = "preview"
)

var tagMarkers = []struct {
	tag     string
	markers []string
}{
	{TagMultimodal, []string{"vision", "multimodal", "live", "audio"}},
	{TagEmbedding, []string{"embedding"}},
	{TagTTS, []string{"tts", "text-to-speech"}},
	{TagImage, []string{"image", "imagen"}},
	{TagExperimental, []string{"exp", "experimental"}},
	{TagPreview, []string{"preview"}},
}

// Tags infers category tags from the model's id and display name.
func Tags(m core.ModelDescriptor) []string {
	haystack := strings.ToLower(m.ID + " " + m.DisplayName)

	var tags []string
	for _, tm := range tagMarkers {
		for _, marker := range tm.markers {
			if strings.Contains(haystack, marker) {
				tags = append(tags, tm.tag)
				break
			}
		}
	}
	return tags
}
