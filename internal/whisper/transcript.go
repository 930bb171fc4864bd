package whisper

import "strings"

// whisper.cpp emits this marker instead of an empty transcript.
const blankAudioToken = "[BLANK_AUDIO]"

// NormalizeTranscript trims surrounding whitespace and maps the engine's
// blank-audio marker to the empty string.
func NormalizeTranscript(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.EqualFold(trimmed, blankAudioToken) {
		return ""
	}
	return trimmed
}
