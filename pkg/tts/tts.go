// Package tts turns guidance text into speech.
//
// Providers synthesize a complete audio clip per request. A Narrator sits in
// front of a provider: it is owned by one capture session, collapses
// concurrent requests for the same sentence into one provider call and
// caches the result, so repeating "Path clear on right" every few seconds
// does not cost a synthesis each time.
//
// Example usage:
//
//	provider, _ := tts.NewElevenLabs(
//	    tts.WithAPIKey(os.Getenv("ELEVENLABS_API_KEY")),
//	)
//	n := tts.NewNarrator(provider, tts.NewMemoryStore(64))
//	defer n.Close()
//
//	clip, _ := n.Speak(ctx, "Small crowd. Monitor noise levels.")
//	// clip.Data holds MP3 bytes
package tts

import "context"

// Provider synthesizes speech.
type Provider interface {
	// Synthesize converts text to a complete audio clip.
	Synthesize(ctx context.Context, text string) (*Audio, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Audio is one synthesized clip.
type Audio struct {
	Data      []byte   `json:"data"`
	Encoding  Encoding `json:"encoding"`
	Chars     int      `json:"chars"`
	LatencyMs int64    `json:"latency_ms"`
}

// MIME returns the clip's content type.
func (a *Audio) MIME() string {
	return a.Encoding.MIME()
}

// Encoding is an ElevenLabs output_format value.
type Encoding string

const (
	EncodingMP3   Encoding = "mp3_44100_128" // MP3 128kbps, browser playable
	EncodingPCM24 Encoding = "pcm_24000"     // 24kHz mono PCM16
	EncodingULaw  Encoding = "ulaw_8000"     // μ-law 8kHz
)

// MIME maps the encoding to a content type.
func (e Encoding) MIME() string {
	switch e {
	case EncodingPCM24:
		return "audio/pcm"
	case EncodingULaw:
		return "audio/basic"
	default:
		return "audio/mpeg"
	}
}

// VoiceSettings controls voice characteristics.
type VoiceSettings struct {
	// Stability controls voice consistency (0.0-1.0).
	Stability float64 `json:"stability"`

	// SimilarityBoost controls how closely the voice matches the original (0.0-1.0).
	SimilarityBoost float64 `json:"similarity_boost"`
}

// DefaultVoiceSettings returns a calm, even delivery.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.5,
	}
}
