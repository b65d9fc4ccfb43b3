package domain

import "fmt"

const (
	DefaultVoiceID     = "10"
	DefaultVoiceRate   = 180
	DefaultVoiceVolume = 1.0
)

// VoiceProfile is fixed at startup and handed to the speech engine once.
type VoiceProfile struct {
	ID     string
	Rate   int
	Volume float64
}

func DefaultVoiceProfile() VoiceProfile {
	return VoiceProfile{
		ID:     DefaultVoiceID,
		Rate:   DefaultVoiceRate,
		Volume: DefaultVoiceVolume,
	}
}

func (p VoiceProfile) Validate() error {
	if p.Rate <= 0 {
		return fmt.Errorf("voice rate must be positive, got %d", p.Rate)
	}
	if p.Volume < 0 || p.Volume > 1 {
		return fmt.Errorf("voice volume must be within [0, 1], got %v", p.Volume)
	}
	return nil
}

type Voice struct {
	ID       string
	Name     string
	Language string
}
