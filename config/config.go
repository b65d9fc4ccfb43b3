package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"voice-commands/internal/domain"
)

type Config struct {
	Audio       AudioConfig       `yaml:"audio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Voice       VoiceConfig       `yaml:"voice"`
	Browser     BrowserConfig     `yaml:"browser"`
	Listen      ListenConfig      `yaml:"listen"`
	Pushover    PushoverConfig    `yaml:"pushover"`
	Log         LogConfig         `yaml:"log"`
}

type AudioConfig struct {
	Source           string        `yaml:"source"`
	HTTPAddr         string        `yaml:"http_addr"`
	FileDir          string        `yaml:"file_dir"`
	SampleRate       int           `yaml:"sample_rate"`
	AuthToken        string        `yaml:"auth_token"`
	FrameSize        int           `yaml:"frame_size"`
	SilenceThreshold int           `yaml:"silence_threshold"`
	OnsetRatio       float64       `yaml:"onset_ratio"`
	PauseThreshold   time.Duration `yaml:"pause_threshold"`
	MaxDuration      time.Duration `yaml:"max_duration"`
}

type RecognitionConfig struct {
	Provider         string        `yaml:"provider"`
	APIKey           string        `yaml:"api_key"`
	Language         string        `yaml:"language"`
	BaseURL          string        `yaml:"base_url"`
	Model            string        `yaml:"model"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

type VoiceConfig struct {
	Engine string  `yaml:"engine"`
	ID     string  `yaml:"id"`
	Rate   int     `yaml:"rate"`
	Volume float64 `yaml:"volume"`
	Binary string  `yaml:"binary"`
	APIKey string  `yaml:"api_key"`
	// Volume 0 is a legal setting, so an explicit flag marks it as set.
	volumeSet bool
}

type BrowserConfig struct {
	Command string `yaml:"command"`
}

type ListenConfig struct {
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// UnmarshalYAML records whether volume was present in the document.
func (v *VoiceConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain VoiceConfig
	var raw plain
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*v = VoiceConfig(raw)

	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "volume" {
			v.volumeSet = true
		}
	}
	return nil
}

// Load reads .env (if present), then the YAML file at path with environment
// variables expanded. A missing config file yields the defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Audio.Source == "" {
		c.Audio.Source = "microphone"
	}
	if c.Audio.HTTPAddr == "" {
		c.Audio.HTTPAddr = ":8080"
	}
	if c.Audio.FileDir == "" {
		c.Audio.FileDir = "./audio"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Recognition.Provider == "" {
		c.Recognition.Provider = "whisper"
	}
	if c.Recognition.Language == "" {
		c.Recognition.Language = "en"
	}
	if c.Recognition.FailureThreshold == 0 {
		c.Recognition.FailureThreshold = 5
	}
	if c.Recognition.OpenTimeout == 0 {
		c.Recognition.OpenTimeout = 30 * time.Second
	}
	if c.Voice.Engine == "" {
		c.Voice.Engine = "espeak"
	}
	if c.Voice.ID == "" {
		c.Voice.ID = domain.DefaultVoiceID
	}
	if c.Voice.Rate == 0 {
		c.Voice.Rate = domain.DefaultVoiceRate
	}
	if !c.Voice.volumeSet {
		c.Voice.Volume = domain.DefaultVoiceVolume
	}
	if c.Listen.RetryDelay == 0 {
		c.Listen.RetryDelay = 2 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	switch c.Audio.Source {
	case "microphone", "http", "file":
	default:
		return fmt.Errorf("unknown audio source: %s", c.Audio.Source)
	}

	switch c.Recognition.Provider {
	case "whisper", "google", "deepgram":
		if c.Recognition.APIKey == "" {
			return fmt.Errorf("recognition provider %s requires api_key", c.Recognition.Provider)
		}
	case "none":
	default:
		return fmt.Errorf("unknown recognition provider: %s", c.Recognition.Provider)
	}

	switch c.Voice.Engine {
	case "espeak", "say", "none":
	case "openai":
		if c.Voice.APIKey == "" && c.Recognition.APIKey == "" {
			return fmt.Errorf("voice engine openai requires api_key")
		}
	default:
		return fmt.Errorf("unknown voice engine: %s", c.Voice.Engine)
	}

	if err := c.VoiceProfile().Validate(); err != nil {
		return err
	}

	if c.Pushover.Enabled && (c.Pushover.Token == "" || c.Pushover.UserKey == "") {
		return fmt.Errorf("pushover enabled without token and user_key")
	}

	return nil
}

func (c *Config) VoiceProfile() domain.VoiceProfile {
	return domain.VoiceProfile{
		ID:     c.Voice.ID,
		Rate:   c.Voice.Rate,
		Volume: c.Voice.Volume,
	}
}

// SpeechAPIKey falls back to the recognition key so one OpenAI key can serve both.
func (c *Config) SpeechAPIKey() string {
	if c.Voice.APIKey != "" {
		return c.Voice.APIKey
	}
	return c.Recognition.APIKey
}
