package main

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type TunedeckConfig struct {
	HttpListenAddr string `envconfig:"HTTP_LISTEN_ADDR"`
	PublicBaseUrl  string `envconfig:"PUBLIC_BASE_URL"`
	FrontendDir    string `envconfig:"FRONTEND_DIR"`
	Library        LibraryConfig
	Songgen        SonggenConfig
	Vault          VaultConfig
	Gate           GateConfig
}

type LibraryConfig struct {
	Dir string `envconfig:"DIR"`
}

type SonggenConfig struct {
	BaseUrl string `envconfig:"BASE_URL"`
	Token   string `envconfig:"TOKEN"`

	// PageDelay is a time.ParseDuration string ("1s", "500ms"); kept
	// as a string so it reads the same in yaml and env.
	PageDelay string `envconfig:"PAGE_DELAY"`
}

// PageDelayDuration parses PageDelay, falling back to 1s on junk or
// non-positive values.
func (c SonggenConfig) PageDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.PageDelay)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

type VaultConfig struct {
	AudioDir string `envconfig:"AUDIO_DIR"`
	DB       string `envconfig:"DB"`
	Watch    bool   `envconfig:"WATCH"`
}

type GateConfig struct {
	Enabled        bool     `envconfig:"ENABLED"`
	PasswordHashes []string `envconfig:"PASSWORD_HASHES"`
}

func DefaultConfig() *TunedeckConfig {
	return &TunedeckConfig{
		HttpListenAddr: ":8090",
		PublicBaseUrl:  "http://localhost:8090",
		Library:        LibraryConfig{Dir: "library"},
		Songgen: SonggenConfig{
			BaseUrl:   "https://studio-api.songgen.example.com",
			PageDelay: "1s",
		},
		Vault: VaultConfig{
			AudioDir: "audio",
			DB:       "tunedeck.db",
			Watch:    true,
		},
	}
}

// LoadConfig reads the yaml config file and applies TUNEDECK_* env
// overrides on top. An empty path (or missing file) means defaults +
// env only.
func LoadConfig(path string) (*TunedeckConfig, error) {
	c := DefaultConfig()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// fall through to env
		case err != nil:
			return nil, err
		default:
			err = yaml.NewDecoder(f).Decode(c)
			f.Close()
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
		}
	}

	if err := envconfig.Process("tunedeck", c); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *TunedeckConfig) Write(dst io.Writer) error {
	return yaml.NewEncoder(dst).Encode(&c)
}
