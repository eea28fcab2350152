package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

func DefaultProfile() Profile {
	return Profile{
		Chunking:      ChunkingProfile{MaxChars: 500, MinChars: 20},
		Throttle:      ThrottleProfile{DelayMS: 100, PauseEvery: 10, PauseMS: 1000},
		ScoreKeywords: []string{"score"},
	}
}

// reads an ingestion profile; an empty path or a missing file yields the defaults
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()

	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return profile, nil
		}

		return Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}

	// absent keys keep their default values
	loaded := profile
	loaded.ScoreKeywords = nil

	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Profile{}, fmt.Errorf("failed to parse profile: %w", err)
	}

	applyProfileDefaults(&loaded, profile)
	return loaded, nil
}

func applyProfileDefaults(p *Profile, d Profile) {
	if p.Chunking.MaxChars <= 0 {
		p.Chunking.MaxChars = d.Chunking.MaxChars
	}

	if p.Chunking.MinChars <= 0 {
		p.Chunking.MinChars = d.Chunking.MinChars
	}

	if p.Throttle.DelayMS < 0 {
		p.Throttle.DelayMS = 0
	}

	if p.Throttle.PauseEvery <= 0 {
		p.Throttle.PauseEvery = d.Throttle.PauseEvery
	}

	if p.Throttle.PauseMS < 0 {
		p.Throttle.PauseMS = 0
	}

	if len(p.ScoreKeywords) == 0 {
		p.ScoreKeywords = d.ScoreKeywords
	}
}
