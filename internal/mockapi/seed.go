package mockapi

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coinvest-dev/coinvest/internal/models"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedUser is an account created at startup
type SeedUser struct {
	Email    string      `yaml:"email"`
	FullName string      `yaml:"fullName"`
	Role     models.Role `yaml:"role"`
	Password string      `yaml:"password"`
	Pin      string      `yaml:"pin"`
	Verified bool        `yaml:"verified"`
	Balance  float64     `yaml:"balance"`
}

// Seed is the fixture the backend starts from
type Seed struct {
	Users    []SeedUser              `yaml:"users"`
	Plans    []models.Plan           `yaml:"plans"`
	Settings models.PlatformSettings `yaml:"settings"`
	Prices   []models.CryptoPrice    `yaml:"prices"`
	Guide    []models.GuideSection   `yaml:"guide"`
}

// DefaultSeed returns the built-in fixture
func DefaultSeed() (*Seed, error) {
	return parseSeed(defaultSeed)
}

// LoadSeed reads a fixture file, or the built-in one when path is empty
func LoadSeed(path string) (*Seed, error) {
	if path == "" {
		return DefaultSeed()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return parseSeed(data)
}

func parseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	for _, u := range seed.Users {
		if !u.Role.Valid() {
			return nil, fmt.Errorf("seed user %s has invalid role %q", u.Email, u.Role)
		}
	}
	return &seed, nil
}
