package challenge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed challenges.yaml
var defaultCatalogYAML []byte

// Difficulty of a challenge as shown to users.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Challenge is a reduction goal users can join.
type Challenge struct {
	ID                  string     `yaml:"id" json:"id"`
	Title               string     `yaml:"title" json:"title"`
	Description         string     `yaml:"description" json:"description"`
	Difficulty          Difficulty `yaml:"difficulty" json:"difficulty"`
	Total               int        `yaml:"total" json:"total"`
	Unit                string     `yaml:"unit" json:"unit"`
	CarbonSavePotential float64    `yaml:"carbon_save_potential" json:"carbonSavePotential"`
	Category            string     `yaml:"category" json:"category"`
}

// Catalog is an ordered, validated set of challenges.
type Catalog struct {
	challenges []Challenge
	byID       map[string]int
}

type catalogFile struct {
	Challenges []Challenge `yaml:"challenges"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in challenge catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from path, or returns the built-in catalog
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read challenge catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse challenge catalog: %w", err)
	}
	if len(f.Challenges) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{byID: make(map[string]int, len(f.Challenges))}
	for _, ch := range f.Challenges {
		ch.ID = strings.TrimSpace(ch.ID)
		if ch.ID == "" {
			return nil, fmt.Errorf("%w: missing id for %q", ErrInvalidChallenge, ch.Title)
		}
		if strings.ContainsAny(ch.ID, " :") {
			return nil, fmt.Errorf("%w: id %q must not contain spaces or colons", ErrInvalidChallenge, ch.ID)
		}
		if _, dup := c.byID[ch.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidChallenge, ch.ID)
		}
		if ch.Total <= 0 {
			return nil, fmt.Errorf("%w: %q total must be positive", ErrInvalidChallenge, ch.ID)
		}
		if ch.CarbonSavePotential < 0 {
			return nil, fmt.Errorf("%w: %q carbon_save_potential must not be negative", ErrInvalidChallenge, ch.ID)
		}
		switch ch.Difficulty {
		case DifficultyEasy, DifficultyMedium, DifficultyHard:
		case "":
			ch.Difficulty = DifficultyMedium
		default:
			return nil, fmt.Errorf("%w: %q unknown difficulty %q", ErrInvalidChallenge, ch.ID, ch.Difficulty)
		}
		if ch.Unit == "" {
			ch.Unit = "day"
		}
		c.byID[ch.ID] = len(c.challenges)
		c.challenges = append(c.challenges, ch)
	}
	return c, nil
}

// All returns the challenges in catalog order.
func (c *Catalog) All() []Challenge {
	out := make([]Challenge, len(c.challenges))
	copy(out, c.challenges)
	return out
}

// Get looks up a challenge by id.
func (c *Catalog) Get(id string) (Challenge, error) {
	i, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Challenge{}, fmt.Errorf("%w: %q", ErrUnknownChallenge, id)
	}
	return c.challenges[i], nil
}
