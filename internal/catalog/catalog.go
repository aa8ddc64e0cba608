// Package catalog holds the static, versioned definitions of intents and
// their risk/auth policy. A Store is immutable once built; configuration
// changes require loading a new Store, never editing one in place.
package catalog

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ridgelinebank/teller/internal/model"
)

// Store is the immutable intent catalog.
type Store struct {
	intents  map[string]model.Intent
	matchers map[string][]*regexp.Regexp
	ordered  []model.Intent
	version  string
}

// file is the on-disk catalog document shape.
type file struct {
	Version string         `yaml:"version"`
	Intents []model.Intent `yaml:"intents"`
}

// New builds a Store from a set of intents, validating and pre-compiling
// every pattern.
func New(version string, intents []model.Intent) (*Store, error) {
	if version == "" {
		return nil, fmt.Errorf("catalog version is required")
	}

	s := &Store{
		version:  version,
		intents:  make(map[string]model.Intent, len(intents)),
		matchers: make(map[string][]*regexp.Regexp),
	}

	for _, intent := range intents {
		if err := validateIntent(intent); err != nil {
			return nil, fmt.Errorf("intent %q: %w", intent.ID, err)
		}
		if _, exists := s.intents[intent.ID]; exists {
			return nil, fmt.Errorf("duplicate intent ID %q", intent.ID)
		}

		for _, pattern := range intent.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("intent %q: invalid pattern %q: %w", intent.ID, pattern, err)
			}
			s.matchers[intent.ID] = append(s.matchers[intent.ID], re)
		}

		s.intents[intent.ID] = intent
		s.ordered = append(s.ordered, intent)
	}

	sort.Slice(s.ordered, func(i, j int) bool { return s.ordered[i].ID < s.ordered[j].ID })

	return s, nil
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var doc file
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	return New(doc.Version, doc.Intents)
}

// Version returns the catalog version string.
func (s *Store) Version() string {
	return s.version
}

// Get returns the intent with the given ID.
func (s *Store) Get(id string) (model.Intent, bool) {
	intent, ok := s.intents[id]
	return intent, ok
}

// All returns every intent in the catalog, sorted by ID.
func (s *Store) All() []model.Intent {
	out := make([]model.Intent, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// IDs returns every intent ID in the catalog, sorted.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.ordered))
	for _, intent := range s.ordered {
		ids = append(ids, intent.ID)
	}
	return ids
}

func validateIntent(intent model.Intent) error {
	if intent.ID == "" {
		return fmt.Errorf("intent ID is required")
	}
	if intent.Category == "" {
		return fmt.Errorf("category is required")
	}
	switch intent.RiskLevel {
	case model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskCritical:
	default:
		return fmt.Errorf("invalid risk level %q", intent.RiskLevel)
	}
	switch intent.AuthRequired {
	case model.AuthBasic, model.AuthFull, model.AuthChallenge, model.AuthMultiStep:
	default:
		return fmt.Errorf("invalid auth level %q", intent.AuthRequired)
	}
	return nil
}
