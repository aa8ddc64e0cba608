// Package model defines the core domain models used throughout the application.
package model

// RiskLevel classifies how dangerous an operation is if misfired.
type RiskLevel string

// Risk level constants, ordered from least to most severe.
const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// AtLeast reports whether r is at least as severe as other.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return riskRank[r] >= riskRank[other]
}

// Escalate returns the more severe of r and other.
func (r RiskLevel) Escalate(other RiskLevel) RiskLevel {
	if riskRank[other] > riskRank[r] {
		return other
	}
	return r
}

// AuthLevel describes the authentication strength an operation demands.
type AuthLevel string

// Authentication level constants, ordered from weakest to strongest.
const (
	AuthBasic     AuthLevel = "BASIC"
	AuthFull      AuthLevel = "FULL"
	AuthChallenge AuthLevel = "CHALLENGE"
	AuthMultiStep AuthLevel = "MULTI_STEP"
)

var authRank = map[AuthLevel]int{
	AuthBasic:     0,
	AuthFull:      1,
	AuthChallenge: 2,
	AuthMultiStep: 3,
}

// Upgrade returns the stronger of a and other.
func (a AuthLevel) Upgrade(other AuthLevel) AuthLevel {
	if authRank[other] > authRank[a] {
		return other
	}
	return a
}

// UnknownIntentID is the synthetic intent returned when neither the
// understanding service nor the pattern fallback clears the confidence floor.
const UnknownIntentID = "unknown.intent"

// Intent is an immutable catalog entry describing one kind of banking request.
// Intents are created at catalog load and never mutated at runtime.
type Intent struct {
	ID               string       `json:"id" yaml:"id"`
	Category         string       `json:"category" yaml:"category"`
	Description      string       `json:"description,omitempty" yaml:"description,omitempty"`
	RiskLevel        RiskLevel    `json:"risk_level" yaml:"risk_level"`
	AuthRequired     AuthLevel    `json:"auth_required" yaml:"auth_required"`
	RequiredEntities []EntityType `json:"required_entities,omitempty" yaml:"required_entities,omitempty"`
	OptionalEntities []EntityType `json:"optional_entities,omitempty" yaml:"optional_entities,omitempty"`
	Keywords         []string     `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Patterns         []string     `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	UIHint           string       `json:"ui_hint,omitempty" yaml:"ui_hint,omitempty"`
}

// Requires reports whether the intent lists t as a required entity.
func (i Intent) Requires(t EntityType) bool {
	for _, r := range i.RequiredEntities {
		if r == t {
			return true
		}
	}
	return false
}

// Accepts reports whether the intent lists t as required or optional.
func (i Intent) Accepts(t EntityType) bool {
	if i.Requires(t) {
		return true
	}
	for _, o := range i.OptionalEntities {
		if o == t {
			return true
		}
	}
	return false
}

// IntentCandidate is one ranked guess produced by classification.
type IntentCandidate struct {
	IntentID   string  `json:"intent_id"`
	Confidence float64 `json:"confidence"`
	Origin     string  `json:"origin,omitempty"` // "service" or "pattern"
}
