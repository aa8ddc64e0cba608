package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/service"
)

// Match scores for recipient search.
const (
	scoreExactName  = 1.0
	scoreExactAlias = 0.95
	scorePrefix     = 0.90
	scoreSubstring  = 0.80
)

// UpsertRecipient inserts or replaces a saved recipient.
func (s *SQLiteStorage) UpsertRecipient(ctx context.Context, recipient *model.Recipient) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecipient(recipient); err != nil {
		return err
	}

	if recipient.CreatedAt.IsZero() {
		recipient.CreatedAt = time.Now().UTC()
	}

	aliases, err := json.Marshal(recipient.Aliases)
	if err != nil {
		return fmt.Errorf("failed to encode aliases: %w", err)
	}
	attributes, err := json.Marshal(recipient.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recipients (id, display_name, aliases, attributes, verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			aliases = excluded.aliases,
			attributes = excluded.attributes,
			verified = excluded.verified
	`, recipient.ID, recipient.DisplayName, string(aliases), string(attributes),
		recipient.Verified, recipient.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert recipient: %w", err)
	}
	return nil
}

// ListRecipients returns every saved recipient ordered by display name.
func (s *SQLiteStorage) ListRecipients(ctx context.Context) ([]model.Recipient, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name, aliases, attributes, verified, created_at
		FROM recipients
		ORDER BY display_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recipients []model.Recipient
	for rows.Next() {
		var (
			r                   model.Recipient
			aliases, attributes string
		)
		if err := rows.Scan(&r.ID, &r.DisplayName, &aliases, &attributes, &r.Verified, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		if aliases != "" {
			if err := json.Unmarshal([]byte(aliases), &r.Aliases); err != nil {
				return nil, fmt.Errorf("failed to decode aliases for %s: %w", r.ID, err)
			}
		}
		if attributes != "" {
			if err := json.Unmarshal([]byte(attributes), &r.Attributes); err != nil {
				return nil, fmt.Errorf("failed to decode attributes for %s: %w", r.ID, err)
			}
		}
		recipients = append(recipients, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recipients: %w", err)
	}
	return recipients, nil
}

// SearchRecipients matches a name or alias against the saved recipients.
// Matching is case-insensitive; results come back highest score first. First
// names match every saved "First Last", which is exactly what drives
// disambiguation.
func (s *SQLiteStorage) SearchRecipients(ctx context.Context, query string) ([]model.RecipientCandidate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(query, "query"); err != nil {
		return nil, err
	}

	recipients, err := s.ListRecipients(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	var candidates []model.RecipientCandidate

	for _, r := range recipients {
		score := matchScore(needle, r)
		if score == 0 {
			continue
		}
		candidates = append(candidates, model.RecipientCandidate{
			ID:          r.ID,
			DisplayName: r.DisplayName,
			Attributes:  r.Attributes,
			Score:       score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates, nil
}

// RecipientIndex adapts the storage layer to the read-only lookup interface
// the extraction pipeline consumes.
type RecipientIndex struct {
	storage service.Storage
}

// NewRecipientIndex wraps a storage instance as a recipient index.
func NewRecipientIndex(storage service.Storage) *RecipientIndex {
	return &RecipientIndex{storage: storage}
}

var _ service.RecipientIndex = (*RecipientIndex)(nil)

// Lookup implements service.RecipientIndex.
func (i *RecipientIndex) Lookup(ctx context.Context, nameOrAlias string) ([]model.RecipientCandidate, error) {
	return i.storage.SearchRecipients(ctx, nameOrAlias)
}

func matchScore(needle string, r model.Recipient) float64 {
	name := strings.ToLower(r.DisplayName)
	if name == needle {
		return scoreExactName
	}
	for _, alias := range r.Aliases {
		if strings.ToLower(alias) == needle {
			return scoreExactAlias
		}
	}
	if strings.HasPrefix(name, needle) {
		return scorePrefix
	}
	if strings.Contains(name, needle) {
		return scoreSubstring
	}
	for _, alias := range r.Aliases {
		if strings.Contains(strings.ToLower(alias), needle) {
			return scoreSubstring
		}
	}
	return 0
}
