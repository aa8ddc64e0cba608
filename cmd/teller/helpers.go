package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/ridgelinebank/teller/internal/catalog"
	"github.com/ridgelinebank/teller/internal/classify"
	"github.com/ridgelinebank/teller/internal/config"
	"github.com/ridgelinebank/teller/internal/engine"
	"github.com/ridgelinebank/teller/internal/extract"
	"github.com/ridgelinebank/teller/internal/gate"
	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/nlu"
	"github.com/ridgelinebank/teller/internal/plaid"
	"github.com/ridgelinebank/teller/internal/resolve"
	"github.com/ridgelinebank/teller/internal/rules"
	"github.com/ridgelinebank/teller/internal/service"
	"github.com/ridgelinebank/teller/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/teller/teller.db"
	}

	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadCatalog loads the intent catalog from the configured YAML file, falling
// back to the built-in catalog.
func loadCatalog() (*catalog.Store, error) {
	path := viper.GetString("catalog.path")
	if path == "" {
		return catalog.Default(), nil
	}

	store, err := catalog.Load(config.ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load intent catalog: %w", err)
	}
	return store, nil
}

// buildEngine wires the full decision pipeline from configuration.
func buildEngine(store service.Storage) (*engine.DecisionEngine, error) {
	cat, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	understander := buildUnderstander()
	ledger := buildLedger()
	recipients := storage.NewRecipientIndex(store)

	classifier := classify.New(understander, cat, classify.Config{
		ServiceFloor: viper.GetFloat64("classify.service_floor"),
	}, nil)

	extractor := extract.New(recipients, ledger, nil)

	resolver := resolve.New(cat, resolve.Config{
		Decay:           viper.GetFloat64("resolve.decay"),
		AcceptanceFloor: viper.GetFloat64("resolve.acceptance_floor"),
	}, nil)

	g := gate.New(gate.Config{
		UncertainBelow:    viper.GetFloat64("gate.uncertain_below"),
		ConfidentAt:       viper.GetFloat64("gate.confident_at"),
		TieMargin:         viper.GetFloat64("gate.tie_margin"),
		AutomationCeiling: viper.GetFloat64("gate.automation_ceiling"),
	}, nil)

	ruleEngine := rules.New(ledger, store, rules.Config{
		PerOperationLimits:             operationLimits(),
		RecipientVerificationThreshold: viper.GetFloat64("rules.recipient_verification_threshold"),
		VelocityLimit:                  viper.GetInt("rules.velocity_limit"),
		VelocityWindow:                 viper.GetDuration("rules.velocity_window"),
		BlockedRecipients:              viper.GetStringSlice("rules.blocked_recipients"),
		BlockedPairs:                   blockedPairs(),
	}, nil)

	return engine.New(classifier, extractor, resolver, g, ruleEngine, store, buildExecutor(), cat, nil), nil
}

// buildUnderstander returns the configured understanding service, or nil when
// none is configured. The pipeline degrades to pattern matching without one.
func buildUnderstander() service.Understander {
	provider := viper.GetString("nlu.provider")
	if provider == "" {
		slog.Info("no understanding provider configured, using pattern matching only")
		return nil
	}

	svc, err := nlu.NewService(nlu.Config{
		Provider:    provider,
		APIKey:      viper.GetString("nlu.api_key"),
		Model:       viper.GetString("nlu.model"),
		BaseURL:     viper.GetString("nlu.base_url"),
		Timeout:     viper.GetDuration("nlu.timeout"),
		CacheTTL:    viper.GetDuration("nlu.cache_ttl"),
		RateLimit:   viper.GetInt("nlu.rate_limit"),
		Temperature: viper.GetFloat64("nlu.temperature"),
		MaxTokens:   viper.GetInt("nlu.max_tokens"),
	}, nil)
	if err != nil {
		slog.Warn("failed to create understanding service, using pattern matching only", "error", err)
		return nil
	}
	return svc
}

// buildLedger returns the Plaid-backed ledger when credentials are configured,
// otherwise a built-in sandbox ledger so the CLI works out of the box.
func buildLedger() service.Ledger {
	cfg := plaid.Config{
		ClientID:    viper.GetString("plaid.client_id"),
		Secret:      viper.GetString("plaid.secret"),
		Environment: viper.GetString("plaid.environment"),
		AccessToken: viper.GetString("plaid.access_token"),
	}
	if cfg.ClientID == "" {
		slog.Info("no Plaid credentials configured, using sandbox ledger")
		return sandboxLedger{}
	}
	if cfg.Environment == "" {
		cfg.Environment = "sandbox"
	}

	client, err := plaid.NewClient(cfg)
	if err != nil {
		slog.Warn("failed to create Plaid client, using sandbox ledger", "error", err)
		return sandboxLedger{}
	}
	return client
}

func buildExecutor() service.Executor {
	return sandboxExecutor{}
}

// operationLimits reads per-intent amount caps from config, e.g.
// rules.operation_limits: {transfer.send: "10000"}.
func operationLimits() map[string]float64 {
	raw := viper.GetStringMapString("rules.operation_limits")
	if len(raw) == 0 {
		return nil
	}

	limits := make(map[string]float64, len(raw))
	for intentID, value := range raw {
		limit, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			slog.Warn("ignoring invalid operation limit", "intent", intentID, "value", value)
			continue
		}
		limits[intentID] = limit
	}
	return limits
}

// blockedPairs reads known-bad amount/recipient combinations from config,
// e.g. rules.blocked_pairs: {"acme shell corp": "9999"}.
func blockedPairs() map[string]float64 {
	raw := viper.GetStringMapString("rules.blocked_pairs")
	if len(raw) == 0 {
		return nil
	}

	pairs := make(map[string]float64, len(raw))
	for recipient, value := range raw {
		amount, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			slog.Warn("ignoring invalid blocked pair", "recipient", recipient, "value", value)
			continue
		}
		pairs[recipient] = amount
	}
	return pairs
}

// sandboxLedger is the built-in ledger used when no Plaid credentials are
// configured. Balances are fixed; it exists so the chat surface and the rules
// cascade are exercisable locally.
type sandboxLedger struct{}

func (sandboxLedger) Accounts(_ context.Context) ([]model.Account, error) {
	return []model.Account{
		{ID: "sandbox-checking", Name: "Everyday Checking", Type: "checking", Mask: "4821", AvailableBalance: 2500, Currency: "USD"},
		{ID: "sandbox-savings", Name: "Rainy Day Savings", Type: "savings", Mask: "9014", AvailableBalance: 12000, Currency: "USD"},
	}, nil
}

func (l sandboxLedger) Account(ctx context.Context, idOrName string) (*model.Account, error) {
	accounts, err := l.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(idOrName)
	for i := range accounts {
		a := &accounts[i]
		if a.ID == idOrName ||
			strings.ToLower(a.Name) == needle ||
			strings.ToLower(a.Type) == needle {
			return a, nil
		}
	}
	return nil, nil
}

// sandboxExecutor acknowledges validated operations without moving money.
// A production deployment replaces this with the core-banking connector.
type sandboxExecutor struct{}

func (sandboxExecutor) Execute(_ context.Context, operationID string, _ model.EntityMap) (*model.ExecutionResult, error) {
	ref := fmt.Sprintf("sandbox-%s", uuid.NewString()[:8])
	slog.Info("sandbox execution", "operation", operationID, "reference", ref)
	return &model.ExecutionResult{Success: true, ReferenceID: ref}, nil
}
