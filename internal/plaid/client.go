// Package plaid implements the Ledger collaborator over the Plaid API. The
// decision core only needs the account view: which accounts the customer
// owns and what balance is available to draw on.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"

	"github.com/ridgelinebank/teller/internal/common"
	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/service"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("plaid client ID is required")
	}
	if c.Secret == "" {
		return fmt.Errorf("plaid secret is required")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("plaid access token is required")
	}
	switch c.Environment {
	case "sandbox", "production":
	default:
		return fmt.Errorf("invalid Plaid environment: must be sandbox or production")
	}
	return nil
}

// Client implements the Ledger interface against Plaid.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   *service.RetryOptions
	accessToken string
}

var _ service.Ledger = (*Client)(nil)

// NewClient creates a new Plaid-backed ledger.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts: &service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// Accounts fetches the customer's accounts with available balances.
func (c *Client) Accounts(ctx context.Context) ([]model.Account, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	var plaidAccounts []plaid.AccountBase
	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			if plaidError := extractPlaidError(err); plaidError != nil {
				if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
					c.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
					return &common.RetryableError{Err: err, Retryable: true}
				}
				return fmt.Errorf("plaid API error: %s - %s", plaidError.ErrorCode, plaidError.ErrorMessage)
			}
			return fmt.Errorf("failed to fetch accounts: %w", err)
		}

		plaidAccounts = resp.GetAccounts()
		return nil
	}, *c.retryOpts)

	if retryErr != nil {
		return nil, retryErr
	}

	accounts := make([]model.Account, 0, len(plaidAccounts))
	for _, pa := range plaidAccounts {
		accounts = append(accounts, mapAccount(pa))
	}

	c.logger.Debug("Fetched accounts", "count", len(accounts))
	return accounts, nil
}

// Account resolves a single account by ID, name, or type word ("checking").
// Returns nil when nothing matches; that is an ownership answer, not an
// error.
func (c *Client) Account(ctx context.Context, idOrName string) (*model.Account, error) {
	if strings.TrimSpace(idOrName) == "" {
		return nil, fmt.Errorf("account reference is empty")
	}

	accounts, err := c.Accounts(ctx)
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

func mapAccount(pa plaid.AccountBase) model.Account {
	account := model.Account{
		ID:   pa.GetAccountId(),
		Name: pa.GetName(),
		Type: string(pa.GetType()),
		Mask: pa.GetMask(),
	}

	balances := pa.GetBalances()
	if available, ok := balances.GetAvailableOk(); ok && available != nil {
		account.AvailableBalance = *available
	} else if current, ok := balances.GetCurrentOk(); ok && current != nil {
		account.AvailableBalance = *current
	}
	if code, ok := balances.GetIsoCurrencyCodeOk(); ok && code != nil {
		account.Currency = *code
	}

	return account
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}
