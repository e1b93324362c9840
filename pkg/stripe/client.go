package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/accountlink"

	"github.com/learnloom/learnloom-backend/pkg/config"
	pkgerrors "github.com/learnloom/learnloom-backend/pkg/errors"
	"github.com/learnloom/learnloom-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// AccountStatus reports the payable capabilities of a connected account.
type AccountStatus struct {
	ChargesEnabled bool
	PayoutsEnabled bool
}

// Client wraps Stripe's API client plus env-specific metadata. It carries the
// webhook signing secret and the Connect onboarding link endpoints.
type Client struct {
	environment   string
	signingSecret string
	refreshURL    string
	returnURL     string
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.WebhookSecret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		environment:   env,
		signingSecret: signingSecret,
		refreshURL:    strings.TrimSpace(cfg.OnboardingRefreshURL),
		returnURL:     strings.TrimSpace(cfg.OnboardingReturnURL),
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// CreateAccount provisions an Express connected account for the instructor.
func (c *Client) CreateAccount(ctx context.Context, instructorID uuid.UUID) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "stripe client not initialized")
	}
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
		Metadata: map[string]string{
			"instructor_id": instructorID.String(),
		},
	}
	params.Context = ctx

	acct, err := account.New(params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe account")
	}
	return acct.ID, nil
}

// CreateOnboardingLink issues a fresh short-lived onboarding link for the account.
func (c *Client) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "stripe client not initialized")
	}
	if accountID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(c.refreshURL),
		ReturnURL:  stripe.String(c.returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := accountlink.New(params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create onboarding link")
	}
	return link.URL, nil
}

// GetAccountStatus polls the connected account's capability flags.
func (c *Client) GetAccountStatus(ctx context.Context, accountID string) (AccountStatus, error) {
	if c == nil {
		return AccountStatus{}, pkgerrors.New(pkgerrors.CodeInternal, "stripe client not initialized")
	}
	if accountID == "" {
		return AccountStatus{}, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := account.GetByID(accountID, params)
	if err != nil {
		return AccountStatus{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe account")
	}
	return AccountStatus{
		ChargesEnabled: acct.ChargesEnabled,
		PayoutsEnabled: acct.PayoutsEnabled,
	}, nil
}

func normalizeEnv(env string) (string, error) {
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, apiKey string) error {
	switch env {
	case testEnv:
		if !strings.HasPrefix(apiKey, "sk_test_") && !strings.HasPrefix(apiKey, "rk_test_") {
			return fmt.Errorf("test environment requires a test-mode api key")
		}
	case liveEnv:
		if !strings.HasPrefix(apiKey, "sk_live_") && !strings.HasPrefix(apiKey, "rk_live_") {
			return fmt.Errorf("live environment requires a live-mode api key")
		}
	}
	return nil
}
