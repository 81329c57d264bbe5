package tijori

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bell24h/tijori/config"
	"github.com/bell24h/tijori/internal/apierror"
	"github.com/bell24h/tijori/internal/request"
	"github.com/bell24h/tijori/model"
)

// HTTPProviders implements the collaborator interfaces against the
// wallet, ledger and account services configured under providers.
type HTTPProviders struct {
	conf config.ProvidersConfig
}

func NewHTTPProviders(conf config.ProvidersConfig) *HTTPProviders {
	return &HTTPProviders{conf: conf}
}

func (p *HTTPProviders) newRequest(ctx context.Context, method, url string, payload interface{}) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		buf, err := request.ToJsonReq(payload)
		if err != nil {
			return nil, err
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if p.conf.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.conf.AuthToken)
	}
	return req, nil
}

func (p *HTTPProviders) GetBalance(ctx context.Context, walletRef string) (*model.WalletBalance, error) {
	req, err := p.newRequest(ctx, http.MethodGet, fmt.Sprintf("%s/wallets/%s/balance", p.conf.WalletUrl, walletRef), nil)
	if err != nil {
		return nil, err
	}

	var balance model.WalletBalance
	resp, err := request.Call(req, &balance)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apierror.NewAPIError(apierror.ErrExternalLedger, fmt.Sprintf("wallet service returned status %d", resp.StatusCode), nil)
	}
	return &balance, nil
}

type ledgerMovementReq struct {
	WalletRef      string `json:"wallet_ref"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (p *HTTPProviders) move(ctx context.Context, op, walletRef string, amount int64, idempotencyKey string) error {
	req, err := p.newRequest(ctx, http.MethodPost, fmt.Sprintf("%s/movements/%s", p.conf.LedgerUrl, op), ledgerMovementReq{
		WalletRef:      walletRef,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return err
	}

	var response map[string]interface{}
	resp, err := request.Call(req, &response)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierror.NewAPIError(apierror.ErrExternalLedger, fmt.Sprintf("ledger %s returned status %d", op, resp.StatusCode), response)
	}
	return nil
}

func (p *HTTPProviders) Debit(ctx context.Context, walletRef string, amount int64, idempotencyKey string) error {
	return p.move(ctx, "debit", walletRef, amount, idempotencyKey)
}

func (p *HTTPProviders) Credit(ctx context.Context, walletRef string, amount int64, idempotencyKey string) error {
	return p.move(ctx, "credit", walletRef, amount, idempotencyKey)
}

func (p *HTTPProviders) GetTier(ctx context.Context, userRef string) (model.Tier, error) {
	req, err := p.newRequest(ctx, http.MethodGet, fmt.Sprintf("%s/users/%s/tier", p.conf.TierUrl, userRef), nil)
	if err != nil {
		return "", err
	}

	var response struct {
		Tier string `json:"tier"`
	}
	resp, err := request.Call(req, &response)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", apierror.NewAPIError(apierror.ErrExternalLedger, fmt.Sprintf("tier service returned status %d", resp.StatusCode), nil)
	}

	switch model.Tier(response.Tier) {
	case model.TierFree, model.TierPro, model.TierEnterprise:
		return model.Tier(response.Tier), nil
	default:
		return model.TierFree, nil
	}
}
