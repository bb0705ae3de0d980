package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/abensaid/lendify/pkg/domain"
)

// Client implements API over the HTTP surface.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates an API client. token is the JWT obtained from
// /auth/login.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type transferPayload struct {
	ID              uuid.UUID `json:"id"`
	Status          string    `json:"status"`
	ProgressPercent int       `json:"progress_percent"`
	RequiredCodes   int       `json:"required_codes"`
	CodesValidated  int       `json:"codes_validated"`
	IsPaused        bool      `json:"is_paused"`
	DemoCode        string    `json:"demo_code"`
}

func (p *transferPayload) view() *TransferView {
	return &TransferView{
		ID:              p.ID,
		Status:          p.Status,
		ProgressPercent: p.ProgressPercent,
		RequiredCodes:   p.RequiredCodes,
		CodesValidated:  p.CodesValidated,
		IsPaused:        p.IsPaused,
		DemoCode:        p.DemoCode,
	}
}

func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*TransferView, error) {
	body := map[string]string{
		"amount":    req.Amount,
		"recipient": req.Recipient,
		"loan_id":   req.LoanID.String(),
	}
	if req.ExternalAccountID != "" {
		body["external_account_id"] = req.ExternalAccountID
	}
	var payload transferPayload
	if err := c.do(ctx, http.MethodPost, "/api/transfers/initiate", body, &payload); err != nil {
		return nil, err
	}
	return payload.view(), nil
}

func (c *Client) SendCode(ctx context.Context, transferID uuid.UUID, method string) (*CodeIssueView, error) {
	var body any
	if method != "" {
		body = map[string]string{"method": method}
	}
	var payload struct {
		Sequence int    `json:"sequence"`
		DemoCode string `json:"demo_code"`
	}
	path := fmt.Sprintf("/api/transfers/%s/send-code", transferID)
	if err := c.do(ctx, http.MethodPost, path, body, &payload); err != nil {
		return nil, err
	}
	return &CodeIssueView{Sequence: payload.Sequence, DemoCode: payload.DemoCode}, nil
}

func (c *Client) ValidateCode(ctx context.Context, transferID uuid.UUID, code string, sequence int) (*ValidationView, error) {
	body := map[string]any{"code": code, "sequence": sequence}
	var payload struct {
		Success    bool `json:"success"`
		IsComplete bool `json:"is_complete"`
		Progress   int  `json:"progress"`
	}
	path := fmt.Sprintf("/api/transfers/%s/validate-code", transferID)
	if err := c.do(ctx, http.MethodPost, path, body, &payload); err != nil {
		return nil, err
	}
	return &ValidationView{Success: payload.Success, IsComplete: payload.IsComplete, Progress: payload.Progress}, nil
}

func (c *Client) ValidatePauseCode(ctx context.Context, transferID uuid.UUID, code string) error {
	path := fmt.Sprintf("/api/transfers/%s/validate-pause-code", transferID)
	return c.do(ctx, http.MethodPost, path, map[string]string{"code": code}, nil)
}

func (c *Client) Get(ctx context.Context, transferID uuid.UUID) (*TransferView, error) {
	var payload struct {
		Transfer transferPayload `json:"transfer"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/transfers/"+transferID.String(), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Transfer.view(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Data, out)
}

// statusError maps a problem response back to the domain sentinel the
// controller branches on.
func statusError(resp *http.Response) error {
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&problem)
	detail := problem.Detail
	if detail == "" {
		detail = problem.Title
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrTransferNotFound, detail)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrInvalidCode, detail)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrUserUnauthorized, detail)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrStaleTransfer, detail)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", domain.ErrLoanNotEligible, detail)
	default:
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, detail)
	}
}
