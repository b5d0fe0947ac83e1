package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bump_server/models"
)

// ExchangeAPI is the server surface the exchange loop drives: submit a hit,
// poll for completion.
type ExchangeAPI interface {
	SubmitHit(ctx context.Context, req *models.SubmitHitRequest) (*models.SubmitHitResponse, error)
	PollStatus(ctx context.Context, sessionID string) (*models.PollStatusResponse, error)
}

// HTTPExchangeAPI talks to the exchange server over its JSON endpoints.
type HTTPExchangeAPI struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewHTTPExchangeAPI(baseURL, bearerToken string) *HTTPExchangeAPI {
	return &HTTPExchangeAPI{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   bearerToken,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *HTTPExchangeAPI) SubmitHit(ctx context.Context, req *models.SubmitHitRequest) (*models.SubmitHitResponse, error) {
	var resp models.SubmitHitResponse
	if err := c.do(ctx, http.MethodPost, "/api/exchange/hit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPExchangeAPI) PollStatus(ctx context.Context, sessionID string) (*models.PollStatusResponse, error) {
	var resp models.PollStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/exchange/status?sessionId="+sessionID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPExchangeAPI) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&envelope)
		// Terminal statuses map back onto the shared taxonomy so the loop can
		// tell "stop now" from "retry until the deadline".
		switch resp.StatusCode {
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", models.ErrValidation, envelope.Error.Message)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", models.ErrUnauthorized, envelope.Error.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", models.ErrProfileNotFound, envelope.Error.Message)
		}
		return fmt.Errorf("%s %s: status %d (%s)", method, path, resp.StatusCode, envelope.Error.Code)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
