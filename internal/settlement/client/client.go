package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/goalscanpro/bankroll-core/internal/bankroll"
	"github.com/goalscanpro/bankroll-core/internal/bankroll/dto"
)

// Client fala com o bankroll-service. A reconciliação acontece só lá: a trava
// de reentrância do motor é por processo, então o worker nunca escreve a
// banca direto.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

// SetBetStatus marca a aposta da partida como won/lost via API.
func (c *Client) SetBetStatus(ctx context.Context, matchID string, status bankroll.BetStatus) error {
	body, _ := json.Marshal(dto.SetBetStatusRequest{Status: string(status)})
	url := fmt.Sprintf("%s/matches/%s/bet/status", c.BaseURL, matchID)

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return bankroll.ErrRecordNotFound
	case res.StatusCode == http.StatusBadRequest:
		return bankroll.ErrInvalidBet
	case res.StatusCode >= 300:
		return fmt.Errorf("set bet status http %d", res.StatusCode)
	}

	var out dto.SaveMatchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return err
	}
	if out.Skipped {
		// outra edição em andamento no serviço; o chamador retenta
		return bankroll.ErrEditInFlight
	}
	return nil
}

// Ping verifica se a API está acessível (health do worker).
func (c *Client) Ping(ctx context.Context) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/matches", nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 500 {
		return fmt.Errorf("bankroll-service unhealthy: http %d", res.StatusCode)
	}
	return nil
}
