// Package viacep is a client for the ViaCEP address lookup service.
//
// It answers one question: which address does a CEP belong to. A definitive
// "no such CEP" comes back as domain.ErrNotFound; anything that prevents a
// definitive answer (network, timeout, rate limit, unexpected status or body)
// comes back as domain.ErrTransport.
package viacep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cepcode/backend/internal/domain"
)

// DefaultBaseURL is the public ViaCEP endpoint.
const DefaultBaseURL = "https://viacep.com.br"

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 64 << 10

// Client looks up addresses on ViaCEP. It is safe for concurrent use.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
}

type Option func(*Client)

// WithTimeout bounds a whole lookup, rate limit wait included.
// Zero or negative leaves lookups bounded only by the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = max(d, 0) }
}

// WithRateLimit caps outbound requests at rps with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// New returns a Client for baseURL (DefaultBaseURL when empty) with a 10s timeout.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 10 * time.Second,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// address is the ViaCEP JSON payload. Erro is a bool in current responses and
// the string "true" in some older ones.
type address struct {
	CEP         string          `json:"cep"`
	Logradouro  string          `json:"logradouro"`
	Complemento string          `json:"complemento"`
	Bairro      string          `json:"bairro"`
	Localidade  string          `json:"localidade"`
	UF          string          `json:"uf"`
	IBGE        string          `json:"ibge"`
	GIA         string          `json:"gia"`
	DDD         string          `json:"ddd"`
	SIAFI       string          `json:"siafi"`
	Erro        json.RawMessage `json:"erro"`
}

func (a address) notFound() bool {
	switch strings.Trim(strings.TrimSpace(string(a.Erro)), `"`) {
	case "true", "True":
		return true
	}
	return false
}

// LookupPostalCode fetches the address for cep, which may be formatted
// (NNNNN-NNN) or bare digits.
func (c *Client) LookupPostalCode(ctx context.Context, cep string) (domain.ExternalAddress, error) {
	const op = "viacep.Client.LookupPostalCode"

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		// Wait fails at once when the next token lands after the deadline.
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.ExternalAddress{}, domain.NewError(domain.ErrTransport, op, "rate limit wait", err)
		}
	}

	endpoint := c.baseURL + "/ws/" + url.PathEscape(cep) + "/json/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.ExternalAddress{}, domain.NewError(domain.ErrTransport, op, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		detail := "request failed"
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			detail = "request timed out"
		}
		return domain.ExternalAddress{}, domain.NewError(domain.ErrTransport, op, detail, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		// ViaCEP answers 400 for codes it considers malformed.
		return domain.ExternalAddress{}, domain.NewError(domain.ErrNotFound, op, "CEP "+cep+" rejected by ViaCEP", nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return domain.ExternalAddress{}, domain.NewError(domain.ErrTransport, op, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var body address
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return domain.ExternalAddress{}, domain.NewError(domain.ErrTransport, op, "decode response", err)
	}
	if body.notFound() {
		return domain.ExternalAddress{}, domain.NewError(domain.ErrNotFound, op, "CEP "+cep+" not found", nil)
	}
	if strings.TrimSpace(body.UF) == "" {
		return domain.ExternalAddress{}, domain.NewError(domain.ErrTransport, op, "response has no state", nil)
	}

	return domain.ExternalAddress{
		PostalCode:   body.CEP,
		Street:       body.Logradouro,
		Complement:   body.Complemento,
		Neighborhood: body.Bairro,
		City:         body.Localidade,
		State:        body.UF,
		IBGE:         body.IBGE,
		GIA:          body.GIA,
		DDD:          body.DDD,
		SIAFI:        body.SIAFI,
	}, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
