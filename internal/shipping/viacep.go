package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vitrine-shop/backend-loja/internal/resilience"
)

// Locale is the resolved destination for a CEP.
type Locale struct {
	CEP          string `json:"cep"`
	UF           string `json:"uf"`
	City         string `json:"localidade"`
	Neighborhood string `json:"bairro"`
}

// LocaleLookup resolves a normalized CEP into a destination locale.
type LocaleLookup interface {
	Lookup(ctx context.Context, cep string) (Locale, error)
}

// ErrCEPNotFound is returned when the postal service does not know the CEP.
var ErrCEPNotFound = errors.New("cep not found")

// ViaCEPClient queries the public ViaCEP API. Calls go through the resilient
// wrapper so a slow or flapping upstream trips the breaker instead of
// stalling checkout.
type ViaCEPClient struct {
	BaseURL string
	HTTP    resilience.HTTPClient
}

// NewViaCEPClient builds a client with retry and breaker defaults tuned for a
// lookup that sits on the critical quote path: two quick attempts, short
// per-call timeout.
func NewViaCEPClient(baseURL string, timeout time.Duration) *ViaCEPClient {
	if timeout <= 0 {
		timeout = 400 * time.Millisecond
	}
	breaker := resilience.NewBreaker(5, 0.5, 15*time.Second).WithTarget("viacep")
	return &ViaCEPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     breaker,
			BaseBackoff: 50 * time.Millisecond,
			MaxAttempts: 2,
			Jitter:      0.2,
			Timeout:     timeout,
		},
	}
}

type viaCEPResponse struct {
	CEP          string `json:"cep"`
	UF           string `json:"uf"`
	City         string `json:"localidade"`
	Neighborhood string `json:"bairro"`
	Erro         bool   `json:"erro"`
}

// Lookup fetches /ws/{cep}/json/. A CEP unknown to ViaCEP maps to
// ErrCEPNotFound; transport and upstream failures bubble up so the caller can
// degrade to the prefix table.
func (c *ViaCEPClient) Lookup(ctx context.Context, cep string) (Locale, error) {
	url := fmt.Sprintf("%s/ws/%s/json/", c.BaseURL, cep)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Locale{}, err
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return Locale{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Locale{}, fmt.Errorf("viacep status %d", resp.StatusCode)
	}
	var parsed viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Locale{}, err
	}
	if parsed.Erro || parsed.UF == "" {
		return Locale{}, ErrCEPNotFound
	}
	return Locale{
		CEP:          cep,
		UF:           strings.ToUpper(parsed.UF),
		City:         parsed.City,
		Neighborhood: parsed.Neighborhood,
	}, nil
}
