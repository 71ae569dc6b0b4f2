package shipping

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestViaCEPLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ws/01310100/json/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cep":"01310-100","uf":"sp","localidade":"São Paulo","bairro":"Bela Vista"}`))
	}))
	defer srv.Close()

	client := NewViaCEPClient(srv.URL, time.Second)
	locale, err := client.Lookup(context.Background(), "01310100")
	require.NoError(t, err)
	require.Equal(t, "SP", locale.UF)
	require.Equal(t, "São Paulo", locale.City)
	require.Equal(t, "01310100", locale.CEP)
}

func TestViaCEPLookupUnknownCEP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"erro":true}`))
	}))
	defer srv.Close()

	client := NewViaCEPClient(srv.URL, time.Second)
	_, err := client.Lookup(context.Background(), "99999999")
	require.ErrorIs(t, err, ErrCEPNotFound)
}

func TestViaCEPLookupRetriesOnServerError(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cep":"20040-000","uf":"RJ","localidade":"Rio de Janeiro"}`))
	}))
	defer srv.Close()

	client := NewViaCEPClient(srv.URL, time.Second)
	locale, err := client.Lookup(context.Background(), "20040000")
	require.NoError(t, err)
	require.Equal(t, "RJ", locale.UF)
	require.Equal(t, 2, hits)
}
