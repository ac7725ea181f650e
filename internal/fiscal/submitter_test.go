package fiscal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agamariel/markstation/internal/models"
)

func TestHTTPSubmitter_Submit(t *testing.T) {
	receipt := &models.Receipt{
		ID:      uuid.New(),
		OrderID: "1001",
		DocType: "SALE",
		Total:   decimal.NewFromInt(50),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DocPath, r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "1001", body["doc_num"])
		assert.Equal(t, "SALE", body["doc_type"])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	require.NoError(t, NewHTTPSubmitter(srv.URL+"/", "token", 0).Submit(context.Background(), receipt))
}

func TestHTTPSubmitter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"bad request", http.StatusBadRequest},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			err := NewHTTPSubmitter(srv.URL, "token", 0).Submit(context.Background(), &models.Receipt{})
			require.Error(t, err)
			if tt.status == http.StatusUnauthorized {
				assert.ErrorIs(t, err, ErrTokenRejected)
			}
		})
	}
}
