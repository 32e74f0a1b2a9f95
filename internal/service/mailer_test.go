package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailer_Send(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		var got Email
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/email", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success":true,"messageId":"<abc@relay>"}`))
		}))
		defer srv.Close()

		id, err := NewMailer(srv.URL, testLogger()).Send(context.Background(), Email{
			To:      "patient@clinic.test",
			Subject: "Reset your password",
			HTML:    "<p>hi</p>",
		})
		require.NoError(t, err)
		assert.Equal(t, "<abc@relay>", id)
		assert.Equal(t, "patient@clinic.test", got.To)
	})

	t.Run("relay failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"success":false,"error":"smtp down"}`))
		}))
		defer srv.Close()

		_, err := NewMailer(srv.URL, testLogger()).Send(context.Background(), Email{To: "a@b.test", Subject: "s", HTML: "h"})
		assert.ErrorIs(t, err, ErrMailRelay)
		assert.Contains(t, err.Error(), "smtp down")
	})

	t.Run("relay unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewMailer(url, testLogger()).Send(context.Background(), Email{To: "a@b.test", Subject: "s", HTML: "h"})
		assert.Error(t, err)
	})
}
