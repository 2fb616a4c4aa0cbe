package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Jacobbrewer1/ticketdesk/pkg/request"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &statusWriter{ResponseWriter: rec}
	require.Equal(t, http.StatusOK, w.StatusCode())

	w.WriteHeader(http.StatusTeapot)
	require.Equal(t, http.StatusTeapot, w.StatusCode())
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMiddlewareHttp(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("passes through", func(t *testing.T) {
		r := mux.NewRouter()
		r.HandleFunc("/ok", middlewareHttp(l, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
		require.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("recovers from panic", func(t *testing.T) {
		r := mux.NewRouter()
		r.HandleFunc("/panic", middlewareHttp(l, func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		msg := new(request.Message)
		require.NoError(t, json.NewDecoder(rec.Body).Decode(msg))
		require.Equal(t, http.StatusText(http.StatusInternalServerError), msg.Message)
	})
}
