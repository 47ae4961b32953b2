package main

import (
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kenfehling/drum-circle-api/internal/httpapi"
)

func setupServer(services *Services, cfg Config) *http.Server {
	mux := httpapi.Routes(httpapi.Handlers{
		Games:   httpapi.NewGameHandler(services.Games),
		Players: httpapi.NewPlayerHandler(services.Players),
		Effects: httpapi.NewEffectHandler(services.Games),
		Time:    httpapi.NewTimeHandler(clockwork.NewRealClock()),
		Hub:     services.Hub,
	})

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}
