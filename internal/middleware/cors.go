package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"

	"courier-backend/internal/config"
)

// ownerHeader must always survive CORS filtering; every API call
// carries it, so a config that forgets it would break browser clients.
const ownerHeader = "X-Owner-ID"

func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	headers := cfg.Server.CorsAllowedHeaders
	if !containsHeader(headers, ownerHeader) {
		headers = append(append([]string(nil), headers...), ownerHeader)
	}

	maxAge := cfg.Server.CorsMaxAge
	if maxAge <= 0 {
		maxAge = 300
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CorsAllowedOrigins,
		AllowedMethods:   cfg.Server.CorsAllowedMethods,
		AllowedHeaders:   headers,
		AllowCredentials: true,
		MaxAge:           maxAge,
	})

	return c.Handler
}

func containsHeader(headers []string, name string) bool {
	for _, h := range headers {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}
