// Mingle - Offline Meetup Platform
// Copyright 2026 Mingle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/minglehq/mingle

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minglehq/mingle/internal/auth"
	"github.com/minglehq/mingle/internal/config"
	"github.com/minglehq/mingle/internal/middleware"
)

// NewRouter assembles the full HTTP surface: health and metrics are open,
// everything else sits behind token auth and per-IP rate limiting.
func NewRouter(handler *Handler, verifier *auth.Verifier, cfg *config.SecurityConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute)) // generous, monitors poll these
		r.Get("/live", handler.HealthLive)
		r.Get("/ready", handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if !cfg.RateLimitDisabled {
			r.Use(httprate.LimitByRealIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		}
		r.Use(middleware.PrometheusMetrics)
		r.Use(auth.Middleware(verifier))

		// The WebSocket upgrade must not pass through the gzip wrapper.
		r.Get("/ws", handler.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compression)

			r.Route("/rooms", func(r chi.Router) {
				r.Post("/", handler.CreateRoom)
				r.Get("/", handler.ListRooms)
				r.Get("/mine", handler.MyRooms)

				r.Route("/{roomID}", func(r chi.Router) {
					r.Get("/", handler.GetRoom)
					r.Post("/join", handler.JoinRoom)
					r.Post("/leave", handler.LeaveRoom)
					r.Get("/participants", handler.Participants)
					r.Put("/notice", handler.SetNotice)
					r.Post("/invites", handler.Invite)

					r.Post("/messages", handler.SendMessage)
					r.Get("/messages", handler.History)
					r.Post("/read", handler.MarkRead)
					r.Post("/images", handler.UploadImage)
					r.Post("/polls", handler.CreatePoll)
					r.Post("/bills", handler.SendBill)
				})
			})

			r.Route("/polls/{voteID}", func(r chi.Router) {
				r.Get("/", handler.GetPoll)
				r.Post("/votes", handler.CastVote)
			})

			r.Post("/messages/{messageID}/settle", handler.SettleBill)

			r.Route("/invites", func(r chi.Router) {
				r.Get("/", handler.PendingInvites)
				r.Post("/{inviteID}/accept", handler.AcceptInvite)
				r.Post("/{inviteID}/decline", handler.DeclineInvite)
			})
		})
	})

	return r
}
