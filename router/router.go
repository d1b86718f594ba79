// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/bus2ride/livepolls/cache"
	"github.com/bus2ride/livepolls/cliparse"
	"github.com/bus2ride/livepolls/handlers"
	"github.com/bus2ride/livepolls/live"
	"github.com/bus2ride/livepolls/middleware"
	"github.com/bus2ride/livepolls/traffic"
)

// Services are the optional collaborators of the handlers. Nil fields get
// defaults: an in-memory cache, a traffic client without an API key, and
// no live results.
type Services struct {
	Cache   cache.Cache
	Traffic *traffic.Client
	Live    *live.Hub
}

func NewRouter(db *sql.DB, cfg cliparse.Config, svc Services) *http.ServeMux {
	mux := http.NewServeMux()

	if svc.Cache == nil {
		svc.Cache = cache.NewMemory()
	}
	if svc.Traffic == nil {
		svc.Traffic = traffic.NewClient(cfg.TrafficAPIKey)
	}
	var publisher handlers.Publisher
	if svc.Live != nil {
		publisher = svc.Live
	}

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(db, cfg)
	votingHandler := handlers.NewVotingHandler(db, cfg, publisher)
	resultsHandler := handlers.NewResultsHandler(db, cfg, svc.Live)
	analyticsHandler := handlers.NewAnalyticsHandler(db, cfg, svc.Cache)
	embedHandler := handlers.NewEmbedHandler(db, cfg)
	trafficHandler := handlers.NewTrafficHandler(svc.Traffic)
	leadHandler := handlers.NewLeadHandler(db, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Poll browsing (public)
	mux.HandleFunc("GET /polls", middleware.WithLogging(pollHandler.ListPolls))
	mux.HandleFunc("GET /polls/columns", middleware.WithLogging(pollHandler.Columns))
	mux.HandleFunc("GET /polls/hot", middleware.WithLogging(pollHandler.HotPolls))
	mux.HandleFunc("GET /polls/analytics", middleware.WithLogging(analyticsHandler.Filtered))
	mux.HandleFunc("GET /polls/{id}", middleware.WithLogging(pollHandler.GetPoll))
	mux.HandleFunc("GET /categories", middleware.WithLogging(pollHandler.ListCategories))
	mux.HandleFunc("GET /locations/{city}/polls", middleware.WithLogging(pollHandler.LocationPolls))

	// Content management (admin, requires X-Admin-Key)
	mux.HandleFunc("POST /categories", middleware.WithLogging(pollHandler.CreateCategory))
	mux.HandleFunc("POST /polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("POST /polls/{id}/options", middleware.WithLogging(pollHandler.AddOption))

	// Voting (public)
	mux.HandleFunc("POST /voter-tokens", middleware.WithLogging(votingHandler.IssueVoterToken))
	mux.HandleFunc("POST /polls/{id}/votes", middleware.WithLogging(votingHandler.CastVote))
	mux.HandleFunc("POST /polls/{id}/views", middleware.WithLogging(votingHandler.RecordView))
	mux.HandleFunc("POST /rpc/increment_poll_vote1", middleware.WithLogging(votingHandler.IncrementVoteRPC))
	mux.HandleFunc("POST /rpc/increment_poll_view", middleware.WithLogging(votingHandler.IncrementViewRPC))

	// Results
	mux.HandleFunc("GET /polls/{id}/results", middleware.WithLogging(resultsHandler.GetResults))
	mux.HandleFunc("GET /polls/{id}/live", middleware.WithLogging(resultsHandler.Live))

	// Embeds
	mux.HandleFunc("GET /polls/{id}/embed-code", middleware.WithLogging(embedHandler.EmbedCode))
	mux.HandleFunc("GET /embed/polls/{id}", middleware.WithLogging(middleware.AllowFraming(embedHandler.LivePoll)))
	mux.HandleFunc("GET /embed/polls/{id}/results", middleware.WithLogging(middleware.AllowFraming(embedHandler.ResultsPoll)))

	// Analytics
	mux.HandleFunc("GET /analytics", middleware.WithLogging(analyticsHandler.Get))
	mux.HandleFunc("GET /analytics/stats", middleware.WithLogging(analyticsHandler.Stats))
	mux.HandleFunc("GET /analytics/live", middleware.WithLogging(analyticsHandler.Live))
	mux.HandleFunc("GET /analytics/facts", middleware.WithLogging(analyticsHandler.Facts))

	// Site helpers
	mux.HandleFunc("GET /traffic", middleware.WithLogging(trafficHandler.Conditions))
	mux.HandleFunc("POST /leads", middleware.WithLogging(leadHandler.CreateLead))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("livepolls API v1"))
	})

	return mux
}
