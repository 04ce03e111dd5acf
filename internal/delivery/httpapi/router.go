package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/botaqiy/botaqiy/internal/metrics"
)

// NewRouter wires every route. m may be nil; /metrics is served from gatherer
// when it is set.
func NewRouter(h *Handler, m *metrics.Metrics, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern, route string, fn http.HandlerFunc) {
		var next http.Handler = fn
		if m != nil {
			next = m.Middleware(route, next)
		}
		mux.Handle(pattern, next)
	}

	handle("POST /functions/extract-text", "extract_text", h.ExtractText)
	handle("POST /functions/generate-flashcards", "generate_flashcards", h.GenerateFlashcards)
	handle("POST /functions/generate-scenario", "generate_scenario", h.GenerateScenario)
	handle("POST /functions/calculate-score", "calculate_score", h.CalculateScore)
	handle("POST /functions/purchase-reward", "purchase_reward", h.PurchaseReward)

	handle("GET /api/progress/{userID}", "progress", h.GetProgress)
	handle("GET /api/scenarios", "scenarios", h.ListScenarios)
	handle("GET /api/scenarios/{id}", "scenario", h.GetScenario)
	handle("GET /api/rewards", "rewards", h.ListRewards)
	handle("GET /api/users/{userID}/rewards", "user_rewards", h.ListPurchases)
	handle("POST /api/sessions", "create_session", h.CreateSession)
	handle("GET /api/sessions/{id}", "session", h.GetSession)
	handle("GET /api/users/{userID}/sessions", "user_sessions", h.ListSessions)
	handle("GET /api/profiles/{userID}", "profile", h.GetProfile)
	handle("PUT /api/profiles/{userID}", "save_profile", h.PutProfile)
	handle("POST /api/sync", "sync", h.Sync)

	mux.HandleFunc("GET /healthz", h.Healthz)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return CORS(mux)
}

// CORS allows any origin and answers preflight requests.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
