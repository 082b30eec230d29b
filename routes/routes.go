package routes

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/godaddy/spree-ccavenue-api/controllers"
	"github.com/godaddy/spree-ccavenue-api/controllers/admins"
	"github.com/godaddy/spree-ccavenue-api/database"
	"github.com/godaddy/spree-ccavenue-api/middleware"
)

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "ccavenue-payments-api",
	})
}

func InitRouter() *mux.Router {
	r := mux.NewRouter()

	// Health check endpoint for Docker health checks (root level)
	r.Handle("/health", http.HandlerFunc(healthHandler)).Methods(http.MethodGet)

	// CORS - origins from CORS_ALLOWED_ORIGINS (comma-separated) or local defaults
	origins := []string{
		"http://localhost:3000", "http://localhost:8080",
		"http://127.0.0.1:3000", "http://127.0.0.1:8080",
	}
	if originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS"); originsEnv != "" {
		for _, p := range strings.Split(originsEnv, ",") {
			if o := strings.TrimSpace(p); o != "" {
				origins = append(origins, o)
			}
		}
	}
	r.Use(func(next http.Handler) http.Handler {
		return handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}),
			handlers.AllowCredentials(),
		)(next)
	})

	api := r.PathPrefix("/api").Subrouter()

	// Catch-all OPTIONS handler for CORS preflight
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)

	api.Handle("/health", http.HandlerFunc(healthHandler)).Methods(http.MethodGet)

	// Gateway callback limiter: sliding window per IP; the gateway's own
	// callback source IPs can be whitelisted via CALLBACK_IP_WHITELIST.
	var whitelist []string
	if v := os.Getenv("CALLBACK_IP_WHITELIST"); v != "" {
		whitelist = strings.Split(v, ",")
	}
	callbackLimiter := middleware.NewCallbackLimiter(500, time.Hour, whitelist)

	// Admin login limiter: tight window against credential stuffing
	loginLimiter := middleware.NewIPRateLimiter(20, time.Minute)

	checkout := controllers.NewCheckoutController(database.DB)

	// Checkout: gateway hand-off, encrypted return callback, order status poll
	api.Handle("/checkout/{order_number}/pay", http.HandlerFunc(checkout.Pay)).Methods(http.MethodGet)
	api.Handle("/checkout/callback", callbackLimiter.Middleware(http.HandlerFunc(checkout.Callback))).Methods(http.MethodPost)
	api.Handle("/checkout/{order_number}/status", http.HandlerFunc(checkout.Status)).Methods(http.MethodGet)

	// Admin surface
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Handle("/login", loginLimiter.Middleware(http.HandlerFunc(admins.Login))).Methods(http.MethodPost)
	admin.Handle("/logout", http.HandlerFunc(admins.Logout)).Methods(http.MethodPost)

	protected := admin.NewRoute().Subrouter()
	protected.Use(middleware.AdminAuthMiddleware)
	protected.Handle("/gateway_settings", http.HandlerFunc(admins.GetGatewaySettingsHandler)).Methods(http.MethodGet)
	protected.Handle("/gateway_settings", http.HandlerFunc(admins.UpdateGatewaySettingsHandler)).Methods(http.MethodPut)
	protected.Handle("/gateway_settings/validate", http.HandlerFunc(admins.ValidateGatewaySettingsHandler)).Methods(http.MethodPost)
	protected.Handle("/transactions", http.HandlerFunc(admins.GetTransactions)).Methods(http.MethodGet)
	protected.Handle("/transactions/{id}/sync", http.HandlerFunc(admins.SyncTransaction)).Methods(http.MethodPost)

	return r
}
