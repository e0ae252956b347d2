// Command storefront-api-mock serves a local stand-in for the storefront
// REST API so the gateway can run without the real backend.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"storefront-bff/internal/config"
	"storefront-bff/internal/logging"
	"storefront-bff/internal/models"
)

type account struct {
	passwordHash []byte
	user         models.User
}

func mustHash(password string) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
}

var accounts = map[string]account{
	"admin@shop.test": {passwordHash: mustHash("admin123"), user: models.User{ID: "u-admin", Email: "admin@shop.test", IsAdmin: true}},
	"user@shop.test":  {passwordHash: mustHash("user123"), user: models.User{ID: "u-1", Email: "user@shop.test"}},
}

type server struct {
	catalog     *catalog
	tokens      *tokenIssuer
	orderSeq    atomic.Int64
	chunkDelay  time.Duration
	subscribers atomic.Int64
}

func main() {
	_ = godotenv.Load()
	cfg := config.NewConfig()
	logging.Init(logging.ParseLevel(cfg.LogLevel), "text")

	s := &server{
		catalog:    newCatalog(),
		tokens:     &tokenIssuer{secretKey: []byte(cfg.JWTSecret), ttl: 24 * time.Hour},
		chunkDelay: 80 * time.Millisecond,
	}

	port := os.Getenv("MOCK_API_PORT")
	if port == "" {
		port = "8081"
	}
	slog.Info("Storefront API mock listening", "port", port)
	if err := http.ListenAndServe(":"+port, s.routes()); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", s.listProducts)
	mux.HandleFunc("GET /api/products/search", s.searchProducts)
	mux.HandleFunc("GET /api/products/{id}", s.getProduct)
	mux.HandleFunc("GET /api/offer/active", s.activeOffer)
	mux.HandleFunc("POST /api/newsletter/subscribe", s.subscribe)
	mux.HandleFunc("POST /api/orders/place", s.tokens.requireToken(false, s.placeOrder))
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/verify-google-token", s.verifyGoogle)
	mux.HandleFunc("GET /api/auth/me", s.tokens.requireToken(false, s.me))
	mux.HandleFunc("POST /api/admin/products", s.tokens.requireToken(true, s.addProduct))
	mux.HandleFunc("PUT /api/admin/products/{id}", s.tokens.requireToken(true, s.updateProduct))
	mux.HandleFunc("DELETE /api/admin/products/{id}", s.tokens.requireToken(true, s.deleteProduct))
	mux.HandleFunc("POST /api/chat/stream", s.chat)

	return mux
}

func (s *server) listProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.list(r.URL.Query().Get("category")))
}

func (s *server) searchProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.search(r.URL.Query().Get("q")))
}

func (s *server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.catalog.get(r.PathValue("id"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) activeOffer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Offer{
		ID:                 "spring-glow",
		Title:              "Spring Glow Sale",
		Description:        "20% off everything that lights up.",
		DiscountPercentage: 20,
		EndDate:            time.Now().AddDate(0, 0, 14).Format("2006-01-02"),
	})
}

func (s *server) subscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !strings.Contains(body.Email, "@") {
		writeJSON(w, http.StatusOK, map[string]bool{"success": false})
		return
	}
	slog.Info("Newsletter subscription", "email", body.Email, "total", s.subscribers.Add(1))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *server) placeOrder(w http.ResponseWriter, r *http.Request) {
	var order models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid order payload")
		return
	}
	if len(order.CartItems) == 0 {
		writeJSON(w, http.StatusOK, models.OrderResult{Success: false})
		return
	}

	id := fmt.Sprintf("ORD-%05d", s.orderSeq.Add(1))
	slog.Info("Order placed", "order_id", id, "total", order.Total.String(), "method", order.PaymentMethod)
	writeJSON(w, http.StatusOK, models.OrderResult{Success: true, OrderID: id})
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acc, ok := accounts[strings.ToLower(strings.TrimSpace(body.Email))]
	if !ok || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(body.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.respondWithToken(w, acc.user)
}

func (s *server) verifyGoogle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDToken string `json:"idToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IDToken == "" {
		writeMessage(w, http.StatusBadRequest, "Missing Google ID token")
		return
	}

	// Any non-empty token is accepted; the id is derived from it so repeat
	// sign-ins map to the same user.
	suffix := body.IDToken
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	s.respondWithToken(w, models.User{ID: "g-" + suffix, Email: "google-" + suffix + "@shop.test"})
}

func (s *server) respondWithToken(w http.ResponseWriter, user models.User) {
	token, err := s.tokens.issue(user)
	if err != nil {
		slog.Error("Token signing failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, models.AuthResponse{User: &user, Token: token})
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	user, _ := r.Context().Value(userKey{}).(*models.User)
	writeJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

func (s *server) addProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid product payload")
		return
	}
	writeJSON(w, http.StatusCreated, s.catalog.add(in))
}

func (s *server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid product payload")
		return
	}
	p, ok := s.catalog.update(r.PathValue("id"), in)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": s.catalog.remove(r.PathValue("id"))})
}

// chat streams a canned reply word by word. A prompt containing "fail"
// produces an error event mid-stream.
func (s *server) chat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Prompt) == "" {
		writeMessage(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	rc := http.NewResponseController(w)

	reply := fmt.Sprintf("You asked about %q. Our Moon Lamp and Aurora Strip are popular picks right now.", body.Prompt)
	for i, word := range strings.Fields(reply) {
		if i > 0 {
			word = " " + word
		}
		frame, _ := json.Marshal(map[string]string{"text": word})
		fmt.Fprintf(w, "data: %s\n\n", frame)
		rc.Flush()

		if i == 3 && strings.Contains(strings.ToLower(body.Prompt), "fail") {
			fmt.Fprint(w, "event: error\ndata: {\"error\":\"model overloaded\"}\n\n")
			rc.Flush()
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(s.chunkDelay):
		}
	}
	fmt.Fprint(w, "event: done\ndata: {}\n\n")
	rc.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
