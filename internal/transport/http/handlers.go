package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/netip"

	"geodash/internal/domain"
	"geodash/internal/geoip"
	"geodash/internal/jsonfield"
	"geodash/internal/netutil"
	"geodash/internal/token"
)

// AuthService is what the handlers need from the application layer.
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	Seed(ctx context.Context) (*domain.User, bool, error)
}

type HistoryService interface {
	List(ctx context.Context, userID int64) ([]domain.SearchHistory, error)
	Create(ctx context.Context, userID int64, rec *domain.SearchHistory) (*domain.SearchHistory, error)
	Delete(ctx context.Context, userID int64, ids []int64) error
}

type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (*domain.Geolocation, error)
}

type handlers struct {
	auth     AuthService
	history  HistoryService
	resolver GeoResolver
	tokens   *token.Manager
	logger   *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// internalError hides the cause behind a generic 500; details go to the log
// only.
func (h *handlers) internalError(r *http.Request, w http.ResponseWriter, err error) {
	h.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
}

// clientIP derives a lookup target from the connection when the caller did
// not name one. RealIP middleware has already folded X-Real-IP/X-Forwarded-For
// into RemoteAddr. Loopback and private addresses mean nothing to the
// providers, so those collapse to "" and the chain answers for its own egress
// address instead.
func clientIP(r *http.Request) string {
	host, ok := netutil.NormalizeIP(r.RemoteAddr)
	if !ok {
		return ""
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || addr.IsLoopback() || addr.IsPrivate() || !addr.IsGlobalUnicast() {
		return ""
	}
	return host
}

func (h *handlers) handleGeolocation(w http.ResponseWriter, r *http.Request) {
	ip := r.URL.Query().Get("ip")
	if ip == "" {
		ip = clientIP(r)
	}

	rec, err := h.resolver.Resolve(r.Context(), ip)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rec)
	case errors.Is(err, domain.ErrInvalidIP):
		writeMessage(w, http.StatusBadRequest, "Invalid IP address")
	case errors.Is(err, geoip.ErrAllProvidersFailed):
		// Only reachable when the synthetic fallback is switched off.
		writeMessage(w, http.StatusBadGateway, "Geolocation providers unavailable")
	default:
		h.internalError(r, w, err)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	tok, _, err := h.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		http.SetCookie(w, h.tokens.SessionCookie(tok))
		writeMessage(w, http.StatusOK, "Login successful")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		h.internalError(r, w, err)
	}
}

func (h *handlers) handleSeed(w http.ResponseWriter, r *http.Request) {
	user, created, err := h.auth.Seed(r.Context())
	if err != nil {
		h.internalError(r, w, err)
		return
	}
	msg := "User already exists - Credentials Updated"
	status := "exists"
	if created {
		msg = "New User Seeded Successfully"
		status = "created"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"status":  status,
		"email":   user.Email,
	})
}

func (h *handlers) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	claims, ok := SessionFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	recs, err := h.history.List(r.Context(), claims.UserID)
	if err != nil {
		h.internalError(r, w, err)
		return
	}
	if recs == nil {
		recs = []domain.SearchHistory{}
	}
	writeJSON(w, http.StatusOK, recs)
}

type createHistoryRequest struct {
	IPAddress string          `json:"ipAddress"`
	City      string          `json:"city"`
	Region    string          `json:"region"`
	Country   string          `json:"country"`
	ISP       string          `json:"isp"`
	ASN       string          `json:"asn"`
	Timezone  string          `json:"timezone"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	GeoInfo   json.RawMessage `json:"geoInfo"`
}

func (h *handlers) handleHistoryCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := SessionFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.IPAddress == "" {
		writeMessage(w, http.StatusBadRequest, "ipAddress is required")
		return
	}

	rec := &domain.SearchHistory{
		IPAddress: req.IPAddress,
		City:      req.City,
		Region:    req.Region,
		Country:   req.Country,
		ISP:       req.ISP,
		ASN:       req.ASN,
		Timezone:  req.Timezone,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		GeoInfo:   jsonfield.JSON(req.GeoInfo),
	}
	created, err := h.history.Create(r.Context(), claims.UserID, rec)
	if err != nil {
		h.internalError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

type deleteHistoryRequest struct {
	IDs json.RawMessage `json:"ids"`
}

func (h *handlers) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	claims, ok := SessionFrom(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req deleteHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// ids must be a JSON array; null, numbers and strings are rejected
	// before touching the store. Unmarshal alone would wave null through as
	// a nil slice.
	var ids []int64
	trimmed := bytes.TrimLeft(req.IDs, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '[' || json.Unmarshal(trimmed, &ids) != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid IDs provided")
		return
	}

	if err := h.history.Delete(r.Context(), claims.UserID, ids); err != nil {
		h.internalError(r, w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Deleted successfully")
}
