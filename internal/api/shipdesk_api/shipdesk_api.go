package shipdesk_api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/payments"
	"github.com/BearBump/ShipDesk/internal/services/identity"
	"github.com/BearBump/ShipDesk/internal/services/shipments"
	"github.com/BearBump/ShipDesk/internal/services/tracking"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// ShipDeskAPI is the JSON boundary: session endpoints, the two-phase booking
// flow, the owner's shipment views, and the public tracking lookup.
type ShipDeskAPI struct {
	identity  *identity.Service
	shipments *shipments.Service
	tracking  *tracking.Service

	// ready reports whether downstream dependencies answer; nil means
	// always ready.
	ready func(ctx context.Context) error
}

func New(id *identity.Service, sh *shipments.Service, tr *tracking.Service, ready func(ctx context.Context) error) *ShipDeskAPI {
	return &ShipDeskAPI{identity: id, shipments: sh, tracking: tr, ready: ready}
}

func (a *ShipDeskAPI) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.ready != nil {
			if err := a.ready(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", a.handleSignup)
		r.Post("/auth/login", a.handleLogin)
		r.Get("/track/{trackingNumber}", a.handleTrack)

		r.Group(func(r chi.Router) {
			r.Use(a.requireSession)
			r.Post("/auth/logout", a.handleLogout)
			r.Get("/auth/session", a.handleSession)

			r.Post("/shipments", a.handleCreateDraft)
			r.Get("/shipments", a.handleListShipments)
			r.Get("/shipments/stats", a.handleStats)
			r.Get("/shipments/drafts/{draftID}", a.handleGetDraft)
			r.Post("/shipments/drafts/{draftID}/confirm", a.handleConfirm)
			r.Delete("/shipments/drafts/{draftID}", a.handleCancelDraft)
			r.Post("/shipments/{shipmentID}/status", a.handleStatusChange)
		})
	})

	return r
}

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

func (a *ShipDeskAPI) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, models.ErrInvalidCredentials)
			return
		}
		u, ok, err := a.identity.CurrentSession(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}
		if !ok {
			writeError(w, models.ErrInvalidCredentials)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, u)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func sessionUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}

func sessionToken(r *http.Request) string {
	t, _ := r.Context().Value(tokenKey).(string)
	return t
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

type sessionResponse struct {
	Token string   `json:"token,omitempty"`
	User  userView `json:"user"`
}

func (a *ShipDeskAPI) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decode(w, r, &req) {
		return
	}
	u, token, err := a.identity.SignUp(r.Context(), identity.SignupInput{
		Email: req.Email, Password: req.Password, FullName: req.FullName, Phone: req.Phone,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: toUserView(u)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *ShipDeskAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	u, token, err := a.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: toUserView(u)})
}

func (a *ShipDeskAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.identity.Logout(r.Context(), sessionToken(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *ShipDeskAPI) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{User: toUserView(sessionUser(r))})
}

type shipmentRequest struct {
	SenderName    string `json:"senderName"`
	SenderAddress string `json:"senderAddress"`
	SenderPhone   string `json:"senderPhone"`

	ReceiverName    string `json:"receiverName"`
	ReceiverAddress string `json:"receiverAddress"`
	ReceiverPhone   string `json:"receiverPhone"`

	PackageWeight     float64 `json:"packageWeight"`
	PackageDimensions string  `json:"packageDimensions"`
	ServiceType       string  `json:"serviceType"`
}

func (a *ShipDeskAPI) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req shipmentRequest
	if !decode(w, r, &req) {
		return
	}
	sh, err := a.shipments.CreateDraft(r.Context(), sessionUser(r).ID, models.ShipmentInput{
		SenderName:    req.SenderName,
		SenderAddress: req.SenderAddress,
		SenderPhone:   req.SenderPhone,

		ReceiverName:    req.ReceiverName,
		ReceiverAddress: req.ReceiverAddress,
		ReceiverPhone:   req.ReceiverPhone,

		PackageWeight:     req.PackageWeight,
		PackageDimensions: req.PackageDimensions,
		ServiceType:       req.ServiceType,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShipmentView(sh))
}

func (a *ShipDeskAPI) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	sh, err := a.shipments.GetDraft(r.Context(), sessionUser(r).ID, chi.URLParam(r, "draftID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentView(sh))
}

type confirmRequest struct {
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
	HolderName string `json:"holderName"`
}

func (a *ShipDeskAPI) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decode(w, r, &req) {
		return
	}
	sh, err := a.shipments.ConfirmPayment(r.Context(), sessionUser(r).ID, chi.URLParam(r, "draftID"), payments.Card{
		Number:     req.CardNumber,
		ExpiryDate: req.ExpiryDate,
		CVV:        req.CVV,
		HolderName: req.HolderName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShipmentView(sh))
}

func (a *ShipDeskAPI) handleCancelDraft(w http.ResponseWriter, r *http.Request) {
	if err := a.shipments.CancelDraft(r.Context(), sessionUser(r).ID, chi.URLParam(r, "draftID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *ShipDeskAPI) handleListShipments(w http.ResponseWriter, r *http.Request) {
	list, err := a.shipments.ListForUser(r.Context(), sessionUser(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]shipmentView, 0, len(list))
	for _, sh := range list {
		out = append(out, toShipmentView(sh))
	}
	writeJSON(w, http.StatusOK, map[string]any{"shipments": out})
}

func (a *ShipDeskAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.shipments.StatsForUser(r.Context(), sessionUser(r).ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type statusChangeRequest struct {
	Status string `json:"status"`
}

func (a *ShipDeskAPI) handleStatusChange(w http.ResponseWriter, r *http.Request) {
	var req statusChangeRequest
	if !decode(w, r, &req) {
		return
	}
	// Owner check before the transition touches anything.
	sh, err := a.shipments.GetForUser(r.Context(), sessionUser(r).ID, chi.URLParam(r, "shipmentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := a.shipments.RecordStatusChange(r.Context(), sh.ID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShipmentView(updated))
}

func (a *ShipDeskAPI) handleTrack(w http.ResponseWriter, r *http.Request) {
	res, err := a.tracking.TrackByNumber(r.Context(), chi.URLParam(r, "trackingNumber"))
	if err != nil {
		writeError(w, err)
		return
	}
	events := make([]eventView, 0, len(res.Events))
	for _, e := range res.Events {
		events = append(events, toEventView(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shipment": toShipmentView(res.Shipment),
		"events":   events,
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, &models.ValidationError{Field: "body", Reason: "invalid JSON"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var vErr *models.ValidationError
	var tErr *models.TransitionError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &vErr):
		status = http.StatusBadRequest
	case errors.As(err, &tErr):
		status = http.StatusConflict
	case errors.Is(err, models.ErrDuplicateUser):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, payments.ErrDeclined):
		status = http.StatusPaymentRequired
	}

	if status == http.StatusInternalServerError {
		slog.Error("api request failed", "error", err.Error())
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
