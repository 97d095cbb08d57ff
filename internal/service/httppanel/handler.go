// Package httppanel отдаёт состояние корзины панели витрины в JSON
// и принимает действия покупателя. Собственного состояния не хранит.
package httppanel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront-cart/internal/cart"
	"github.com/vladislavdragonenkov/storefront-cart/internal/checkout"
	"github.com/vladislavdragonenkov/storefront-cart/internal/domain"
)

const (
	// SessionHeader: заголовок с идентификатором сессии корзины.
	SessionHeader = "X-Cart-Session"
	// SessionCookie: cookie с тем же идентификатором для браузера.
	SessionCookie = "cart_session"

	maxBodyBytes = 64 << 10
)

// SessionStore выдаёт корзину по идентификатору сессии.
type SessionStore interface {
	GetOrCreate(id string, factory func() *cart.Store) (*cart.Store, bool)
	Get(id string) (*cart.Store, error)
}

// Handler: HTTP-адаптер панели корзины.
type Handler struct {
	sessions SessionStore
	newStore func() *cart.Store
	validate *validator.Validate
	logger   *log.Entry
	mux      *http.ServeMux
	onCreate func(active int)
}

// Option настраивает Handler.
type Option func(*Handler)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithSessionCreated задаёт обработчик создания новой сессии.
func WithSessionCreated(fn func(active int)) Option {
	return func(h *Handler) {
		h.onCreate = fn
	}
}

// NewHandler создаёт адаптер. newStore вызывается для каждой новой сессии.
func NewHandler(sessions SessionStore, newStore func() *cart.Store, options ...Option) *Handler {
	h := &Handler{
		sessions: sessions,
		newStore: newStore,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, option := range options {
		option(h)
	}
	if h.logger == nil {
		h.logger = log.WithField("component", "http-panel")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", h.getCart)
	mux.HandleFunc("POST /cart/items", h.withSession(h.addItem))
	mux.HandleFunc("DELETE /cart/items", h.withSession(h.clear))
	mux.HandleFunc("DELETE /cart/items/{id}", h.withSession(h.removeItem))
	mux.HandleFunc("PUT /cart/items/{id}/quantity", h.withSession(h.updateQuantity))
	mux.HandleFunc("POST /cart/toggle", h.withSession(h.toggle))
	mux.HandleFunc("POST /cart/checkout", h.withSession(h.checkout))
	h.mux = mux

	return h
}

// ServeHTTP передаёт запрос маршрутизатору и логирует результат.
// Корзина сессии создаётся только для изменяющих маршрутов.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)

	h.logger.WithFields(log.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"status":   rec.status,
		"session":  w.Header().Get(SessionHeader),
		"duration": time.Since(start).String(),
	}).Debug("panel request handled")
}

// withSession находит или создаёт корзину сессии и кладёт её в контекст запроса.
func (h *Handler) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := sessionIDFrom(r)
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		store, created := h.sessions.GetOrCreate(sessionID, h.newStore)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			if h.onCreate != nil {
				if counter, ok := h.sessions.(interface{ Len() int }); ok {
					h.onCreate(counter.Len())
				}
			}
		}
		w.Header().Set(SessionHeader, sessionID)

		next(w, r.WithContext(cart.WithStore(r.Context(), store)))
	}
}

// AddItemRequest: товар, добавляемый в корзину. ID и Price принимают строку или число.
type AddItemRequest struct {
	ID       any    `json:"id" validate:"required"`
	Title    string `json:"title" validate:"required,max=256"`
	Price    any    `json:"price"`
	ImageURL string `json:"imageUrl" validate:"omitempty,max=2048"`
}

// UpdateQuantityRequest: новое абсолютное количество.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// CheckoutResponse: состояние после оформления и ссылки, которые браузер должен открыть.
type CheckoutResponse struct {
	Cart       domain.CartSnapshot `json:"cart"`
	LaunchURLs []string            `json:"launchUrls"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// getCart только читает: для неизвестной сессии отдаёт пустую корзину, не создавая её.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDFrom(r)
	if sessionID == "" {
		writeJSON(w, http.StatusOK, cart.EmptySnapshot())
		return
	}

	store, err := h.sessions.Get(sessionID)
	if err != nil {
		writeJSON(w, http.StatusOK, cart.EmptySnapshot())
		return
	}
	w.Header().Set(SessionHeader, sessionID)
	writeJSON(w, http.StatusOK, store.Snapshot())
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if !isScalar(req.ID) {
		writeError(w, http.StatusBadRequest, errors.New("field ID must be a string or a number"))
		return
	}
	if req.Price != nil && !isScalar(req.Price) {
		writeError(w, http.StatusBadRequest, errors.New("field Price must be a string or a number"))
		return
	}

	store := cart.MustFromContext(r.Context())
	store.AddItem(domain.Product{
		ID:       domain.ItemIDFrom(req.ID),
		Title:    req.Title,
		Price:    req.Price,
		ImageURL: req.ImageURL,
	})
	writeJSON(w, http.StatusOK, store.Snapshot())
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	store := cart.MustFromContext(r.Context())
	store.RemoveItem(domain.ItemIDFrom(r.PathValue("id")))
	writeJSON(w, http.StatusOK, store.Snapshot())
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	store := cart.MustFromContext(r.Context())
	store.UpdateQuantity(domain.ItemIDFrom(r.PathValue("id")), *req.Quantity)
	writeJSON(w, http.StatusOK, store.Snapshot())
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	store := cart.MustFromContext(r.Context())
	store.Clear()
	writeJSON(w, http.StatusOK, store.Snapshot())
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	store := cart.MustFromContext(r.Context())
	store.ToggleOpen()
	writeJSON(w, http.StatusOK, store.Snapshot())
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	store := cart.MustFromContext(r.Context())

	ctx, launched := checkout.WithURLCapture(r.Context())
	if err := store.SendCheckout(ctx); err != nil {
		h.logger.WithError(err).Warn("checkout failed")
		status := http.StatusInternalServerError
		if domain.IsCheckoutLaunchError(err) {
			status = http.StatusBadGateway
		}
		writeError(w, status, err)
		return
	}

	urls := launched()
	if urls == nil {
		urls = []string{}
	}
	writeJSON(w, http.StatusOK, CheckoutResponse{Cart: store.Snapshot(), LaunchURLs: urls})
}

// decode читает JSON-тело (числа остаются json.Number) и проверяет его через validator.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.UseNumber()
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			first := validationErrs[0]
			return fmt.Errorf("field %s failed %q validation", first.Field(), first.Tag())
		}
		return err
	}
	return nil
}

// sessionIDFrom возвращает канонический UUID сессии из заголовка или cookie; всё, что не UUID, считается отсутствием сессии.
func sessionIDFrom(r *http.Request) string {
	raw := r.Header.Get(SessionHeader)
	if raw == "" {
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			raw = cookie.Value
		}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return id.String()
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, json.Number:
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
