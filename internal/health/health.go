package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status: состояние компонента сервиса корзин.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check: результат проверки одного компонента.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response: ответ /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет компонент.
type Checker interface {
	Check() Check
}

// Handler отвечает на /healthz и /readyz.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	startTime time.Time
}

// NewHandler создаёт handler с версией сборки в ответе.
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		startTime: time.Now(),
	}
}

// RegisterChecker добавляет проверку компонента.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Evaluate выполняет все проверки и сводит их в общий статус:
// хотя бы одна unhealthy: unhealthy, иначе хотя бы одна degraded: degraded.
func (h *Handler) Evaluate() Response {
	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]Checker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	h.mu.RUnlock()
	sort.Strings(names)

	checks := make(map[string]Check, len(names))
	overall := StatusHealthy
	for _, name := range names {
		check := checkers[name].Check()
		checks[name] = check

		switch {
		case check.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case check.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	return Response{
		Status:        overall,
		Timestamp:     time.Now(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
}

// ServeHTTP отдаёт полный отчёт; 503 только для unhealthy.
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	response := h.Evaluate()

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// ReadinessHandler отвечает "ready", пока нет unhealthy компонентов.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	if h.Evaluate().Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// LivenessHandler всегда отвечает 200.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// FuncChecker: проверка на основе функции; ошибка означает unhealthy.
type FuncChecker struct {
	name    string
	checkFn func() error
}

// NewFuncChecker создаёт проверку из функции.
func NewFuncChecker(name string, checkFn func() error) *FuncChecker {
	return &FuncChecker{name: name, checkFn: checkFn}
}

// Check выполняет функцию и замеряет время.
func (c *FuncChecker) Check() Check {
	start := time.Now()
	err := c.checkFn()
	check := Check{
		Name:       c.name,
		Status:     StatusHealthy,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// SessionCounter сообщает число корзин в памяти.
type SessionCounter interface {
	Len() int
}

// CapacityChecker переводит сервис в degraded, когда корзин в памяти больше limit.
type CapacityChecker struct {
	name     string
	sessions SessionCounter
	limit    int
}

// NewCapacityChecker создаёт проверку заполненности хранилища сессий.
func NewCapacityChecker(name string, sessions SessionCounter, limit int) *CapacityChecker {
	return &CapacityChecker{name: name, sessions: sessions, limit: limit}
}

// Check сравнивает текущее число сессий с лимитом.
func (c *CapacityChecker) Check() Check {
	start := time.Now()
	active := c.sessions.Len()
	check := Check{
		Name:       c.name,
		Status:     StatusHealthy,
		Message:    fmt.Sprintf("%d active sessions", active),
		DurationMs: time.Since(start).Milliseconds(),
	}
	// на лимите реестр уже вытесняет самые старые сессии
	if c.limit > 0 && active >= c.limit {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("%d active sessions reached limit %d", active, c.limit)
	}
	return check
}
