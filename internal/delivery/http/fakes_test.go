package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"quantshared/internal/domain"
	"quantshared/internal/middleware"
	"quantshared/internal/schema"
)

type fakeUserRepo struct {
	mu       sync.Mutex
	accounts []*domain.UserAccount
}

func (r *fakeUserRepo) Create(_ context.Context, account *domain.UserAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == account.Email || a.Username == account.Username {
			return domain.ErrAlreadyExists
		}
	}
	cp := *account
	r.accounts = append(r.accounts, &cp)
	return nil
}

func (r *fakeUserRepo) Register(_ context.Context, account *domain.UserAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role := domain.RoleViewer
	if len(r.accounts) == 0 {
		role = domain.RoleAdmin
	}
	for _, a := range r.accounts {
		if a.Email == account.Email || a.Username == account.Username {
			return domain.ErrAlreadyExists
		}
	}
	account.Role = role
	cp := *account
	r.accounts = append(r.accounts, &cp)
	return nil
}

func (r *fakeUserRepo) find(match func(*domain.UserAccount) bool) (*domain.UserAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.UserAccount, error) {
	return r.find(func(a *domain.UserAccount) bool { return a.ID == id })
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.UserAccount, error) {
	return r.find(func(a *domain.UserAccount) bool { return a.Email == email })
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	return r.find(func(a *domain.UserAccount) bool { return a.Username == username })
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.ID == id {
			a.LastLoginAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeUserRepo) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := []domain.User{}
	for i := offset; i < len(r.accounts) && len(users) < limit; i++ {
		users = append(users, r.accounts[i].User)
	}
	return users, nil
}

func (r *fakeUserRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts), nil
}

type fakeMarketRepo struct {
	mu   sync.Mutex
	bars []domain.OHLCVBar

	// failSymbol makes InsertBars fail for that symbol as a lost connection would
	failSymbol string
}

var errStorageDown = errors.New("connection reset by peer")

func (r *fakeMarketRepo) InsertBars(_ context.Context, _ string, bars []domain.OHLCVBar) (*domain.IngestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(bars) > 0 && strings.EqualFold(bars[0].Symbol, r.failSymbol) {
		return nil, errStorageDown
	}
	result := &domain.IngestResult{}
	for _, bar := range bars {
		var problems []string
		if err := bar.Validate(); err != nil {
			problems = append(problems, err.Error())
		}
		problems = append(problems, bar.CheckRange()...)
		if len(problems) > 0 {
			result.Errors = append(result.Errors, bar.Label()+": "+strings.Join(problems, ", "))
			continue
		}
		bar.Symbol = strings.ToUpper(bar.Symbol)
		r.bars = append(r.bars, bar)
		result.Inserted++
	}
	return result, nil
}

func (r *fakeMarketRepo) GetBars(_ context.Context, q domain.DataQuery) ([]domain.OHLCVBar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.OHLCVBar{}
	for _, b := range r.bars {
		if b.Symbol == q.Symbol && !b.Timestamp.Before(q.StartDate) && !b.Timestamp.After(q.EndDate) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *fakeMarketRepo) GetLatest(_ context.Context, symbol string) (*domain.OHLCVBar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.OHLCVBar
	for i := range r.bars {
		if r.bars[i].Symbol == symbol && (latest == nil || r.bars[i].Timestamp.After(latest.Timestamp)) {
			latest = &r.bars[i]
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeMarketRepo) summaries() []domain.SymbolSummary {
	bySymbol := map[string]*domain.SymbolSummary{}
	for _, b := range r.bars {
		s, ok := bySymbol[b.Symbol]
		if !ok {
			s = &domain.SymbolSummary{Symbol: b.Symbol, First: b.Timestamp, Last: b.Timestamp}
			bySymbol[b.Symbol] = s
		}
		s.Bars++
		if b.Timestamp.Before(s.First) {
			s.First = b.Timestamp
		}
		if b.Timestamp.After(s.Last) {
			s.Last = b.Timestamp
		}
	}
	out := make([]domain.SymbolSummary, 0, len(bySymbol))
	for _, s := range bySymbol {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (r *fakeMarketRepo) ListSymbols(_ context.Context, limit, offset int) ([]domain.SymbolSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.summaries()
	if offset >= len(all) {
		return []domain.SymbolSummary{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeMarketRepo) CountSymbols(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.summaries()), nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *fakeEventRepo) Publish(_ context.Context, event domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *fakeEventRepo) Recent(_ context.Context, limit int) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Event{}
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.events[i])
	}
	return out, nil
}

func (r *fakeEventRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	var removed int64
	for _, e := range r.events {
		if e.Meta().Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return removed, nil
}

func (r *fakeEventRepo) published() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

type testServer struct {
	echo   *echo.Echo
	auth   *middleware.Authenticator
	users  *fakeUserRepo
	market *fakeMarketRepo
	events *fakeEventRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	auth, err := middleware.NewAuthenticator("handler-test-secret", time.Hour)
	require.NoError(t, err)

	s := &testServer{
		echo:   echo.New(),
		auth:   auth,
		users:  &fakeUserRepo{},
		market: &fakeMarketRepo{},
		events: &fakeEventRepo{},
	}

	SetupRoutes(s.echo, &RouterConfig{
		Auth:              auth,
		AuthHandler:       NewAuthHandler(s.users, auth, false),
		SchemaHandler:     NewSchemaHandler(schema.New()),
		MarketDataHandler: NewMarketDataHandler(s.market, s.events),
		AnalyticsHandler:  NewAnalyticsHandler(),
		AdminHandler:      NewAdminHandler(s.users, s.events),
		Service:           "quantshared-test",
	})
	return s
}

// addUser stores an account with the given role and password "Secret123"
func (s *testServer) addUser(t *testing.T, id, username string, role domain.UserRole, active bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.users.Create(context.Background(), &domain.UserAccount{
		User: domain.User{
			ID:        id,
			Email:     username + "@example.com",
			Username:  username,
			FirstName: "Test",
			LastName:  "User",
			Role:      role,
			IsActive:  active,
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		PasswordHash: string(hash),
	}))
}

func (s *testServer) token(t *testing.T, role domain.UserRole) string {
	t.Helper()
	token, err := s.auth.GenerateJWT("user-"+strings.ToLower(string(role)), role)
	require.NoError(t, err)
	return token
}

type requestOption func(*http.Request)

func withToken(token string) requestOption {
	return func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+token) }
}

func withContentType(ct string) requestOption {
	return func(r *http.Request) { r.Header.Set(echo.HeaderContentType, ct) }
}

func (s *testServer) do(method, target, body string, opts ...requestOption) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *errorBody      `json:"error"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

type fieldDetail struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
}

func errorFields(t *testing.T, env envelope) map[string]string {
	t.Helper()
	require.NotNil(t, env.Error)
	var details []fieldDetail
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	out := make(map[string]string, len(details))
	for _, d := range details {
		out[d.Field] = d.Constraint
	}
	return out
}
