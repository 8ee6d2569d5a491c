package authkit

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/storekeep/internal/accounts"
	"github.com/tyemirov/storekeep/internal/apierror"
	"github.com/tyemirov/storekeep/pkg/sessiontoken"
	"go.uber.org/zap/zaptest"
)

type controllableClock struct {
	mutex   sync.Mutex
	current time.Time
}

func newControllableClock() *controllableClock {
	return &controllableClock{current: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)}
}

func (clock *controllableClock) Now() time.Time {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.current
}

func (clock *controllableClock) Advance(duration time.Duration) {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	clock.current = clock.current.Add(duration)
}

func newTestServerConfig() ServerConfig {
	return ServerConfig{
		AccessSigningKey:  []byte("access-secret"),
		RefreshSigningKey: []byte("refresh-secret"),
		Issuer:            "storekeep-test",
		AccessTTL:         15 * time.Minute,
		RefreshTTL:        30 * 24 * time.Hour,
		RenewalWindow:     DefaultRenewalWindow,
		SameSiteMode:      http.SameSiteStrictMode,
	}
}

type testUserDirectory struct {
	mutex     sync.Mutex
	users     map[string]*accounts.User
	passwords map[string]string
	lookupErr error
}

func newTestUserDirectory() *testUserDirectory {
	return &testUserDirectory{
		users:     make(map[string]*accounts.User),
		passwords: make(map[string]string),
	}
}

func (directory *testUserDirectory) add(userID string, email string, password string, role accounts.Role) *accounts.User {
	directory.mutex.Lock()
	defer directory.mutex.Unlock()
	user := &accounts.User{UserID: userID, FirstName: "Test", LastName: "User", Email: email, Role: role}
	directory.users[userID] = user
	directory.passwords[email] = password
	return user
}

func (directory *testUserDirectory) Create(ctx context.Context, input accounts.NewUser) (*accounts.User, error) {
	directory.mutex.Lock()
	for _, existing := range directory.users {
		if strings.EqualFold(existing.Email, input.Email) {
			directory.mutex.Unlock()
			return nil, accounts.ErrEmailTaken
		}
	}
	directory.mutex.Unlock()
	return directory.add("user-"+strings.ToLower(input.Email), strings.ToLower(input.Email), input.Password, input.Role), nil
}

func (directory *testUserDirectory) Authenticate(ctx context.Context, email string, password string) (*accounts.User, error) {
	directory.mutex.Lock()
	defer directory.mutex.Unlock()
	for _, user := range directory.users {
		if strings.EqualFold(user.Email, email) && password != "" && directory.passwords[user.Email] == password {
			return user, nil
		}
	}
	return nil, accounts.ErrInvalidCredentials
}

func (directory *testUserDirectory) FindByIdentity(ctx context.Context, userID string, role accounts.Role) (*accounts.User, error) {
	directory.mutex.Lock()
	defer directory.mutex.Unlock()
	if directory.lookupErr != nil {
		return nil, directory.lookupErr
	}
	user, ok := directory.users[userID]
	if !ok || user.Role != role {
		return nil, accounts.ErrUserNotFound
	}
	return user, nil
}

type recordingMetrics struct {
	mutex  sync.Mutex
	counts map[string]int64
}

func (recorder *recordingMetrics) Increment(event string) {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.counts[event]++
}

func (recorder *recordingMetrics) Count(event string) int64 {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return recorder.counts[event]
}

type testHarness struct {
	clock   *controllableClock
	codec   *sessiontoken.Codec
	service *Service
	users   *testUserDirectory
	metrics *recordingMetrics
	router  *gin.Engine
}

func newTestHarness(t *testing.T, configuration ServerConfig, options ...Option) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := newControllableClock()
	codec, err := configuration.NewCodec(clock)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	users := newTestUserDirectory()
	metrics := &recordingMetrics{counts: make(map[string]int64)}
	logger := zaptest.NewLogger(t)
	allOptions := append([]Option{WithLogger(logger), WithMetrics(metrics)}, options...)
	service, err := NewService(configuration, codec, users, allOptions...)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	router := gin.New()
	router.Use(apierror.Responder(logger))
	service.MountAuthRoutes(router)
	protected := router.Group("/", service.Gate())
	protected.GET("/probe", func(contextGin *gin.Context) {
		user, ok := CurrentUser(contextGin)
		if !ok {
			contextGin.Status(http.StatusTeapot)
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{"userId": user.UserID, "role": user.Role})
	})
	protected.GET("/admin", RequireAdmin(), func(contextGin *gin.Context) {
		contextGin.Status(http.StatusOK)
	})

	return &testHarness{clock: clock, codec: codec, service: service, users: users, metrics: metrics, router: router}
}

func (harness *testHarness) sign(t *testing.T, kind sessiontoken.Kind, user *accounts.User) string {
	t.Helper()
	token, _, err := harness.codec.Sign(kind, sessiontoken.Payload{UserID: user.UserID, Role: string(user.Role)})
	if err != nil {
		t.Fatalf("sign %s: %v", kind, err)
	}
	return token
}

func (harness *testHarness) do(method string, path string, body string, cookies map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	request := httptest.NewRequest(method, path, reader)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	for name, value := range cookies {
		request.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	recorder := httptest.NewRecorder()
	harness.router.ServeHTTP(recorder, request)
	return recorder
}

func responseCookies(recorder *httptest.ResponseRecorder) map[string]*http.Cookie {
	collected := make(map[string]*http.Cookie)
	for _, cookie := range recorder.Result().Cookies() {
		collected[cookie.Name] = cookie
	}
	return collected
}

func assertCleared(t *testing.T, cookies map[string]*http.Cookie, name string) {
	t.Helper()
	cookie, ok := cookies[name]
	if !ok {
		t.Fatalf("expected %s to be cleared", name)
	}
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("expected %s cleared with empty value and immediate expiry, got value=%q maxAge=%d", name, cookie.Value, cookie.MaxAge)
	}
}

var errLookupUnavailable = errors.New("lookup unavailable")
