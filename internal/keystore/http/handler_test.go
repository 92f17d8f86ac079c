package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	keystoreDomain "github.com/allisson/robert/internal/keystore/domain"
	keystoreMocks "github.com/allisson/robert/internal/keystore/usecase/mocks"
)

type mockAdminTokenService struct {
	mock.Mock
}

func (m *mockAdminTokenService) Generate() (string, string, error) {
	args := m.Called()
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockAdminTokenService) Verify(plainToken, hashedToken string) bool {
	args := m.Called(plainToken, hashedToken)
	return args.Bool(0)
}

func setupRouter(useCase *keystoreMocks.MockReloadUseCase, tokens *mockAdminTokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	handler := NewKeystoreHandler(useCase, logger)
	router.POST(
		"/v1/admin/keystore/reload",
		AdminTokenMiddleware(tokens, "stored-hash", logger),
		handler.ReloadHandler,
	)
	return router
}

func doReload(router *gin.Engine, auth, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/keystore/reload", reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestKeystoreHandler_Reload(t *testing.T) {
	t.Run("reloads configured credentials", func(t *testing.T) {
		useCase := &keystoreMocks.MockReloadUseCase{}
		tokens := &mockAdminTokenService{}
		tokens.On("Verify", "secret", "stored-hash").Return(true)
		useCase.On("Reload", mock.Anything, &keystoreDomain.Credentials{}).Return(nil).Once()

		w := doReload(setupRouter(useCase, tokens), "Bearer secret", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"reloaded"}`, w.Body.String())
		useCase.AssertExpectations(t)
	})

	t.Run("override", func(t *testing.T) {
		useCase := &keystoreMocks.MockReloadUseCase{}
		tokens := &mockAdminTokenService{}
		tokens.On("Verify", "secret", "stored-hash").Return(true)
		useCase.On("Reload", mock.Anything, &keystoreDomain.Credentials{
			Provider:  "sql",
			KMSKeyURI: "hashivault://robert",
		}).Return(nil).Once()

		w := doReload(setupRouter(useCase, tokens), "bearer secret",
			`{"provider":"sql","kms_key_uri":"hashivault://robert"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		useCase.AssertExpectations(t)
	})

	t.Run("invalid provider", func(t *testing.T) {
		useCase := &keystoreMocks.MockReloadUseCase{}
		tokens := &mockAdminTokenService{}
		tokens.On("Verify", "secret", "stored-hash").Return(true)

		w := doReload(setupRouter(useCase, tokens), "Bearer secret", `{"provider":"vault"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		useCase.AssertNotCalled(t, "Reload", mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		tokens := &mockAdminTokenService{}
		tokens.On("Verify", "secret", "stored-hash").Return(true)

		w := doReload(setupRouter(&keystoreMocks.MockReloadUseCase{}, tokens), "Bearer secret", `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reload failure is an internal error", func(t *testing.T) {
		useCase := &keystoreMocks.MockReloadUseCase{}
		tokens := &mockAdminTokenService{}
		tokens.On("Verify", "secret", "stored-hash").Return(true)
		useCase.On("Reload", mock.Anything, mock.Anything).Return(keystoreDomain.ErrCryptoFailure)

		w := doReload(setupRouter(useCase, tokens), "Bearer secret", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestAdminTokenMiddleware(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		tokens := &mockAdminTokenService{}
		w := doReload(setupRouter(&keystoreMocks.MockReloadUseCase{}, tokens), "", "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		tokens.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		w := doReload(setupRouter(&keystoreMocks.MockReloadUseCase{}, &mockAdminTokenService{}), "Basic abc", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		tokens := &mockAdminTokenService{}
		tokens.On("Verify", "wrong", "stored-hash").Return(false)

		w := doReload(setupRouter(&keystoreMocks.MockReloadUseCase{}, tokens), "Bearer wrong", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
