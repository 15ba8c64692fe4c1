package middleware

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"
	"settlement-gateway/internal/core/ports/mocks"
	"settlement-gateway/internal/service"
	"settlement-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testSigner = domain.Address(strings.Repeat("1f", 32))

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// consentRouter echoes the body and the signer seen by the handler.
func consentRouter(verifier ports.ConsentVerifier, nonces ports.NonceStore) *gin.Engine {
	r := gin.New()
	r.POST("/api/v1/payments", ConsentAuth(verifier, nonces, time.Minute, zerolog.Nop()), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		fromCtx, _ := ports.SignerFromContext(c.Request.Context())
		fromGin, _ := SignerOf(c)
		c.JSON(http.StatusOK, gin.H{"body": string(body), "ctx": fromCtx, "gin": fromGin})
	})
	return r
}

func TestConsentAuth_MissingToken(t *testing.T) {
	ctrl := gomock.NewController(t)

	router := consentRouter(mocks.NewMockConsentVerifier(ctrl), mocks.NewMockNonceStore(ctrl))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader("{}")))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_002", decodeError(t, w).ErrorCode)
}

func TestConsentAuth_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockConsentVerifier(ctrl)
	verifier.EXPECT().Verify("bad", ports.ConsentRequest{
		Method: http.MethodPost,
		Path:   "/api/v1/payments",
		Body:   []byte(`{"a":1}`),
	}).Return(nil, errors.New("signature is invalid"))

	router := consentRouter(verifier, mocks.NewMockNonceStore(ctrl))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{"a":1}`))
	req.Header.Set(HeaderConsentToken, "bad")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_002", decodeError(t, w).ErrorCode)
}

func TestConsentAuth_ReplayedNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockConsentVerifier(ctrl)
	nonces := mocks.NewMockNonceStore(ctrl)

	verifier.EXPECT().Verify("tok", gomock.Any()).Return(&ports.ConsentClaims{Signer: testSigner, Nonce: "n1"}, nil)
	nonces.EXPECT().CheckAndSet(gomock.Any(), string(testSigner), "n1", time.Minute).Return(false, nil)

	router := consentRouter(verifier, nonces)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader("{}"))
	req.Header.Set(HeaderConsentToken, "tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_003", decodeError(t, w).ErrorCode)
}

func TestConsentAuth_NonceStoreDownFailsClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockConsentVerifier(ctrl)
	nonces := mocks.NewMockNonceStore(ctrl)

	verifier.EXPECT().Verify("tok", gomock.Any()).Return(&ports.ConsentClaims{Signer: testSigner, Nonce: "n1"}, nil)
	nonces.EXPECT().CheckAndSet(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("connection refused"))

	router := consentRouter(verifier, nonces)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader("{}"))
	req.Header.Set(HeaderConsentToken, "tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SYS_001", decodeError(t, w).ErrorCode)
}

func TestConsentAuth_SuccessRestoresBodyAndSetsSigner(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockConsentVerifier(ctrl)
	nonces := mocks.NewMockNonceStore(ctrl)

	verifier.EXPECT().Verify("tok", gomock.Any()).Return(&ports.ConsentClaims{Signer: testSigner, Nonce: "n1"}, nil)
	nonces.EXPECT().CheckAndSet(gomock.Any(), string(testSigner), "n1", time.Minute).Return(true, nil)

	router := consentRouter(verifier, nonces)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(`{"amount":5}`))
	req.Header.Set(HeaderConsentToken, "tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, `{"amount":5}`, got["body"])
	assert.Equal(t, string(testSigner), got["ctx"])
	assert.Equal(t, string(testSigner), got["gin"])
}

func TestConsentAuth_RealTokenBoundToBody(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signer := domain.AddressFromPublicKey(pub)

	tokens := service.NewConsentTokenService(time.Minute, 5*time.Second)
	body := []byte(`{"payer":"` + string(signer) + `"}`)
	token, _, err := tokens.Issue(priv, ports.ConsentRequest{Method: http.MethodPost, Path: "/api/v1/payments", Body: body})
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	nonces := mocks.NewMockNonceStore(ctrl)
	nonces.EXPECT().CheckAndSet(gomock.Any(), string(signer), gomock.Any(), time.Minute).Return(true, nil)

	router := consentRouter(tokens, nonces)

	// Tampered body: digest mismatch.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(append(body, ' ')))
	req.Header.Set(HeaderConsentToken, token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(body))
	req.Header.Set(HeaderConsentToken, token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConsentAuth_BodyTooLarge(t *testing.T) {
	ctrl := gomock.NewController(t)

	r := gin.New()
	r.Use(MaxBodySize(8))
	r.POST("/x", ConsentAuth(mocks.NewMockConsentVerifier(ctrl), mocks.NewMockNonceStore(ctrl), time.Minute, zerolog.Nop()),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(strings.Repeat("x", 64)))
	req.Header.Set(HeaderConsentToken, "tok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { response.OK(c, nil) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "client-abc.1")
	r.ServeHTTP(w, req)
	assert.Equal(t, "client-abc.1", w.Header().Get(HeaderRequestID))

	var ok response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	assert.Equal(t, "client-abc.1", ok.RequestID)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "bad id <script>")
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "bad id <script>", w.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zerolog.Nop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SYS_001", decodeError(t, w).ErrorCode)
}

func TestRequestLogger_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "/missing", line["path"])
	assert.Equal(t, float64(404), line["status"])
	assert.NotEmpty(t, line["request_id"])
}

type recordingObserver struct {
	route  string
	status int
}

func (o *recordingObserver) ObserveRequest(route, _ string, status int, _ time.Duration) {
	o.route, o.status = route, status
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/api/v1/payments/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/payments/17", nil))

	assert.Equal(t, "/api/v1/payments/:id", obs.route)
	assert.Equal(t, http.StatusOK, obs.status)
}

func TestSignerOf_Absent(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := SignerOf(c)
	assert.False(t, ok)

	c.Request = httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background())
	c.Set(CtxSigner, "not-an-address-type")
	_, ok = SignerOf(c)
	assert.False(t, ok)
}
