package handler

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/domain"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/repository"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/service"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/store"
	"github.com/weiawesome/wes-io-live/follow-graph-service/internal/testutil"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/jwt"
	pkglog "github.com/weiawesome/wes-io-live/follow-graph-service/pkg/log"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/middleware"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/pubsub"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/response"
)

const testIssuer = "wes-io-live-auth"

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

type HandlerSuite struct {
	suite.Suite
	key    *rsa.PrivateKey
	signer *jwt.Signer
	router *gin.Engine
	svc    service.FollowGraphService
	auth   *middleware.AuthMiddleware
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	s.Require().NoError(err)
	s.key = key
	s.signer = jwt.NewSigner(key, testIssuer, time.Hour)
}

func (s *HandlerSuite) SetupTest() {
	db := testutil.NewDB(s.T())
	testutil.SeedUser(s.T(), db, "alice", domain.AccountPublic)
	testutil.SeedUser(s.T(), db, "bob", domain.AccountPrivate)
	testutil.SeedUser(s.T(), db, "carol", domain.AccountPublic)

	svc := service.NewFollowGraphService(
		repository.NewGormGraphRepository(db),
		store.NopCounterCache{},
		store.NewLocalPairLocker(),
		pubsub.NopPublisher{},
	)
	auth := middleware.NewAuthMiddleware(jwt.NewVerifier(&s.key.PublicKey, testIssuer))

	r := gin.New()
	r.Use(pkglog.GinMiddleware(pkglog.Nop(), "/health"))
	r.GET("/health", Health)
	NewHandler(svc, auth, nil).RegisterRoutes(r)
	s.router = r
	s.svc = svc
	s.auth = auth
}

func (s *HandlerSuite) token(userID string) string {
	tok, err := s.signer.AccessToken(userID, userID)
	s.Require().NoError(err)
	return tok
}

func (s *HandlerSuite) do(method, path, userID string, body any) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(userID))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (s *HandlerSuite) relation(env envelope) domain.Relation {
	var rel domain.Relation
	s.Require().NoError(json.Unmarshal(env.Data, &rel))
	return rel
}

func (s *HandlerSuite) TestHealth() {
	w, _ := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestFollowRequiresToken() {
	w, _ := s.do(http.MethodPost, "/api/v1/users/carol/follow", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/carol/follow", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestFollowPublicAccount() {
	w, env := s.do(http.MethodPost, "/api/v1/users/carol/follow", "alice", nil)
	s.Require().Equal(http.StatusCreated, w.Code)
	s.True(env.Success)
	rel := s.relation(env)
	s.Equal(domain.RelationFollowing, rel.State)
	s.Equal(int64(1), rel.Target.Followers)

	w, env = s.do(http.MethodPost, "/api/v1/users/carol/follow", "alice", nil)
	s.Equal(http.StatusOK, w.Code)
	s.False(s.relation(env).Changed)

	w, env = s.do(http.MethodGet, "/api/v1/users/carol/relation", "alice", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(domain.RelationFollowing, s.relation(env).State)

	w, env = s.do(http.MethodDelete, "/api/v1/users/carol/follow", "alice", nil)
	s.Equal(http.StatusOK, w.Code)
	rel = s.relation(env)
	s.Equal(domain.RelationNone, rel.State)
	s.Equal(int64(0), rel.Target.Followers)
}

func (s *HandlerSuite) TestPrivateAccountRequestFlow() {
	w, env := s.do(http.MethodPost, "/api/v1/users/bob/follow", "alice", nil)
	s.Require().Equal(http.StatusCreated, w.Code)
	s.Equal(domain.RelationRequested, s.relation(env).State)

	w, env = s.do(http.MethodGet, "/api/v1/users/bob/follow-requests/status", "alice", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"pending":true}`, string(env.Data))

	w, _ = s.do(http.MethodGet, "/api/v1/users/bob/followers", "alice", nil)
	s.Equal(http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/me/follow-requests", "bob", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var page struct {
		Items []domain.FollowRequest `json:"items"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &page))
	s.Require().Len(page.Items, 1)
	s.Equal("alice", page.Items[0].RequesterID)

	w, env = s.do(http.MethodPost, "/api/v1/me/follow-requests/alice/accept", "bob", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(domain.RelationFollowing, s.relation(env).State)

	w, env = s.do(http.MethodGet, "/api/v1/users/bob/profile", "alice", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var profile domain.Profile
	s.Require().NoError(json.Unmarshal(env.Data, &profile))
	s.True(profile.CanView)
	s.Equal(int64(1), profile.User.Stats.Followers)

	w, _ = s.do(http.MethodGet, "/api/v1/users/bob/followers", "alice", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerSuite) TestRejectAndCancel() {
	w, _ := s.do(http.MethodPost, "/api/v1/me/follow-requests/alice/reject", "bob", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/users/bob/follow-requests", "alice", nil)
	s.Require().Equal(http.StatusCreated, w.Code)

	w, env := s.do(http.MethodDelete, "/api/v1/users/bob/follow-requests", "alice", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(domain.RelationNone, s.relation(env).State)
}

func (s *HandlerSuite) TestErrorMapping() {
	w, env := s.do(http.MethodPost, "/api/v1/users/alice/follow", "alice", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Require().NotNil(env.Error)
	s.Equal("BAD_REQUEST", env.Error.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/users/ghost/follow", "alice", nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/users/bob/profile", "", nil)
	s.Equal(http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/users/bob/following", "", nil)
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/users/carol/followers?limit=1000", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/users/carol/followers?cursor=%25%25", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestUpdatePrivacy() {
	w, _ := s.do(http.MethodPut, "/api/v1/me/privacy", "alice", map[string]string{"account_type": "secret"})
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPut, "/api/v1/me/privacy", "alice", map[string]string{})
	s.Equal(http.StatusBadRequest, w.Code)

	w, env := s.do(http.MethodPut, "/api/v1/me/privacy", "alice", map[string]string{"account_type": "private"})
	s.Require().Equal(http.StatusOK, w.Code)
	var user domain.User
	s.Require().NoError(json.Unmarshal(env.Data, &user))
	s.Equal(domain.AccountPrivate, user.AccountType)

	w, env = s.do(http.MethodPost, "/api/v1/users/alice/follow", "carol", nil)
	s.Require().Equal(http.StatusCreated, w.Code)
	s.Equal(domain.RelationRequested, s.relation(env).State)
}

func (s *HandlerSuite) TestBatchIsFollowing() {
	w, _ := s.do(http.MethodPost, "/api/v1/users/carol/follow", "alice", nil)
	s.Require().Equal(http.StatusCreated, w.Code)

	w, env := s.do(http.MethodPost, "/api/v1/me/following/status", "alice", map[string][]string{"target_ids": {"bob", "carol"}})
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"results":{"bob":false,"carol":true}}`, string(env.Data))

	w, _ = s.do(http.MethodPost, "/api/v1/me/following/status", "alice", map[string]string{})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerSuite) TestMutationsAreRateLimited() {
	r := gin.New()
	NewHandler(s.svc, s.auth, middleware.NewRateLimiter(0.001, 2, time.Minute)).RegisterRoutes(r)
	s.router = r

	w, _ := s.do(http.MethodPost, "/api/v1/users/carol/follow", "alice", nil)
	s.Equal(http.StatusCreated, w.Code)
	w, _ = s.do(http.MethodDelete, "/api/v1/users/carol/follow", "alice", nil)
	s.Equal(http.StatusOK, w.Code)

	w, env := s.do(http.MethodPost, "/api/v1/users/carol/follow", "alice", nil)
	s.Equal(http.StatusTooManyRequests, w.Code)
	s.Require().NotNil(env.Error)
	s.Equal("TOO_MANY_REQUESTS", env.Error.Code)

	// Reads and other callers are unaffected.
	w, _ = s.do(http.MethodGet, "/api/v1/users/carol/relation", "alice", nil)
	s.Equal(http.StatusOK, w.Code)
	w, _ = s.do(http.MethodPost, "/api/v1/users/carol/follow", "bob", nil)
	s.Equal(http.StatusCreated, w.Code)
}
