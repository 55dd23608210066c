package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/stretchr/testify/suite"

	"github.com/vadimbarashkov/shortlink/internal/config"
)

const testAdminToken = "secret"

type APITestSuite struct {
	suite.Suite
	cfg     *config.Config
	logger  *httplog.Logger
	server  *httptest.Server
	cleanup func()
	e       *httpexpect.Expect
}

func (suite *APITestSuite) SetupSuite() {
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
}

func (suite *APITestSuite) SetupSubTest() {
	cfg := &config.Config{
		Env:               config.EnvDev,
		AdminToken:        testAdminToken,
		ShortCodeLength:   6,
		ShortCodeAttempts: 10,
		APIPrefix:         "/api",
		RedirectPrefix:    "/s",
		Storage: config.Storage{
			Driver:      config.StorageFile,
			Path:        filepath.Join(suite.T().TempDir(), "data", "urls.json"),
			SaveTimeout: time.Second,
		},
	}
	suite.Require().NoError(cfg.Validate())
	suite.cfg = cfg

	suite.start()
}

func (suite *APITestSuite) TearDownSubTest() {
	suite.stop()
}

func (suite *APITestSuite) start() {
	h, cleanup, err := newHandler(context.Background(), suite.cfg, suite.logger)
	suite.Require().NoError(err)

	suite.cleanup = cleanup
	suite.server = httptest.NewServer(h.router)
	suite.e = httpexpect.Default(suite.T(), suite.server.URL).
		Builder(func(req *httpexpect.Request) {
			req.WithRedirectPolicy(httpexpect.DontFollowRedirects)
		})
}

func (suite *APITestSuite) stop() {
	suite.server.Close()
	suite.cleanup()
}

// restart simulates a process restart against the same storage file.
func (suite *APITestSuite) restart() {
	suite.stop()
	suite.start()
}

func (suite *APITestSuite) admin() *httpexpect.Expect {
	return suite.e.Builder(func(req *httpexpect.Request) {
		req.WithHeader("Authorization", "Bearer "+testAdminToken)
	})
}

func (suite *APITestSuite) shorten(longURL, note string) string {
	code := suite.admin().POST("/api/urls").
		WithJSON(map[string]string{"long_url": longURL, "note": note}).
		Expect().
		Status(http.StatusCreated).
		JSON().Object().
		Value("short_url").String()

	code.Match(`^[0-9]{6}$`)

	return code.Raw()
}

func (suite *APITestSuite) TestPing() {
	suite.Run("success", func() {
		suite.e.GET("/ping").
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong")
	})
}

func (suite *APITestSuite) TestLifecycle() {
	suite.Run("create visit inspect delete", func() {
		code := suite.shorten("https://example.com", "demo")

		for i := 0; i < 3; i++ {
			suite.e.GET("/s/" + code).
				Expect().
				Status(http.StatusMovedPermanently).
				Header("Location").IsEqual("https://example.com")
		}

		resp := suite.admin().GET("/api/urls/" + code).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		resp.HasValue("short_url", code)
		resp.HasValue("note", "demo")
		resp.HasValue("visit_count", 3)
		resp.Value("last_visit").String().AsDateTime()

		suite.admin().DELETE("/api/urls/" + code).
			Expect().
			Status(http.StatusNoContent)

		suite.e.GET("/s/" + code).
			Expect().
			Status(http.StatusNotFound)

		suite.admin().DELETE("/api/urls/" + code).
			Expect().
			Status(http.StatusNotFound)
	})

	suite.Run("state survives restart", func() {
		code := suite.shorten("https://example.com/a", "")

		suite.e.GET("/s/" + code).
			Expect().
			Status(http.StatusMovedPermanently)

		suite.restart()

		suite.admin().GET("/api/urls").
			Expect().
			Status(http.StatusOK).
			JSON().Array().Length().IsEqual(1)

		suite.admin().GET("/api/urls/"+code).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			HasValue("long_url", "https://example.com/a").
			HasValue("visit_count", 1)
	})

	suite.Run("corrupt storage starts empty", func() {
		suite.stop()

		err := os.MkdirAll(filepath.Dir(suite.cfg.Storage.Path), 0o755)
		suite.Require().NoError(err)
		err = os.WriteFile(suite.cfg.Storage.Path, []byte("{not json"), 0o644)
		suite.Require().NoError(err)

		suite.start()

		suite.admin().GET("/api/urls").
			Expect().
			Status(http.StatusOK).
			JSON().Array().IsEmpty()

		suite.shorten("https://example.com", "")

		suite.admin().GET("/api/urls").
			Expect().
			Status(http.StatusOK).
			JSON().Array().Length().IsEqual(1)
	})
}

func (suite *APITestSuite) TestAdminRequiresToken() {
	suite.Run("unauthorized", func() {
		suite.e.GET("/api/urls").
			Expect().
			Status(http.StatusUnauthorized)

		suite.e.POST("/api/urls").
			WithJSON(map[string]string{"long_url": "https://example.com"}).
			Expect().
			Status(http.StatusUnauthorized)
	})
}

func (suite *APITestSuite) TestMetrics() {
	suite.Run("registry collectors are exposed", func() {
		code := suite.shorten("https://example.com", "")

		suite.e.GET("/s/" + code).
			Expect().
			Status(http.StatusMovedPermanently)

		body := suite.e.GET("/metrics").
			Expect().
			Status(http.StatusOK).
			Text()

		body.Contains("shortlink_registry_entries 1")
		body.Contains("shortlink_registry_visits_total 1")
		body.Contains(`shortlink_store_saves_total{result="ok"} 2`)
	})
}

func (suite *APITestSuite) TestSwagger() {
	suite.Run("document is served", func() {
		suite.e.GET("/docs/swagger.yml").
			Expect().
			Status(http.StatusOK).
			Text().Contains("openapi:")
	})
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
