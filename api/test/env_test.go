package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/inchambers/commerce/api"
	"github.com/inchambers/commerce/config"
	"github.com/inchambers/commerce/core/auth"
	"github.com/inchambers/commerce/core/claims"
	"github.com/inchambers/commerce/database"
	"github.com/inchambers/commerce/payment/paystack"
	"github.com/inchambers/commerce/rate"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/sirupsen/logrus"
)

type TestEnv struct {
	*httptest.Server
	DB       *sqlx.DB
	Paystack *mockPaystack
}

// NewTestEnv starts a migrated Postgres container, a fake Paystack and
// the API. It skips the test when Docker is not reachable.
func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	cfg := config.DB{
		User:         "postgres",
		Password:     "postgres",
		Name:         name,
		MaxIdleConns: 2,
		MaxOpenConns: 10,
		DisableTLS:   true,
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "14-alpine",
		Env: []string{
			"POSTGRES_USER=" + cfg.User,
			"POSTGRES_PASSWORD=" + cfg.Password,
			"POSTGRES_DB=" + cfg.Name,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres: %w", err)
	}
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("purging postgres: %v", err)
		}
	})
	_ = resource.Expire(300)

	cfg.Host = resource.GetHostPort("5432/tcp")
	pool.MaxWait = 60 * time.Second

	var db *sqlx.DB
	err = pool.Retry(func() error {
		var err error
		if db, err = database.Open(cfg); err != nil {
			return err
		}
		return database.StatusCheck(context.Background(), db)
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.WarnLevel)

	ps := newMockPaystack()
	psSrv := httptest.NewServer(ps.handle())
	t.Cleanup(psSrv.Close)

	gw := paystack.New(config.Paystack{URL: psSrv.URL, SecretKey: "sk_test"}, "NGN", 2*time.Second)

	limiter := rate.NewLimiter(rate.Config{Burst: 50, Interval: time.Millisecond, Expiry: time.Minute})
	t.Cleanup(limiter.Stop)

	sm := scs.New()

	mux := api.APIMux(api.APIConfig{
		Log:            log,
		DB:             db,
		Session:        sm,
		Gateway:        gw,
		GatewayTimeout: 2 * time.Second,
		Limiter:        limiter,
	})

	root := http.NewServeMux()
	root.Handle("/", mux)
	root.Handle("/test/login", sm.LoadAndSave(loginHandler(sm)))

	srv := httptest.NewServer(root)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	srv.Client().Jar = jar

	return &TestEnv{Server: srv, DB: db, Paystack: ps}, nil
}

// loginHandler stands in for the identity service that signs users in.
func loginHandler(sm *scs.SessionManager) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var clm claims.Claims
		if err := json.NewDecoder(r.Body).Decode(&clm); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := auth.Login(r.Context(), sm, clm); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func (env *TestEnv) Login(t *testing.T, clm claims.Claims) {
	t.Helper()

	w := env.do(t, http.MethodPost, "/test/login", clm)
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("login failed: status %s", w.Status)
	}
}

// do sends body as JSON when it is not nil. Redirects are not followed.
func (env *TestEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, env.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	cl := *env.Client()
	cl.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	w, err := cl.Do(r)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

// expect checks the status of a call and decodes its body into out.
func (env *TestEnv) expect(t *testing.T, method, path string, body any, status int, out any) {
	t.Helper()

	w := env.do(t, method, path, body)
	defer w.Body.Close()

	if w.StatusCode != status {
		b, _ := io.ReadAll(w.Body)
		t.Fatalf("%s %s: expected status %d, got %s: %s", method, path, status, w.Status, b)
	}

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decoding response: %v", method, path, err)
		}
	}
}
