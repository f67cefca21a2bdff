package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Overland-East-Bay/club-membership-engine/internal/adapters/httpapi"
	membalances "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/balances"
	memclock "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/clock"
	memclubrepo "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/clubrepo"
	memevents "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/events"
	memidempotency "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/idempotency"
	memmembershiprepo "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/membershiprepo"
	memuow "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/uow"
	pgbalances "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres/balances"
	pgevents "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres/events"
	pgidempotency "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres/testutil"
	pguow "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/postgres/uow"
	"github.com/Overland-East-Bay/club-membership-engine/internal/app/clubs"
	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	balancesport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/balances"
	eventsport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/events"
	idempotencyport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/idempotency"
	uowport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/uow"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

const systemKey = "itest-system-key"

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	clk     *memclock.ManualClock
	fund    func(t *testing.T, who domain.AccountID, free domain.Balance)
	seeder  balancesport.Seeder
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.UnixMilli(0).UTC())

	var (
		runner    uowport.Runner
		eventLog  eventsport.Store
		idemStore idempotencyport.Store
		fund      func(t *testing.T, who domain.AccountID, free domain.Balance)
		seeder    balancesport.Seeder
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		ledger := pgbalances.NewLedger(pool, 1)
		seeder = ledger
		runner = pguow.NewRunner(pool, domain.FirstClubID, 1)
		eventLog = pgevents.NewStore(pool)
		idemStore = pgidempotency.NewStore(pool, time.Hour)
		fund = func(t *testing.T, who domain.AccountID, free domain.Balance) {
			t.Helper()
			if err := ledger.SetBalance(context.Background(), who, free); err != nil {
				t.Fatalf("fund %s: %v", who, err)
			}
		}
	case backendMemory:
		ledger := membalances.NewLedger(1)
		seeder = ledger
		rec := memevents.NewRecorder()
		runner = memuow.NewRunner(memclubrepo.NewRepo(domain.FirstClubID), memmembershiprepo.NewRepo(), ledger, rec)
		eventLog = rec
		idemStore = memidempotency.NewStore()
		fund = func(t *testing.T, who domain.AccountID, free domain.Balance) {
			t.Helper()
			ledger.SetBalance(who, free)
		}
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	svc := clubs.NewService(runner, clk, clubs.DefaultConfig(), zerolog.Nop())
	api := httpapi.NewServer(svc, eventLog, idemStore, zerolog.Nop())

	// No default account, so requests without X-Account-Id stay anonymous.
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AuthMiddleware: httpapi.NewDevAuthMiddleware(systemKey, "")})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		clk:     clk,
		fund:    fund,
		seeder:  seeder,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

type header struct{ key, value string }

func system() header           { return header{httpapi.HeaderSystemKey, systemKey} }
func account(id string) header { return header{httpapi.HeaderAccountID, id} }
func idemKey(k string) header  { return header{httpapi.HeaderIdempotencyKey, k} }

func (s *testServer) doJSON(t *testing.T, method string, path string, body any, headers ...header) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for _, h := range headers {
		req.Header.Set(h.key, h.value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
