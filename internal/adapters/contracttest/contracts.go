package contracttest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	balancesport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/balances"
	clubrepoport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/clubrepo"
	eventsport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/events"
	idempotencyport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/idempotency"
	membershiprepoport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/membershiprepo"
	uowport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/uow"
)

type CleanupFunc = func()

type ClubRepoFactory func(t *testing.T, initialID domain.ClubID) (clubrepoport.Repository, CleanupFunc)
type MembershipRepoFactory func(t *testing.T) (membershiprepoport.Repository, CleanupFunc)
type EventStoreFactory func(t *testing.T) (eventsport.Store, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

// Funder seeds free balance for an account in the ledger under test.
type Funder func(t *testing.T, who domain.AccountID, free domain.Balance)

// LedgerFactory returns a ledger configured with the given existential deposit.
type LedgerFactory func(t *testing.T, existentialDeposit domain.Balance) (balancesport.Ledger, Funder, CleanupFunc)

// UnitOfWorkFactory returns a runner plus a funder for its ledger.
type UnitOfWorkFactory func(t *testing.T) (uowport.Runner, Funder, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Caller:   domain.Identified("acct-1").String(),
		Method:   "POST",
		Route:    "/clubs/{clubId}/memberships",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get(missing) ok=%v err=%v, want ok=false", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"expiry":1}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != `{"expiry":1}` || got.ContentType != "application/json" || got.StatusCode != 200 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"expiry":2}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != `{"expiry":2}` {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// A different caller with the same key does not see the record.
	other := fp
	other.Caller = domain.Identified("acct-2").String()
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get(other caller) ok=%v err=%v, want ok=false", ok, err)
	}
}

func RunClubRepo(t *testing.T, newRepo ClubRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t, 7)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	next, err := repo.NextID(ctx)
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if next != 7 {
		t.Fatalf("NextID=%d, want initial value 7", next)
	}

	if _, err := repo.Get(ctx, 7); !errors.Is(err, clubrepoport.ErrNotFound) {
		t.Fatalf("Get(missing) err=%v, want %v", err, clubrepoport.ErrNotFound)
	}
	if err := repo.Update(ctx, domain.Club{ID: 7, Owner: "a"}); !errors.Is(err, clubrepoport.ErrNotFound) {
		t.Fatalf("Update(missing) err=%v, want %v", err, clubrepoport.ErrNotFound)
	}

	club := domain.Club{ID: 7, Owner: "alice", AnnualFee: math.MaxUint64}
	if err := repo.Insert(ctx, club); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.PutNextID(ctx, 8); err != nil {
		t.Fatalf("PutNextID: %v", err)
	}
	if err := repo.Insert(ctx, club); !errors.Is(err, clubrepoport.ErrAlreadyExists) {
		t.Fatalf("Insert(duplicate) err=%v, want %v", err, clubrepoport.ErrAlreadyExists)
	}

	got, err := repo.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != club {
		t.Fatalf("Get=%+v, want %+v", got, club)
	}
	next, err = repo.NextID(ctx)
	if err != nil || next != 8 {
		t.Fatalf("NextID=%d err=%v, want 8", next, err)
	}

	club.Owner = "bob"
	club.AnnualFee = 0
	if err := repo.Update(ctx, club); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = repo.Get(ctx, 7)
	if err != nil || got != club {
		t.Fatalf("Get after update=%+v err=%v, want %+v", got, err, club)
	}
}

func RunMembershipRepo(t *testing.T, newRepo MembershipRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	if _, ok, err := repo.Get(ctx, 1, "alice"); err != nil || ok {
		t.Fatalf("Get(never joined) ok=%v err=%v, want ok=false", ok, err)
	}

	if err := repo.Put(ctx, 1, "alice", 31_536_000_000); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := repo.Put(ctx, 2, "alice", math.MaxUint64); err != nil {
		t.Fatalf("Put(max): %v", err)
	}

	got, ok, err := repo.Get(ctx, 1, "alice")
	if err != nil || !ok || got != 31_536_000_000 {
		t.Fatalf("Get=%d ok=%v err=%v, want 31536000000", got, ok, err)
	}
	got, ok, err = repo.Get(ctx, 2, "alice")
	if err != nil || !ok || got != math.MaxUint64 {
		t.Fatalf("Get(club 2)=%d ok=%v err=%v, want max", got, ok, err)
	}
	if _, ok, err := repo.Get(ctx, 1, "bob"); err != nil || ok {
		t.Fatalf("Get(other account) ok=%v err=%v, want ok=false", ok, err)
	}

	// Put overwrites.
	if err := repo.Put(ctx, 1, "alice", 5); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, _, _ = repo.Get(ctx, 1, "alice")
	if got != 5 {
		t.Fatalf("Get after overwrite=%d, want 5", got)
	}
}

func RunBalanceLedger(t *testing.T, newLedger LedgerFactory) {
	t.Helper()
	ctx := context.Background()

	ledger, fund, cleanup := newLedger(t, 1)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fund(t, "alice", 1000)

	acct, err := ledger.Account(ctx, "nobody")
	if err != nil || acct != (balancesport.Account{}) {
		t.Fatalf("Account(unknown)=%+v err=%v, want zero", acct, err)
	}

	if err := ledger.Reserve(ctx, "alice", 100); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	assertAccount(t, ledger, "alice", balancesport.Account{Free: 900, Reserved: 100})

	if err := ledger.Reserve(ctx, "alice", 901); !errors.Is(err, balancesport.ErrInsufficientBalance) {
		t.Fatalf("Reserve(too much) err=%v, want %v", err, balancesport.ErrInsufficientBalance)
	}
	if err := ledger.Reserve(ctx, "alice", 900); !errors.Is(err, balancesport.ErrKeepAlive) {
		t.Fatalf("Reserve(all free) err=%v, want %v", err, balancesport.ErrKeepAlive)
	}
	assertAccount(t, ledger, "alice", balancesport.Account{Free: 900, Reserved: 100})

	if err := ledger.Transfer(ctx, "alice", "escrow", 300, balancesport.KeepAlive); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	assertAccount(t, ledger, "alice", balancesport.Account{Free: 600, Reserved: 100})
	assertAccount(t, ledger, "escrow", balancesport.Account{Free: 300})

	if err := ledger.Transfer(ctx, "alice", "escrow", 600, balancesport.KeepAlive); !errors.Is(err, balancesport.ErrKeepAlive) {
		t.Fatalf("Transfer(keep alive) err=%v, want %v", err, balancesport.ErrKeepAlive)
	}
	if err := ledger.Transfer(ctx, "alice", "escrow", 601, balancesport.AllowDeath); !errors.Is(err, balancesport.ErrInsufficientBalance) {
		t.Fatalf("Transfer(overdraw) err=%v, want %v", err, balancesport.ErrInsufficientBalance)
	}
	assertAccount(t, ledger, "alice", balancesport.Account{Free: 600, Reserved: 100})
	assertAccount(t, ledger, "escrow", balancesport.Account{Free: 300})

	// Zero-value transfers are no-ops, even towards unknown accounts.
	if err := ledger.Transfer(ctx, "alice", "carol", 0, balancesport.KeepAlive); err != nil {
		t.Fatalf("Transfer(0): %v", err)
	}
	assertAccount(t, ledger, "carol", balancesport.Account{})

	fund(t, "rich", math.MaxUint64)
	if err := ledger.Transfer(ctx, "alice", "rich", 10, balancesport.KeepAlive); !errors.Is(err, balancesport.ErrBalanceOverflow) {
		t.Fatalf("Transfer(overflow) err=%v, want %v", err, balancesport.ErrBalanceOverflow)
	}
	assertAccount(t, ledger, "alice", balancesport.Account{Free: 600, Reserved: 100})

	seeder, ok := ledger.(balancesport.Seeder)
	if !ok {
		return
	}
	genesis := map[domain.AccountID]domain.Balance{"alice": 5000, "dave": 700}
	if err := balancesport.ApplyGenesis(ctx, seeder, genesis); err != nil {
		t.Fatalf("ApplyGenesis: %v", err)
	}
	assertAccount(t, ledger, "alice", balancesport.Account{Free: 600, Reserved: 100})
	assertAccount(t, ledger, "dave", balancesport.Account{Free: 700})
}

func RunEventStore(t *testing.T, newStore EventStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	emitted := []domain.Event{
		domain.ClubCreated{ClubID: 0, Owner: "alice", AnnualFee: 100},
		domain.OwnershipTransferred{ClubID: 0, NewOwner: "bob"},
		domain.AnnualFeeSet{ClubID: 0, NewFee: 250},
		domain.MemberJoined{ClubID: 0, Member: "carol", Expiry: 31_536_000_000},
	}
	for _, ev := range emitted {
		if err := store.Publish(ctx, ev); err != nil {
			t.Fatalf("Publish(%s): %v", ev.Kind(), err)
		}
	}

	all, err := store.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != len(emitted) {
		t.Fatalf("List len=%d, want %d", len(all), len(emitted))
	}
	for i, rec := range all {
		if rec.Event != emitted[i] {
			t.Fatalf("List[%d]=%+v, want %+v", i, rec.Event, emitted[i])
		}
		if i > 0 && rec.Seq <= all[i-1].Seq {
			t.Fatalf("List not ordered by seq: %d then %d", all[i-1].Seq, rec.Seq)
		}
	}

	page, err := store.List(ctx, all[0].Seq, 2)
	if err != nil {
		t.Fatalf("List(after, limit): %v", err)
	}
	if len(page) != 2 || page[0].Event != emitted[1] || page[1].Event != emitted[2] {
		t.Fatalf("List(after=%d, limit=2)=%+v", all[0].Seq, page)
	}
}

// RunUnitOfWork checks that a failed run leaves no trace and a successful one commits.
func RunUnitOfWork(t *testing.T, newRunner UnitOfWorkFactory) {
	t.Helper()
	ctx := context.Background()

	runner, fund, cleanup := newRunner(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	fund(t, "alice", 1000)

	errBoom := errors.New("boom")
	err := runner.Do(ctx, func(ctx context.Context, r uowport.Repos) error {
		if err := r.Clubs.Insert(ctx, domain.Club{ID: 0, Owner: "alice", AnnualFee: 10}); err != nil {
			return err
		}
		if err := r.Clubs.PutNextID(ctx, 1); err != nil {
			return err
		}
		if err := r.Balances.Transfer(ctx, "alice", "escrow", 10, balancesport.KeepAlive); err != nil {
			return err
		}
		if err := r.Memberships.Put(ctx, 0, "alice", 99); err != nil {
			return err
		}
		if err := r.Events.Publish(ctx, domain.MemberJoined{ClubID: 0, Member: "alice", Expiry: 99}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Do err=%v, want %v", err, errBoom)
	}

	err = runner.Do(ctx, func(ctx context.Context, r uowport.Repos) error {
		if _, err := r.Clubs.Get(ctx, 0); !errors.Is(err, clubrepoport.ErrNotFound) {
			t.Errorf("club survived rollback: err=%v", err)
		}
		if next, err := r.Clubs.NextID(ctx); err != nil || next != domain.FirstClubID {
			t.Errorf("NextID after rollback=%d err=%v", next, err)
		}
		if _, ok, err := r.Memberships.Get(ctx, 0, "alice"); err != nil || ok {
			t.Errorf("membership survived rollback: ok=%v err=%v", ok, err)
		}
		acct, err := r.Balances.Account(ctx, "alice")
		if err != nil || acct.Free != 1000 {
			t.Errorf("balance after rollback=%+v err=%v, want free=1000", acct, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do(verify): %v", err)
	}

	err = runner.Do(ctx, func(ctx context.Context, r uowport.Repos) error {
		return r.Balances.Transfer(ctx, "alice", "escrow", 10, balancesport.KeepAlive)
	})
	if err != nil {
		t.Fatalf("Do(commit): %v", err)
	}
	_ = runner.Do(ctx, func(ctx context.Context, r uowport.Repos) error {
		acct, err := r.Balances.Account(ctx, "alice")
		if err != nil || acct.Free != 990 {
			t.Errorf("balance after commit=%+v err=%v, want free=990", acct, err)
		}
		return nil
	})
}

func assertAccount(t *testing.T, ledger balancesport.Ledger, who domain.AccountID, want balancesport.Account) {
	t.Helper()
	got, err := ledger.Account(context.Background(), who)
	if err != nil {
		t.Fatalf("Account(%s): %v", who, err)
	}
	if got != want {
		t.Fatalf("Account(%s)=%+v, want %+v", who, got, want)
	}
}
