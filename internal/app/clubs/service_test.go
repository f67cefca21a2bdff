package clubs

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	membalances "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/balances"
	memclock "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/clock"
	memclubrepo "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/clubrepo"
	memevents "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/events"
	memmembershiprepo "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/membershiprepo"
	memuow "github.com/Overland-East-Bay/club-membership-engine/internal/adapters/memory/uow"
	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/balances"
)

const yearMs = int64(DefaultYearDuration)

type fixture struct {
	svc         *Service
	clk         *memclock.ManualClock
	clubs       *memclubrepo.Repo
	memberships *memmembershiprepo.Repo
	ledger      *membalances.Ledger
	events      *memevents.Recorder
}

func newFixture(t *testing.T, cfg Config, initialID domain.ClubID) *fixture {
	t.Helper()

	f := &fixture{
		clk:         memclock.NewManualClock(time.UnixMilli(0).UTC()),
		clubs:       memclubrepo.NewRepo(initialID),
		memberships: memmembershiprepo.NewRepo(),
		ledger:      membalances.NewLedger(1),
		events:      memevents.NewRecorder(),
	}
	runner := memuow.NewRunner(f.clubs, f.memberships, f.ledger, f.events)
	f.svc = NewService(runner, f.clk, cfg, zerolog.Nop())
	return f
}

// seedClub inserts a club directly, bypassing CreateClub and its fee.
func (f *fixture) seedClub(t *testing.T, owner domain.AccountID, fee domain.Balance) domain.ClubID {
	t.Helper()
	ctx := context.Background()
	id, err := f.clubs.NextID(ctx)
	require.NoError(t, err)
	require.NoError(t, f.clubs.Insert(ctx, domain.Club{ID: id, Owner: owner, AnnualFee: fee}))
	require.NoError(t, f.clubs.PutNextID(ctx, id+1))
	return id
}

type snapshot struct {
	member      balances.Account
	escrow      balances.Account
	expiry      domain.Moment
	joined      bool
	memberships int
	events      int
	nextID      domain.ClubID
}

func (f *fixture) snapshot(t *testing.T, club domain.ClubID, member domain.AccountID) snapshot {
	t.Helper()
	ctx := context.Background()
	var s snapshot
	var err error
	s.member, err = f.ledger.Account(ctx, member)
	require.NoError(t, err)
	s.escrow, err = f.ledger.Account(ctx, f.svc.EscrowAccountID())
	require.NoError(t, err)
	s.expiry, s.joined, err = f.memberships.Get(ctx, club, member)
	require.NoError(t, err)
	s.memberships = f.memberships.Len()
	s.events = len(f.events.Events())
	s.nextID, err = f.clubs.NextID(ctx)
	require.NoError(t, err)
	return s
}

func TestService_CreateClub(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	f.ledger.SetBalance("1", 10_000)

	club, err := f.svc.CreateClub(ctx, domain.Elevated(), "1", 100)
	require.NoError(t, err)
	assert.Equal(t, domain.Club{ID: 0, Owner: "1", AnnualFee: 100}, club)

	next, err := f.svc.NextClubID(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ClubID(1), next)

	got, err := f.svc.Club(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, club, got)

	acct, err := f.ledger.Account(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, balances.Account{Free: 9_900, Reserved: 100}, acct)

	assert.Equal(t, []domain.Event{domain.ClubCreated{ClubID: 0, Owner: "1", AnnualFee: 100}}, f.events.Events())

	second, err := f.svc.CreateClub(ctx, domain.Elevated(), "2", 0)
	require.Error(t, err, "owner 2 has no funds")
	assert.Equal(t, domain.Club{}, second)

	f.ledger.SetBalance("2", 500)
	second, err = f.svc.CreateClub(ctx, domain.Elevated(), "2", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.ClubID(1), second.ID)
}

func TestService_CreateClub_RequiresElevatedCaller(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	f.ledger.SetBalance("1", 10_000)

	_, err := f.svc.CreateClub(ctx, domain.Identified("1"), "1", 100)
	require.ErrorIs(t, err, ErrNotElevated)

	next, _ := f.svc.NextClubID(ctx)
	assert.Equal(t, domain.FirstClubID, next)
	assert.Empty(t, f.events.Events())
}

func TestService_CreateClub_InsufficientFunds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	f.ledger.SetBalance("1", 50)
	before := f.snapshot(t, 0, "1")

	_, err := f.svc.CreateClub(ctx, domain.Elevated(), "1", 100)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.ErrorIs(t, err, balances.ErrInsufficientBalance, "cause is kept")

	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 402, ae.Status)

	assert.Equal(t, before, f.snapshot(t, 0, "1"))
	_, err = f.svc.Club(ctx, 0)
	require.ErrorIs(t, err, ErrClubDoesNotExist)
}

func TestService_CreateClub_CounterOverflow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), math.MaxUint64)
	f.ledger.SetBalance("1", 10_000)
	before := f.snapshot(t, math.MaxUint64, "1")

	_, err := f.svc.CreateClub(ctx, domain.Elevated(), "1", 100)
	require.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, before, f.snapshot(t, math.MaxUint64, "1"))
}

func TestService_TransferOwnership(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	id := f.seedClub(t, "1", 100)

	club, err := f.svc.TransferOwnership(ctx, domain.Identified("1"), id, "2")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountID("2"), club.Owner)

	// Non-owner cannot transfer.
	_, err = f.svc.TransferOwnership(ctx, domain.Identified("3"), id, "4")
	require.ErrorIs(t, err, ErrNotClubOwner)

	// Previous owner no longer can either.
	_, err = f.svc.TransferOwnership(ctx, domain.Identified("1"), id, "4")
	require.ErrorIs(t, err, ErrNotClubOwner)

	got, err := f.svc.Club(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Club{ID: id, Owner: "2", AnnualFee: 100}, got)

	assert.Equal(t, []domain.Event{domain.OwnershipTransferred{ClubID: id, NewOwner: "2"}}, f.events.Events())
}

func TestService_TransferOwnership_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	id := f.seedClub(t, "1", 100)

	tests := []struct {
		name     string
		caller   domain.Caller
		club     domain.ClubID
		newOwner domain.AccountID
		want     error
	}{
		{name: "missing club", caller: domain.Identified("1"), club: 42, newOwner: "2", want: ErrClubDoesNotExist},
		{name: "not owner", caller: domain.Identified("9"), club: id, newOwner: "2", want: ErrNotClubOwner},
		{name: "to self", caller: domain.Identified("1"), club: id, newOwner: "1", want: ErrTransferToSelf},
		{name: "elevated caller", caller: domain.Elevated(), club: id, newOwner: "2", want: ErrUnidentifiedCaller},
		{name: "anonymous caller", caller: domain.Identified(""), club: id, newOwner: "2", want: ErrUnidentifiedCaller},
	}
	for _, tc := range tests {
		_, err := f.svc.TransferOwnership(ctx, tc.caller, tc.club, tc.newOwner)
		require.ErrorIs(t, err, tc.want, tc.name)
	}

	got, err := f.svc.Club(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Club{ID: id, Owner: "1", AnnualFee: 100}, got)
	assert.Empty(t, f.events.Events())
}

func TestService_TransferOwnership_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	f.ledger.SetBalance("A", 1_000)

	original, err := f.svc.CreateClub(ctx, domain.Elevated(), "A", 250)
	require.NoError(t, err)

	_, err = f.svc.TransferOwnership(ctx, domain.Identified("A"), original.ID, "B")
	require.NoError(t, err)
	_, err = f.svc.TransferOwnership(ctx, domain.Identified("B"), original.ID, "A")
	require.NoError(t, err)

	got, err := f.svc.Club(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestService_SetAnnualFee(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	id := f.seedClub(t, "1", 100)

	club, err := f.svc.SetAnnualFee(ctx, domain.Identified("1"), id, 200)
	require.NoError(t, err)
	assert.Equal(t, domain.Balance(200), club.AnnualFee)

	_, err = f.svc.SetAnnualFee(ctx, domain.Identified("2"), id, 300)
	require.ErrorIs(t, err, ErrNotClubOwner)

	_, err = f.svc.SetAnnualFee(ctx, domain.Identified("1"), id+1, 300)
	require.ErrorIs(t, err, ErrClubDoesNotExist)

	_, err = f.svc.SetAnnualFee(ctx, domain.Elevated(), id, 300)
	require.ErrorIs(t, err, ErrUnidentifiedCaller)

	got, err := f.svc.Club(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.Balance(200), got.AnnualFee)

	club, err = f.svc.SetAnnualFee(ctx, domain.Identified("1"), id, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.Balance(0), club.AnnualFee)

	assert.Equal(t, []domain.Event{
		domain.AnnualFeeSet{ClubID: id, NewFee: 200},
		domain.AnnualFeeSet{ClubID: id, NewFee: 0},
	}, f.events.Events())
}

func TestService_JoinClub(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	id := f.seedClub(t, "1", 100)
	f.ledger.SetBalance("2", 1_000)

	m, err := f.svc.JoinClub(ctx, domain.Identified("2"), id, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Moment(31_536_000_000), m.Expiry)

	expiry, ok, err := f.memberships.Get(ctx, id, "2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.Moment(31_536_000_000), expiry)

	acct, _ := f.ledger.Account(ctx, "2")
	assert.Equal(t, domain.Balance(900), acct.Free)
	escrow, _ := f.ledger.Account(ctx, f.svc.EscrowAccountID())
	assert.Equal(t, domain.Balance(100), escrow.Free)

	assert.Equal(t, []domain.Event{domain.MemberJoined{ClubID: id, Member: "2", Expiry: 31_536_000_000}}, f.events.Events())
}

func TestService_JoinClub_RejectsYearsOutOfRange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	id := f.seedClub(t, "1", 100)
	f.ledger.SetBalance("2", 1_000_000)
	before := f.snapshot(t, id, "2")

	_, err := f.svc.JoinClub(ctx, domain.Identified("2"), id, 0)
	require.ErrorIs(t, err, ErrYearsZero)
	assert.Equal(t, before, f.snapshot(t, id, "2"))

	_, err = f.svc.JoinClub(ctx, domain.Identified("2"), id, 101)
	require.ErrorIs(t, err, ErrYearsExceedMax)
	assert.Equal(t, before, f.snapshot(t, id, "2"))

	// The ceiling itself is allowed.
	_, err = f.svc.JoinClub(ctx, domain.Identified("2"), id, 100)
	require.NoError(t, err)
}

func TestService_JoinClub_MissingClubAndCaller(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	f.ledger.SetBalance("2", 1_000)

	_, err := f.svc.JoinClub(ctx, domain.Identified("2"), 5, 1)
	require.ErrorIs(t, err, ErrClubDoesNotExist)

	// Missing club wins over invalid years.
	_, err = f.svc.JoinClub(ctx, domain.Identified("2"), 5, 0)
	require.ErrorIs(t, err, ErrClubDoesNotExist)

	id := f.seedClub(t, "1", 100)
	_, err = f.svc.JoinClub(ctx, domain.Elevated(), id, 1)
	require.ErrorIs(t, err, ErrUnidentifiedCaller)
}

func TestService_JoinClub_EscrowAccountRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	id := f.seedClub(t, "1", 100)
	escrow := f.svc.EscrowAccountID()
	before := f.snapshot(t, id, escrow)

	_, err := f.svc.JoinClub(ctx, domain.Identified(escrow), id, 5)
	require.ErrorIs(t, err, ErrEscrowCannotJoin)
	assert.Equal(t, before, f.snapshot(t, id, escrow))

	// Funded escrow is rejected the same way.
	f.ledger.SetBalance(escrow, 1_000)
	before = f.snapshot(t, id, escrow)
	_, err = f.svc.JoinClub(ctx, domain.Identified(escrow), id, 1)
	require.ErrorIs(t, err, ErrEscrowCannotJoin)
	assert.Equal(t, before, f.snapshot(t, id, escrow))

	_, status, err := f.svc.MembershipStatus(ctx, id, escrow)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipNeverJoined, status)
}

func TestService_JoinClub_OwnerPaysLikeAnyMember(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	f.ledger.SetBalance("owner", 1_000)
	club, err := f.svc.CreateClub(ctx, domain.Elevated(), "owner", 100)
	require.NoError(t, err)

	m, err := f.svc.JoinClub(ctx, domain.Identified("owner"), club.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.Moment(2*yearMs), m.Expiry)

	// Creation fee stays reserved; the membership is paid from free balance.
	acct, err := f.ledger.Account(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, balances.Account{Free: 700, Reserved: 100}, acct)
	escrow, err := f.ledger.Account(ctx, f.svc.EscrowAccountID())
	require.NoError(t, err)
	assert.Equal(t, domain.Balance(200), escrow.Free)
}

func TestService_JoinClub_Accrual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		years1     domain.Years
		t1         int64
		years2     domain.Years
		wantExpiry int64
	}{
		{name: "stack while active", years1: 1, t1: yearMs / 2, years2: 2, wantExpiry: 3 * yearMs},
		{name: "stack one ms before expiry", years1: 2, t1: 2*yearMs - 1, years2: 1, wantExpiry: 3 * yearMs},
		{name: "restart exactly at expiry", years1: 1, t1: yearMs, years2: 1, wantExpiry: 2 * yearMs},
		{name: "restart after lapse", years1: 1, t1: 5 * yearMs, years2: 3, wantExpiry: 8 * yearMs},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			f := newFixture(t, DefaultConfig(), domain.FirstClubID)
			id := f.seedClub(t, "owner", 10)
			f.ledger.SetBalance("m", 1_000)

			m, err := f.svc.JoinClub(ctx, domain.Identified("m"), id, tc.years1)
			require.NoError(t, err)
			require.Equal(t, domain.Moment(int64(tc.years1)*yearMs), m.Expiry)

			f.clk.Set(time.UnixMilli(tc.t1).UTC())
			m, err = f.svc.JoinClub(ctx, domain.Identified("m"), id, tc.years2)
			require.NoError(t, err)
			assert.Equal(t, domain.Moment(tc.wantExpiry), m.Expiry)

			evs := f.events.Events()
			require.Len(t, evs, 2)
			assert.Equal(t, domain.MemberJoined{ClubID: id, Member: "m", Expiry: domain.Moment(tc.wantExpiry)}, evs[1])

			acct, _ := f.ledger.Account(ctx, "m")
			assert.Equal(t, domain.Balance(1_000-10*int(tc.years1+tc.years2)), acct.Free)
		})
	}
}

func TestService_JoinClub_CostOverflow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	id := f.seedClub(t, "1", math.MaxUint64/2+1)
	f.ledger.SetBalance("2", math.MaxUint64)
	before := f.snapshot(t, id, "2")

	_, err := f.svc.JoinClub(ctx, domain.Identified("2"), id, 2)
	require.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, before, f.snapshot(t, id, "2"))
}

func TestService_JoinClub_DurationOverflowTakesNoPayment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.YearDuration = math.MaxUint64 / 2
	f := newFixture(t, cfg, domain.FirstClubID)
	id := f.seedClub(t, "1", 100)
	f.ledger.SetBalance("2", 1_000)
	before := f.snapshot(t, id, "2")

	_, err := f.svc.JoinClub(ctx, domain.Identified("2"), id, 3)
	require.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, before, f.snapshot(t, id, "2"))

	// One year fits; a second one stacked on the active expiry does not.
	_, err = f.svc.JoinClub(ctx, domain.Identified("2"), id, 1)
	require.NoError(t, err)
	_, err = f.svc.JoinClub(ctx, domain.Identified("2"), id, 2)
	require.ErrorIs(t, err, ErrOverflow)

	acct, _ := f.ledger.Account(ctx, "2")
	assert.Equal(t, domain.Balance(900), acct.Free, "only the successful join was charged")
}

func TestService_JoinClub_BalanceErrorsPropagateUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	id := f.seedClub(t, "1", 100)

	f.ledger.SetBalance("poor", 50)
	_, err := f.svc.JoinClub(ctx, domain.Identified("poor"), id, 1)
	assert.Same(t, balances.ErrInsufficientBalance, err)

	// Paying the exact balance would drop below the existential deposit.
	f.ledger.SetBalance("exact", 100)
	before := f.snapshot(t, id, "exact")
	_, err = f.svc.JoinClub(ctx, domain.Identified("exact"), id, 1)
	assert.Same(t, balances.ErrKeepAlive, err)
	assert.Equal(t, before, f.snapshot(t, id, "exact"))
}

func TestService_JoinClub_FreeClub(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	id := f.seedClub(t, "1", 0)

	m, err := f.svc.JoinClub(ctx, domain.Identified("nobody"), id, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.Moment(3*yearMs), m.Expiry)
}

func TestService_MembershipStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t, DefaultConfig(), domain.FirstClubID)
	id := f.seedClub(t, "1", 100)
	f.ledger.SetBalance("2", 1_000)

	_, status, err := f.svc.MembershipStatus(ctx, id, "2")
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipNeverJoined, status)

	_, err = f.svc.JoinClub(ctx, domain.Identified("2"), id, 1)
	require.NoError(t, err)

	m, status, err := f.svc.MembershipStatus(ctx, id, "2")
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipActive, status)
	assert.True(t, m.Joined)

	f.clk.Set(time.UnixMilli(yearMs).UTC())
	_, status, err = f.svc.MembershipStatus(ctx, id, "2")
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipExpired, status)

	_, err = f.svc.JoinClub(ctx, domain.Identified("2"), id, 1)
	require.NoError(t, err)
	m, status, err = f.svc.MembershipStatus(ctx, id, "2")
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipActive, status)
	assert.Equal(t, domain.Moment(2*yearMs), m.Expiry)
}

func TestService_EscrowAccountIDIsStable(t *testing.T) {
	t.Parallel()

	a := newFixture(t, DefaultConfig(), domain.FirstClubID)
	b := newFixture(t, DefaultConfig(), domain.FirstClubID)
	assert.Equal(t, a.svc.EscrowAccountID(), b.svc.EscrowAccountID())
	assert.Equal(t, domain.EscrowAccountID(), a.svc.EscrowAccountID())
}

func TestService_TagsLogsWithComponentOnce(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	runner := memuow.NewRunner(memclubrepo.NewRepo(domain.FirstClubID), memmembershiprepo.NewRepo(), membalances.NewLedger(1), memevents.NewRecorder())
	svc := NewService(runner, memclock.NewManualClock(time.UnixMilli(0).UTC()), DefaultConfig(), zerolog.New(&buf))

	_, err := svc.CreateClub(context.Background(), domain.Identified("1"), "1", 100)
	require.ErrorIs(t, err, ErrNotElevated)

	line := buf.String()
	assert.Equal(t, 1, strings.Count(line, `"component"`), line)
	assert.Contains(t, line, `"component":"clubs"`)
}
