package clubs

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	"github.com/Overland-East-Bay/club-membership-engine/internal/platform/arith"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/balances"
	clockport "github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/clock"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/clubrepo"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/uow"
)

// Service dispatches the club operations. Every operation runs inside one unit
// of work: it either commits all of its writes and its event, or none.
type Service struct {
	uow uow.Runner
	clk clockport.Clock
	cfg Config
	log zerolog.Logger

	escrow domain.AccountID
}

func NewService(runner uow.Runner, clk clockport.Clock, cfg Config, log zerolog.Logger) *Service {
	return &Service{
		uow:    runner,
		clk:    clk,
		cfg:    cfg,
		log:    log.With().Str("component", "clubs").Logger(),
		escrow: domain.EscrowAccountID(),
	}
}

// EscrowAccountID returns the account that collects membership dues.
func (s *Service) EscrowAccountID() domain.AccountID { return s.escrow }

func (s *Service) Config() Config { return s.cfg }

// CreateClub registers a club for owner. Only elevated callers may create
// clubs; the creation fee is reserved (held, not transferred) from owner.
func (s *Service) CreateClub(ctx context.Context, caller domain.Caller, owner domain.AccountID, annualFee domain.Balance) (domain.Club, error) {
	if !caller.IsElevated() {
		return domain.Club{}, s.rejected("create_club", caller, ErrNotElevated)
	}

	var club domain.Club
	err := s.uow.Do(ctx, func(ctx context.Context, r uow.Repos) error {
		id, err := r.Clubs.NextID(ctx)
		if err != nil {
			return err
		}
		next, err := arith.CheckedAdd(uint64(id), 1)
		if err != nil {
			return fail(ErrOverflow, map[string]any{"nextClubId": uint64(id)}, err)
		}

		if err := r.Balances.Reserve(ctx, owner, s.cfg.CreationFee); err != nil {
			return fail(ErrInsufficientFunds, map[string]any{
				"owner":       string(owner),
				"creationFee": uint64(s.cfg.CreationFee),
			}, err)
		}

		club = domain.Club{ID: id, Owner: owner, AnnualFee: annualFee}
		if err := r.Clubs.Insert(ctx, club); err != nil {
			return err
		}
		if err := r.Clubs.PutNextID(ctx, domain.ClubID(next)); err != nil {
			return err
		}
		return r.Events.Publish(ctx, domain.ClubCreated{ClubID: id, Owner: owner, AnnualFee: annualFee})
	})
	if err != nil {
		return domain.Club{}, s.rejected("create_club", caller, err)
	}

	s.log.Info().
		Uint64("club_id", uint64(club.ID)).
		Str("owner", string(club.Owner)).
		Uint64("annual_fee", uint64(club.AnnualFee)).
		Msg("club created")
	return club, nil
}

// TransferOwnership hands the club to newOwner. Only the current owner may do so.
func (s *Service) TransferOwnership(ctx context.Context, caller domain.Caller, clubID domain.ClubID, newOwner domain.AccountID) (domain.Club, error) {
	sender, ok := caller.Account()
	if !ok {
		return domain.Club{}, s.rejected("transfer_ownership", caller, ErrUnidentifiedCaller)
	}

	var club domain.Club
	err := s.uow.Do(ctx, func(ctx context.Context, r uow.Repos) error {
		c, err := s.ownedClub(ctx, r.Clubs, clubID, sender)
		if err != nil {
			return err
		}
		if newOwner == c.Owner {
			return fail(ErrTransferToSelf, map[string]any{"clubId": uint64(clubID)}, nil)
		}

		c.Owner = newOwner
		if err := r.Clubs.Update(ctx, c); err != nil {
			return err
		}
		club = c
		return r.Events.Publish(ctx, domain.OwnershipTransferred{ClubID: clubID, NewOwner: newOwner})
	})
	if err != nil {
		return domain.Club{}, s.rejected("transfer_ownership", caller, err)
	}

	s.log.Info().
		Uint64("club_id", uint64(clubID)).
		Str("from", string(sender)).
		Str("to", string(newOwner)).
		Msg("club ownership transferred")
	return club, nil
}

// SetAnnualFee overwrites the club's fee. Any value, including zero, is accepted.
func (s *Service) SetAnnualFee(ctx context.Context, caller domain.Caller, clubID domain.ClubID, newFee domain.Balance) (domain.Club, error) {
	sender, ok := caller.Account()
	if !ok {
		return domain.Club{}, s.rejected("set_annual_fee", caller, ErrUnidentifiedCaller)
	}

	var club domain.Club
	err := s.uow.Do(ctx, func(ctx context.Context, r uow.Repos) error {
		c, err := s.ownedClub(ctx, r.Clubs, clubID, sender)
		if err != nil {
			return err
		}

		c.AnnualFee = newFee
		if err := r.Clubs.Update(ctx, c); err != nil {
			return err
		}
		club = c
		return r.Events.Publish(ctx, domain.AnnualFeeSet{ClubID: clubID, NewFee: newFee})
	})
	if err != nil {
		return domain.Club{}, s.rejected("set_annual_fee", caller, err)
	}

	s.log.Info().
		Uint64("club_id", uint64(clubID)).
		Uint64("annual_fee", uint64(newFee)).
		Msg("club annual fee set")
	return club, nil
}

// JoinClub buys years of membership in clubID for the calling account.
//
// Cost and expiry are computed before any funds move; the transfer to escrow
// is the first write. Balance-layer errors are returned unchanged.
func (s *Service) JoinClub(ctx context.Context, caller domain.Caller, clubID domain.ClubID, years domain.Years) (domain.Membership, error) {
	member, ok := caller.Account()
	if !ok {
		return domain.Membership{}, s.rejected("join_club", caller, ErrUnidentifiedCaller)
	}
	// Escrow cannot pay itself, so it never holds memberships.
	if member == s.escrow {
		return domain.Membership{}, s.rejected("join_club", caller, ErrEscrowCannotJoin)
	}

	var (
		out  domain.Membership
		cost domain.Balance
	)
	err := s.uow.Do(ctx, func(ctx context.Context, r uow.Repos) error {
		club, err := s.club(ctx, r.Clubs, clubID)
		if err != nil {
			return err
		}
		if years == 0 {
			return fail(ErrYearsZero, nil, nil)
		}
		if years > s.cfg.MaxYears {
			return fail(ErrYearsExceedMax, map[string]any{"years": uint32(years), "maxYears": uint32(s.cfg.MaxYears)}, nil)
		}

		cost, err = MembershipCost(club.AnnualFee, years)
		if err != nil {
			return fail(ErrOverflow, map[string]any{"annualFee": uint64(club.AnnualFee), "years": uint32(years)}, err)
		}

		now := domain.MomentFromTime(s.clk.Now())
		existing, _, err := r.Memberships.Get(ctx, clubID, member)
		if err != nil {
			return err
		}
		expiry, err := Accrue(existing, now, s.cfg.YearDuration, years)
		if err != nil {
			return fail(ErrOverflow, map[string]any{"expiry": uint64(existing), "years": uint32(years)}, err)
		}

		if err := r.Balances.Transfer(ctx, member, s.escrow, cost, balances.KeepAlive); err != nil {
			return err
		}
		if err := r.Memberships.Put(ctx, clubID, member, expiry); err != nil {
			return err
		}

		out = domain.Membership{ClubID: clubID, Account: member, Expiry: expiry, Joined: true}
		return r.Events.Publish(ctx, domain.MemberJoined{ClubID: clubID, Member: member, Expiry: expiry})
	})
	if err != nil {
		return domain.Membership{}, s.rejected("join_club", caller, err)
	}

	s.log.Info().
		Uint64("club_id", uint64(clubID)).
		Str("member", string(member)).
		Uint32("years", uint32(years)).
		Uint64("paid", uint64(cost)).
		Uint64("expiry", uint64(out.Expiry)).
		Msg("member joined club")
	return out, nil
}

// NextClubID returns the id the next CreateClub will allocate.
func (s *Service) NextClubID(ctx context.Context) (domain.ClubID, error) {
	var id domain.ClubID
	err := s.uow.Do(ctx, func(ctx context.Context, r uow.Repos) error {
		var err error
		id, err = r.Clubs.NextID(ctx)
		return err
	})
	return id, err
}

func (s *Service) Club(ctx context.Context, clubID domain.ClubID) (domain.Club, error) {
	var club domain.Club
	err := s.uow.Do(ctx, func(ctx context.Context, r uow.Repos) error {
		var err error
		club, err = s.club(ctx, r.Clubs, clubID)
		return err
	})
	return club, err
}

// Membership returns the ledger entry for (clubID, account). Accounts that
// never joined yield Joined=false; the club itself is not required to exist.
func (s *Service) Membership(ctx context.Context, clubID domain.ClubID, account domain.AccountID) (domain.Membership, error) {
	m := domain.Membership{ClubID: clubID, Account: account}
	err := s.uow.Do(ctx, func(ctx context.Context, r uow.Repos) error {
		var err error
		m.Expiry, m.Joined, err = r.Memberships.Get(ctx, clubID, account)
		return err
	})
	if err != nil {
		return domain.Membership{}, err
	}
	return m, nil
}

// MembershipStatus classifies the membership against the current clock reading.
func (s *Service) MembershipStatus(ctx context.Context, clubID domain.ClubID, account domain.AccountID) (domain.Membership, domain.MembershipStatus, error) {
	m, err := s.Membership(ctx, clubID, account)
	if err != nil {
		return domain.Membership{}, "", err
	}
	return m, m.StatusAt(domain.MomentFromTime(s.clk.Now())), nil
}

func (s *Service) club(ctx context.Context, repo clubrepo.Repository, clubID domain.ClubID) (domain.Club, error) {
	c, err := repo.Get(ctx, clubID)
	if err != nil {
		if errors.Is(err, clubrepo.ErrNotFound) {
			return domain.Club{}, fail(ErrClubDoesNotExist, map[string]any{"clubId": uint64(clubID)}, nil)
		}
		return domain.Club{}, err
	}
	return c, nil
}

func (s *Service) ownedClub(ctx context.Context, repo clubrepo.Repository, clubID domain.ClubID, sender domain.AccountID) (domain.Club, error) {
	c, err := s.club(ctx, repo, clubID)
	if err != nil {
		return domain.Club{}, err
	}
	if sender != c.Owner {
		return domain.Club{}, fail(ErrNotClubOwner, map[string]any{"clubId": uint64(clubID)}, nil)
	}
	return c, nil
}

func (s *Service) rejected(op string, caller domain.Caller, err error) error {
	s.log.Debug().
		Err(err).
		Str("op", op).
		Str("caller", caller.String()).
		Msg("operation rejected")
	return err
}
