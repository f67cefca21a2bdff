package balances

import (
	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	"github.com/Overland-East-Bay/club-membership-engine/internal/platform/arith"
)

// ApplyReserve returns a after moving amount from free to reserved.
// The account must keep at least existentialDeposit free.
func ApplyReserve(a Account, amount, existentialDeposit domain.Balance) (Account, error) {
	free, err := arith.CheckedSub(uint64(a.Free), uint64(amount))
	if err != nil {
		return a, ErrInsufficientBalance
	}
	if domain.Balance(free) < existentialDeposit {
		return a, ErrKeepAlive
	}
	reserved, err := arith.CheckedAdd(uint64(a.Reserved), uint64(amount))
	if err != nil {
		return a, ErrBalanceOverflow
	}
	a.Free = domain.Balance(free)
	a.Reserved = domain.Balance(reserved)
	return a, nil
}

// ApplyTransfer returns src and dst after moving amount between them.
// Both ledger implementations share these rules so they fail identically.
func ApplyTransfer(src, dst Account, amount domain.Balance, req ExistenceRequirement, existentialDeposit domain.Balance) (Account, Account, error) {
	free, err := arith.CheckedSub(uint64(src.Free), uint64(amount))
	if err != nil {
		return src, dst, ErrInsufficientBalance
	}
	if req == KeepAlive && domain.Balance(free) < existentialDeposit {
		return src, dst, ErrKeepAlive
	}
	credited, err := arith.CheckedAdd(uint64(dst.Free), uint64(amount))
	if err != nil {
		return src, dst, ErrBalanceOverflow
	}
	if dst.Free == 0 && dst.Reserved == 0 && domain.Balance(credited) < existentialDeposit {
		return src, dst, ErrExistentialDeposit
	}
	src.Free = domain.Balance(free)
	dst.Free = domain.Balance(credited)
	return src, dst, nil
}

// Reaped reports whether a holds too little to stay in the ledger.
func Reaped(a Account, existentialDeposit domain.Balance) bool {
	total := arith.SaturatingAdd(uint64(a.Free), uint64(a.Reserved))
	return total == 0 || domain.Balance(total) < existentialDeposit
}
