package httpapi

import (
	"encoding/json"

	"github.com/oapi-codegen/nullable"

	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
)

// Balances travel as decimal strings so clients without 64-bit integers keep
// full precision.

type CreateClubRequest struct {
	Owner     string `json:"owner"`
	AnnualFee uint64 `json:"annualFee,string"`
}

type TransferOwnershipRequest struct {
	NewOwner string `json:"newOwner"`
}

type SetAnnualFeeRequest struct {
	AnnualFee uint64 `json:"annualFee,string"`
}

type JoinClubRequest struct {
	Years uint32 `json:"years"`
}

type ClubResponse struct {
	ClubID    uint64 `json:"clubId"`
	Owner     string `json:"owner"`
	AnnualFee uint64 `json:"annualFee,string"`
}

type MembershipResponse struct {
	ClubID    uint64                    `json:"clubId"`
	AccountID string                    `json:"accountId"`
	Expiry    nullable.Nullable[uint64] `json:"expiry"`
	Status    string                    `json:"status"`
}

type EscrowResponse struct {
	AccountID string `json:"accountId"`
}

type NextClubIDResponse struct {
	NextClubID uint64 `json:"nextClubId"`
}

type EventEntry struct {
	Seq   uint64          `json:"seq"`
	Kind  string          `json:"kind"`
	Event json.RawMessage `json:"event"`
}

type EventsResponse struct {
	Events    []EventEntry `json:"events"`
	NextAfter uint64       `json:"nextAfter"`
}

func clubFromDomain(c domain.Club) ClubResponse {
	return ClubResponse{ClubID: uint64(c.ID), Owner: string(c.Owner), AnnualFee: uint64(c.AnnualFee)}
}

func membershipFromDomain(m domain.Membership, status domain.MembershipStatus) MembershipResponse {
	out := MembershipResponse{
		ClubID:    uint64(m.ClubID),
		AccountID: string(m.Account),
		Expiry:    nullable.NewNullNullable[uint64](),
		Status:    string(status),
	}
	if m.Joined {
		out.Expiry = nullable.NewNullableWithValue(uint64(m.Expiry))
	}
	return out
}
