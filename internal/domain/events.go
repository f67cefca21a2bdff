package domain

import (
	"encoding/json"
	"fmt"
)

type EventKind string

const (
	EventClubCreated          EventKind = "ClubCreated"
	EventOwnershipTransferred EventKind = "OwnershipTransferred"
	EventAnnualFeeSet         EventKind = "AnnualFeeSet"
	EventMemberJoined         EventKind = "MemberJoined"
)

// Event is emitted after an operation succeeds.
type Event interface {
	Kind() EventKind
	Club() ClubID
}

type ClubCreated struct {
	ClubID    ClubID    `json:"clubId"`
	Owner     AccountID `json:"owner"`
	AnnualFee Balance   `json:"annualFee,string"`
}

type OwnershipTransferred struct {
	ClubID   ClubID    `json:"clubId"`
	NewOwner AccountID `json:"newOwner"`
}

type AnnualFeeSet struct {
	ClubID ClubID  `json:"clubId"`
	NewFee Balance `json:"newFee,string"`
}

type MemberJoined struct {
	ClubID ClubID    `json:"clubId"`
	Member AccountID `json:"member"`
	Expiry Moment    `json:"expiry"`
}

func (ClubCreated) Kind() EventKind          { return EventClubCreated }
func (OwnershipTransferred) Kind() EventKind { return EventOwnershipTransferred }
func (AnnualFeeSet) Kind() EventKind         { return EventAnnualFeeSet }
func (MemberJoined) Kind() EventKind         { return EventMemberJoined }

func (e ClubCreated) Club() ClubID          { return e.ClubID }
func (e OwnershipTransferred) Club() ClubID { return e.ClubID }
func (e AnnualFeeSet) Club() ClubID         { return e.ClubID }
func (e MemberJoined) Club() ClubID         { return e.ClubID }

// DecodeEvent rebuilds an event from its kind and JSON payload, as persisted by
// event stores.
func DecodeEvent(kind EventKind, payload []byte) (Event, error) {
	var (
		ev  Event
		err error
	)
	switch kind {
	case EventClubCreated:
		var e ClubCreated
		err = json.Unmarshal(payload, &e)
		ev = e
	case EventOwnershipTransferred:
		var e OwnershipTransferred
		err = json.Unmarshal(payload, &e)
		ev = e
	case EventAnnualFeeSet:
		var e AnnualFeeSet
		err = json.Unmarshal(payload, &e)
		ev = e
	case EventMemberJoined:
		var e MemberJoined
		err = json.Unmarshal(payload, &e)
		ev = e
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return ev, nil
}
