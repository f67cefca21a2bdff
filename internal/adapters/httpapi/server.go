package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/rs/zerolog"

	"github.com/Overland-East-Bay/club-membership-engine/internal/app/clubs"
	"github.com/Overland-East-Bay/club-membership-engine/internal/domain"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/events"
	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/idempotency"
)

const (
	defaultEventsLimit = 100
	maxEventsLimit     = 1000
	maxBodyBytes       = 64 << 10
)

// Server exposes the clubs service over HTTP.
type Server struct {
	Clubs  *clubs.Service
	Events events.Store
	Idem   idempotency.Store
	Log    zerolog.Logger
}

func NewServer(clubsSvc *clubs.Service, eventStore events.Store, idem idempotency.Store, log zerolog.Logger) *Server {
	return &Server{
		Clubs:  clubsSvc,
		Events: eventStore,
		Idem:   idem,
		Log:    log,
	}
}

func (s *Server) GetEscrow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, EscrowResponse{AccountID: string(s.Clubs.EscrowAccountID())})
}

func (s *Server) GetNextClubID(w http.ResponseWriter, r *http.Request) {
	id, err := s.Clubs.NextClubID(r.Context())
	if err != nil {
		writeFailure(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, NextClubIDResponse{NextClubID: uint64(id)})
}

func (s *Server) CreateClub(w http.ResponseWriter, r *http.Request) {
	var req CreateClubRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Owner) == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "owner is required", nil)
		return
	}

	scope, handled := s.beginIdempotent(w, r, "/clubs", hashRequest(req))
	if handled {
		return
	}

	club, err := s.Clubs.CreateClub(r.Context(), CallerFromContext(r.Context()), domain.AccountID(req.Owner), domain.Balance(req.AnnualFee))
	if err != nil {
		writeFailure(w, r, s.Log, err)
		return
	}
	body := writeJSON(w, http.StatusCreated, clubFromDomain(club))
	s.finishIdempotent(r, scope, http.StatusCreated, body)
}

func (s *Server) GetClub(w http.ResponseWriter, r *http.Request) {
	clubID, ok := clubIDParam(w, r)
	if !ok {
		return
	}
	club, err := s.Clubs.Club(r.Context(), clubID)
	if err != nil {
		writeFailure(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, clubFromDomain(club))
}

func (s *Server) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	clubID, ok := clubIDParam(w, r)
	if !ok {
		return
	}
	var req TransferOwnershipRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.NewOwner) == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "newOwner is required", nil)
		return
	}

	club, err := s.Clubs.TransferOwnership(r.Context(), CallerFromContext(r.Context()), clubID, domain.AccountID(req.NewOwner))
	if err != nil {
		writeFailure(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, clubFromDomain(club))
}

func (s *Server) SetAnnualFee(w http.ResponseWriter, r *http.Request) {
	clubID, ok := clubIDParam(w, r)
	if !ok {
		return
	}
	var req SetAnnualFeeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	club, err := s.Clubs.SetAnnualFee(r.Context(), CallerFromContext(r.Context()), clubID, domain.Balance(req.AnnualFee))
	if err != nil {
		writeFailure(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, clubFromDomain(club))
}

func (s *Server) JoinClub(w http.ResponseWriter, r *http.Request) {
	clubID, ok := clubIDParam(w, r)
	if !ok {
		return
	}
	var req JoinClubRequest
	if !decodeBody(w, r, &req) {
		return
	}

	hash := hashRequest(struct {
		ClubID uint64          `json:"clubId"`
		Body   JoinClubRequest `json:"body"`
	}{ClubID: uint64(clubID), Body: req})
	scope, handled := s.beginIdempotent(w, r, "/clubs/{clubId}/memberships", hash)
	if handled {
		return
	}

	m, err := s.Clubs.JoinClub(r.Context(), CallerFromContext(r.Context()), clubID, domain.Years(req.Years))
	if err != nil {
		writeFailure(w, r, s.Log, err)
		return
	}
	body := writeJSON(w, http.StatusOK, membershipFromDomain(m, domain.MembershipActive))
	s.finishIdempotent(r, scope, http.StatusOK, body)
}

func (s *Server) GetMembership(w http.ResponseWriter, r *http.Request) {
	clubID, ok := clubIDParam(w, r)
	if !ok {
		return
	}
	var account string
	err := runtime.BindStyledParameterWithOptions("simple", "accountId", chi.URLParam(r, "accountId"), &account, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil || account == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "invalid accountId", nil)
		return
	}

	m, status, err := s.Clubs.MembershipStatus(r.Context(), clubID, domain.AccountID(account))
	if err != nil {
		writeFailure(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipFromDomain(m, status))
}

func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	var (
		after *uint64
		limit *int
	)
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "after", q, &after); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "invalid after", nil)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "invalid limit", nil)
		return
	}

	from := uint64(0)
	if after != nil {
		from = *after
	}
	n := defaultEventsLimit
	if limit != nil {
		n = *limit
	}
	if n < 1 || n > maxEventsLimit {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit out of range", map[string]any{"min": 1, "max": maxEventsLimit})
		return
	}

	recs, err := s.Events.List(r.Context(), from, n)
	if err != nil {
		writeFailure(w, r, s.Log, err)
		return
	}
	out := EventsResponse{Events: make([]EventEntry, 0, len(recs)), NextAfter: from}
	for _, rec := range recs {
		raw, err := json.Marshal(rec.Event)
		if err != nil {
			writeFailure(w, r, s.Log, err)
			return
		}
		out.Events = append(out.Events, EventEntry{Seq: rec.Seq, Kind: string(rec.Event.Kind()), Event: raw})
		out.NextAfter = rec.Seq
	}
	writeJSON(w, http.StatusOK, out)
}

func clubIDParam(w http.ResponseWriter, r *http.Request) (domain.ClubID, bool) {
	var id uint64
	err := runtime.BindStyledParameterWithOptions("simple", "clubId", chi.URLParam(r, "clubId"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "invalid clubId", map[string]any{"clubId": chi.URLParam(r, "clubId")})
		return 0, false
	}
	return domain.ClubID(id), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid request body", map[string]any{"reason": err.Error()})
		return false
	}
	return true
}

// writeJSON writes v and returns the encoded body.
func writeJSON(w http.ResponseWriter, status int, v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
	return b
}
