package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Overland-East-Bay/club-membership-engine/internal/ports/out/idempotency"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

type idemScope struct {
	resp idempotency.Fingerprint
}

// beginIdempotent checks a request carrying Idempotency-Key against stored
// records:
//   - same caller+key+route+bodyHash replays the stored response
//   - same caller+key+route with a different bodyHash is rejected (409)
//
// handled is true when a response has already been written.
func (s *Server) beginIdempotent(w http.ResponseWriter, r *http.Request, route string, bodyHash string) (scope *idemScope, handled bool) {
	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if key == "" || s.Idem == nil {
		return nil, false
	}
	ctx := r.Context()
	metaFP := idempotency.Fingerprint{
		Key:      idempotency.Key(key),
		Caller:   CallerFromContext(ctx).String(),
		Method:   r.Method,
		Route:    route,
		BodyHash: "",
	}

	meta, ok, err := s.Idem.Get(ctx, metaFP)
	if err != nil {
		writeFailure(w, r, s.Log, err)
		return nil, true
	}
	if ok {
		if string(meta.Body) != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return nil, true
		}
	} else {
		_ = s.Idem.Put(ctx, metaFP, idempotency.Record{
			StatusCode:  0,
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
			CreatedAt:   time.Now().UTC(),
		})
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	rec, ok, err := s.Idem.Get(ctx, respFP)
	if err != nil {
		writeFailure(w, r, s.Log, err)
		return nil, true
	}
	if ok && rec.StatusCode != 0 && strings.HasPrefix(rec.ContentType, "application/json") {
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set(HeaderReplayed, "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return nil, true
	}
	return &idemScope{resp: respFP}, false
}

// finishIdempotent stores a successful response for later replay.
func (s *Server) finishIdempotent(r *http.Request, scope *idemScope, status int, body []byte) {
	if scope == nil || body == nil {
		return
	}
	err := s.Idem.Put(r.Context(), scope.resp, idempotency.Record{
		StatusCode:  status,
		ContentType: "application/json",
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		s.Log.Warn().Err(err).Str("route", scope.resp.Route).Msg("store idempotent response")
	}
}

func hashRequest(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
