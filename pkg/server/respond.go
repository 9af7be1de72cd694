package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/paduck86/distillai/pkg/store"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 8 << 20

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_, _ = w.Write(response)
	}
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Kind: kind})
}

// statusOf maps a store error to its HTTP status and wire kind.
func statusOf(err error) (int, string) {
	if errors.Is(err, store.ErrReadOnly) {
		return http.StatusServiceUnavailable, KindReadOnly
	}
	kind := store.KindOf(err)
	switch kind {
	case store.KindNotFound:
		return http.StatusNotFound, kind.String()
	case store.KindValidation:
		return http.StatusBadRequest, kind.String()
	case store.KindConflict:
		return http.StatusConflict, kind.String()
	}
	return http.StatusInternalServerError, kind.String()
}

func respondStoreError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status, kind := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	respondError(w, status, kind, err.Error())
}

// decode reads a JSON body into v and answers 400 when it cannot.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, store.KindValidation.String(), "invalid request payload: "+err.Error())
		return false
	}
	return true
}

// parseParam parses a path variable or query value into a typed id.
func parseParam[T any](w http.ResponseWriter, raw string, parse func(string) (T, error)) (T, bool) {
	id, err := parse(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, store.KindValidation.String(), err.Error())
		var zero T
		return zero, false
	}
	return id, true
}

// parseOptional parses an optional query value. Empty means nil.
func parseOptional[T any](w http.ResponseWriter, raw string, parse func(string) (T, error)) (*T, bool) {
	if raw == "" {
		return nil, true
	}
	id, ok := parseParam(w, raw, parse)
	if !ok {
		return nil, false
	}
	return &id, true
}

func positionOrAppend(p *int) int {
	if p == nil {
		return store.AppendPosition
	}
	return *p
}
