package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
)

type AuthKey struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// ParseAuthKeys parses a JSON array of auth keys, e.g.
// `[{"id":"ci","token":"s3cr3t"}]`.
func ParseAuthKeys(s string) ([]AuthKey, error) {
	if s == "" {
		return nil, errors.New("no auth keys")
	}

	var authKeys []AuthKey
	if err := json.Unmarshal([]byte(s), &authKeys); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}

	for i, authKey := range authKeys {
		if authKey.ID == "" || authKey.Token == "" {
			return nil, fmt.Errorf("auth key %d: id and token must not be empty", i)
		}
	}
	return authKeys, nil
}

func (s *AdminServer) requireAuthToken(h http.HandlerFunc) http.HandlerFunc {
	idsByToken := make(map[string]string)
	for _, authKey := range s.authKeys {
		idsByToken[authKey.Token] = authKey.ID
	}

	return func(w http.ResponseWriter, r *http.Request) {
		authHeaderVal := r.Header.Get("Authorization")
		token := bearerPrefixRe.ReplaceAllString(authHeaderVal, "")
		id := idsByToken[token]

		if token == "" || id == "" {
			http.Error(w, "insert coin", http.StatusUnauthorized)
			return
		}

		h(w, r.WithContext(context.WithValue(r.Context(), ctxKey, id)))
	}
}

var bearerPrefixRe = regexp.MustCompile(`(?i)^Bearer\s+`)

type keyIDCtxKey struct{}

var ctxKey = keyIDCtxKey{}

func authKeyIDFromContext(reqCtx context.Context) string {
	val := reqCtx.Value(ctxKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
