package rtc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

var (
	ErrNoCredential   = errors.New("token payload has neither client_secret nor access_token")
	ErrCredentialUsed = errors.New("session credential already used")
)

type CredentialKind string

const (
	KindClientSecret CredentialKind = "client_secret"
	KindAccessToken  CredentialKind = "access_token"
)

// Credential is a short-lived session secret. Its bearer value can be taken once.
type Credential struct {
	kind  CredentialKind
	value string
	used  atomic.Bool
}

func (c *Credential) Kind() CredentialKind { return c.kind }

// Bearer hands out the secret for a single SDP exchange.
func (c *Credential) Bearer() (string, error) {
	if !c.used.CompareAndSwap(false, true) {
		return "", ErrCredentialUsed
	}
	return c.value, nil
}

type tokenPayload struct {
	ClientSecret json.RawMessage `json:"client_secret"`
	AccessToken  json.RawMessage `json:"access_token"`
}

// ParseCredential reads the broker response. client_secret may be a string or
// an object with a value field and takes precedence over access_token. An
// empty client_secret falls through to access_token.
func ParseCredential(payload []byte) (*Credential, error) {
	var p tokenPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}

	if present(p.ClientSecret) {
		v, err := secretValue(p.ClientSecret)
		switch {
		case err == nil:
			return &Credential{kind: KindClientSecret, value: v}, nil
		case !errors.Is(err, ErrNoCredential) || !present(p.AccessToken):
			return nil, fmt.Errorf("client_secret: %w", err)
		}
	}
	if present(p.AccessToken) {
		var v string
		if err := json.Unmarshal(p.AccessToken, &v); err != nil {
			return nil, fmt.Errorf("access_token: %w", err)
		}
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("access_token: %w", ErrNoCredential)
		}
		return &Credential{kind: KindAccessToken, value: v}, nil
	}
	return nil, ErrNoCredential
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func secretValue(raw json.RawMessage) (string, error) {
	var v string
	switch bytes.TrimSpace(raw)[0] {
	case '"':
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", err
		}
	case '{':
		var obj struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", err
		}
		v = obj.Value
	default:
		return "", fmt.Errorf("unexpected shape %s", raw)
	}
	if strings.TrimSpace(v) == "" {
		return "", ErrNoCredential
	}
	return v, nil
}
