package relay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	messagePub = "pub"
	messageSub = "sub"

	methodApprove = "session_approve"
	methodReject  = "session_reject"
	methodUpdate  = "session_update"
	methodDelete  = "session_delete"
)

var (
	// ErrInvalidSignature is returned for payloads not signed with the
	// session key.
	ErrInvalidSignature = errors.New("invalid payload signature")
)

// socketMessage is the frame exchanged with the bridge.
type socketMessage struct {
	Topic   string `json:"topic"`
	Type    string `json:"type"`
	Payload string `json:"payload"`
	Silent  bool   `json:"silent"`
}

// sessionPayload is the content exchanged with the peer wallet.
type sessionPayload struct {
	Method   string   `json:"method"`
	PeerID   string   `json:"peerId,omitempty"`
	Accounts []string `json:"accounts,omitempty"`
	ChainID  uint64   `json:"chainId,omitempty"`
}

type envelope struct {
	Data string `json:"data"`
	HMAC string `json:"hmac"`
}

func encodePayload(key string, payload sessionPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	buf, err := json.Marshal(envelope{
		Data: string(data),
		HMAC: sign(key, data),
	})
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func decodePayload(key, raw string) (*sessionPayload, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}

	expected, err := hex.DecodeString(sign(key, []byte(env.Data)))
	if err != nil {
		return nil, err
	}
	got, err := hex.DecodeString(env.HMAC)
	if err != nil || !hmac.Equal(expected, got) {
		return nil, ErrInvalidSignature
	}

	var payload sessionPayload
	if err := json.Unmarshal([]byte(env.Data), &payload); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	return &payload, nil
}

func sign(key string, data []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}
