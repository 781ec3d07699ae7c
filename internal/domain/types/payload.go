package types

import (
	"encoding/json"
	"strings"
)

// PayloadKind tags the variants a chat message can carry.
type PayloadKind string

const (
	PayloadText   PayloadKind = "text"
	PayloadImage  PayloadKind = "image"
	PayloadAudio  PayloadKind = "audio"
	PayloadPoll   PayloadKind = "poll"
	PayloadGame   PayloadKind = "game"
	PayloadMarket PayloadKind = "market"
	PayloadTrade  PayloadKind = "trade"
)

// Payload is the structured content of a message. Only the fields relevant
// to Kind are set. The crypto layer never looks inside; a payload travels as
// the record's Text.
type Payload struct {
	Kind PayloadKind `json:"kind"`
	Text string      `json:"text,omitempty"`

	MediaURL string `json:"media_url,omitempty"`

	Question string   `json:"question,omitempty"`
	Options  []string `json:"options,omitempty"`

	Game   string  `json:"game,omitempty"`
	Stake  float64 `json:"stake,omitempty"`
	Token  string  `json:"token,omitempty"`
	Action string  `json:"action,omitempty"`
	Amount float64 `json:"amount,omitempty"`
}

// EncodePayload serialises p into message text. Plain text payloads are
// stored verbatim.
func EncodePayload(p Payload) (string, error) {
	if p.Kind == PayloadText || p.Kind == "" {
		return p.Text, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodePayload is the inverse of EncodePayload. Text that is not a tagged
// payload decodes as PayloadText.
func DecodePayload(text string) Payload {
	if strings.HasPrefix(text, "{") {
		var p Payload
		if err := json.Unmarshal([]byte(text), &p); err == nil && p.Kind.known() && p.Kind != PayloadText {
			return p
		}
	}
	return Payload{Kind: PayloadText, Text: text}
}

func (k PayloadKind) known() bool {
	switch k {
	case PayloadText, PayloadImage, PayloadAudio, PayloadPoll, PayloadGame, PayloadMarket, PayloadTrade:
		return true
	}
	return false
}
