package relay

import (
	"github.com/fxamacker/cbor/v2"

	"cyphertext/internal/domain"
)

const frameEnvelope = "envelope"

// frame is the CBOR message pushed over the /subscribe websocket.
type frame struct {
	Type     string           `cbor:"1,keyasint"`
	Envelope *domain.Envelope `cbor:"2,keyasint,omitempty"`
}

func encodeFrame(env domain.Envelope) ([]byte, error) {
	return cbor.Marshal(frame{Type: frameEnvelope, Envelope: &env})
}

func decodeFrame(b []byte) (frame, error) {
	var f frame
	err := cbor.Unmarshal(b, &f)
	return f, err
}
