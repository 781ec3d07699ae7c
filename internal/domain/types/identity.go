package types

// Identity is the persisted form of a participant's key pair. PrivateKey is
// PKCS#8 DER and is only ever written to disk inside the passphrase-encrypted
// blob.
type Identity struct {
	Participant ParticipantID `json:"participant"`
	PrivateKey  []byte        `json:"private_key"`
	PublicKey   string        `json:"public_key"`
	CreatedUTC  int64         `json:"created_utc"`
}

// PublicKeyRecord is what the directory stores per participant. PublicKey is
// base64 SubjectPublicKeyInfo DER.
type PublicKeyRecord struct {
	Participant ParticipantID `json:"participant" validate:"required,excludes=_"`
	PublicKey   string        `json:"public_key" validate:"required,base64"`
}
