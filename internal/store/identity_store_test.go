package store_test

import (
	"errors"
	"testing"

	"cyphertext/internal/crypto"
	"cyphertext/internal/domain"
	"cyphertext/internal/store"
)

// makeIdentity creates a domain.Identity with a fresh P-256 pair.
func makeIdentity(t *testing.T) domain.Identity {
	t.Helper()
	kp, err := crypto.GenerateIdentityKeyPair()
	if err != nil {
		t.Fatalf("GenerateIdentityKeyPair: %v", err)
	}
	der, err := crypto.MarshalPrivateKey(kp.Private)
	if err != nil {
		t.Fatalf("MarshalPrivateKey: %v", err)
	}
	pub, err := crypto.ExportPublicKey(kp.Public)
	if err != nil {
		t.Fatalf("ExportPublicKey: %v", err)
	}
	return domain.Identity{Participant: "0xabc123", PrivateKey: der, PublicKey: pub, CreatedUTC: 1700000000}
}

func TestIdentity_SaveLoad_OK(t *testing.T) {
	ids := store.NewIdentityFileStore(t.TempDir())
	id := makeIdentity(t)

	ok, err := ids.HasIdentity()
	if err != nil || ok {
		t.Fatalf("HasIdentity before save = %v, %v", ok, err)
	}
	if err := ids.SaveIdentity("correct horse", id); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	ok, err = ids.HasIdentity()
	if err != nil || !ok {
		t.Fatalf("HasIdentity after save = %v, %v", ok, err)
	}

	got, err := ids.LoadIdentity("correct horse")
	if err != nil {
		t.Fatalf("load identity: %v", err)
	}
	if got.PublicKey != id.PublicKey || got.Participant != id.Participant || string(got.PrivateKey) != string(id.PrivateKey) {
		t.Fatalf("mismatch after load")
	}
}

func TestIdentity_WrongPassphrase_Fails(t *testing.T) {
	ids := store.NewIdentityFileStore(t.TempDir())

	if err := ids.SaveIdentity("correct", makeIdentity(t)); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	if _, err := ids.LoadIdentity("wrong"); !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("want ErrWrongPassphrase, got %v", err)
	}
}

func TestIdentity_Missing(t *testing.T) {
	ids := store.NewIdentityFileStore(t.TempDir())
	if _, err := ids.LoadIdentity("any"); !errors.Is(err, store.ErrNoIdentity) {
		t.Fatalf("want ErrNoIdentity, got %v", err)
	}
}
