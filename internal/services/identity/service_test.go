package identity_test

import (
	"errors"
	"testing"

	domaintypes "cyphertext/internal/domain/types"
	"cyphertext/internal/services/identity"
	"cyphertext/internal/store"
)

const strongPassphrase = "Correct-Horse-42"

func TestGenerateIdentity_WeakPassphrase(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))
	for _, p := range []string{"", "short", "alllowercase12345", "NoSymbolsHere123"} {
		if _, _, err := svc.GenerateIdentity("0xalice", p); !errors.Is(err, identity.ErrWeakPassphrase) {
			t.Fatalf("passphrase %q: want ErrWeakPassphrase, got %v", p, err)
		}
	}
}

func TestGenerateIdentity_RequiresParticipant(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))
	if _, _, err := svc.GenerateIdentity("", strongPassphrase); !errors.Is(err, identity.ErrNoParticipant) {
		t.Fatalf("want ErrNoParticipant, got %v", err)
	}
	if _, _, err := svc.GenerateIdentity("b_c", strongPassphrase); !errors.Is(err, domaintypes.ErrInvalidParticipant) {
		t.Fatalf("want ErrInvalidParticipant, got %v", err)
	}
}

func TestGenerateThenLoad(t *testing.T) {
	svc := identity.New(store.NewIdentityFileStore(t.TempDir()))

	id, fp, err := svc.GenerateIdentity("0xalice", strongPassphrase)
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	loaded, err := svc.LoadIdentity(strongPassphrase)
	if err != nil {
		t.Fatalf("LoadIdentity: %v", err)
	}
	if loaded.PublicKey != id.PublicKey || loaded.Participant != "0xalice" {
		t.Fatal("loaded identity differs from generated one")
	}
	again, err := svc.FingerprintIdentity(strongPassphrase)
	if err != nil {
		t.Fatalf("FingerprintIdentity: %v", err)
	}
	if again != fp {
		t.Fatalf("fingerprint changed: %s vs %s", again, fp)
	}
}
