package store_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"steamguard/internal/domain"
	"steamguard/internal/store"
)

func testAccount(name string) *domain.Account {
	return &domain.Account{
		AccountName:    name,
		SteamID:        76561199000000001,
		DeviceID:       "android:00000000-0000-0000-0000-000000000001",
		SharedSecret:   domain.Secret("sharedsecret12345678"),
		IdentitySecret: domain.Secret("identitysecret000000"),
		RevocationCode: "R12345",
	}
}

func newManifest(t *testing.T) (*store.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.json")
	s, err := store.Create(path, "hunter2")
	if err != nil {
		t.Fatalf("create manifest: %v", err)
	}
	return s, path
}

func TestManifest_RoundTrip(t *testing.T) {
	s, path := newManifest(t)

	a := testAccount("alice")
	a.Session = &domain.Session{SteamID: a.SteamID, AccessToken: "at", RefreshToken: "rt", SessionID: "sid"}
	if err := s.AddAccount(a); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddAccount(testAccount("bob")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Open(path, "hunter2")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	names := got.AccountNames()
	if len(names) != 2 || names[0] != "alice" || names[1] != "bob" {
		t.Fatalf("names = %v", names)
	}

	alice, err := got.Account("alice")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if string(alice.SharedSecret) != "sharedsecret12345678" {
		t.Fatalf("shared secret mismatch: %q", alice.SharedSecret)
	}
	if string(alice.IdentitySecret) != "identitysecret000000" {
		t.Fatalf("identity secret mismatch: %q", alice.IdentitySecret)
	}
	if alice.Session == nil || alice.Session.RefreshToken != "rt" {
		t.Fatalf("session not round-tripped: %+v", alice.Session)
	}
	if alice.RevocationCode != "R12345" || alice.SteamID != 76561199000000001 {
		t.Fatalf("metadata mismatch: %+v", alice)
	}
}

func TestManifest_WrongPassphrase(t *testing.T) {
	s, path := newManifest(t)
	if err := s.AddAccount(testAccount("alice")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := store.Open(path, "wrong"); !errors.Is(err, domain.ErrWrongPassphrase) {
		t.Fatalf("err = %v, want ErrWrongPassphrase", err)
	}
}

func TestManifest_TamperedFile(t *testing.T) {
	s, path := newManifest(t)
	if err := s.AddAccount(testAccount("alice")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env struct {
		Version int    `json:"version"`
		Salt    []byte `json:"salt"`
		IV      []byte `json:"iv"`
		Cipher  []byte `json:"cipher"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("envelope: %v", err)
	}
	env.Cipher[len(env.Cipher)/2] ^= 0x01
	tampered, _ := json.Marshal(env)
	if err := os.WriteFile(path, tampered, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := store.Open(path, "hunter2")
	if got != nil {
		t.Fatal("manifest returned despite tampering")
	}
	if !errors.Is(err, domain.ErrWrongPassphrase) {
		t.Fatalf("err = %v, want ErrWrongPassphrase", err)
	}
}

func TestManifest_MissingFile(t *testing.T) {
	_, err := store.Open(filepath.Join(t.TempDir(), "absent.json"), "p")
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.KindOf(err) != domain.KindIO {
		t.Fatalf("kind = %v, want io", domain.KindOf(err))
	}
	if !store.IsNotExist(err) {
		t.Fatalf("IsNotExist = false for %v", err)
	}
}

func TestManifest_AddRemoveUpdate(t *testing.T) {
	s, path := newManifest(t)

	if err := s.AddAccount(testAccount("alice")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddAccount(testAccount("alice")); !errors.Is(err, domain.ErrDuplicateName) {
		t.Fatalf("duplicate add: %v", err)
	}

	sess := &domain.Session{SteamID: 1, AccessToken: "a", RefreshToken: "r", SessionID: "s"}
	if err := s.UpdateSession("alice", sess); err != nil {
		t.Fatalf("update session: %v", err)
	}
	if err := s.UpdateSession("nobody", sess); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("update missing: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Open(path, "hunter2")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a, _ := got.Account("alice")
	if a.Session == nil || a.Session.AccessToken != "a" {
		t.Fatalf("session not persisted: %+v", a.Session)
	}

	if err := got.UpdateSession("alice", nil); err != nil {
		t.Fatalf("clear session: %v", err)
	}
	if a.Session != nil {
		t.Fatal("session not cleared")
	}

	if err := got.RemoveAccount("alice"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := got.RemoveAccount("alice"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("second remove: %v", err)
	}
	if names := got.AccountNames(); len(names) != 0 {
		t.Fatalf("names = %v", names)
	}
}

func TestManifest_SaveIsAtomic(t *testing.T) {
	s, path := newManifest(t)
	if err := s.AddAccount(testAccount("alice")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Every save leaves a fully decryptable file; no temp residue.
	for i := 0; i < 5; i++ {
		if err := s.Save(); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		if _, err := store.Open(path, "hunter2"); err != nil {
			t.Fatalf("open after save %d: %v", i, err)
		}
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("leftover files: %v", entries)
	}
}

func TestManifest_ExportImportAccount(t *testing.T) {
	src, _ := newManifest(t)
	if err := src.AddAccount(testAccount("alice")); err != nil {
		t.Fatalf("add: %v", err)
	}

	blob, err := src.ExportAccount("alice", "transfer-pass")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst, dstPath := newManifest(t)
	if _, err := dst.ImportAccount(blob, "wrong"); !errors.Is(err, domain.ErrWrongPassphrase) {
		t.Fatalf("import with wrong passphrase: %v", err)
	}
	got, err := dst.ImportAccount(blob, "transfer-pass")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.AccountName != "alice" || string(got.SharedSecret) != "sharedsecret12345678" {
		t.Fatalf("imported account mismatch: %+v", got)
	}

	if err := dst.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	reopened, err := store.Open(dstPath, "hunter2")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := reopened.Account("alice"); err != nil {
		t.Fatalf("imported account not persisted: %v", err)
	}
}

func TestManifest_CreateRefusesExisting(t *testing.T) {
	_, path := newManifest(t)
	if _, err := store.Create(path, "other"); err == nil {
		t.Fatal("expected error creating over an existing manifest")
	}
}
