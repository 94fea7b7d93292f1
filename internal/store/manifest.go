package store

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"steamguard/internal/domain"
	"steamguard/internal/util/memzero"
)

// manifestBody is the plaintext inside the envelope.
type manifestBody struct {
	Accounts []*domain.Account `json:"accounts"`
}

// FileStore is the manifest implementation over a single encrypted file.
// It holds the decrypted account set in memory; Save re-encrypts with
// fresh salt and IV and replaces the file atomically.
type FileStore struct {
	path       string
	passphrase string

	mu       sync.Mutex
	accounts []*domain.Account
}

// Create starts an empty manifest at path. The file is written
// immediately so a bad path or passphrase-free disk error surfaces here,
// not on first Save.
func Create(path, passphrase string) (*FileStore, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, domain.Errf(domain.KindIO, nil, "manifest already exists at %s", path)
	}
	s := &FileStore{path: path, passphrase: passphrase}
	if err := s.Save(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open reads and decrypts the manifest at path. A missing or unreadable
// file is an IO error; a file that does not decrypt cleanly is
// ErrWrongPassphrase with no further detail.
func Open(path, passphrase string) (*FileStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.Errf(domain.KindIO, err, "read manifest")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, domain.Errf(domain.KindIO, err, "manifest file is not a valid envelope")
	}

	plaintext, err := env.open(passphrase)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(plaintext)

	var body manifestBody
	if err := json.Unmarshal(plaintext, &body); err != nil {
		// A parse failure after decryption is indistinguishable from a
		// wrong passphrase by design.
		return nil, domain.ErrWrongPassphrase
	}

	return &FileStore{path: path, passphrase: passphrase, accounts: body.Accounts}, nil
}

// AccountNames lists enrolled accounts in manifest order.
func (s *FileStore) AccountNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.accounts))
	for i, a := range s.accounts {
		names[i] = a.AccountName
	}
	return names
}

// Account checks out the named account. The pointer stays owned by the
// store; mutate it for the duration of one operation and call Save.
func (s *FileStore) Account(name string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(name)
}

func (s *FileStore) find(name string) (*domain.Account, error) {
	for _, a := range s.accounts {
		if a.AccountName == name {
			return a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *FileStore) AddAccount(a *domain.Account) error {
	if a.AccountName == "" {
		return domain.Errf(domain.KindIO, nil, "account has no name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.find(a.AccountName); err == nil {
		return domain.ErrDuplicateName
	}
	s.accounts = append(s.accounts, a)
	return nil
}

func (s *FileStore) RemoveAccount(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.accounts {
		if a.AccountName == name {
			s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
			return nil
		}
	}
	return domain.ErrAccountNotFound
}

func (s *FileStore) UpdateSession(name string, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.find(name)
	if err != nil {
		return err
	}
	a.Session = sess
	return nil
}

// Save re-encrypts the account set and atomically replaces the file.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := json.Marshal(manifestBody{Accounts: s.accounts})
	if err != nil {
		return domain.Errf(domain.KindIO, err, "encode manifest")
	}
	defer memzero.Zero(plaintext)

	env, err := seal(s.passphrase, plaintext)
	if err != nil {
		return domain.Errf(domain.KindCrypto, err, "encrypt manifest")
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return domain.Errf(domain.KindIO, err, "encode envelope")
	}
	if err := writeFile(s.path, raw, 0o600); err != nil {
		return domain.Errf(domain.KindIO, err, "write manifest")
	}
	return nil
}

// ExportAccount seals one account into a standalone blob under its own
// passphrase, so it can move to another manifest without re-keying this
// one.
func (s *FileStore) ExportAccount(name, passphrase string) ([]byte, error) {
	s.mu.Lock()
	a, err := s.find(name)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(a)
	if err != nil {
		return nil, domain.Errf(domain.KindIO, err, "encode account")
	}
	defer memzero.Zero(plaintext)

	env, err := seal(passphrase, plaintext)
	if err != nil {
		return nil, domain.Errf(domain.KindCrypto, err, "encrypt account")
	}
	return json.Marshal(env)
}

// ImportAccount adds an account from an export blob. The imported account
// keeps its secrets and device ID; only the envelope key changes, to this
// manifest's passphrase, on the next Save.
func (s *FileStore) ImportAccount(blob []byte, passphrase string) (*domain.Account, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, domain.Errf(domain.KindIO, err, "blob is not a valid envelope")
	}
	plaintext, err := env.open(passphrase)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(plaintext)

	var a domain.Account
	if err := json.Unmarshal(plaintext, &a); err != nil {
		return nil, domain.ErrWrongPassphrase
	}
	if err := s.AddAccount(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// IsNotExist reports whether err came from opening a manifest that is not
// there, so callers can offer to create one.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

var _ domain.ManifestStore = (*FileStore)(nil)
