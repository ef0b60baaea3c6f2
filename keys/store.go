package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore keeps owner key seeds on the local filesystem.
//
// EXPERIMENTAL: this storage surface may change in minor releases.
//
// Layout:
//
//	<dir>/<name>/owner.key         "<alg>:<seed hex>"
//	<dir>/<name>/roles/<role>.key  derived from the owner seed
//
// A key file holding only hex is read as ed25519.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Name      string
	Algorithm string
	Roles     []string
}

// StoredKey is a decoded key file.
type StoredKey struct {
	Algorithm string
	Seed      []byte
}

func (k StoredKey) Signer() (Signer, error) { return NewSigner(k.Algorithm, k.Seed) }

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "ckbfs", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) ownerPath(name string) string {
	return filepath.Join(ks.Directory, name, "owner.key")
}

func (ks *KeyStore) rolePath(name, role string) string {
	return filepath.Join(ks.Directory, name, "roles", role+".key")
}

func checkIdent(what, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	for _, char := range s {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", char, what)
	}
	return nil
}

func CheckKeyName(name string) error { return checkIdent("key name", name) }
func CheckRole(role string) error    { return checkIdent("role", role) }

func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimPrefix(strings.TrimSpace(seedHex), "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", SeedSize, len(data))
	}
	return data, nil
}

// ParseStoredKey decodes "<alg>:<hex>" or bare hex.
func ParseStoredKey(s string) (StoredKey, error) {
	s = strings.TrimSpace(s)
	alg := AlgEd25519
	if a, rest, ok := strings.Cut(s, ":"); ok {
		alg, s = strings.ToLower(a), rest
	}
	if alg != AlgEd25519 && alg != AlgDilithium3 {
		return StoredKey{}, fmt.Errorf("unsupported signature algorithm: %q", alg)
	}
	seed, err := ParseSeedHex(s)
	if err != nil {
		return StoredKey{}, err
	}
	return StoredKey{Algorithm: alg, Seed: seed}, nil
}

func (ks *KeyStore) save(path string, k StoredKey, overwrite bool) error {
	if len(k.Seed) != SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(k.Algorithm + ":" + hex.EncodeToString(k.Seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) load(path string) (StoredKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StoredKey{}, err
	}
	return ParseStoredKey(string(data))
}

// InitializeOwnerKey writes a new owner key and returns its signer.
func (ks *KeyStore) InitializeOwnerKey(name, alg string, seed []byte, overwrite bool) (Signer, string, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, "", err
	}
	if alg == "" {
		alg = AlgEd25519
	}
	k := StoredKey{Algorithm: strings.ToLower(alg), Seed: seed}
	signer, err := k.Signer()
	if err != nil {
		return nil, "", err
	}
	path := ks.ownerPath(name)
	if err := ks.save(path, k, overwrite); err != nil {
		return nil, "", err
	}
	return signer, path, nil
}

// DeriveRoleKey derives and stores a role key under an existing owner key.
// The role key uses the owner's algorithm.
func (ks *KeyStore) DeriveRoleKey(name, role string, overwrite bool) (Signer, string, error) {
	if err := CheckKeyName(name); err != nil {
		return nil, "", err
	}
	if err := CheckRole(role); err != nil {
		return nil, "", err
	}
	owner, err := ks.load(ks.ownerPath(name))
	if err != nil {
		return nil, "", err
	}
	seed, err := DeriveRoleSeed(owner.Seed, role)
	if err != nil {
		return nil, "", err
	}
	k := StoredKey{Algorithm: owner.Algorithm, Seed: seed}
	signer, err := k.Signer()
	if err != nil {
		return nil, "", err
	}
	path := ks.rolePath(name, role)
	if err := ks.save(path, k, overwrite); err != nil {
		return nil, "", err
	}
	return signer, path, nil
}

// LoadSigner resolves a signer from, in order: an explicit "<alg>:<hex>" or
// hex seed, a key file, or a stored name (and optional role).
func (ks *KeyStore) LoadSigner(seed, name, role, keyFile string) (Signer, error) {
	var (
		k   StoredKey
		err error
	)
	switch {
	case seed != "":
		k, err = ParseStoredKey(seed)
	case keyFile != "":
		k, err = ks.load(keyFile)
	case name != "":
		if err := CheckKeyName(name); err != nil {
			return nil, err
		}
		if role == "" {
			k, err = ks.load(ks.ownerPath(name))
			break
		}
		if err := CheckRole(role); err != nil {
			return nil, err
		}
		k, err = ks.load(ks.rolePath(name, role))
	default:
		return nil, errors.New("no signer provided")
	}
	if err != nil {
		return nil, err
	}
	return k.Signer()
}

func (ks *KeyStore) ListKeys() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var result []KeyEntry
	for _, name := range names {
		owner, err := ks.load(ks.ownerPath(name))
		if err != nil {
			continue
		}
		var roles []string
		if roleEntries, rerr := os.ReadDir(filepath.Join(ks.Directory, name, "roles")); rerr == nil {
			for _, re := range roleEntries {
				if !re.IsDir() && strings.HasSuffix(re.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(re.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		result = append(result, KeyEntry{Name: name, Algorithm: owner.Algorithm, Roles: roles})
	}
	return result, nil
}
