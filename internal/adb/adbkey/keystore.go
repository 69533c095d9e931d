// Package adbkey owns the RSA keypair lifecycle: generation, on-disk
// persistence, ADB AUTH signing, and the ADB/OpenSSH ssh-rsa public-key
// export line.
package adbkey

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/adbpush/internal/adberrors"
	"golang.org/x/crypto/ssh"
)

// KeyBits is the RSA modulus size this store generates. ADB peers require
// 2048-bit keys; smaller keys are rejected by the device.
const KeyBits = 2048

// DefaultFileName is appended to a directory (or extensionless) path.
const DefaultFileName = "adbkey"

// Key wraps a loaded or newly generated RSA keypair along with the
// human-readable comment baked into its public-key line.
type Key struct {
	private *rsa.PrivateKey
	comment string
}

// resolvePath implements load_or_create's path rule: a directory, or an
// extensionless path, has DefaultFileName appended; anything else is used
// verbatim.
func resolvePath(path string) (string, error) {
	info, statErr := os.Stat(path)
	switch {
	case statErr == nil && info.IsDir():
		return filepath.Join(path, DefaultFileName), nil
	case statErr == nil:
		return path, nil
	case filepath.Ext(path) == "":
		return filepath.Join(path, DefaultFileName), nil
	default:
		return path, nil
	}
}

// LoadOrCreate resolves path per resolvePath and either loads an existing
// 2048-bit RSA private key from it, or generates a new one and persists
// both the private key file and its "<file>.pub" sibling atomically.
func LoadOrCreate(path, comment string) (*Key, error) {
	keyPath, err := resolvePath(path)
	if err != nil {
		return nil, adberrors.Wrap(adberrors.KeyGenerationFailed, "resolve key path", err)
	}

	if raw, err := os.ReadFile(keyPath); err == nil {
		priv, parseErr := x509.ParsePKCS1PrivateKey(raw)
		if parseErr == nil && priv.N.BitLen() >= KeyBits {
			return &Key{private: priv, comment: comment}, nil
		}
		// Fall through to regeneration: an unparsable or undersized file
		// is treated the same as a missing one.
	}

	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, adberrors.Wrap(adberrors.KeyGenerationFailed, "generate rsa key", err)
	}

	key := &Key{private: priv, comment: comment}
	if err := key.persist(keyPath); err != nil {
		return nil, err
	}

	return key, nil
}

// persist writes the private key DER and the public-key line to disk,
// each via a temp-file-then-rename so a crash mid-write never leaves a
// truncated key file behind.
func (k *Key) persist(keyPath string) error {
	privateDER := x509.MarshalPKCS1PrivateKey(k.private)
	if err := writeAtomic(keyPath, privateDER, 0o600); err != nil {
		return adberrors.Wrap(adberrors.KeyGenerationFailed, "persist private key", err)
	}

	pubLine := k.PublicKeyLine() + "\n"
	if err := writeAtomic(keyPath+".pub", []byte(pubLine), 0o644); err != nil {
		return adberrors.Wrap(adberrors.KeyGenerationFailed, "persist public key", err)
	}

	return nil
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Sign produces an RSA PKCS#1 v1.5 signature over token using SHA-1 as the
// DigestInfo algorithm identifier. token is the device-supplied 20-byte
// value, already a digest; crypto/rsa's SignPKCS1v15 treats its "hashed"
// argument as exactly that, so no re-hashing happens here — the SHA-1
// selection only governs which OID gets wrapped around the bytes we were
// given.
func (k *Key) Sign(token []byte) ([]byte, error) {
	if len(token) != 20 {
		return nil, adberrors.New(adberrors.AuthenticationFailed, fmt.Sprintf("unexpected token length %d", len(token)))
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, k.private, crypto.SHA1, token)
	if err != nil {
		return nil, adberrors.Wrap(adberrors.AuthenticationFailed, "sign auth token", err)
	}
	return sig, nil
}

// PublicKeyLine builds the ADB/OpenSSH public-key export:
// "ssh-rsa <base64> <comment>". The base64 payload is the standard SSH
// wire-format RSA public key blob (three length-prefixed fields:
// "ssh-rsa", exponent mpint, modulus mpint), produced by the same
// marshaling x/crypto/ssh uses for every other ssh-rsa key.
func (k *Key) PublicKeyLine() string {
	sshPub, err := ssh.NewPublicKey(&k.private.PublicKey)
	if err != nil {
		// rsa.PublicKey is always a valid ssh.PublicKey candidate; this
		// path is unreachable for keys produced by LoadOrCreate.
		return ""
	}
	blob := base64.StdEncoding.EncodeToString(sshPub.Marshal())
	return fmt.Sprintf("ssh-rsa %s %s", blob, k.comment)
}

// PublicKey returns the RSA public key, for verification in tests.
func (k *Key) PublicKey() *rsa.PublicKey {
	return &k.private.PublicKey
}
