package rfc8291

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	AUTH_SECRET_LEN = 16
	SALT_LEN        = 16

	AES_GCM_OVERHEAD = 16

	HKDF_IKM_LEN   = 32
	HKDF_CEK_LEN   = 16
	HKDF_NONCE_LEN = 12
)

var (
	ErrAuthSecretLength = fmt.Errorf("auth_secret must be %d bytes", AUTH_SECRET_LEN)
	ErrSaltLength       = fmt.Errorf("salt must be %d bytes", SALT_LEN)
	ErrPaddingDelimiter = errors.New("record has no 0x02 padding delimiter")
)

type RFC8291 struct {
	hash func() hash.Hash
}

// Default Hash is SHA256
func NewRFC8291(hash func() hash.Hash) *RFC8291 {
	if hash == nil {
		hash = sha256.New
	}
	return &RFC8291{hash: hash}
}

// NewSecrets generates the user agent's auth secret, a record salt and an ECDH key pair.
func NewSecrets(curve ecdh.Curve) (auth, salt []byte, key *ecdh.PrivateKey, err error) {
	auth = make([]byte, AUTH_SECRET_LEN)
	salt = make([]byte, SALT_LEN)
	for _, b := range [][]byte{auth, salt} {
		if _, err := io.ReadFull(rand.Reader, b); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to generate random secret: %w", err)
		}
	}

	key, err = curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate ecdh key: %w", err)
	}

	return auth, salt, key, nil
}

// Encrypt is the application server side of the scheme. The agent only uses
// it to produce local test messages.
func (c *RFC8291) Encrypt(
	plaintext []byte,
	salt []byte,
	authSecret []byte,
	useragentPublicKey *ecdh.PublicKey,
	appserverPrivateKey *ecdh.PrivateKey,
) ([]byte, error) {
	return c.EncryptPadded(plaintext, 0, salt, authSecret, useragentPublicKey, appserverPrivateKey)
}

// EncryptPadded is Encrypt with padLen zero octets after the delimiter, as
// senders do to hide the message length.
func (c *RFC8291) EncryptPadded(
	plaintext []byte,
	padLen int,
	salt []byte,
	authSecret []byte,
	useragentPublicKey *ecdh.PublicKey,
	appserverPrivateKey *ecdh.PrivateKey,
) ([]byte, error) {
	if padLen < 0 {
		return nil, fmt.Errorf("invalid padding length %d", padLen)
	}
	if err := checkLengths(authSecret, salt); err != nil {
		return nil, err
	}

	ecdhSecret, err := appserverPrivateKey.ECDH(useragentPublicKey)
	if err != nil {
		return nil, fmt.Errorf("calculate ecdh_secret failed: %w", err)
	}

	gcm, nonce, err := c.aead(authSecret, ecdhSecret, salt, useragentPublicKey, appserverPrivateKey.PublicKey())
	if err != nil {
		return nil, err
	}

	// RFC8291: the last (and only) record is plaintext || 0x02 || 0x00*
	record := make([]byte, len(plaintext)+1+padLen)
	copy(record, plaintext)
	record[len(plaintext)] = 0x02
	ciphertext := gcm.Seal(nil, nonce, record, nil)

	return Marshal(Payload{
		RS:         uint32(len(record) + AES_GCM_OVERHEAD),
		Salt:       salt,
		KeyId:      appserverPrivateKey.PublicKey().Bytes(),
		CipherText: ciphertext,
	}), nil
}

func (c *RFC8291) Decrypt(
	ciphertext []byte,
	salt []byte,
	authSecret []byte,
	useragentPrivateKey *ecdh.PrivateKey,
	appserverPublicKey *ecdh.PublicKey,
) ([]byte, error) {
	if err := checkLengths(authSecret, salt); err != nil {
		return nil, err
	}

	ecdhSecret, err := useragentPrivateKey.ECDH(appserverPublicKey)
	if err != nil {
		return nil, fmt.Errorf("calculate ecdh_secret failed: %w", err)
	}

	gcm, nonce, err := c.aead(authSecret, ecdhSecret, salt, useragentPrivateKey.PublicKey(), appserverPublicKey)
	if err != nil {
		return nil, err
	}

	record, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open record failed: %w", err)
	}

	return Unpad(record)
}

// Unpad strips the padding of the last record: zero octets preceded by the
// 0x02 delimiter (RFC8188 section 2, RFC8291 section 4).
func Unpad(record []byte) ([]byte, error) {
	i := len(record) - 1
	for i >= 0 && record[i] == 0x00 {
		i--
	}
	if i < 0 || record[i] != 0x02 {
		return nil, ErrPaddingDelimiter
	}
	return record[:i], nil
}

func checkLengths(authSecret, salt []byte) error {
	if len(authSecret) != AUTH_SECRET_LEN {
		return ErrAuthSecretLength
	}
	if len(salt) != SALT_LEN {
		return ErrSaltLength
	}
	return nil
}

func (c *RFC8291) aead(
	authSecret []byte,
	ecdhSecret []byte,
	salt []byte,
	useragentPublicKey *ecdh.PublicKey,
	appserverPublicKey *ecdh.PublicKey,
) (cipher.AEAD, []byte, error) {
	ikm, err := c.ikm(authSecret, ecdhSecret, useragentPublicKey, appserverPublicKey)
	if err != nil {
		return nil, nil, err
	}

	cek, nonce, err := c.cekAndNonce(ikm, salt)
	if err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, nil, fmt.Errorf("create cipher block failed: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("create GCM failed: %w", err)
	}

	return gcm, nonce, nil
}

func (c *RFC8291) ikm(
	authSecret []byte,
	ecdhSecret []byte,
	useragentPublicKey *ecdh.PublicKey,
	appserverPublicKey *ecdh.PublicKey,
) ([]byte, error) {
	prk := hkdf.Extract(c.hash, ecdhSecret, authSecret)

	keyInfo := bytes.Join([][]byte{
		[]byte("WebPush: info\000"),
		useragentPublicKey.Bytes(),
		appserverPublicKey.Bytes(),
	}, nil)

	return c.expand(prk, keyInfo, HKDF_IKM_LEN, "IKM")
}

func (c *RFC8291) cekAndNonce(ikm []byte, salt []byte) (cek, nonce []byte, err error) {
	prk := hkdf.Extract(c.hash, ikm, salt)

	if cek, err = c.expand(prk, []byte("Content-Encoding: aes128gcm\000"), HKDF_CEK_LEN, "CEK"); err != nil {
		return nil, nil, err
	}
	if nonce, err = c.expand(prk, []byte("Content-Encoding: nonce\000"), HKDF_NONCE_LEN, "Nonce"); err != nil {
		return nil, nil, err
	}
	return cek, nonce, nil
}

func (c *RFC8291) expand(prk, info []byte, n int, label string) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.Expand(c.hash, prk, info), out); err != nil {
		return nil, fmt.Errorf("read %s failed: %w", label, err)
	}
	return out, nil
}
