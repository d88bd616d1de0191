package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"
	"os"
	"path"
	"sync"

	"github.com/pkg/errors"
)

// defaultsKey seals the defaults file. It keeps the API key and sink DSN out of plain sight on disk,
// it is not a secret store.
var defaultsKey = []byte("Qx7#dR2m!Lp9zV4k&Tn8wB1s*Hc6yF3j")

// EncryptedFile is a single file whose bytes are sealed with AES-GCM and stored as base64.
type EncryptedFile struct {
	Dirname  string
	FileName string
	FullPath string
	mu       sync.Mutex
}

func NewEncryptedFile(dirName string, filename string) *EncryptedFile {
	return &EncryptedFile{Dirname: dirName, FileName: filename, FullPath: path.Join(dirName, filename)}
}

// Set seals text and replaces the file contents. The directory is created on first use.
// The file is written next to its final path and renamed so readers never see half a file.
func (f *EncryptedFile) Set(text []byte) error {
	sealed, err := seal(text, defaultsKey)
	if err != nil {
		return errors.Wrap(err, "error encrypting defaults")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err = makeDir(f.Dirname); err != nil {
		return err
	}
	tmp := f.FullPath + ".tmp"
	if err = os.WriteFile(tmp, []byte(base64.StdEncoding.EncodeToString(sealed)), 0600); err != nil {
		return errors.Wrapf(err, "error writing %v", tmp)
	}
	return errors.Wrapf(os.Rename(tmp, f.FullPath), "error replacing %v", f.FullPath)
}

// Get returns the opened contents of the file or FileNotFoundError.
func (f *EncryptedFile) Get() ([]byte, error) {
	b64, err := os.ReadFile(f.FullPath)
	if os.IsNotExist(err) {
		return nil, FileNotFoundError{f.FullPath}
	} else if err != nil {
		return nil, err
	}
	sealed, err := base64.StdEncoding.DecodeString(string(b64))
	if err != nil {
		return nil, errors.Wrapf(err, "defaults file %v is not base64", f.FullPath)
	}
	text, err := open(sealed, defaultsKey)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to decrypt defaults file %v", f.FullPath)
	}
	return text, nil
}

// seal returns the random nonce followed by the GCM ciphertext of text.
func seal(text []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, text, nil), nil
}

// open reverses seal.
func open(sealed []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	n := gcm.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("encrypted text is too short")
	}
	return gcm.Open(nil, sealed[:n], sealed[n:], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(c)
}
