package secure

import (
	"fmt"
	"strings"

	"geoform/internal/debug"
	appErrors "geoform/internal/errors"
	"geoform/internal/form"
)

// FieldEncryptor replaces the plaintext of every password field in a form
// with ciphertext, at most once per field.
type FieldEncryptor struct {
	keys      KeySource
	encrypter Encrypter
}

// NewFieldEncryptor wires a key source to an encrypter.
func NewFieldEncryptor(keys KeySource, encrypter Encrypter) *FieldEncryptor {
	return &FieldEncryptor{keys: keys, encrypter: encrypter}
}

// EncryptAll walks the password fields of f in document order and returns how
// many it encrypted. Marked and blank fields are skipped. The first fault
// aborts the walk; fields encrypted before it stay encrypted.
func (e *FieldEncryptor) EncryptAll(f *form.Form) (int, error) {
	count := 0
	for _, field := range f.PasswordFields() {
		if field.Encrypted() {
			continue
		}
		if strings.TrimSpace(field.Value()) == "" {
			continue
		}

		state := e.keys.State()
		if !state.Loaded {
			return count, appErrors.New(appErrors.CodeKeyUnavailable, "public key not loaded", nil)
		}
		ct, err := e.encrypter.Encrypt(field.Value(), state.PublicKey)
		if err != nil {
			debug.Errorf("secure: encrypting %s.%s failed: %v", f.Name, field.Name, err)
			if appErrors.CodeOf(err) == appErrors.CodeUnknown {
				err = appErrors.New(appErrors.CodeEncryption, fmt.Sprintf("encrypt %s", field.Name), err)
			}
			return count, err
		}
		field.SetCiphertext(ct)
		count++
	}
	return count, nil
}
