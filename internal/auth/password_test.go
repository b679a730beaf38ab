package auth

import (
	"regexp"
	"strings"
	"testing"

	"github.com/mrlokans/mycv/internal/config"
)

var credentialPattern = regexp.MustCompile(`^[0-9a-f]{16,}\.[0-9a-f]{64}$`)

// testHasher uses the minimum scrypt cost to keep tests fast.
func testHasher() *Hasher {
	return &Hasher{N: 16, R: 8, P: 1, KeyLen: 32, SaltSize: 8}
}

func TestNewHasher_Defaults(t *testing.T) {
	h := NewHasher(config.Auth{})

	if h.N != config.DefaultScryptN || h.R != 8 || h.P != 1 || h.KeyLen != 32 || h.SaltSize != 8 {
		t.Errorf("NewHasher() = %+v, want scrypt defaults", h)
	}

	h = NewHasher(config.Auth{SaltSize: 4})
	if h.SaltSize != 8 {
		t.Errorf("SaltSize = %d, want at least 8", h.SaltSize)
	}
}

func TestHasher_GenerateSalt(t *testing.T) {
	h := testHasher()

	salt, err := h.GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt() error = %v", err)
	}
	if len(salt) != 16 {
		t.Errorf("salt length = %d, want 16 hex chars", len(salt))
	}

	other, _ := h.GenerateSalt()
	if salt == other {
		t.Error("salts should be unique")
	}
}

func TestHasher_NewCredential(t *testing.T) {
	h := testHasher()

	for _, password := range []string{"pw", "", "correct horse battery staple", strings.Repeat("x", 200), "пароль"} {
		cred, err := h.NewCredential(password)
		if err != nil {
			t.Fatalf("NewCredential(%q) error = %v", password, err)
		}
		if !credentialPattern.MatchString(cred) {
			t.Errorf("credential %q does not match salt.digest format", cred)
		}
		_, digest, _ := strings.Cut(cred, ".")
		if digest == password {
			t.Error("digest must not equal the plaintext password")
		}
	}
}

func TestHasher_NewCredential_UniqueSalts(t *testing.T) {
	h := testHasher()

	a, _ := h.NewCredential("same")
	b, _ := h.NewCredential("same")
	if a == b {
		t.Error("identical passwords should produce different credentials")
	}
}

func TestHasher_Hash_Deterministic(t *testing.T) {
	h := testHasher()

	a, err := h.Hash("pw", "0011223344556677")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	b, _ := h.Hash("pw", "0011223344556677")
	if a != b {
		t.Error("Hash() should be deterministic for the same password and salt")
	}
	if len(a) != 64 {
		t.Errorf("digest length = %d, want 64", len(a))
	}
}

func TestHasher_Verify(t *testing.T) {
	h := testHasher()
	cred, err := h.NewCredential("secret")
	if err != nil {
		t.Fatalf("NewCredential() error = %v", err)
	}

	tests := []struct {
		name       string
		credential string
		password   string
		wantErr    error
	}{
		{name: "correct password", credential: cred, password: "secret", wantErr: nil},
		{name: "wrong password", credential: cred, password: "Secret", wantErr: ErrBadCredentials},
		{name: "empty password", credential: cred, password: "", wantErr: ErrBadCredentials},
		{name: "no separator", credential: "deadbeef", password: "secret", wantErr: ErrMalformedCredential},
		{name: "empty salt", credential: ".abcd", password: "secret", wantErr: ErrMalformedCredential},
		{name: "truncated digest", credential: cred[:len(cred)-2], password: "secret", wantErr: ErrBadCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Verify(tt.credential, tt.password)
			if err != tt.wantErr {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// Credentials produced with Node's crypto.scrypt(password, salt, 32) use the
// default cost N=16384, r=8, p=1 and the hex salt string as salt bytes.
func TestHasher_DefaultCostRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("default scrypt cost is slow")
	}
	h := NewHasher(config.Auth{})

	cred, err := h.NewCredential("pw")
	if err != nil {
		t.Fatalf("NewCredential() error = %v", err)
	}
	if err := h.Verify(cred, "pw"); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}
