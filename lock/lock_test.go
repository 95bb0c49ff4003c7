package lock

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"regexp"
	"testing"

	"github.com/keboola/esignature/internal/incpdf"
	"github.com/keboola/esignature/internal/testpdf"
)

func TestApply(t *testing.T) {
	input := testpdf.New(2)

	out, err := Apply(input, Options{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
	if !bytes.HasSuffix(out, []byte("%%EOF\n")) {
		t.Error("output does not end with EOF marker")
	}
	for _, want := range []string{"/Encrypt", "/AESV3", "/Filter /Standard", "/R 6"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output is missing %q", want)
		}
	}

	// Names are not encrypted, so the document structure must survive the
	// rewrite in the clear.
	for _, want := range []string{"/Type /Catalog", "/Type /Pages", "/Type /Page"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("rewritten structure is missing %q", want)
		}
	}
	// No rewritten object may collapse into a bare reference to itself.
	for _, m := range selfRefPattern.FindAllSubmatch(out, -1) {
		if bytes.Equal(m[1], m[2]) {
			t.Errorf("object %s rewritten as a self-reference", m[1])
		}
	}

	// Page text is encrypted, not readable in the clear.
	if bytes.Contains(out, []byte("Page 1")) {
		t.Error("page content survived in plaintext")
	}
}

var selfRefPattern = regexp.MustCompile(`(?m)^(\d+) 0 obj\s+(\d+) 0 R\s+endobj`)

func TestApplyAlreadyEncrypted(t *testing.T) {
	out, err := Apply(testpdf.New(1), Options{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	_, err = Apply(out, Options{})
	if err == nil {
		t.Fatal("locking a locked document should fail")
	}
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Errorf("error type = %T, want *LockError", err)
	}
}

func TestApplyPreservesSignatureContents(t *testing.T) {
	// A signature dictionary's /Contents hex string must stay unencrypted
	// so validators can still parse the CMS container.
	u, err := incpdf.Open(testpdf.New(1))
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	if _, err := u.AddObject([]byte("<< /Type /Sig /Filter /Adobe.PPKLite /Contents <deadbeefcafe> >>")); err != nil {
		t.Fatalf("add signature object: %v", err)
	}
	input, err := u.Finalize()
	if err != nil {
		t.Fatalf("finalize fixture: %v", err)
	}

	out, err := Apply(input, Options{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Contains(out, []byte("deadbeefcafe")) {
		t.Error("signature contents were encrypted")
	}
}

func TestPermissionsValue(t *testing.T) {
	tests := []struct {
		name  string
		perms Permissions
		check func(t *testing.T, v int32)
	}{
		{"all granted", Permissions{Print: true, Copy: true, ExtractAccessible: true},
			func(t *testing.T, v int32) {
				if v&(1<<2) == 0 {
					t.Error("print bit cleared")
				}
				if v&(1<<4) == 0 {
					t.Error("copy bit cleared")
				}
				if v&(1<<9) == 0 {
					t.Error("accessible extraction bit cleared")
				}
			}},
		{"nothing granted", Permissions{},
			func(t *testing.T, v int32) {
				if v&(1<<2) != 0 {
					t.Error("print bit raised")
				}
				if v&(1<<4) != 0 {
					t.Error("copy bit raised")
				}
			}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := permissionsValue(tt.perms)
			if v >= 0 {
				t.Errorf("permissions value %d not negative", v)
			}
			// Modify and assemble are always denied.
			if v&(1<<3) != 0 {
				t.Error("modify bit raised")
			}
			if v&(1<<10) != 0 {
				t.Error("assemble bit raised")
			}
			tt.check(t, v)
		})
	}
}

func TestRev6Hash(t *testing.T) {
	pwd := []byte("owner secret")
	salt := []byte("12345678")

	h1 := rev6Hash(pwd, salt, nil)
	h2 := rev6Hash(pwd, salt, nil)
	if len(h1) != 32 {
		t.Fatalf("hash length = %d, want 32", len(h1))
	}
	if !bytes.Equal(h1, h2) {
		t.Error("hash is not deterministic")
	}

	if bytes.Equal(h1, rev6Hash([]byte("other"), salt, nil)) {
		t.Error("different passwords hash equal")
	}
	if bytes.Equal(h1, rev6Hash(pwd, []byte("87654321"), nil)) {
		t.Error("different salts hash equal")
	}
	if bytes.Equal(h1, rev6Hash(pwd, salt, []byte("extra data here extra data here extra data here!"))) {
		t.Error("extra data does not affect the hash")
	}
}

func TestBuildAES256(t *testing.T) {
	m, err := buildAES256([]byte(""), []byte("owner"), -4, true)
	if err != nil {
		t.Fatalf("buildAES256: %v", err)
	}

	if len(m.Key) != 32 {
		t.Errorf("key length = %d, want 32", len(m.Key))
	}
	if len(m.U) != 48 || len(m.O) != 48 {
		t.Errorf("U/O lengths = %d/%d, want 48", len(m.U), len(m.O))
	}
	if len(m.UE) != 32 || len(m.OE) != 32 {
		t.Errorf("UE/OE lengths = %d/%d, want 32", len(m.UE), len(m.OE))
	}
	if len(m.Perms) != 16 {
		t.Errorf("Perms length = %d, want 16", len(m.Perms))
	}

	// Algorithm 11: the user hash validates against the validation salt.
	validationSalt := m.U[32:40]
	if !bytes.Equal(rev6Hash(nil, validationSalt, nil), m.U[:32]) {
		t.Error("U entry does not validate the empty user password")
	}

	// Algorithm 12: the owner hash validates with U as extra input.
	ownerValidation := m.O[32:40]
	if !bytes.Equal(rev6Hash([]byte("owner"), ownerValidation, m.U), m.O[:32]) {
		t.Error("O entry does not validate the owner password")
	}

	// UE unwraps back to the file key with the user key salt.
	keySalt := m.U[40:48]
	ik := rev6Hash(nil, keySalt, nil)
	unwrapped := decryptCBCNoPad(t, ik, m.UE)
	if !bytes.Equal(unwrapped, m.Key) {
		t.Error("UE does not unwrap to the file key")
	}
}

func decryptCBCNoPad(t *testing.T, key, data []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes cipher: %v", err)
	}
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(out, data)
	return out
}

func TestEncryptObjectData(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	data := []byte("hello stream payload")

	enc, err := encryptObjectData(key, data)
	if err != nil {
		t.Fatalf("encryptObjectData: %v", err)
	}
	if len(enc)%aes.BlockSize != 0 {
		t.Errorf("ciphertext length %d not block aligned", len(enc))
	}
	if len(enc) < len(data)+aes.BlockSize {
		t.Errorf("ciphertext too short for IV plus padded payload")
	}

	// Round-trip through CBC with the embedded IV.
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes cipher: %v", err)
	}
	plain := make([]byte, len(enc)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, enc[:aes.BlockSize]).CryptBlocks(plain, enc[aes.BlockSize:])
	padLen := int(plain[len(plain)-1])
	if got := string(plain[:len(plain)-padLen]); got != string(data) {
		t.Errorf("round trip = %q, want %q", got, data)
	}
}

func TestExtractStreamPayload(t *testing.T) {
	span := []byte("4 0 obj\n<< /Length 5 >>\nstream\nhello\nendstream\nendobj\n")
	got := extractStreamPayload(span)
	if string(got) != "hello" {
		t.Errorf("payload = %q, want %q", got, "hello")
	}

	if got := extractStreamPayload([]byte("4 0 obj\n<< /X 1 >>\nendobj\n")); got != nil {
		t.Errorf("non-stream object yielded payload %q", got)
	}
}
