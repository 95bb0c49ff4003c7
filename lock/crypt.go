package lock

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
)

// Permissions lists the user operations the lock keeps available. Anything
// not represented here (editing, annotating, form filling, assembly) is
// denied.
type Permissions struct {
	Print             bool
	Copy              bool
	ExtractAccessible bool
}

// permissionsValue builds the Standard security handler /P flags. Reserved
// bits start raised; denied operations clear their bit.
func permissionsValue(p Permissions) int32 {
	val := int32(-4)
	if !p.Print {
		val &^= 1 << 2
	}
	val &^= 1 << 3 // modify
	if !p.Copy {
		val &^= 1 << 4
	}
	val &^= 1 << 5 // modify annotations
	val &^= 1 << 8 // fill forms
	if !p.ExtractAccessible {
		val &^= 1 << 9
	}
	val &^= 1 << 10 // assemble
	val &^= 1 << 11 // print high quality
	return val
}

// encryptionMaterial carries the computed Standard security handler entries
// for AES-256 (V5 R6) encryption.
type encryptionMaterial struct {
	Key   []byte // 32-byte file encryption key
	O     []byte
	U     []byte
	OE    []byte
	UE    []byte
	Perms []byte
	P     int32
}

// buildAES256 derives the V5 R6 authentication entries per ISO 32000-2
// Algorithm 8 and 9: random file key, U/UE from the user password, O/OE
// from the owner password bound to U.
func buildAES256(userPwd, ownerPwd []byte, p int32, encryptMetadata bool) (*encryptionMaterial, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	salts := make([]byte, 32)
	if _, err := rand.Read(salts); err != nil {
		return nil, err
	}
	userValidation, userKey := salts[0:8], salts[8:16]
	ownerValidation, ownerKey := salts[16:24], salts[24:32]

	u := make([]byte, 0, 48)
	u = append(u, rev6Hash(userPwd, userValidation, nil)[:32]...)
	u = append(u, userValidation...)
	u = append(u, userKey...)

	ue, err := aesCBCNoPad(rev6Hash(userPwd, userKey, nil)[:32], key)
	if err != nil {
		return nil, err
	}

	o := make([]byte, 0, 48)
	o = append(o, rev6Hash(ownerPwd, ownerValidation, u)[:32]...)
	o = append(o, ownerValidation...)
	o = append(o, ownerKey...)

	oe, err := aesCBCNoPad(rev6Hash(ownerPwd, ownerKey, u)[:32], key)
	if err != nil {
		return nil, err
	}

	perms, err := encryptPerms(key, p, encryptMetadata)
	if err != nil {
		return nil, err
	}

	return &encryptionMaterial{Key: key, O: o, U: u, OE: oe, UE: ue, Perms: perms, P: p}, nil
}

// rev6Hash is the iterated hash of ISO 32000-2 Algorithm 2.B. extra is the
// 48-byte U entry when hashing owner passwords, empty otherwise.
func rev6Hash(pwd, salt, extra []byte) []byte {
	if len(pwd) > 127 {
		pwd = pwd[:127]
	}

	initial := sha256.Sum256(concat(pwd, salt, extra))
	h := initial[:]

	for round := 0; ; round++ {
		block := make([]byte, 0, 64*(len(pwd)+len(h)+len(extra)))
		for i := 0; i < 64; i++ {
			block = append(block, pwd...)
			block = append(block, h...)
			block = append(block, extra...)
		}

		enc, err := aesCBCRaw(h[:16], h[16:32], block)
		if err != nil {
			return h
		}

		switch sumBytes(enc[:16]) % 3 {
		case 0:
			sum := sha256.Sum256(enc)
			h = sum[:]
		case 1:
			sum := sha512.Sum384(enc)
			h = sum[:]
		default:
			sum := sha512.Sum512(enc)
			h = sum[:]
		}

		if round >= 63 && int(enc[len(enc)-1]) <= round-32 {
			break
		}
	}

	return h[:32]
}

func sumBytes(b []byte) int {
	total := 0
	for _, v := range b {
		total += int(v)
	}
	return total
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// encryptPerms builds the 16-byte /Perms entry: P little-endian, reserved
// 0xFF bytes, the metadata flag, "adb" and random filler, AES-ECB encrypted
// with the file key.
func encryptPerms(key []byte, p int32, encryptMetadata bool) ([]byte, error) {
	block := make([]byte, 16)
	binary.LittleEndian.PutUint32(block[0:4], uint32(p))
	block[4], block[5], block[6], block[7] = 0xFF, 0xFF, 0xFF, 0xFF
	if encryptMetadata {
		block[8] = 'T'
	} else {
		block[8] = 'F'
	}
	block[9], block[10], block[11] = 'a', 'd', 'b'
	if _, err := rand.Read(block[12:16]); err != nil {
		return nil, err
	}

	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 16)
	c.Encrypt(out, block)
	return out, nil
}

// aesCBCRaw encrypts without padding; data must be block aligned.
func aesCBCRaw(key, iv, data []byte) ([]byte, error) {
	if len(data)%aes.BlockSize != 0 {
		return nil, errors.New("data not block aligned")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return out, nil
}

// aesCBCNoPad encrypts with a zero IV and no padding, the form used to wrap
// the file key into /UE and /OE.
func aesCBCNoPad(key, data []byte) ([]byte, error) {
	return aesCBCRaw(key, make([]byte, aes.BlockSize), data)
}

// encryptObjectData encrypts string or stream payloads: AES-256-CBC with a
// random IV prefix and PKCS#7 padding. With R6 the object key is the file
// key itself.
func encryptObjectData(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	padLen := aes.BlockSize - len(data)%aes.BlockSize
	plain := make([]byte, 0, len(data)+padLen)
	plain = append(plain, data...)
	plain = append(plain, bytes.Repeat([]byte{byte(padLen)}, padLen)...)

	out := make([]byte, aes.BlockSize+len(plain))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], plain)
	return out, nil
}
