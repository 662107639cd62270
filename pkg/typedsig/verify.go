package typedsig

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/DanTehrani/story-form-interface/pkg/form"
)

// Digest computes the domain-separated signing digest:
// keccak256(0x19 0x01 || domainSeparator || structHash).
func Digest(td TypedData) ([32]byte, error) {
	domainSep, err := domainSeparator(td.Domain)
	if err != nil {
		return [32]byte{}, err
	}
	structHash, err := hashStruct(td.PrimaryType, td.Types, td.Message)
	if err != nil {
		return [32]byte{}, err
	}
	return keccak([]byte{0x19, 0x01}, domainSep[:], structHash[:]), nil
}

// Sign signs the payload digest with a secp256k1 key and returns the
// signature as 0x-prefixed r||s||v hex. Production signing is delegated to
// an external signer; this is used by tests and local tooling.
func Sign(td TypedData, key *secp256k1.PrivateKey) (string, error) {
	digest, err := Digest(td)
	if err != nil {
		return "", err
	}
	compact := secpecdsa.SignCompact(key, digest[:], false)
	// compact layout is v||r||s with v = 27 + recovery id.
	sig := make([]byte, 65)
	copy(sig[:64], compact[1:])
	sig[64] = compact[0]
	return "0x" + hex.EncodeToString(sig), nil
}

// RecoverSigner recovers the signing address from payload plus signature.
func RecoverSigner(td TypedData, sigHex string) (string, error) {
	digest, err := Digest(td)
	if err != nil {
		return "", err
	}
	sig, err := decodeSignature(sigHex)
	if err != nil {
		return "", err
	}
	pub, _, err := secpecdsa.RecoverCompact(sig, digest[:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignatureRejected, err)
	}
	return AddressFromPubKey(pub), nil
}

// Verify recomputes the payload digest, recovers the signer and compares it
// to the claimed address. It fails closed: any decoding, recovery or address
// mismatch yields ErrSignatureRejected, never a "probably valid".
func Verify(td TypedData, sigHex, claimedSigner string) error {
	claimed, err := form.NormalizeAddress(claimedSigner)
	if err != nil {
		return fmt.Errorf("%w: claimed signer: %v", ErrSignatureRejected, err)
	}
	recovered, err := RecoverSigner(td, sigHex)
	if err != nil {
		return err
	}
	if recovered != claimed {
		return fmt.Errorf("%w: recovered %s, claimed %s", ErrSignatureRejected, recovered, claimed)
	}
	return nil
}

// AddressFromPubKey derives the address for an uncompressed secp256k1 public
// key: the low 20 bytes of keccak256 over the raw curve point.
func AddressFromPubKey(pub *secp256k1.PublicKey) string {
	raw := pub.SerializeUncompressed()
	sum := keccak(raw[1:])
	return "0x" + hex.EncodeToString(sum[12:])
}

func decodeSignature(sigHex string) ([]byte, error) {
	s := strings.TrimPrefix(strings.TrimSpace(sigHex), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 65 {
		return nil, fmt.Errorf("%w: signature must be 65 hex bytes", ErrInvalidEncoding)
	}
	v := raw[64]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		return nil, fmt.Errorf("%w: recovery id %d", ErrInvalidEncoding, raw[64])
	}
	compact := make([]byte, 65)
	compact[0] = v
	copy(compact[1:], raw[:64])
	return compact, nil
}

func domainSeparator(d Domain) ([32]byte, error) {
	if d.Name == "" || d.Version == "" || d.ChainID <= 0 {
		return [32]byte{}, fmt.Errorf("%w: incomplete domain", ErrSchemaMismatch)
	}
	typeHash := keccak([]byte("EIP712Domain(string name,string version,uint256 chainId)"))
	nameHash := keccak([]byte(d.Name))
	versionHash := keccak([]byte(d.Version))
	chainID := make([]byte, 32)
	big.NewInt(d.ChainID).FillBytes(chainID)
	return keccak(typeHash[:], nameHash[:], versionHash[:], chainID), nil
}

func hashStruct(primaryType string, fields []Field, message map[string]string) ([32]byte, error) {
	if primaryType == "" || len(fields) == 0 {
		return [32]byte{}, fmt.Errorf("%w: empty type schema", ErrSchemaMismatch)
	}
	var sig strings.Builder
	sig.WriteString(primaryType)
	sig.WriteByte('(')
	for i, f := range fields {
		if i > 0 {
			sig.WriteByte(',')
		}
		sig.WriteString(f.Type)
		sig.WriteByte(' ')
		sig.WriteString(f.Name)
	}
	sig.WriteByte(')')
	typeHash := keccak([]byte(sig.String()))

	enc := make([]byte, 0, 32*(len(fields)+1))
	enc = append(enc, typeHash[:]...)
	for _, f := range fields {
		value, ok := message[f.Name]
		if !ok {
			return [32]byte{}, fmt.Errorf("%w: missing field %q", ErrSchemaMismatch, f.Name)
		}
		word, err := encodeValue(f.Type, value)
		if err != nil {
			return [32]byte{}, fmt.Errorf("field %q: %w", f.Name, err)
		}
		enc = append(enc, word[:]...)
	}
	return keccak(enc), nil
}

func encodeValue(fieldType, value string) ([32]byte, error) {
	switch fieldType {
	case "string":
		return keccak([]byte(value)), nil
	case "uint256":
		n, ok := new(big.Int).SetString(value, 10)
		if !ok || n.Sign() < 0 || n.BitLen() > 256 {
			return [32]byte{}, fmt.Errorf("%w: uint256 %q", ErrInvalidEncoding, value)
		}
		var word [32]byte
		n.FillBytes(word[:])
		return word, nil
	case "address":
		addr, err := form.NormalizeAddress(value)
		if err != nil {
			return [32]byte{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
		}
		raw, err := hex.DecodeString(addr[2:])
		if err != nil {
			return [32]byte{}, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
		}
		var word [32]byte
		copy(word[12:], raw)
		return word, nil
	default:
		return [32]byte{}, fmt.Errorf("%w: %q", ErrUnsupportedType, fieldType)
	}
}

func keccak(chunks ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, c := range chunks {
		h.Write(c)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}
