package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// --------------------------------------------------------------------------
// Typed-data hashes (pre-computed keccak256 of the canonical type strings).
// --------------------------------------------------------------------------

var (
	// EIP712Domain(string name,string version)
	domainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version)"),
	)

	// Execution(string id,string pool,string routeA,string routeB,uint256 amountIn,uint256 fee,uint256 profit,uint256 createdAt)
	executionTypeHash = ethcrypto.Keccak256(
		[]byte("Execution(string id,string pool,string routeA,string routeB,uint256 amountIn,uint256 fee,uint256 profit,uint256 createdAt)"),
	)

	// domainSeparator is fixed for all execution signatures; the record set
	// is not chain-scoped, so the domain carries only name and version.
	domainSeparator = buildDomainSeparator("FlashPool", "1")
)

// ExecutionPayload carries the fields of an arbitrage execution record that
// the operator signature covers. Route fields are the registry route IDs, so
// a verified signature pins both legs as well as the amounts.
type ExecutionPayload struct {
	ID        string
	Pool      string
	RouteA    string
	RouteB    string
	AmountIn  uint64
	Fee       uint64
	Profit    uint64
	CreatedAt int64 // Unix seconds
}

// Signer produces operator signatures over execution records so persisted
// rows can be attributed to the operator key that produced them.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignExecution signs an execution payload and returns a hex-encoded
// 65-byte signature (r || s || v, v in {27,28}).
func (s *Signer) SignExecution(p ExecutionPayload) (string, error) {
	return s.signDigest(executionDigest(p))
}

// RecoverSigner returns the address that produced sigHex over payload p.
// Callers compare the result against the expected operator address.
func RecoverSigner(p ExecutionPayload, sigHex string) (common.Address, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto/signer: invalid signature hex: %w", err)
	}
	if len(raw) != 65 {
		return common.Address{}, fmt.Errorf("crypto/signer: expected 65-byte signature, got %d bytes", len(raw))
	}

	// go-ethereum recovery expects v in {0,1}.
	sig := make([]byte, 65)
	copy(sig, raw)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(executionDigest(p), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto/signer: recovering public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// buildDomainSeparator returns keccak256(abi.encode(typeHash, nameHash, versionHash)).
func buildDomainSeparator(name, version string) []byte {
	return ethcrypto.Keccak256(
		concatBytes(
			domainTypeHash,
			ethcrypto.Keccak256([]byte(name)),
			ethcrypto.Keccak256([]byte(version)),
		),
	)
}

// executionDigest computes the final signing digest:
//
//	keccak256("\x19\x01" || domainSeparator || structHash)
func executionDigest(p ExecutionPayload) []byte {
	structHash := ethcrypto.Keccak256(
		concatBytes(
			executionTypeHash,
			ethcrypto.Keccak256([]byte(p.ID)),
			ethcrypto.Keccak256([]byte(p.Pool)),
			ethcrypto.Keccak256([]byte(p.RouteA)),
			ethcrypto.Keccak256([]byte(p.RouteB)),
			bigIntTo32Bytes(new(big.Int).SetUint64(p.AmountIn)),
			bigIntTo32Bytes(new(big.Int).SetUint64(p.Fee)),
			bigIntTo32Bytes(new(big.Int).SetUint64(p.Profit)),
			bigIntTo32Bytes(big.NewInt(p.CreatedAt)),
		),
	)

	return ethcrypto.Keccak256(
		concatBytes(
			[]byte{0x19, 0x01},
			domainSeparator,
			structHash,
		),
	)
}

// signDigest signs a 32-byte digest using secp256k1 and returns the
// hex-encoded signature (r || s || v, 65 bytes).
func (s *Signer) signDigest(digest []byte) (string, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: signing: %w", err)
	}

	// go-ethereum returns v in {0,1}; typed-data convention is {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}

	return "0x" + hex.EncodeToString(sig), nil
}

// bigIntTo32Bytes returns a 32-byte big-endian representation of n.
func bigIntTo32Bytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

// concatBytes concatenates multiple byte slices into one.
func concatBytes(slices ...[]byte) []byte {
	total := 0
	for _, s := range slices {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range slices {
		buf = append(buf, s...)
	}
	return buf
}
