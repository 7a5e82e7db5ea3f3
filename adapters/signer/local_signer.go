package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/osool-hq/bawaba/ports"
)

// LocalSigner signs challenge messages with a secp256k1 private key held
// in process. It produces the same personal_sign signatures a browser
// wallet would, so the backend verifies both identically.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address string
}

// NewLocalSigner creates a signer from an existing private key
func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}
}

// NewLocalSignerFromHex creates a signer from a hex-encoded private key
func NewLocalSignerFromHex(keyHex string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet key: %w", err)
	}
	return NewLocalSigner(key), nil
}

// Address returns the wallet's checksummed Ethereum address
func (s *LocalSigner) Address() string {
	return s.address
}

// SignMessage signs the message with the EIP-191 personal message prefix
// and returns the hex-encoded 65-byte signature with a legacy recovery id.
func (s *LocalSigner) SignMessage(ctx context.Context, message string) (string, error) {
	hash := accounts.TextHash([]byte(message))

	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}

	// Wallets report V as 27/28 rather than 0/1.
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig), nil
}

var _ ports.WalletSigner = (*LocalSigner)(nil)
