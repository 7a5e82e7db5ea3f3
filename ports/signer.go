package ports

import "context"

// WalletSigner signs login challenge messages on behalf of the user's
// wallet. Signing may suspend on external approval, so it takes a
// context.
type WalletSigner interface {
	// Address returns the wallet's checksummed Ethereum address.
	Address() string

	// SignMessage signs a personal message and returns the hex-encoded
	// 65-byte signature.
	SignMessage(ctx context.Context, message string) (string, error)
}
