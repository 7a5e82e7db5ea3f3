package signer

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestSignMessageRecoversToAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	s := NewLocalSigner(key)
	message := "Login to Osool: 1735689600"

	sigHex, err := s.SignMessage(context.Background(), message)
	require.NoError(t, err)

	sig, err := hexutil.Decode(sigHex)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	// Undo the legacy recovery id before recovering the public key.
	sig[crypto.RecoveryIDOffset] -= 27

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	require.NoError(t, err)
	require.Equal(t, s.Address(), crypto.PubkeyToAddress(*pub).Hex())
}

func TestNewLocalSignerFromHex(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	s, err := NewLocalSignerFromHex(hexutil.Encode(crypto.FromECDSA(key))[2:])
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Hex(), s.Address())

	_, err = NewLocalSignerFromHex("not-a-key")
	require.Error(t, err)
}
