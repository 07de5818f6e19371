package auth

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ChallengeMessage is the exact text a wallet signs. The nonce binds the
// signature to a single login attempt; the address makes the text
// self-describing in wallet UIs.
func ChallengeMessage(address, nonce string) string {
	return fmt.Sprintf(
		"go-dealer wants you to sign in with your wallet.\n\nAddress: %s\nNonce: %s",
		strings.ToLower(address), nonce,
	)
}

// IsHexAddress reports whether s looks like a 20-byte 0x-prefixed address.
func IsHexAddress(s string) bool {
	return common.IsHexAddress(s)
}

// VerifyPersonalSignature checks that signature is an EIP-191 personal_sign
// signature of message by address. The signature is the usual 65-byte
// r||s||v hex blob produced by wallets.
func VerifyPersonalSignature(address, message, signature string) (bool, error) {
	if !common.IsHexAddress(address) {
		return false, fmt.Errorf("malformed address")
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return false, fmt.Errorf("malformed signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return false, fmt.Errorf("signature must be %d bytes", crypto.SignatureLength)
	}

	// Wallets emit V as 27/28; go-ethereum wants 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := accounts.TextHash([]byte(message))
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false, fmt.Errorf("failed to recover signer: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	return recovered == common.HexToAddress(address), nil
}
