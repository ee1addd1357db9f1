package services

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
)

// VerifySignature reports whether signature is a valid ed25519 signature of
// message by the wallet publicKey. Both signature and publicKey are base58.
// Anything that does not decode to the exact key/signature size is rejected.
func VerifySignature(message, signature, publicKey string) bool {
	if message == "" || signature == "" || publicKey == "" {
		return false
	}

	pub, err := decodeWallet(publicKey)
	if err != nil {
		return false
	}

	sig, err := base58.Decode(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}

	return ed25519.Verify(pub, []byte(message), sig)
}

// decodeWallet turns a base58 wallet address into its ed25519 public key.
func decodeWallet(address string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errInvalidWallet
	}
	return ed25519.PublicKey(raw), nil
}

// ValidWallet reports whether address decodes to a 32-byte public key.
func ValidWallet(address string) bool {
	_, err := decodeWallet(address)
	return err == nil
}
