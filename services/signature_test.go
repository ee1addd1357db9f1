package services

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	otherPub, _, _ := ed25519.GenerateKey(nil)

	message := "Sign this message to link your wallet"
	sig := ed25519.Sign(priv, []byte(message))
	wallet := base58.Encode(pub)

	tampered := append([]byte(nil), sig...)
	tampered[10] ^= 0x01

	tests := []struct {
		name      string
		message   string
		signature string
		publicKey string
		want      bool
	}{
		{"valid", message, base58.Encode(sig), wallet, true},
		{"tampered signature byte", message, base58.Encode(tampered), wallet, false},
		{"tampered message", message + "!", base58.Encode(sig), wallet, false},
		{"other wallet", message, base58.Encode(sig), base58.Encode(otherPub), false},
		{"truncated signature", message, base58.Encode(sig[:63]), wallet, false},
		{"oversized signature", message, base58.Encode(append(sig, 0)), wallet, false},
		{"short public key", message, base58.Encode(sig), base58.Encode(pub[:31]), false},
		{"not base58 signature", message, "0OIl+/==", wallet, false},
		{"not base58 wallet", message, base58.Encode(sig), "0OIl", false},
		{"empty signature", message, "", wallet, false},
		{"empty wallet", message, base58.Encode(sig), "", false},
		{"empty message", "", base58.Encode(sig), wallet, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(tt.message, tt.signature, tt.publicKey))
		})
	}
}

func TestValidWallet(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)

	assert.True(t, ValidWallet(base58.Encode(pub)))
	assert.False(t, ValidWallet(""))
	assert.False(t, ValidWallet("not-a-wallet"))
	assert.False(t, ValidWallet(base58.Encode(pub[:16])))
}
