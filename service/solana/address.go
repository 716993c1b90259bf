package solana

import (
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
)

// maxAddressLength leaves headroom over the 44 characters of a base58 public key.
const maxAddressLength = 100

// ValidateAddress checks that address is a base58-encoded 32 byte public key.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address is required")
	}
	if len(address) > maxAddressLength {
		return fmt.Errorf("address too long: maximum length is %d characters", maxAddressLength)
	}
	if _, err := solanago.PublicKeyFromBase58(address); err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	return nil
}
