package admission

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	scanerrors "github.com/contract-scanner/internal/errors"
	"github.com/contract-scanner/internal/models"
)

// base58Alphabet is the Bitcoin alphabet used by Solana addresses; it
// excludes 0, O, I and l.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ValidateRequest checks chain and address format. This runs before any
// quota is touched; clients may pre-validate for responsiveness but this
// check is the source of truth.
func ValidateRequest(req models.ScanRequest) error {
	if !req.Chain.IsValid() {
		return scanerrors.NewInvalidChainError(string(req.Chain))
	}

	address := strings.TrimSpace(req.ContractAddress)
	if address == "" {
		return scanerrors.NewInvalidParameterError("contract_address", "must not be empty")
	}

	if req.Chain.IsEVM() {
		if !common.IsHexAddress(address) {
			return scanerrors.NewInvalidAddressError(address, req.Chain)
		}
		return nil
	}

	// Solana program IDs are base58-encoded 32-byte keys, 32-44 characters.
	if len(address) < 32 || len(address) > 44 {
		return scanerrors.NewInvalidAddressError(address, req.Chain)
	}
	for _, r := range address {
		if !strings.ContainsRune(base58Alphabet, r) {
			return scanerrors.NewInvalidAddressError(address, req.Chain)
		}
	}
	return nil
}
