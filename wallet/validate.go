package wallet

import (
	"github.com/blocknative/walletprovider/address"
	"github.com/blocknative/walletprovider/structs"
)

func validateSender(sender string) error {
	if sender == "" || !address.IsAddress(sender) {
		return &ValidationError{Field: "from", Err: ErrSenderInvalidOrNotSupplied}
	}
	return nil
}

func validateRecipient(tx structs.TxParams) error {
	if tx.To != "" && !address.IsAddress(tx.To) {
		return &ValidationError{Field: "to", Err: ErrInvalidRecipient}
	}
	return nil
}

// validateTxParams runs on completed parameters right before signing.
func validateTxParams(tx structs.TxParams) error {
	if err := validateRecipient(tx); err != nil {
		return err
	}
	if tx.Nonce == "" {
		return &ValidationError{Field: "nonce", Err: ErrNonceMissing}
	}
	return nil
}
