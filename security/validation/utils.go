package validation

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/types"
	"golang.org/x/text/unicode/norm"
)

// ValidateShortTextLength validates short text field length
func ValidateShortTextLength(fieldName, fieldValue string) error {
	normalized := norm.NFC.String(fieldValue)

	if utf8.RuneCountInString(normalized) > MaxShortTextLength {
		return errors.NewError(
			errors.ErrCodeInvalidInput,
			fmt.Sprintf(errors.ErrMsgTextTooLong, fieldName, MaxShortTextLength),
		)
	}
	return nil
}

// ValidateMemo checks a memo is valid UTF-8 without control characters
// other than tab and newline, and fits MaxMemoLength once normalized.
func ValidateMemo(memo string) error {
	if !utf8.ValidString(memo) {
		return errors.NewError(errors.ErrCodeInvalidInput, fmt.Sprintf(errors.ErrMsgInvalidCharacters, MemoField))
	}
	normalized := norm.NFC.String(memo)
	if utf8.RuneCountInString(normalized) > MaxMemoLength {
		return errors.NewError(
			errors.ErrCodeInvalidInput,
			fmt.Sprintf(errors.ErrMsgTextTooLong, MemoField, MaxMemoLength),
		)
	}
	for _, r := range normalized {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return errors.NewError(errors.ErrCodeInvalidInput, fmt.Sprintf(errors.ErrMsgInvalidCharacters, MemoField))
		}
	}
	return nil
}

// ValidateTransferParams bounds the free-text fields of a transfer request
// received from outside the process. Semantic checks stay with the plugin.
func ValidateTransferParams(params types.TransferParams) error {
	shortFields := map[string]string{
		AccountField:   params.Account.Name,
		RecipientField: params.To,
		AmountField:    params.Amount,
		TokenField:     params.Token.Symbol,
		ProposerField:  params.ProposingAccount,
	}
	for field, value := range shortFields {
		if err := ValidateShortTextLength(field, value); err != nil {
			return err
		}
	}
	return ValidateMemo(params.Memo)
}
