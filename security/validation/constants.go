package validation

const (
	MaxShortTextLength = 128
	MaxMemoLength      = 2048

	// Short text fields:
	AccountField   = "account"
	RecipientField = "to"
	AmountField    = "amount"
	TokenField     = "token"
	ProposerField  = "proposingAccount"

	// Long text fields:
	MemoField = "memo"
)
