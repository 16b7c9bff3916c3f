package keypair

import (
	"fmt"

	"github.com/mezonai/ppy/errors"
	"github.com/mezonai/ppy/keys"
)

// Bundle holds the WIF of each authority role of one account.
type Bundle struct {
	Owner  string `json:"owner"`
	Active string `json:"active"`
	Memo   string `json:"memo"`
}

// WIF returns the key of role, or "" for an unknown role.
func (b Bundle) WIF(role string) string {
	switch role {
	case keys.RoleOwner:
		return b.Owner
	case keys.RoleActive:
		return b.Active
	case keys.RoleMemo:
		return b.Memo
	}
	return ""
}

// Validate rejects a bundle with a missing role or a malformed key.
func (b Bundle) Validate() error {
	for _, role := range keys.Roles {
		wif := b.WIF(role)
		if wif == "" {
			return errors.NewError(errors.ErrCodeInvalidBundle, fmt.Sprintf(errors.ErrMsgMissingBundleRole, role))
		}
		if !keys.ValidPrivateKey(wif) {
			return errors.NewError(errors.ErrCodeInvalidKey, fmt.Sprintf("%s key is not a valid WIF", role))
		}
	}
	return nil
}

// PublicKeys maps each role to the public key string of its WIF.
func (b Bundle) PublicKeys(prefix string) (map[string]string, error) {
	out := make(map[string]string, len(keys.Roles))
	for _, role := range keys.Roles {
		priv, err := keys.PrivateKeyFromWif(b.WIF(role))
		if err != nil {
			return nil, err
		}
		out[role] = priv.PublicKey().String(prefix)
	}
	return out, nil
}

// BundleFromLogin derives a bundle from account login credentials.
func BundleFromLogin(account, password string) Bundle {
	generated := keys.GenerateKeys(account, password, keys.Roles, keys.DefaultPrefix)
	return Bundle{
		Owner:  generated.PrivKeys[keys.RoleOwner].Wif(),
		Active: generated.PrivKeys[keys.RoleActive].Wif(),
		Memo:   generated.PrivKeys[keys.RoleMemo].Wif(),
	}
}
