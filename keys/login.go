package keys

// Authority levels of a Peerplays account, each with its own key material.
const (
	RoleOwner  = "owner"
	RoleActive = "active"
	RoleMemo   = "memo"
)

// Roles lists the authority levels in chain order.
var Roles = []string{RoleOwner, RoleActive, RoleMemo}

// KeyAuth is one weighted key of an account authority.
type KeyAuth struct {
	Key    string
	Weight uint16
}

// LoginKeys holds the per-role keys derived from an account name and password.
type LoginKeys struct {
	PrivKeys map[string]*PrivateKey
	PubKeys  map[string]string
}

// GenerateKeys derives one key per role from seed account+role+password.
func GenerateKeys(account, password string, roles []string, prefix string) LoginKeys {
	if len(roles) == 0 {
		roles = Roles
	}
	out := LoginKeys{
		PrivKeys: make(map[string]*PrivateKey, len(roles)),
		PubKeys:  make(map[string]string, len(roles)),
	}
	for _, role := range roles {
		priv := PrivateKeyFromSeed(account + role + password)
		out.PrivKeys[role] = priv
		out.PubKeys[role] = priv.PublicKey().String(prefix)
	}
	return out
}

// CheckKeys reports whether any role key derived from the credentials is
// present in that role's on-chain authority.
func CheckKeys(account, password string, auths map[string][]KeyAuth, prefix string) bool {
	for role, keyAuths := range auths {
		generated := GenerateKeys(account, password, []string{role}, prefix).PubKeys[role]
		for _, ka := range keyAuths {
			if ka.Key == generated {
				return true
			}
		}
	}
	return false
}
