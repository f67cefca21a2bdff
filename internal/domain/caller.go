package domain

// Caller describes who is invoking an operation. The host resolves it;
// the engine only checks the capability tag and the identity.
type Caller struct {
	elevated bool
	account  AccountID
}

// Elevated returns a system-level caller. Only CreateClub requires one.
func Elevated() Caller { return Caller{elevated: true} }

// Identified returns a caller acting as the given account.
func Identified(id AccountID) Caller { return Caller{account: id} }

func (c Caller) IsElevated() bool { return c.elevated }

// Account returns the caller's identity. ok is false for elevated callers and
// for identified callers with an empty account id.
func (c Caller) Account() (AccountID, bool) {
	if c.elevated || c.account == "" {
		return "", false
	}
	return c.account, true
}

func (c Caller) String() string {
	if c.elevated {
		return "elevated"
	}
	if c.account == "" {
		return "anonymous"
	}
	return "account:" + string(c.account)
}
