package domain

// Identity names a caller: a hex address derived from the operator key, or
// an identity string assigned to an API token. Pools compare identities for
// admin and borrower checks but never interpret them.
type Identity string

func (i Identity) String() string { return string(i) }

// IsZero reports whether no identity was supplied.
func (i Identity) IsZero() bool { return i == "" }
