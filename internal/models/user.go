package models

// Role is the account type resolved by the session layer.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Identity is the acting user of a request.
type Identity struct {
	UserID int64
	Role   Role
}

func (i Identity) IsSeller() bool {
	return i.Role == RoleSeller
}
