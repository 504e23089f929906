package models

const (
	PermissionWalletRead  = "wallet:read"
	PermissionWalletWrite = "wallet:write"

	PermissionTransferWrite = "transfer:write"

	PermissionCardWrite = "card:write"

	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"
)

// DefaultPermissions returns the permissions granted to role. Unknown
// roles get none.
func DefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionReadAdmin,
			PermissionWriteAdmin,
			PermissionWalletRead,
			PermissionWalletWrite,
			PermissionTransferWrite,
			PermissionCardWrite,
		}
	case RoleUser:
		return []string{
			PermissionWalletRead,
			PermissionWalletWrite,
			PermissionTransferWrite,
			PermissionCardWrite,
		}
	default:
		return []string{}
	}
}
