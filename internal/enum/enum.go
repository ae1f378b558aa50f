package enum

// ── Roles (carried in the JWT "role" claim) ──

const (
	RoleCustomer = "CUSTOMER"
	RoleShipper  = "SHIPPER"
	RoleAdmin    = "ADMIN"
)

// ── Tracking events (websocket "type" field) ──

const (
	EventShipperLocation = "shipper_location"
	EventOrderStatus     = "order_status"
)

// ValidRole reports whether role is one the storefront serves.
func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleShipper, RoleAdmin:
		return true
	}
	return false
}
