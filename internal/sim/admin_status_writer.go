package sim

// AdminStatusWriter allows writers to receive admin endpoint status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}
