package models

const (
	StoreAdminsPath = "admins"
)

// AdminRecord is an entry in the admin registry.
type AdminRecord struct {
	ID         string `json:"id" mapstructure:"-"`
	Email      string `json:"email" mapstructure:"email"`
	Nickname   string `json:"nickname,omitempty" mapstructure:"nickname"`
	SuperAdmin bool   `json:"superAdmin" mapstructure:"-"`
	AddedBy    string `json:"addedBy,omitempty" mapstructure:"addedBy"`
	AddedAt    int64  `json:"addedAt,omitempty" mapstructure:"addedAt"`
}

// AddAdminRequest is the parameter struct to the AddAdmin function.
type AddAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Nickname string `json:"nickname" validate:"max=64"`
	// Will be set from context
	AddedBy *Session `json:"-"`
}

// ChangeAdminRequest is the parameter struct to PromoteToSuperAdmin, DemoteAdmin and RemoveAdmin.
type ChangeAdminRequest struct {
	AdminID string   `json:"adminID"`
	Caller  *Session `json:"-"`
}
