package models

const (
	RoleAdministrator = "Administrator"
	RoleUser          = "User"
)

// Permission names match the rows seeded by the roles migration.
type Permission string

const (
	PermCreateUsers Permission = "CREATE_USERS"
	PermReadUsers   Permission = "READ_USERS"
	PermUpdateUsers Permission = "UPDATE_USERS"
	PermDeleteUsers Permission = "DELETE_USERS"

	PermReadRoles Permission = "READ_ROLES"

	PermCreatePosts Permission = "CREATE_POSTS"
	PermReadPosts   Permission = "READ_POSTS"
	PermUpdatePosts Permission = "UPDATE_POSTS"
	PermDeletePosts Permission = "DELETE_POSTS"

	PermReadComments Permission = "READ_COMMENTS"

	PermCreateFiles Permission = "CREATE_FILES"
	PermReadFiles   Permission = "READ_FILES"
	PermDeleteFiles Permission = "DELETE_FILES"
)

type Role struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	System      bool   `json:"system"`
}
