package authz

import "errors"

var (
	// ErrUnauthenticated indicates no resolvable caller on the request.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrNotAMember indicates the caller has no membership in the tenant.
	ErrNotAMember = errors.New("not a member of this organization")
	// ErrMemberRequired indicates the action needs at least member role.
	ErrMemberRequired = errors.New("membership required")
	// ErrOwnerRequired indicates the action needs the owner role.
	ErrOwnerRequired = errors.New("owner role required")
	// ErrAdminRevoked indicates the caller's admin flag was explicitly revoked.
	ErrAdminRevoked = errors.New("admin rights revoked")
	// ErrCreatorOnly indicates only the original creator may perform the action.
	ErrCreatorOnly = errors.New("only the creator may modify this item")
	// ErrGlobalAdminRequired indicates the action needs the platform admin flag.
	ErrGlobalAdminRequired = errors.New("platform admin required")
	// ErrNameMismatch indicates the confirmation name did not match.
	ErrNameMismatch = errors.New("organization name does not match")
	// ErrPINMismatch indicates the confirmation PIN did not match.
	ErrPINMismatch = errors.New("PIN does not match")
	// ErrLastTenant prevents deleting a caller's only tenant.
	ErrLastTenant = errors.New("cannot delete your only organization")
	// ErrUnknownAction indicates an action outside the catalog. Fails closed.
	ErrUnknownAction = errors.New("unknown action")
)
