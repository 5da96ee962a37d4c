package registry

// CanDownloadOwner reports whether requestor may download identifiers owned
// by owner.
func CanDownloadOwner(requestor, owner User) bool {
	switch {
	case requestor.IsAnonymous():
		return false
	case requestor.Superuser:
		return true
	case requestor.ID == owner.ID:
		return true
	case requestor.GroupAdmin && requestor.Group != "" && requestor.Group == owner.Group:
		return true
	default:
		return false
	}
}

// CanDownloadGroup reports whether requestor may download every identifier
// owned by members of group.
func CanDownloadGroup(requestor User, group Group) bool {
	switch {
	case requestor.IsAnonymous():
		return false
	case requestor.Superuser:
		return true
	default:
		return requestor.GroupAdmin && requestor.Group == group.Name
	}
}
