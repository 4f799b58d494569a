package domain

// CanView decides whether a viewer may see a profile's content grids.
// Owners always see their own profile; public profiles are visible to
// everyone; private profiles only to followers.
func CanView(isOwner bool, accountType AccountType, isFollowing bool) bool {
	if isOwner {
		return true
	}
	if accountType == AccountPublic {
		return true
	}
	return isFollowing
}
