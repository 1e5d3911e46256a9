package client

import "strings"

// NavState is the declarative view-model for the navigation bar, computed
// from the credential state. Rendering it is the renderer's business; the
// decision logic lives here where it can be tested without a UI.
type NavState struct {
	ShowLogin    bool
	ShowRegister bool
	ShowUserMenu bool
	UserLabel    string
	ShowAdmin    bool
}

// BuildNavState derives the nav view-model from a credential.
// Holding a token hides the login/register affordances and reveals the user
// menu; holding none does the opposite. The admin entry shows only for
// admins.
func BuildNavState(cred Credential, ok bool) NavState {
	if !ok {
		return NavState{ShowLogin: true, ShowRegister: true}
	}
	return NavState{
		ShowUserMenu: true,
		UserLabel:    cred.User.Label(),
		ShowAdmin:    cred.User.IsAdmin(),
	}
}

// Renderer applies a NavState to whatever surface displays it. Implementations
// must tolerate pages that lack some of the nav elements: applying a state to
// a missing element is a no-op, not an error.
type Renderer interface {
	Apply(state NavState)
}

// Reflector keeps the rendered navigation in sync with the credential store.
type Reflector struct {
	store    Store
	renderer Renderer
}

func NewReflector(store Store, renderer Renderer) *Reflector {
	return &Reflector{store: store, renderer: renderer}
}

// Reflect recomputes the nav state from the store and renders it. It is a
// pure function of the stored credential, so calling it twice in a row leaves
// the surface unchanged.
func (r *Reflector) Reflect() NavState {
	state := BuildNavState(r.store.Get())
	r.renderer.Apply(state)
	return state
}

// Navigator moves the user to another route.
type Navigator interface {
	Navigate(path string)
}

const (
	rootRoute  = "/"
	loginRoute = "/login"
	adminRoute = "/admin"
)

// GuardRoute redirects unauthenticated visits to admin routes to the login
// route, returning the path actually navigated to. This is a coarse client
// convenience, not a security boundary: the server authorizes admin routes
// independently.
func (r *Reflector) GuardRoute(path string, nav Navigator) string {
	if isAdminRoute(path) {
		if _, ok := r.store.Get(); !ok {
			nav.Navigate(loginRoute)
			return loginRoute
		}
	}
	nav.Navigate(path)
	return path
}

func isAdminRoute(path string) bool {
	return path == adminRoute || strings.HasPrefix(path, adminRoute+"/")
}
