package client

import (
	"testing"
)

// renderMock records every applied NavState.
type renderMock struct {
	applied []NavState
}

func (r *renderMock) Apply(state NavState) {
	r.applied = append(r.applied, state)
}

// navMock records every navigation.
type navMock struct {
	visited []string
}

func (n *navMock) Navigate(path string) {
	n.visited = append(n.visited, path)
}

func TestBuildNavState(t *testing.T) {
	tests := []struct {
		name string
		cred Credential
		ok   bool
		want NavState
	}{
		{
			name: "anonymous",
			want: NavState{ShowLogin: true, ShowRegister: true},
		},
		{
			name: "student",
			cred: Credential{Token: "abc", User: Profile{Username: "bob", Role: "student"}},
			ok:   true,
			want: NavState{ShowUserMenu: true, UserLabel: "bob"},
		},
		{
			name: "admin labelled by full name",
			cred: Credential{Token: "abc", User: Profile{FullName: "Bob Lee", Role: "admin"}},
			ok:   true,
			want: NavState{ShowUserMenu: true, UserLabel: "Bob Lee", ShowAdmin: true},
		},
		{
			name: "full name preferred over username",
			cred: Credential{Token: "abc", User: Profile{Username: "bob", FullName: "Bob Lee", Role: "teacher"}},
			ok:   true,
			want: NavState{ShowUserMenu: true, UserLabel: "Bob Lee"},
		},
		{
			name: "token without user record",
			cred: Credential{Token: "abc"},
			ok:   true,
			want: NavState{ShowUserMenu: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildNavState(tt.cred, tt.ok); got != tt.want {
				t.Errorf("failed! got = %+v; want %+v", got, tt.want)
			}
		})
	}
}

func Test_Reflector_idempotent(t *testing.T) {
	store := NewMemStore()
	if err := store.Set(Credential{Token: "abc", User: Profile{Username: "bob", Role: "student"}}); err != nil {
		t.Fatalf("Set(): %v", err)
	}

	renderer := new(renderMock)
	reflector := NewReflector(store, renderer)

	first := reflector.Reflect()
	second := reflector.Reflect()

	if first != second {
		t.Errorf("failed! first = %+v; second %+v", first, second)
	}
	if len(renderer.applied) != 2 || renderer.applied[0] != renderer.applied[1] {
		t.Errorf("failed! applied states differ: %+v", renderer.applied)
	}
}

func Test_Reflector_tracksStore(t *testing.T) {
	store := NewMemStore()
	renderer := new(renderMock)
	reflector := NewReflector(store, renderer)

	if state := reflector.Reflect(); !state.ShowLogin || state.ShowUserMenu {
		t.Errorf("failed! anonymous state = %+v", state)
	}

	if err := store.Set(Credential{Token: "abc", User: Profile{Username: "bob", Role: "admin"}}); err != nil {
		t.Fatalf("Set(): %v", err)
	}
	if state := reflector.Reflect(); state.ShowLogin || !state.ShowAdmin {
		t.Errorf("failed! admin state = %+v", state)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear(): %v", err)
	}
	if state := reflector.Reflect(); !state.ShowLogin || state.ShowUserMenu || state.ShowAdmin {
		t.Errorf("failed! post-logout state = %+v", state)
	}
}

func Test_Reflector_GuardRoute(t *testing.T) {
	store := NewMemStore()
	reflector := NewReflector(store, new(renderMock))

	tests := []struct {
		name  string
		token string
		path  string
		want  string
	}{
		{name: "anonymous admin visit redirects to login", path: "/admin", want: "/login"},
		{name: "anonymous admin subroute redirects to login", path: "/admin/users", want: "/login"},
		{name: "anonymous non-admin visit passes", path: "/journal", want: "/journal"},
		{name: "authenticated admin visit passes", token: "abc", path: "/admin", want: "/admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.token != "" {
				if err := store.Set(Credential{Token: tt.token}); err != nil {
					t.Fatalf("Set(): %v", err)
				}
			} else if err := store.Clear(); err != nil {
				t.Fatalf("Clear(): %v", err)
			}

			nav := new(navMock)
			got := reflector.GuardRoute(tt.path, nav)
			if got != tt.want {
				t.Errorf("failed! routed to %q; want %q", got, tt.want)
			}
			if len(nav.visited) != 1 || nav.visited[0] != tt.want {
				t.Errorf("failed! visited = %v; want [%s]", nav.visited, tt.want)
			}
		})
	}
}
