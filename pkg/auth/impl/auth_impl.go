//nolint:whitespace // can't make both editor and linter happy
package impl

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/samber/lo"

	"github.com/rallytrack/tracking-service-manager-go/log"
	"github.com/rallytrack/tracking-service-manager-go/pkg/auth"
)

const (
	tokenHeader  = "api-token"
	bearerPrefix = "Bearer "
)

type (
	SimpleAuth struct {
		principal auth.Principal
		roles     []auth.Role
		anonymous bool
	}
	SimplePrincipal struct {
		name string
	}
)

func (s *SimplePrincipal) Name() string {
	return s.name
}

func NewSimplePrincipal(name string) *SimplePrincipal {
	return &SimplePrincipal{name: name}
}

func (s *SimpleAuth) Principal() auth.Principal {
	return s.principal
}

func (s *SimpleAuth) Roles() []auth.Role {
	return s.roles
}

func (s *SimpleAuth) Anonymous() bool {
	return s.anonymous
}

var _ auth.Authentication = (*SimpleAuth)(nil)

var anon = &SimpleAuth{
	principal: &SimplePrincipal{name: "anon"},
	roles:     []auth.Role{},
	anonymous: true,
}

// NewAuthMiddleware resolves the caller's Authentication and stores it in the
// request context. It never rejects by itself; handlers decide via the
// permission evaluator.
func NewAuthMiddleware(opts ...auth.Option) func(http.Handler) http.Handler {
	cfg := &auth.Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	l := log.Default().Named("auth")
	providers := []auth.AuthenticationProvider{
		&apiTokenAuthenticator{
			adminToken:    cfg.AdminToken,
			officialToken: cfg.OfficialToken,
		},
	}
	if cfg.OIDCIssuer != "" {
		providers = append(providers, &oidcAuthenticator{
			issuer:   cfg.OIDCIssuer,
			clientID: cfg.OIDCClientID,
			l:        l.Named("oidc"),
		})
	}
	providers = append(providers, &anonymousAuthenticator{})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, p := range providers {
				a, err := p.Authenticate(ctx, r.Header)
				if a != nil {
					ctx = auth.AddAuthToContext(ctx, a)
					break
				}
				if err != nil {
					l.Error("error authenticating", log.ErrorField(err))
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type (
	anonymousAuthenticator struct{}
	apiTokenAuthenticator  struct {
		adminToken    string
		officialToken string
	}
	oidcAuthenticator struct {
		issuer   string
		clientID string
		l        *log.Logger

		mu       sync.Mutex
		verifier *oidc.IDTokenVerifier
	}
)

func (a *anonymousAuthenticator) Authenticate(
	_ context.Context, _ http.Header,
) (auth.Authentication, error) {
	return anon, nil
}

func (a *apiTokenAuthenticator) Authenticate(
	_ context.Context, h http.Header,
) (auth.Authentication, error) {
	token := h.Get(tokenHeader)
	if token == "" {
		return nil, nil
	}
	if a.adminToken != "" && token == a.adminToken {
		return &SimpleAuth{
			principal: NewSimplePrincipal("admin"),
			roles:     []auth.Role{auth.RoleAdmin},
		}, nil
	}
	if a.officialToken != "" && token == a.officialToken {
		return &SimpleAuth{
			principal: NewSimplePrincipal("official"),
			roles:     []auth.Role{auth.RoleOfficial},
		}, nil
	}
	return nil, nil
}

func (a *oidcAuthenticator) Authenticate(
	ctx context.Context, h http.Header,
) (auth.Authentication, error) {
	raw := h.Get("Authorization")
	if !strings.HasPrefix(raw, bearerPrefix) {
		return nil, nil
	}
	verifier, err := a.getVerifier(ctx)
	if err != nil {
		return nil, err
	}
	token, err := verifier.Verify(ctx, strings.TrimPrefix(raw, bearerPrefix))
	if err != nil {
		a.l.Debug("token rejected", log.ErrorField(err))
		//nolint:nilerr // invalid token means "not authenticated", not failure
		return nil, nil
	}
	var claims struct {
		PreferredUsername string   `json:"preferred_username"`
		Roles             []string `json:"roles"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, err
	}
	name := claims.PreferredUsername
	if name == "" {
		name = token.Subject
	}
	known := lo.FilterMap(claims.Roles, func(r string, _ int) (auth.Role, bool) {
		switch auth.Role(r) {
		case auth.RoleAdmin, auth.RoleOfficial:
			return auth.Role(r), true
		}
		return "", false
	})
	return &SimpleAuth{principal: NewSimplePrincipal(name), roles: known}, nil
}

// the provider lookup hits the issuer's discovery endpoint, so it is deferred
// until the first bearer token arrives
func (a *oidcAuthenticator) getVerifier(ctx context.Context) (
	*oidc.IDTokenVerifier, error,
) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.verifier != nil {
		return a.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, a.issuer)
	if err != nil {
		return nil, err
	}
	a.verifier = provider.Verifier(&oidc.Config{ClientID: a.clientID})
	return a.verifier, nil
}
