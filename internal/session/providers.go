package session

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"resumecraft/internal/config"
)

// ProviderRegistry 按标签分发 OIDC 身份提供方（如 "google"、"github"），
// 负责校验提供方签发的 id_token 并抽取档案字段。
type ProviderRegistry struct {
	verifiers map[string]*oidc.IDTokenVerifier
}

// NewProviderRegistry 根据配置发现提供方并构造校验器。
func NewProviderRegistry(ctx context.Context, providers []config.OIDCProvider) (*ProviderRegistry, error) {
	verifiers := make(map[string]*oidc.IDTokenVerifier, len(providers))
	for _, p := range providers {
		provider, err := oidc.NewProvider(ctx, p.Issuer)
		if err != nil {
			return nil, fmt.Errorf("discover oidc provider %q: %w", p.Label, err)
		}
		verifiers[p.Label] = provider.Verifier(&oidc.Config{ClientID: p.ClientID})
	}
	return &ProviderRegistry{verifiers: verifiers}, nil
}

// Verify 校验指定提供方签发的 id_token，返回登录凭证。
func (r *ProviderRegistry) Verify(ctx context.Context, label, rawIDToken string) (*Credential, error) {
	verifier, ok := r.verifiers[label]
	if !ok {
		return nil, fmt.Errorf("unknown identity provider %q", label)
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token from %q: %w", label, err)
	}

	var claims struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
		Email   string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}

	return &Credential{
		UID:         idToken.Subject,
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
		Email:       claims.Email,
	}, nil
}
