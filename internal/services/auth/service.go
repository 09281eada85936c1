package auth

import (
	"context"
	"fmt"
)

type Verifier interface {
	Verify(ctx context.Context, token string) (AccessClaims, error)
}

type Service struct {
	verifier Verifier
}

func NewService(verifier Verifier) *Service {
	return &Service{verifier: verifier}
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	if s == nil || s.verifier == nil {
		return AccessClaims{}, fmt.Errorf("auth verifier is not configured")
	}
	claims, err := s.verifier.Verify(ctx, accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}
	return claims, nil
}
