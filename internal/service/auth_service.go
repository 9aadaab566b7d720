package service

import (
	"context"

	"tillsync/internal/dto"
	"tillsync/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// AuthService validates supervisor PINs against the locally mirrored user
// table, so withdrawal authorization works with the backend unreachable.
// The cash engine itself never sees a PIN — only the resulting user id.
type AuthService interface {
	ValidatePin(ctx context.Context, req dto.ValidatePinRequest) (*dto.ValidatePinResponse, error)
}

type authService struct {
	users repository.UserRepository
}

func NewAuthService(users repository.UserRepository) AuthService {
	return &authService{users: users}
}

// ValidatePin compares the PIN against every active supervisor hash. An
// unknown PIN is a valid=false response, not an error — the caller decides
// how to surface it.
func (s *authService) ValidatePin(ctx context.Context, req dto.ValidatePinRequest) (*dto.ValidatePinResponse, error) {
	supervisors, err := s.users.ListActiveSupervisors(ctx)
	if err != nil {
		return nil, err
	}
	for i := range supervisors {
		u := &supervisors[i]
		if bcrypt.CompareHashAndPassword([]byte(u.PinHash), []byte(req.Pin)) == nil {
			return &dto.ValidatePinResponse{
				Valid:        true,
				AuthorizedBy: u.ID.String(),
				FullName:     u.FullName,
			}, nil
		}
	}
	return &dto.ValidatePinResponse{Valid: false}, nil
}
