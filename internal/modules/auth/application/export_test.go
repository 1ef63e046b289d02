package application

import "github.com/saransh1220/filebox/internal/modules/auth/domain"

// IssueSession exposes issueSession to the external application_test package.
func (s *AuthService) IssueSession(user *domain.User) (*domain.Session, error) {
	return s.issueSession(user)
}
