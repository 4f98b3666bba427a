package service

import (
	"github.com/google/uuid"

	"masthead/internal/auth/models"
	"masthead/internal/rbac"
	dErrors "masthead/pkg/domain-errors"
)

func (s *ServiceSuite) masterAdmin() (*models.Principal, uuid.UUID) {
	masterRole, err := s.roles.FindByName(s.ctx, rbac.MasterAdminRole)
	s.Require().NoError(err)

	summary, err := s.svc.AdminCreateUser(s.ctx, &models.Principal{ID: uuid.New(), Email: "boot@example.com"},
		models.AdminCreateUserRequest{
			Email:     "chief@example.com",
			Username:  "chief",
			Password:  testPassword,
			FirstName: "Grace",
			LastName:  "Hopper",
			RoleID:    masterRole.ID,
		})
	s.Require().NoError(err)

	principal, err := s.svc.LoadPrincipal(s.ctx, summary.ID)
	s.Require().NoError(err)
	return principal, masterRole.ID
}

func (s *ServiceSuite) TestAdminCreateUserIsPreVerified() {
	actor, _ := s.masterAdmin()
	writersRole, err := s.roles.FindByName(s.ctx, "Staff Writers")
	s.Require().NoError(err)

	summary, err := s.svc.AdminCreateUser(s.ctx, actor, models.AdminCreateUserRequest{
		Email:     "writer@example.com",
		Username:  "writer",
		Password:  testPassword,
		FirstName: "Mary",
		LastName:  "Shelley",
		RoleID:    writersRole.ID,
	})
	s.Require().NoError(err)
	s.True(summary.EmailVerified)
	s.Equal("Staff Writers", summary.Role)

	// Provisioned accounts log in without the verification step.
	login, err := s.login("writer@example.com", testPassword)
	s.Require().NoError(err)
	s.NotNil(login.Tokens)
}

func (s *ServiceSuite) TestLastWildcardHolderIsProtected() {
	actor, masterRoleID := s.masterAdmin()
	writersRole, err := s.roles.FindByName(s.ctx, "Staff Writers")
	s.Require().NoError(err)

	// The only Master Admin cannot be deleted, demoted, or deactivated.
	err = s.svc.DeleteUser(s.ctx, actor, actor.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.UpdateUser(s.ctx, actor, actor.ID, models.AdminUpdateUserRequest{RoleID: &writersRole.ID})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	inactive := false
	_, err = s.svc.UpdateUser(s.ctx, actor, actor.ID, models.AdminUpdateUserRequest{Active: &inactive})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	// With a second holder in place the first one can move.
	_, err = s.svc.AdminCreateUser(s.ctx, actor, models.AdminCreateUserRequest{
		Email:     "deputy@example.com",
		Username:  "deputy",
		Password:  testPassword,
		FirstName: "Joan",
		LastName:  "Clarke",
		RoleID:    masterRoleID,
	})
	s.Require().NoError(err)

	updated, err := s.svc.UpdateUser(s.ctx, actor, actor.ID, models.AdminUpdateUserRequest{RoleID: &writersRole.ID})
	s.Require().NoError(err)
	s.Equal("Staff Writers", updated.Role)
}

func (s *ServiceSuite) TestAdminUnlock() {
	actor, _ := s.masterAdmin()
	s.registerVerified("ada@example.com", "ada")

	for i := 0; i < 5; i++ {
		_, err := s.login("ada@example.com", "Wrong-Passw0rd!")
		s.Require().Error(err)
	}
	_, err := s.login("ada@example.com", testPassword)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAccountLocked))

	u, err := s.users.FindByEmail(s.ctx, "ada@example.com")
	s.Require().NoError(err)
	_, err = s.svc.UpdateUser(s.ctx, actor, u.ID, models.AdminUpdateUserRequest{Unlock: true})
	s.Require().NoError(err)

	login, err := s.login("ada@example.com", testPassword)
	s.Require().NoError(err)
	s.NotNil(login.Tokens)
}

func (s *ServiceSuite) TestBulkUpdateRolesAndHistory() {
	actor, _ := s.masterAdmin()
	s.registerVerified("ada@example.com", "ada")
	s.registerVerified("mary@example.com", "mary")

	ada, err := s.users.FindByEmail(s.ctx, "ada@example.com")
	s.Require().NoError(err)
	mary, err := s.users.FindByEmail(s.ctx, "mary@example.com")
	s.Require().NoError(err)

	editors, err := s.roles.FindByName(s.ctx, "Section Editors")
	s.Require().NoError(err)

	summaries, err := s.svc.BulkUpdateRoles(s.ctx, actor, models.BulkRoleUpdateRequest{
		UserIDs: []uuid.UUID{ada.ID, mary.ID},
		RoleID:  editors.ID,
	})
	s.Require().NoError(err)
	s.Len(summaries, 2)
	for _, summary := range summaries {
		s.Equal("Section Editors", summary.Role)
	}

	history, err := s.svc.RoleHistory(s.ctx, ada.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal("Contributors", history[0].FromRole)
	s.Equal("Section Editors", history[0].ToRole)
	s.Equal(actor.ID.String(), history[0].Actor)
}

func (s *ServiceSuite) TestDeactivationRevokesSession() {
	actor, _ := s.masterAdmin()
	verified := s.registerVerified("ada@example.com", "ada")

	u, err := s.users.FindByEmail(s.ctx, "ada@example.com")
	s.Require().NoError(err)
	inactive := false
	_, err = s.svc.UpdateUser(s.ctx, actor, u.ID, models.AdminUpdateUserRequest{Active: &inactive})
	s.Require().NoError(err)

	_, err = s.svc.Refresh(s.ctx, verified.Tokens.RefreshToken)
	s.Require().Error(err)

	_, err = s.login("ada@example.com", testPassword)
	s.Require().Error(err)
	s.Contains(err.Error(), "invalid credentials")
}
