package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/mzalendo/daftari/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrLastAdmin      = errors.New("the last admin account cannot be deleted or deactivated")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.FullName, User.Username or User.Email.
		FilterUsers(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		CountUsersByRole(ctx context.Context, role string) (int, error)
		UpdateUser(ctx context.Context, usr User, isActive, isVerified *bool) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		// Register self sign-up; the account stays unverified until an admin approves it.
		Register(ctx context.Context, nu NewUser) (User, error)
		// Create is the admin path; the account is verified right away.
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		Verify(ctx context.Context, id string) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) error
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	return svc.create(ctx, nu, false)
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	return svc.create(ctx, nu, true)
}

func (svc *service) create(ctx context.Context, nu NewUser, verified bool) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Username:   nu.Username,
		Email:      nu.Email,
		FullName:   nu.FullName,
		Role:       nu.Role,
		GroupID:    nu.GroupID,
		IsActive:   true,
		IsVerified: verified,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.FilterUsers(ctx, *filter, ordering...)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		Username:  uu.Username,
		Email:     uu.Email,
		FullName:  uu.FullName,
		Role:      uu.Role,
		GroupID:   uu.GroupID,
		UpdatedAt: time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}

	// demoting or deactivating the last admin would lock everyone out
	demotion := uu.Role != "" && uu.Role != RoleAdmin
	deactivation := uu.IsActive != nil && !*uu.IsActive
	if demotion || deactivation {
		orig, err := svc.repo.GetUserByID(ctx, id)
		if err != nil {
			return User{}, err
		}
		if orig.IsAdmin() {
			if err := svc.checkLastAdmin(ctx, 1); err != nil {
				return User{}, err
			}
		}
	}
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive, uu.IsVerified)
}

func (svc *service) Verify(ctx context.Context, id string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if usr.IsVerified {
		return usr, nil
	}
	verified := true
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr, nil, &verified)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := time.Now().UTC()
	usr.LastLogin = now
	usr.UpdatedAt = now
	return svc.repo.UpdateUser(ctx, usr, nil, nil)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	var admins int
	for _, id := range ids {
		usr, err := svc.repo.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if usr.IsAdmin() {
			admins++
		}
	}
	if admins > 0 {
		if err := svc.checkLastAdmin(ctx, admins); err != nil {
			return err
		}
	}
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

// checkLastAdmin fails when removing n admin accounts would leave none behind.
func (svc *service) checkLastAdmin(ctx context.Context, n int) error {
	count, err := svc.repo.CountUsersByRole(ctx, RoleAdmin)
	if err != nil {
		return errors.Wrap(err, "counting admins")
	}
	if count-n < 1 {
		return core.NewValidationError(ErrLastAdmin)
	}
	return nil
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errors.New("invalid link"))
	}
	usr, err := svc.repo.GetUserByID(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errors.New("invalid link"))
		}
		return err
	}
	if err := verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err := usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr, nil, nil)
	return err
}

func (svc *service) sendWelcomeMail(usr User) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      fmt.Sprintf("Welcome to %s!", core.Conf.AppName),
		TemplateName: "welcome",
		TemplateData: struct {
			FullName string
			AppName  string
		}{usr.FullName, core.Conf.AppName},
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *service) sendPasswordResetMail(usr User) {
	token, err := MakeToken(usr)
	if err != nil {
		return
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      fmt.Sprintf("Password Reset on %s", core.Conf.AppName),
		TemplateName: "password-reset",
		TemplateData: struct {
			FullName string
			UID      string
			Token    string
		}{usr.FullName, EncodeUID(usr), token},
	}
	svc.mailSvc.SendMessages(msg)
}
