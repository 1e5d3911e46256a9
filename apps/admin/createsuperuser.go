package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mzalendo/daftari/core"
	"github.com/mzalendo/daftari/core/user"
)

// createSuperuser updates or creates an active, verified admin account.
func (cli *commandLine) createSuperuser(uname, email, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Username:   uname,
			Email:      email,
			FullName:   uname,
			Role:       user.RoleAdmin,
			IsActive:   true,
			IsVerified: true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	usr.Role = user.RoleAdmin
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	active, verified := true, true
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &active, &verified)
	return err
}
