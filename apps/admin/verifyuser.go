package main

import (
	"context"
	"time"

	"github.com/mzalendo/daftari/core"
)

func (cli *commandLine) verifyUser(uname string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	if usr.IsVerified {
		return nil
	}
	usr.UpdatedAt = time.Now().UTC()
	verified := true
	_, err = cli.usrRepo.UpdateUser(ctx, usr, nil, &verified)
	return err
}
