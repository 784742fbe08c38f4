package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/qacenter/qacenter/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if msg := user.ValidatePassword(pwd, usr.Name, usr.Username, usr.Email); msg != "" {
		return errors.New(msg)
	}
	_, err = cli.usrSvc.SetPassword(ctx, usr, pwd)
	return err
}
