package main

import (
	"context"
	"fmt"

	"github.com/trezcool/lophoc/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd, confirm string) error {
	rp := user.ResetPassword{
		Username:        uname,
		Password:        pwd,
		PasswordConfirm: confirm,
	}
	if err := rp.Validate(cli.validate); err != nil {
		return err
	}

	usr, err := cli.usrSvc.ResetPassword(context.Background(), rp)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %q reset\n", usr.Username)
	return nil
}
