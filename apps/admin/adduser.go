package main

import (
	"context"
	"fmt"

	"github.com/trezcool/lophoc/core/user"
)

// addUser creates an active teacher account.
func (cli *commandLine) addUser(name, uname, pwd, confirm string) error {
	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Password:        pwd,
		PasswordConfirm: confirm,
	}
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}

	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %q created\n", usr.Username)
	return nil
}
