package main

import (
	"context"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	return cli.accountSvc.ResetPassword(context.Background(), email, pwd)
}
