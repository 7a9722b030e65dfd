package main

import (
	"context"
	"fmt"
)

// createAdmin seeds an admin account. Admins can not register through the API.
func (cli *commandLine) createAdmin(name, email, pwd string) error {
	acc, err := cli.accountSvc.CreateAdmin(context.Background(), name, email, pwd)
	if err != nil {
		return err
	}
	fmt.Printf("admin %s created (id %s)\n", acc.Email, acc.ID)
	return nil
}
