package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) migrate() error {
	if err := cli.db.Migrate(context.Background()); err != nil {
		return err
	}
	fmt.Println("database indexes are up to date")
	return nil
}
