package main

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
	"github.com/ThumulaGamage/EduPlatform-backend/core/account"
	testutil "github.com/ThumulaGamage/EduPlatform-backend/tests"
)

type fakeDB struct {
	calls int
	err   error
}

func (db *fakeDB) Migrate(context.Context) error {
	db.calls++
	return db.err
}

func setup(t *testing.T) (*commandLine, *testutil.Stack, *fakeDB) {
	stack := testutil.NewStack(t)
	db := new(fakeDB)
	return &commandLine{accountSvc: stack.AccountSvc, db: db}, stack, db
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) {
		if pwd == "" {
			return nil, nil
		}
		return []byte(pwd), nil
	}
	t.Cleanup(func() { readPasswordFunc = orig })
}

func Test_commandLine_createAdmin(t *testing.T) {
	cli, stack, _ := setup(t)
	stack.CreateAccount(t, "Taken", "taken@example.com", core.RoleStudent)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "blank email", args: []string{"createadmin", "-email", ""}, pwd: "whatever", wantErr: errHelp},
		{name: "no password", args: []string{"createadmin"}, wantErr: errHelp},
		{name: "default identity", args: []string{"createadmin"}, pwd: "whatever"},
		{name: "email but no password", args: []string{"createadmin", "-email", "root@example.com"}, wantErr: errHelp},
		{name: "email taken", args: []string{"createadmin", "-email", "taken@example.com"}, pwd: "whatever", wantErr: account.ErrAdminExists},
		{name: "created", args: []string{"createadmin", "-name", "Root", "-email", "Root@Example.com"}, pwd: "whatever"},
		{name: "created twice", args: []string{"createadmin", "-email", "root@example.com"}, pwd: "whatever", wantErr: account.ErrAdminExists},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	acc, err := stack.AccountSvc.GetByEmail(context.Background(), "root@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() failed, %v", err)
	}
	if acc.Role != core.RoleAdmin || acc.Name != "Root" {
		t.Errorf("created account = %+v", acc)
	}
	if err = acc.CheckPassword("whatever"); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}

	if _, err = stack.AccountSvc.GetByEmail(context.Background(), "admin@eduplatform.com"); err != nil {
		t.Errorf("default admin not created, %v", err)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, stack, _ := setup(t)
	acc := stack.CreateAccount(t, "User", "awe@test.cd", core.RoleTeacher)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "account not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, pwd: "lol", wantErr: account.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "AWE@test.cd"}, pwd: "lmao"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := cli.run(args)
			if err != tt.wantErr {
				t.Fatalf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				refreshed, err := stack.AccountSvc.GetByID(context.Background(), acc.ID)
				if err != nil {
					t.Fatalf("GetByID() failed, %v", err)
				}
				if err = refreshed.CheckPassword(tt.pwd); err != nil {
					t.Error("failed to update new password")
				}
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, db := setup(t)

	if err := cli.run([]string{"admin", "migrate"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if db.calls != 1 {
		t.Errorf("Migrate() called %d times, want 1", db.calls)
	}

	db.err = errors.New("connection refused")
	if err := cli.run([]string{"admin", "migrate"}); err != db.err {
		t.Errorf("cli.run() error = %v, wantErr %v", err, db.err)
	}
}
