package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nkiryanov/nihondrill/internal/repository"
	"github.com/nkiryanov/nihondrill/internal/service/user"
)

const newUserCommand = "new"

var errUsage = errors.New("usage: nihondrill [flags] new <name> <email>")

// Create user (or rename existing one) and issue a session for it
// Both happen in one transaction, the bearer secret is printed to out once
func runNewUser(ctx context.Context, c *Config, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	name, email := args[0], args[1]

	d, err := newDeps(ctx, c)
	if err != nil {
		return err
	}
	defer d.Close()

	var secret string
	err = d.storage.InTx(ctx, func(storage repository.Storage) error {
		u, err := user.NewService(storage.User()).Upsert(ctx, name, email)
		if err != nil {
			return err
		}

		authService, err := d.authService(c, storage, nil)
		if err != nil {
			return err
		}

		secret, _, err = authService.Issue(ctx, u.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("error while creating user session. Err: %w", err)
	}

	_, err = fmt.Fprintln(out, secret)
	return err
}
