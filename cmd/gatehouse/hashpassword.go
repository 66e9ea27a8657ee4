package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"gatehouse/cmd/security/password"
)

// NewHashPasswordCmd creates the hash-password subcommand, which prints a
// hash in the format the users table stores. The password is read from the
// first line of stdin so it stays out of shell history.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			encoded, err := hashFromReader(cmd.InOrStdin(), password.DefaultConfig())
			if err != nil {
				return err
			}
			cmd.Println(encoded)
			return nil
		},
	}
}

func hashFromReader(r io.Reader, cfg password.Config) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", oops.Code("READ_FAILED").Wrap(err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if err := cfg.Validate(pw); err != nil {
		return "", oops.Code("INVALID_PASSWORD").Wrap(err)
	}
	encoded, err := cfg.Hash(pw)
	if err != nil {
		return "", oops.Code("HASH_FAILED").Wrap(err)
	}
	return encoded, nil
}
