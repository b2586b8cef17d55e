package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/noah-isme/library-catalog-api/internal/dto"
	"github.com/noah-isme/library-catalog-api/internal/repository"
	"github.com/noah-isme/library-catalog-api/internal/service"
)

// readPassword prompts on stderr. Input is masked on a terminal and read as a
// single line otherwise, so the command also works with piped input.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	fmt.Fprint(prompt, "Password: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newCreateAdminCmd() *cobra.Command {
	var req dto.CreateAdminRequest

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Provision an admin account without the registration keyword",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			req.Password = password

			users := service.NewUserService(repository.NewUserRepository(e.db), service.NewCredentialService(), nil, e.log)
			user, err := users.CreateAdmin(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %d <%s>\n", user.ID, user.Email)
			return nil
		}),
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Department, "department", "", "optional department")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
