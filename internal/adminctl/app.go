// Package adminctl implements the administrative command line: schema
// migrations, creating principals and hashing passwords.
package adminctl

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/cryptox"
	"github.com/dmitrijs2005/eduportal/internal/flagx"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eduportal/internal/server/services"
)

const Usage = `usage: adminctl <command> [flags]

commands:
  migrate                         apply store migrations and indexes
  create -kind admin|user -email E -name N [-role R] [-must-change] [-password-stdin]
  hash [-password-stdin]          print a bcrypt hash of a password
`

// ErrUsage is returned for an unknown command or bad flags.
var ErrUsage = errors.New("invalid usage")

type App struct {
	repos  repomanager.RepositoryManager
	hasher *cryptox.Hasher
	policy services.PasswordPolicy
	in     *bufio.Reader
	out    io.Writer
}

// NewApp builds the command runner. repos may be nil for commands that do
// not touch the store.
func NewApp(repos repomanager.RepositoryManager, hasher *cryptox.Hasher, in io.Reader, out io.Writer) *App {
	return &App{repos: repos, hasher: hasher, policy: services.DefaultPasswordPolicy, in: bufio.NewReader(in), out: out}
}

// WithPasswordPolicy replaces services.DefaultPasswordPolicy.
func (a *App) WithPasswordPolicy(p services.PasswordPolicy) *App {
	a.policy = p
	return a
}

// NeedsStore reports whether cmd reads or writes the store.
func NeedsStore(cmd string) bool {
	return cmd == "migrate" || cmd == "create"
}

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	switch args[0] {
	case "migrate":
		return a.Migrate(ctx)
	case "create":
		return a.Create(ctx, args[1:])
	case "hash":
		return a.Hash(args[1:])
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func (a *App) Migrate(ctx context.Context) error {
	if err := a.repos.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}
	fmt.Fprintln(a.out, "migrations applied")
	return nil
}

func (a *App) Create(ctx context.Context, args []string) error {
	args = flagx.FilterArgs(args, []string{"-kind", "-email", "-name", "-role", "-must-change", "-password-stdin"})

	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	kindFlag := fs.String("kind", string(models.KindAdmin), "principal kind: admin or user")
	email := fs.String("email", "", "email address")
	name := fs.String("name", "", "display name")
	role := fs.String("role", "", "role, defaults to the kind")
	mustChange := fs.Bool("must-change", false, "require a password change after first login")
	fromStdin := fs.Bool("password-stdin", false, "read the password from stdin")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	kind, err := models.ParseKind(*kindFlag)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	normalized := common.NormalizeEmail(*email)
	if normalized == "" {
		return fmt.Errorf("%w: -email is required", ErrUsage)
	}

	password, err := a.password(*fromStdin, true)
	if err != nil {
		return err
	}
	hash, err := a.hasher.Hash(password)
	if err != nil {
		return err
	}

	if *role == "" {
		*role = kind.DefaultRole()
	}
	p, err := a.repos.Principals().Create(ctx, &models.Principal{
		Kind:               kind,
		Email:              normalized,
		PasswordHash:       hash,
		Name:               *name,
		Role:               *role,
		MustChangePassword: *mustChange,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return fmt.Errorf("%s %s already exists", kind, normalized)
		}
		return err
	}

	fmt.Fprintf(a.out, "created %s %s (id %s)\n", kind, p.Email, p.ID)
	return nil
}

func (a *App) Hash(args []string) error {
	args = flagx.FilterArgs(args, []string{"-password-stdin"})

	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fromStdin := fs.Bool("password-stdin", false, "read the password from stdin")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	password, err := a.password(*fromStdin, false)
	if err != nil {
		return err
	}
	hash, err := a.hasher.Hash(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, hash)
	return nil
}

// password reads the secret from stdin or the terminal and checks it
// against the password policy. Terminal input is asked twice when confirm
// is set.
func (a *App) password(fromStdin, confirm bool) (string, error) {
	var pw string
	if fromStdin {
		line, err := readLine(a.in)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		pw = line
	} else {
		first, err := GetPassword(a.out, "Password: ")
		if err != nil {
			return "", err
		}
		if confirm {
			second, err := GetPassword(a.out, "Repeat password: ")
			if err != nil {
				return "", err
			}
			if first != second {
				return "", errors.New("passwords do not match")
			}
		}
		pw = first
	}

	if err := a.policy.Validate(pw); err != nil {
		return "", err
	}
	return pw, nil
}
