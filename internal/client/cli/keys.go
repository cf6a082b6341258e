package cli

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/cryptox"
	"github.com/dmitrijs2005/mintflow/internal/server/auth"
	"github.com/dmitrijs2005/mintflow/internal/signer"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// randReader is a test seam for the key source.
var randReader io.Reader = rand.Reader

func getPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return nil, err
	}
	p, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	return p, err
}

func keygenCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create an encrypted signer keystore",
		Long: `Generates a signing key and writes it to a keystore file encrypted with
a passphrase. Point a server key at it with "keystore:<path>".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.ErrOrStderr()
			pass, err := getPassword(w, "Passphrase")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pass)
			again, err := getPassword(w, "Repeat passphrase")
			if err != nil {
				return err
			}
			defer common.WipeByteArray(again)
			if len(pass) == 0 {
				return errors.New("empty passphrase")
			}
			if string(pass) != string(again) {
				return errors.New("passphrases do not match")
			}

			s, err := signer.Generate(randReader)
			if err != nil {
				return err
			}
			seed := s.Seed()
			defer common.WipeByteArray(seed)

			ks, err := cryptox.EncryptSeed(seed, pass, s.Address())
			if err != nil {
				return err
			}
			if err := cryptox.WriteKeystore(out, ks); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Address())
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "signer.json", "keystore file to write")
	return cmd
}

func tokenCmd() *cobra.Command {
	var operator, secret string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operator access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv(common.EnvPrefix + "SECRET_KEY")
			}
			if secret == "" {
				return fmt.Errorf("%w: secret key is required", common.ErrConfiguration)
			}
			token, err := auth.GenerateToken(operator, []byte(secret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "", "operator the token is issued to")
	cmd.Flags().StringVar(&secret, "secret", "", "server secret key (default $MINTFLOW_SECRET_KEY)")
	cmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "token validity")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}
