package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sam-phinizy/beer-hall/internal/integrity"
)

var (
	// signaturePath is an optional detached signature of the file.
	signaturePath string
	// keyringPath is the armored public keyring used with --signature.
	keyringPath string

	verifyCmd = &cobra.Command{
		Use:   "verify <file> <sha256>",
		Short: "Check a file against a SHA-256 digest.",
		Long: `Compute the SHA-256 of a file and compare it with the expected digest
(case-insensitive). With --signature and --keyring the detached OpenPGP
signature is checked as well.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, expected := args[0], args[1]

			if err := integrity.VerifyFile(file, expected); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: sha256 OK\n", file)

			if signaturePath == "" {
				return nil
			}

			data, err := os.ReadFile(file) //nolint:gosec // Path is given by the user.
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			signature, err := os.ReadFile(signaturePath) //nolint:gosec // Path is given by the user.
			if err != nil {
				return fmt.Errorf("read signature: %w", err)
			}

			keyring, err := os.ReadFile(keyringPath) //nolint:gosec // Path is given by the user.
			if err != nil {
				return fmt.Errorf("read keyring: %w", err)
			}

			signer, err := integrity.VerifySignature(data, signature, keyring)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: signature OK (%s)\n", file, signer)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	verifyCmd.Flags().StringVar(&signaturePath, "signature", "", "detached signature file")
	verifyCmd.Flags().StringVar(&keyringPath, "keyring", "", "armored OpenPGP public keyring")
	verifyCmd.MarkFlagsRequiredTogether("signature", "keyring")

	rootCmd.AddCommand(verifyCmd)
}
