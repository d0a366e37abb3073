package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/foxzi/recruitflow/internal/mailer"
)

var (
	dkimDomain   string
	dkimSelector string
	dkimKeyFile  string
	dkimOutDir   string
)

var dkimCmd = &cobra.Command{
	Use:   "dkim",
	Short: "DKIM key management for test emails",
}

var dkimGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new DKIM key pair",
	Long:  `Generate a new RSA 2048-bit DKIM key pair and output DNS record.`,
	RunE:  runDKIMGenerate,
}

var dkimShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show DKIM DNS record from existing key",
	RunE:  runDKIMShow,
}

func init() {
	dkimGenerateCmd.Flags().StringVar(&dkimDomain, "domain", "", "Domain name (required)")
	dkimGenerateCmd.Flags().StringVar(&dkimSelector, "selector", "recruitflow", "DKIM selector")
	dkimGenerateCmd.Flags().StringVar(&dkimOutDir, "out", ".", "Output directory for key file")
	dkimGenerateCmd.MarkFlagRequired("domain")

	dkimShowCmd.Flags().StringVar(&dkimKeyFile, "key", "", "Path to private key file (required)")
	dkimShowCmd.Flags().StringVar(&dkimDomain, "domain", "", "Domain name (required)")
	dkimShowCmd.Flags().StringVar(&dkimSelector, "selector", "recruitflow", "DKIM selector")
	dkimShowCmd.MarkFlagRequired("key")
	dkimShowCmd.MarkFlagRequired("domain")

	dkimCmd.AddCommand(dkimGenerateCmd, dkimShowCmd)
	rootCmd.AddCommand(dkimCmd)
}

func runDKIMGenerate(cmd *cobra.Command, args []string) error {
	keyPath := filepath.Join(dkimOutDir, fmt.Sprintf("%s.key", dkimDomain))
	key, err := mailer.GenerateKey(keyPath)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	fmt.Printf("DKIM key generated successfully\n\n")
	fmt.Printf("Private key saved to: %s\n\n", keyPath)
	return printDKIMRecord(mailer.NewSigner(key, dkimDomain, dkimSelector))
}

func runDKIMShow(cmd *cobra.Command, args []string) error {
	signer, err := mailer.NewSignerFromFile(dkimKeyFile, dkimDomain, dkimSelector)
	if err != nil {
		return fmt.Errorf("failed to load private key: %w", err)
	}
	return printDKIMRecord(signer)
}

func printDKIMRecord(s *mailer.Signer) error {
	record, err := s.DNSRecord()
	if err != nil {
		return fmt.Errorf("failed to build DNS record: %w", err)
	}

	fmt.Printf("DNS Record:\n")
	fmt.Printf("  Name: %s\n", s.DNSName())
	fmt.Printf("  Type: TXT\n")
	fmt.Printf("  Value: %s\n", record)
	return nil
}
