package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foxzi/recruitflow/internal/api"
)

var apikeyGenerate bool

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "API key commands",
}

var apikeyHashCmd = &cobra.Command{
	Use:   "hash [key]",
	Short: "Print the bcrypt hash of an API key for api.keys",
	Long: `Print the bcrypt hash of an API key. The key is read from the argument,
from stdin, or generated with --generate.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAPIKeyHash,
}

func init() {
	apikeyHashCmd.Flags().BoolVar(&apikeyGenerate, "generate", false, "Generate a random key")

	apikeyCmd.AddCommand(apikeyHashCmd)
	rootCmd.AddCommand(apikeyCmd)
}

func runAPIKeyHash(cmd *cobra.Command, args []string) error {
	var key string
	switch {
	case apikeyGenerate:
		key = generateKey()
		fmt.Printf("Key:  %s\n", key)
	case len(args) == 1:
		key = args[0]
	default:
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read key from stdin: %w", err)
		}
		key = strings.TrimSpace(line)
	}

	if key == "" {
		return fmt.Errorf("key is empty")
	}

	hash, err := api.HashKey(key)
	if err != nil {
		return fmt.Errorf("failed to hash key: %w", err)
	}
	fmt.Printf("Hash: %s\n", hash)
	return nil
}

// generateKey returns 32 random bytes hex encoded
func generateKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
