package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/foxzi/recruitflow/internal/campaign"
	"github.com/foxzi/recruitflow/internal/repository"
)

var (
	collateralProject string
	collateralType    string
	collateralContent string
	collateralFile    string
	collateralLinks   []string
)

var collateralCmd = &cobra.Command{
	Use:   "collateral",
	Short: "Company collateral commands",
}

var collateralAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a piece of company collateral to a project",
	Long: `Add company content that campaign generation may quote.
Types: ` + strings.Join(repository.CollateralTypes, ", "),
	RunE: runCollateralAdd,
}

var collateralListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the collateral of a project",
	RunE:  runCollateralList,
}

func init() {
	collateralCmd.PersistentFlags().StringVar(&collateralProject, "project", "", "Project ID (required)")
	collateralCmd.MarkPersistentFlagRequired("project")

	collateralAddCmd.Flags().StringVar(&collateralType, "type", "", "Collateral type (required)")
	collateralAddCmd.Flags().StringVar(&collateralContent, "content", "", "Collateral text")
	collateralAddCmd.Flags().StringVar(&collateralFile, "file", "", "Read collateral text from file")
	collateralAddCmd.Flags().StringSliceVar(&collateralLinks, "link", nil, "Link to include (repeatable)")
	collateralAddCmd.MarkFlagRequired("type")

	collateralCmd.AddCommand(collateralAddCmd, collateralListCmd)
	rootCmd.AddCommand(collateralCmd)
}

func openRepository() (*repository.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := repository.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func runCollateralAdd(cmd *cobra.Command, args []string) error {
	content := collateralContent
	if collateralFile != "" {
		data, err := os.ReadFile(collateralFile)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		content = string(data)
	}
	if strings.TrimSpace(content) == "" && len(collateralLinks) == 0 {
		return fmt.Errorf("either --content, --file or --link is required")
	}

	db, err := openRepository()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	c := &campaign.Collateral{
		ProjectID: collateralProject,
		Type:      collateralType,
		Content:   strings.TrimSpace(content),
		Links:     collateralLinks,
	}
	if err := repository.NewCollateralRepository(db.DB).Add(cmd.Context(), c); err != nil {
		return err
	}

	fmt.Printf("Collateral added: %s (%s)\n", c.ID, c.Type)
	return nil
}

func runCollateralList(cmd *cobra.Command, args []string) error {
	db, err := openRepository()
	if err != nil {
		return err
	}
	defer db.Close()

	items, err := repository.NewCollateralRepository(db.DB).ListByProject(cmd.Context(), collateralProject)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header([]string{"ID", "Type", "Content", "Links", "Created"})
	for _, c := range items {
		table.Append([]string{
			c.ID,
			c.Type,
			truncate(strings.ReplaceAll(c.Content, "\n", " "), 50),
			strings.Join(c.Links, " "),
			c.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
	return nil
}
