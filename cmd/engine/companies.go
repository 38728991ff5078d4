package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"jobingest-engine/internal/config"
	"jobingest-engine/internal/domain"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Manage company scraper configs",
}

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List company scraper configs",
	RunE:  runCompaniesList,
}

var companiesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a company scraper config",
	RunE:  runCompaniesAdd,
}

var companiesImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Upsert configs from a companies YAML file (default companies_file)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCompaniesImport,
}

var (
	listAll     bool
	addName     string
	addType     string
	addConfig   string
	addInactive bool
)

func init() {
	companiesListCmd.Flags().BoolVar(&listAll, "all", false, "Include inactive configs")

	companiesAddCmd.Flags().StringVar(&addName, "name", "", "Company name (required)")
	companiesAddCmd.Flags().StringVar(&addType, "type", "", "Scraper type: greenhouse, lever or workday (required)")
	companiesAddCmd.Flags().StringVar(&addConfig, "config", "{}", "Adapter config as a JSON object")
	companiesAddCmd.Flags().BoolVar(&addInactive, "inactive", false, "Store the config as inactive")
	_ = companiesAddCmd.MarkFlagRequired("name")
	_ = companiesAddCmd.MarkFlagRequired("type")

	companiesCmd.AddCommand(companiesListCmd, companiesAddCmd, companiesImportCmd)
	rootCmd.AddCommand(companiesCmd)
}

func runCompaniesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app) error {
		cfgs, err := a.inline(ctx).Companies(ctx, !listAll)
		if err != nil {
			return err
		}
		return printJSON(cfgs)
	})
}

func runCompaniesAdd(cmd *cobra.Command, _ []string) error {
	var doc map[string]any
	if err := json.Unmarshal([]byte(addConfig), &doc); err != nil {
		return fmt.Errorf("--config must be a JSON object: %w", err)
	}
	ctx := cmd.Context()
	return withApp(ctx, func(a *app) error {
		created, err := a.inline(ctx).CreateCompany(ctx, domain.CompanyScraperConfig{
			CompanyName: addName,
			ScraperType: domain.ScraperType(addType),
			Config:      doc,
			IsActive:    !addInactive,
		})
		if err != nil {
			return err
		}
		return printJSON(created)
	})
}

func runCompaniesImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app) error {
		path := a.cfg.ResolvePath(a.cfg.CompaniesFile)
		if len(args) == 1 {
			path = args[0]
		}
		cfgs, err := config.LoadCompanies(path)
		if err != nil {
			return err
		}
		n, err := a.inline(ctx).ImportCompanies(ctx, cfgs)
		log.Printf("[companies] imported=%d of %d from %s", n, len(cfgs), path)
		return err
	})
}
