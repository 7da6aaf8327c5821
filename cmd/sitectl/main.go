package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dxbfab/site/internal/config"
	"github.com/dxbfab/site/internal/db"
	"github.com/dxbfab/site/internal/division"
	"github.com/dxbfab/site/internal/logging"
	"github.com/dxbfab/site/internal/seo"
	"github.com/dxbfab/site/internal/service"
)

var (
	databasePath string
	logLevel     string
	username     string
	password     string
	divisionFlag string
	manifestPath string
)

// rootCmd is the operator entry point
var rootCmd = &cobra.Command{
	Use:           "sitectl",
	Short:         "Operator tasks for the DXB Fabrication site backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv()
	},
}

// userCmd groups admin account tasks
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage admin accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account if it does not exist",
	RunE:  runUserCreate,
}

// sitemapCmd prints sitemap.xml to stdout
var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Print the sitemap XML",
	RunE:  runSitemap,
}

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Gallery maintenance",
}

var galleryNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Rewrite display_order as 0..n-1 for one or all divisions",
	Long: `Rewrite each image's display_order to its position in the current
ordering. Use after an interrupted reorder left gaps or duplicates.`,
	RunE: runGalleryNormalize,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "", "SQLite database path (default: DATABASE_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level")

	userCreateCmd.Flags().StringVarP(&username, "username", "u", "", "Admin username")
	userCreateCmd.Flags().StringVarP(&password, "password", "p", "", "Admin password")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	sitemapCmd.Flags().StringVar(&manifestPath, "manifest", "", "Blog manifest YAML (default: BLOG_MANIFEST_PATH)")

	galleryNormalizeCmd.Flags().StringVarP(&divisionFlag, "division", "d", "", "Division slug (default: all)")

	userCmd.AddCommand(userCreateCmd)
	galleryCmd.AddCommand(galleryNormalizeCmd)

	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(sitemapCmd)
	rootCmd.AddCommand(galleryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openDB() error {
	path := databasePath
	if path == "" {
		path = config.Load().DatabasePath
	}
	return db.Init(path)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	if err := openDB(); err != nil {
		return err
	}
	created, err := db.EnsureUser(db.DB, username, password)
	if err != nil {
		return err
	}
	if !created {
		fmt.Fprintf(cmd.OutOrStdout(), "user %q already exists\n", username)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "user %q created\n", username)
	return nil
}

func runSitemap(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	path := manifestPath
	if path == "" {
		path = cfg.BlogManifestPath
	}

	var posts []seo.BlogPost
	if path != "" {
		var err error
		if posts, err = seo.LoadBlogManifest(path); err != nil {
			return err
		}
	}

	body, err := seo.NewSitemap(cfg.SiteBaseURL, posts).XML()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(body)
	return err
}

func runGalleryNormalize(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(logLevel, "release")
	if err != nil {
		return err
	}
	if err := openDB(); err != nil {
		return err
	}

	targets := division.Slugs()
	if divisionFlag != "" {
		div, err := division.Parse(divisionFlag)
		if err != nil {
			return err
		}
		targets = []division.Division{div}
	}

	galleries := service.NewGalleryService(db.DB, nil, logger)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, div := range targets {
		changed, err := galleries.Normalize(ctx, div)
		if err != nil {
			logger.Error("normalize failed", zap.String("division", string(div)), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", div, err))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows renumbered\n", div, changed)
	}
	return errors.Join(errs...)
}
