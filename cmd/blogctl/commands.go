package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"inkblog/internal/config"
	"inkblog/internal/db"
	"inkblog/internal/logger"
	"inkblog/internal/models"
	"inkblog/internal/services"
	"inkblog/internal/utils"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app is opened once per invocation by the root command.
type app struct {
	configPath string

	cfg   *config.Config
	log   zerolog.Logger
	db    *gorm.DB
	blog  *services.BlogService
	users *services.UserService
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger.New(cfg.Log.Level, cfg.Log.Format, "blogctl")

	gdb, err := db.Open(cfg.DB, a.log)
	if err != nil {
		return err
	}
	a.db = gdb
	a.blog = services.NewBlogService(gdb, cfg.Blog, services.RoleAuthorizer{}, a.log)
	a.users = services.NewUserService(gdb)
	return nil
}

func (a *app) close(*cobra.Command, []string) error {
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:                "blogctl",
		Short:              "Administrative tasks for the blog",
		SilenceUsage:       true,
		PersistentPreRunE:  a.open,
		PersistentPostRunE: a.close,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to the YAML config file")

	root.AddCommand(
		newMigrateCmd(a),
		newStatusCmd(a, "publish", models.StatusPublished),
		newStatusCmd(a, "draft", models.StatusDraft),
		newArticleCmd(a),
		newCategoryCmd(a),
		newUserCmd(a),
	)
	return root
}

func newMigrateCmd(a *app) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.Migrate(a.db); err != nil {
				return err
			}
			if seed {
				if err := db.SeedCategories(a.db, a.log); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database migrated.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "create starter categories on an empty database")
	return cmd
}

func parseIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, arg := range args {
		id, ok := utils.ParseID(arg)
		if !ok {
			return nil, fmt.Errorf("invalid id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// optionalID parses "none" or an empty string as no id.
func optionalID(s string) (*uint, error) {
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	id, ok := utils.ParseID(s)
	if !ok {
		return nil, fmt.Errorf("invalid id %q", s)
	}
	return &id, nil
}

func newStatusCmd(a *app, use string, status models.ArticleStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <article-id>...",
		Short: fmt.Sprintf("Set articles to %s", status.Label()),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			n, err := a.blog.BulkSetStatus(cmd.Context(), ids, status)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), services.BulkStatusMessage(status, n))
			return nil
		},
	}
}

func newArticleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "article",
		Short: "Manage articles",
	}

	var (
		in       services.ArticleInput
		author   string
		bodyFile string
		publish  string
		status   string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an article from a markdown file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := a.users.ByUsername(ctx, author)
			if err != nil {
				return err
			}
			if bodyFile != "" {
				body, err := os.ReadFile(bodyFile)
				if err != nil {
					return err
				}
				in.Description = string(body)
			}
			if publish != "" {
				t, err := time.Parse(time.RFC3339, publish)
				if err != nil {
					return fmt.Errorf("invalid --publish: %w", err)
				}
				in.Publish = t
			}
			in.Status = models.ArticleStatus(status)

			article, err := a.blog.CreateArticle(ctx, in, user)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created article %d (%s), status %s.\n", article.ID, article.Slug, article.Status.Label())
			return nil
		},
	}
	create.Flags().StringVar(&in.Title, "title", "", "article title")
	create.Flags().StringVar(&in.Slug, "slug", "", "URL slug")
	create.Flags().StringVar(&in.Thumbnail, "thumbnail", "", "thumbnail URL")
	create.Flags().BoolVar(&in.IsSpecial, "special", false, "mark as special")
	create.Flags().UintSliceVar(&in.CategoryIDs, "category", nil, "category ids")
	create.Flags().StringVar(&author, "author", "", "author username")
	create.Flags().StringVar(&bodyFile, "body", "", "markdown file with the article body")
	create.Flags().StringVar(&publish, "publish", "", "publish time (RFC3339, default now)")
	create.Flags().StringVar(&status, "status", string(models.StatusDraft), "status: d, p, i or b")
	create.MarkFlagRequired("title")
	create.MarkFlagRequired("slug")
	create.MarkFlagRequired("author")

	cmd.AddCommand(create)
	return cmd
}

func newCategoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}

	var (
		parent   string
		position int
	)
	create := &cobra.Command{
		Use:   "create <title> <slug>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := optionalID(parent)
			if err != nil {
				return err
			}
			cat, err := a.blog.CreateCategory(cmd.Context(), args[0], args[1], parentID, position)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created category %d (%s).\n", cat.ID, cat.Slug)
			return nil
		},
	}
	create.Flags().StringVar(&parent, "parent", "", "parent category id")
	create.Flags().IntVar(&position, "position", 0, "display order")

	setParent := &cobra.Command{
		Use:   "set-parent <category-id> <parent-id|none>",
		Short: "Move a category under another one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}
			parentID, err := optionalID(args[1])
			if err != nil {
				return err
			}
			if err := a.blog.SetCategoryParent(cmd.Context(), ids[0], parentID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Category updated.")
			return nil
		},
	}

	setActive := &cobra.Command{
		Use:   "set-active <category-id> <true|false>",
		Short: "Show or hide a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}
			active, err := strconv.ParseBool(args[1])
			if err != nil {
				return err
			}
			if err := a.blog.SetCategoryActive(cmd.Context(), ids[0], active); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Category updated.")
			return nil
		},
	}

	cmd.AddCommand(create, setParent, setActive)
	return cmd
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var email, password string
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.users.Register(cmd.Context(), args[0], email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %d (%s).\n", user.ID, user.Username)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "email address for notifications")
	create.Flags().StringVar(&password, "password", "", "password, at least 6 characters")
	create.MarkFlagRequired("password")

	setRole := &cobra.Command{
		Use:   "set-role <username> <user|moderator|admin>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.users.SetRole(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s.\n", args[0], args[1])
			return nil
		},
	}

	cmd.AddCommand(create, setRole)
	return cmd
}
