package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/mnuddindev/cookpulse/internal/config"
	"github.com/mnuddindev/cookpulse/internal/db"
	"github.com/mnuddindev/cookpulse/internal/models"
	recipes "github.com/mnuddindev/cookpulse/internal/models/recipes"
	"github.com/mnuddindev/cookpulse/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// openDB loads the config and opens a migrated database.
func openDB(ctx context.Context, verbose bool) (*gorm.DB, *logger.Logger, error) {
	cfg := config.LoadConfig()
	level := logger.LevelWarn
	if verbose {
		level = logger.LevelDebug
	}
	log, err := logger.NewLogger(logger.WithOutputDir(cfg.LogDir), logger.WithApp("cookctl"), logger.WithMinLevel(level))
	if err != nil {
		return nil, nil, err
	}
	gormDB, err := db.NewDB(ctx, cfg.DSN(), models.RegisterModels(), db.WithLogger(log))
	if err != nil {
		log.Close()
		return nil, nil, err
	}
	return gormDB, log, nil
}

// NewMigrateCommand migrates the schema and seeds the default roles.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Create or update the database schema",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, log, err := openDB(cmd.Context(), rootOpts.Verbose)
			if err != nil {
				return err
			}
			defer log.Close()
			defer db.CloseDB(log)

			if seed {
				if err := models.SeedRoles(cmd.Context(), gormDB, nil); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables\n", len(models.RegisterModels()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "seed the default roles and permissions")
	return cmd
}

// NewRecountCommand rebuilds the like/dislike counters of reviews from their feedback rows.
func NewRecountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "recount [review-id...]",
		Short:        "Recompute review feedback counters",
		Long:         "Recompute num_likes and num_dislikes from review_feedbacks. Without ids every review is recounted.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			gormDB, log, err := openDB(cmd.Context(), rootOpts.Verbose)
			if err != nil {
				return err
			}
			defer log.Close()
			defer db.CloseDB(log)

			if len(ids) == 0 {
				if err := gormDB.WithContext(cmd.Context()).Model(&recipes.Review{}).Order("id").Pluck("id", &ids).Error; err != nil {
					return err
				}
			}
			return recount(cmd.Context(), gormDB, ids, cmd.OutOrStdout())
		},
	}
	return cmd
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		var id int64
		if _, err := fmt.Sscan(a, &id); err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid review id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func recount(ctx context.Context, gormDB *gorm.DB, ids []int64, w io.Writer) error {
	for _, id := range ids {
		r, err := recipes.RecountFeedback(ctx, gormDB, id)
		if err != nil {
			return fmt.Errorf("review %d: %w", id, err)
		}
		fmt.Fprintf(w, "review %d: %d likes, %d dislikes\n", r.ID, r.NumLikes, r.NumDislikes)
	}
	return nil
}
