package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/target/queuectl/internal/domain/model"
	apperrors "github.com/target/queuectl/internal/errors"
)

func (a *app) buildConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Read and change queue settings (max-retries, backoff-base)",
	}

	getCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, OpenOptions{}, func(ctx context.Context, b Backend) error {
				p := a.printer(cmd)
				if len(args) == 1 {
					key, value, err := b.Jobs().GetConfig(ctx, args[0])
					if err != nil {
						return err
					}
					if p.structured() {
						return p.encode(map[string]int{string(key): value})
					}
					p.printf("%s: %d\n", key.Flag(), value)
					return nil
				}

				values, err := b.Jobs().Config(ctx)
				if err != nil {
					return err
				}
				if p.structured() {
					out := make(map[string]int, len(values))
					for k, v := range values {
						out[string(k)] = v
					}
					return p.encode(out)
				}
				rows := make([][]string, 0, len(model.ConfigKeys))
				for _, key := range model.ConfigKeys {
					value, ok := values[key]
					if !ok {
						value = key.Default()
					}
					rows = append(rows, []string{key.Flag(), strconv.Itoa(value)})
				}
				return p.table([]string{"KEY", "VALUE"}, rows)
			})
		},
	}

	setCmd := &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Change a setting for jobs enqueued afterwards",
		Example: "  queuectl config set max-retries 5\n  queuectl config set backoff-base 3",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, OpenOptions{}, func(ctx context.Context, b Backend) error {
				key, value, err := b.Jobs().SetConfig(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.structured() {
					return p.encode(map[string]int{string(key): value})
				}
				p.printf("%s = %d\n", key.Flag(), value)
				return nil
			})
		},
	}

	configCmd.AddCommand(getCmd, setCmd)
	return configCmd
}

func (a *app) buildCleanupCommand() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete completed jobs older than --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 0 {
				return apperrors.Validationf("--days must not be negative, got %d", days)
			}
			return a.withBackend(cmd, OpenOptions{}, func(ctx context.Context, b Backend) error {
				deleted, err := b.Jobs().Cleanup(ctx, days)
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.structured() {
					return p.encode(map[string]int64{"deleted": deleted, "days": int64(days)})
				}
				p.printf("Deleted %d old job(s)\n", deleted)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 7, "age threshold in days")
	return cmd
}

func (a *app) buildMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd, OpenOptions{SkipMigrations: true}, func(ctx context.Context, b Backend) error {
				applied, err := b.Migrate(ctx)
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.structured() {
					if applied == nil {
						applied = []string{}
					}
					return p.encode(map[string][]string{"applied": applied})
				}
				if len(applied) == 0 {
					p.printf("Database schema is up to date\n")
					return nil
				}
				for _, v := range applied {
					p.printf("Applied %s\n", v)
				}
				return nil
			})
		},
	}
}
