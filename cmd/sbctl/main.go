package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/programme-lv/scoreboard/auth"
	"github.com/programme-lv/scoreboard/conf"
	"github.com/programme-lv/scoreboard/rundetail"
	"github.com/programme-lv/scoreboard/scoreboard"
	"github.com/programme-lv/scoreboard/scoreboard/cacheredis"
	"github.com/programme-lv/scoreboard/scoreboard/pgrepo"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	var logLevel string
	var logFile string

	var rootCmd = &cobra.Command{
		Use:   "sbctl",
		Short: "Inspect and maintain programme.lv contest scoreboards",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			// library code logs through slog, keep it quiet below warnings
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
			return InitializeLogger(logLevel, logFile != "", logFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level [debug, info, warn, error]")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append logs to this file instead of stderr")

	var showAll bool
	var sortByName bool
	var users string

	var showCmd = &cobra.Command{
		Use:   "show <contest-id>",
		Short: "Print the scoreboard of a contest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contestID, err := parseContestID(args[0])
			if err != nil {
				return err
			}
			env, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			opts := scoreboard.GenerateOptions{SortByName: sortByName}
			if users != "" {
				opts.FilterUsers = strings.Split(users, ",")
			}
			entries, err := env.srvc.ForContest(contestID, showAll).Generate(cmd.Context(), opts)
			if err != nil {
				return err
			}
			problems, err := env.problemAliases(cmd.Context(), contestID)
			if err != nil {
				return err
			}
			log.Info().Int64("contest", contestID).Int("rows", len(entries)).Msg("scoreboard generated")
			fmt.Println(renderRanking(entries, problems))
			return nil
		},
	}
	showCmd.Flags().BoolVarP(&showAll, "all", "a", false, "Include practice runs and the hidden part of the contest")
	showCmd.Flags().BoolVar(&sortByName, "sort-name", false, "Sort by username instead of score")
	showCmd.Flags().StringVarP(&users, "users", "u", "", "Comma separated usernames to include")

	var eventsCmd = &cobra.Command{
		Use:   "events <contest-id>",
		Short: "Print the score improvement feed of a contest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contestID, err := parseContestID(args[0])
			if err != nil {
				return err
			}
			env, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			events, err := env.srvc.ForContest(contestID, showAll).Events(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(renderEvents(events))
			return nil
		},
	}
	eventsCmd.Flags().BoolVarP(&showAll, "all", "a", false, "Include practice runs and the hidden part of the contest")

	var interval time.Duration
	var watchCmd = &cobra.Command{
		Use:   "watch <contest-id>",
		Short: "Show a live scoreboard in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contestID, err := parseContestID(args[0])
			if err != nil {
				return err
			}
			env, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			problems, err := env.problemAliases(cmd.Context(), contestID)
			if err != nil {
				return err
			}
			fetch := func(ctx context.Context) ([]scoreboard.Entry, error) {
				return env.srvc.ForContest(contestID, showAll).Generate(ctx, scoreboard.GenerateOptions{})
			}
			title := fmt.Sprintf("contest %d", contestID)
			_, err = tea.NewProgram(newWatchModel(title, problems, fetch, interval), tea.WithAltScreen()).Run()
			return err
		},
	}
	watchCmd.Flags().BoolVarP(&showAll, "all", "a", false, "Include practice runs and the hidden part of the contest")
	watchCmd.Flags().DurationVarP(&interval, "interval", "i", 10*time.Second, "Refresh interval")

	var username string
	var admin bool
	var ttl time.Duration
	var tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with JWT_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := os.Getenv("JWT_KEY")
			if key == "" {
				return fmt.Errorf("JWT_KEY is not set")
			}
			var scopes []string
			if admin {
				scopes = append(scopes, auth.ScopeScoreboardAdmin)
			}
			token, err := auth.GenerateJWT(username, uuid.New(), scopes, ttl, []byte(key))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&username, "username", "", "Token subject (required)")
	tokenCmd.Flags().BoolVar(&admin, "admin", false, "Grant the scoreboard admin scope")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	tokenCmd.MarkFlagRequired("username")

	var cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Manage the shared scoreboard cache",
	}
	var cachePurgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "Drop every cached scoreboard from redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := os.Getenv("REDIS_ADDR")
			if addr == "" {
				return fmt.Errorf("REDIS_ADDR is not set")
			}
			rdb, err := cacheredis.Connect(cmd.Context(), addr)
			if err != nil {
				return err
			}
			defer rdb.Close()

			n, err := cacheredis.NewRedisCache(rdb, "scoreboard:").Purge(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("keys", n).Msg("purged scoreboard cache")
			return nil
		},
	}

	var detailsCmd = &cobra.Command{
		Use:   "details",
		Short: "Manage stored run reports",
	}
	var detailsPutCmd = &cobra.Command{
		Use:   "put <report.json>...",
		Short: "Compress and upload run reports to RUN_DETAILS_BUCKET",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := os.Getenv("RUN_DETAILS_BUCKET")
			if bucket == "" {
				return fmt.Errorf("RUN_DETAILS_BUCKET is not set")
			}
			repo, err := rundetail.NewS3RunDetailRepoFromRegion(cmd.Context(), os.Getenv("AWS_REGION"), bucket)
			if err != nil {
				return err
			}
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				var details scoreboard.RunDetails
				if err := json.Unmarshal(data, &details); err != nil {
					return fmt.Errorf("error parsing %s: %w", path, err)
				}
				if err := repo.Save(cmd.Context(), details); err != nil {
					return fmt.Errorf("error uploading %s: %w", path, err)
				}
				log.Info().Str("guid", details.GUID).Str("file", path).Msg("uploaded run report")
			}
			return nil
		},
	}

	rootCmd.AddCommand(showCmd, eventsCmd, watchCmd, tokenCmd, cacheCmd, detailsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	detailsCmd.AddCommand(detailsPutCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func parseContestID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid contest id %q", raw)
	}
	return id, nil
}

// cliEnv is an uncached scoreboard service over the configured database.
type cliEnv struct {
	pool *pgxpool.Pool
	repo scoreboard.ProblemStore
	srvc *scoreboard.ScoreboardSrvc
}

func openEnv(ctx context.Context) (*cliEnv, error) {
	connStr, err := conf.GetPgConnStrFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	repo := pgrepo.NewPgScoreboardRepo(pool)

	var details scoreboard.RunDetailProvider
	if bucket := os.Getenv("RUN_DETAILS_BUCKET"); bucket != "" {
		details, err = rundetail.NewS3RunDetailRepoFromRegion(ctx, os.Getenv("AWS_REGION"), bucket)
		if err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &cliEnv{
		pool: pool,
		repo: repo,
		srvc: scoreboard.NewScoreboardSrvc(repo, repo, repo, details, nil),
	}, nil
}

func (e *cliEnv) problemAliases(ctx context.Context, contestID int64) ([]string, error) {
	problems, err := e.repo.RelevantProblems(ctx, contestID)
	if err != nil {
		return nil, err
	}
	aliases := make([]string, len(problems))
	for i, p := range problems {
		aliases[i] = p.Alias
	}
	return aliases, nil
}

func (e *cliEnv) close() {
	e.pool.Close()
}
