package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/capdev-portal-api/internal/migrations"
	"github.com/noah-isme/capdev-portal-api/internal/models"
	"github.com/noah-isme/capdev-portal-api/internal/repository"
	"github.com/noah-isme/capdev-portal-api/internal/service"
	"github.com/noah-isme/capdev-portal-api/pkg/cache"
	"github.com/noah-isme/capdev-portal-api/pkg/config"
	"github.com/noah-isme/capdev-portal-api/pkg/database"
	"github.com/noah-isme/capdev-portal-api/pkg/logger"
)

func newRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Administrative tools for the capacity development portal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(out)
	root.AddCommand(
		newMigrateCommand(),
		newEmailCommand(),
		newMatchCommand(),
		newCacheCommand(),
		newSessionsCommand(),
	)
	return root
}

type environment struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func (e *environment) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	_ = e.logger.Sync()
}

func initEnv(withDB bool) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	env := &environment{cfg: cfg, logger: logr}
	if !withDB {
		return env, nil
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	env.db = db
	return env, nil
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(r *migrations.Runner) error { return r.Down(steps) })
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRunner(func(r *migrations.Runner) error { return r.Up() })
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRunner(func(r *migrations.Runner) error {
					version, err := r.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Current version: %d\n", version)
					return r.Status()
				})
			},
		},
	)
	return cmd
}

func withRunner(fn func(*migrations.Runner) error) error {
	env, err := initEnv(true)
	if err != nil {
		return err
	}
	defer env.Close()
	runner, err := migrations.NewRunner(env.db.DB, env.logger)
	if err != nil {
		return err
	}
	if err := fn(runner); err != nil {
		env.logger.Error("migration failed", zap.Error(err))
		return err
	}
	return nil
}

func newEmailCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Notification email tools",
	}

	var (
		kind      string
		requestID int64
		html      bool
	)
	preview := &cobra.Command{
		Use:   "preview",
		Short: "Render a notification email to stdout",
		Long:  "Render a notification template against a stored request, or against sample data when --request is omitted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			data := sampleEmailData()
			if requestID > 0 {
				env, err := initEnv(true)
				if err != nil {
					return err
				}
				defer env.Close()
				req, err := repository.NewRequestRepository(env.db).GetByID(cmd.Context(), requestID)
				if err != nil {
					return fmt.Errorf("load request %d: %w", requestID, err)
				}
				data.Request = req
				data.ToStatus = req.Status
				data.PortalURL = env.cfg.Mail.PortalURL
			}
			return renderPreview(cmd.OutOrStdout(), service.EmailKind(kind), data, html)
		},
	}
	preview.Flags().StringVarP(&kind, "event", "k", string(service.EmailStatusChanged), "Template to render")
	preview.Flags().Int64VarP(&requestID, "request", "r", 0, "Request id to render against")
	preview.Flags().BoolVar(&html, "html", false, "Print the HTML body instead of plain text")
	cmd.AddCommand(preview)
	return cmd
}

func renderPreview(out io.Writer, kind service.EmailKind, data service.EmailData, html bool) error {
	known := false
	for _, k := range service.EmailKinds {
		if k == kind {
			known = true
			break
		}
	}
	if !known {
		names := make([]string, len(service.EmailKinds))
		for i, k := range service.EmailKinds {
			names[i] = string(k)
		}
		return fmt.Errorf("unknown template %q (one of %s)", kind, strings.Join(names, ", "))
	}
	templates, err := service.NewEmailTemplateService()
	if err != nil {
		return err
	}
	rendered, err := templates.Render(kind, data)
	if err != nil {
		return err
	}
	body := rendered.Text
	if html {
		body = rendered.HTML
	}
	_, err = fmt.Fprintf(out, "Subject: %s\n\n%s\n", rendered.Subject, body)
	return err
}

func sampleEmailData() service.EmailData {
	now := time.Now().UTC()
	partner := int64(3)
	return service.EmailData{
		RecipientName: "Sample Recipient",
		PortalURL:     "http://localhost:3000",
		Request: &models.Request{
			ID:     1,
			UserID: 1,
			Status: models.StatusValidated,
			Detail: models.RequestDetail{Identification: models.RequestIdentification{
				Title:       "Port state measures training",
				Description: "Two week **hands-on** course for inspectors.",
			}},
			CreatedAt: now,
			UpdatedAt: now,
		},
		Offer: &models.Offer{
			ID:               1,
			RequestID:        1,
			MatchedPartnerID: partner,
			Description:      "We can deliver the course in Q3.",
			CreatedAt:        now,
		},
		Opportunity: &models.Opportunity{
			ID:     1,
			UserID: partner,
			Title:  "Fisheries observer fellowship",
			Type:   "training",
			Status: models.OpportunityActive,
		},
		FromStatus: models.StatusUnderReview,
		ToStatus:   models.StatusValidated,
	}
}

func newMatchCommand() *cobra.Command {
	var (
		entity string
		attrs  []string
	)
	cmd := &cobra.Command{
		Use:     "match",
		Short:   "List users whose preferences match the given attributes",
		Example: "  portalctl match --entity request --attr subtheme=ocean --attr delivery_country=FJ",
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, values, err := parseMatchArgs(entity, attrs)
			if err != nil {
				return err
			}
			env, err := initEnv(true)
			if err != nil {
				return err
			}
			defer env.Close()

			matcher := service.NewMatchingService(repository.NewPreferenceRepository(env.db), nil, env.logger)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			users, err := matcher.FindInterestedUsers(ctx, entityType, values)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "no matching users")
				return nil
			}
			for _, id := range users {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&entity, "entity", "e", string(models.EntityRequest), "Entity type (request or opportunity)")
	cmd.Flags().StringArrayVarP(&attrs, "attr", "a", nil, "Attribute as type=value, repeatable")
	return cmd
}

func parseMatchArgs(entity string, attrs []string) (models.EntityType, []models.AttributeValue, error) {
	entityType := models.EntityType(strings.ToLower(strings.TrimSpace(entity)))
	if !entityType.Valid() {
		return "", nil, fmt.Errorf("unknown entity %q", entity)
	}
	if len(attrs) == 0 {
		return "", nil, errors.New("at least one --attr is required")
	}
	values := make([]models.AttributeValue, 0, len(attrs))
	for _, raw := range attrs {
		key, value, ok := strings.Cut(raw, "=")
		attrType := models.AttributeType(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if !ok || value == "" || !attrType.Valid() {
			return "", nil, fmt.Errorf("invalid attribute %q", raw)
		}
		values = append(values, models.AttributeValue{Type: attrType, Value: value})
	}
	return entityType, values, nil
}

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Redis read cache tools",
	}

	var pattern string
	flush := &cobra.Command{
		Use:     "flush",
		Short:   "Evict cached statuses and requests",
		Example: "  portalctl cache flush --pattern 'request:*'",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := initEnv(false)
			if err != nil {
				return err
			}
			defer env.Close()

			client, err := cache.NewRedis(env.cfg.Redis)
			if err != nil {
				return fmt.Errorf("failed to connect redis: %w", err)
			}
			defer client.Close()

			svc := service.NewCacheService(repository.NewCacheRepository(client, env.logger), nil, env.cfg.Cache.TTL, env.logger, true)
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			removed, err := svc.Invalidate(ctx, pattern)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d keys\n", removed)
			return nil
		},
	}
	flush.Flags().StringVarP(&pattern, "pattern", "p", "*", "Key pattern relative to the portal namespace")
	cmd.AddCommand(flush)
	return cmd
}

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Sign-in session maintenance",
	}

	var grace time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete sessions that expired more than --grace ago",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := initEnv(true)
			if err != nil {
				return err
			}
			defer env.Close()

			cutoff := time.Now().UTC().Add(-grace)
			deleted, err := repository.NewSessionRepository(env.db).DeleteExpired(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			env.logger.Info("expired sessions purged", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d sessions\n", deleted)
			return nil
		},
	}
	purge.Flags().DurationVar(&grace, "grace", 7*24*time.Hour, "Keep expired sessions this long for audit lookups")
	cmd.AddCommand(purge)
	return cmd
}
