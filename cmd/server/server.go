// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"

	"github.com/clubhouse-org/selfservice/internal/auth"
	"github.com/clubhouse-org/selfservice/internal/broker"
	"github.com/clubhouse-org/selfservice/internal/captcha"
	"github.com/clubhouse-org/selfservice/internal/config"
	"github.com/clubhouse-org/selfservice/internal/contact"
	"github.com/clubhouse-org/selfservice/internal/database"
	"github.com/clubhouse-org/selfservice/internal/directory"
	"github.com/clubhouse-org/selfservice/internal/handlers"
	"github.com/clubhouse-org/selfservice/internal/notify"
	"github.com/clubhouse-org/selfservice/internal/repository"
	"github.com/clubhouse-org/selfservice/internal/services/apppass"
	"github.com/clubhouse-org/selfservice/internal/services/change"
	"github.com/clubhouse-org/selfservice/internal/services/otpenroll"
	"github.com/clubhouse-org/selfservice/internal/services/recovery"
)

// setupLogger configures the global slog logger.
func setupLogger(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: logLevel})
	}

	slog.SetDefault(slog.New(handler))
}

func runServer(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)

	setupLogger(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repo := repository.New(db)

	dir := directory.NewIPAClient(directory.Config{
		LDAPURL:      cfg.Directory.LDAPURL,
		BindDN:       cfg.Directory.BindDN,
		BindPassword: cfg.Directory.BindPassword,
		UserBase:     cfg.Directory.UserBase,
		APIBaseURL:   cfg.Directory.APIBaseURL,
		LinkedIDAttr: cfg.Directory.LinkedIDAttr,
	})

	brokerClient := broker.NewKeycloakClient(broker.Config{
		BaseURL:       cfg.Broker.BaseURL,
		Realm:         cfg.Broker.Realm,
		AdminRealm:    cfg.Broker.AdminRealm,
		AdminUser:     cfg.Broker.AdminUser,
		AdminPassword: cfg.Broker.AdminPassword,
		AccountSuffix: cfg.Broker.AccountSuffix,
	})

	mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		TLS:      cfg.SMTP.UseSSL,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	})
	if err != nil {
		return fmt.Errorf("failed to create mailer: %w", err)
	}

	texter := notify.NewTwilioTexter(notify.TwilioConfig{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		FromNumber: cfg.Twilio.FromNumber,
		ServiceSID: cfg.Twilio.ServiceSID,
	})

	dispatch := notify.NewDispatch(mailer, texter, notify.Config{
		OrgName:      cfg.Org.Name,
		SupportEmail: cfg.Org.SupportEmail,
		BaseURL:      cfg.Server.BaseURL,
	})

	captchaVerifier := captcha.NewHTTPVerifier(captcha.Config{
		VerifyURL: cfg.Captcha.VerifyURL,
		Secret:    cfg.Captcha.Secret,
		Enabled:   cfg.Captcha.Enabled,
	})

	resolver := contact.NewResolver(dir, cfg.Org.SelfDomain)
	changeEngine := change.NewEngine(dir)

	recoveryService := recovery.NewService(repo, dir, resolver, dispatch, captchaVerifier, changeEngine, recovery.Policy{
		ProtectedGroups: cfg.Recovery.ProtectedGroups,
		DisabledGroups:  cfg.Recovery.DisabledGroups,
	})

	appPasswords := apppass.NewService(repo)
	otpService := otpenroll.NewService(brokerClient, dir, appPasswords, otpenroll.Config{
		Issuer:        cfg.Org.OTPIssuer,
		AccountDomain: cfg.Org.SelfDomain,
	})

	verifier, err := auth.NewVerifier(ctx, auth.Config{
		IssuerURL:  cfg.OIDC.IssuerURL,
		ClientID:   cfg.OIDC.ClientID,
		AdminGroup: cfg.OIDC.AdminGroup,
	})
	if err != nil {
		return fmt.Errorf("failed to create OIDC verifier: %w", err)
	}

	h := handlers.New(recoveryService, changeEngine, otpService, dir)

	e := setupRoutes(h, verifier, cfg)

	slog.Info("server_config",
		"database", cfg.Database.DSN,
		"directory", cfg.Directory.LDAPURL,
		"broker", cfg.Broker.BaseURL,
		"captcha_enabled", cfg.Captcha.Enabled,
		"log_level", cfg.Log.Level,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	slog.Info("server_start", "addr", addr)
	return e.Start(addr)
}
