// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	SMTP      SMTPConfig
	Twilio    TwilioConfig
	Directory DirectoryConfig
	Broker    BrokerConfig
	Captcha   CaptchaConfig
	OIDC      OIDCConfig
	Org       OrgConfig
	Recovery  RecoveryConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	UseSSL   bool
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	ServiceSID string
}

type DirectoryConfig struct {
	LDAPURL      string
	BindDN       string
	BindPassword string
	UserBase     string
	APIBaseURL   string
	LinkedIDAttr string
}

type BrokerConfig struct {
	BaseURL       string
	Realm         string
	AdminRealm    string
	AdminUser     string
	AdminPassword string
	AccountSuffix string
}

type CaptchaConfig struct { //nolint:govet // fieldalignment not critical
	VerifyURL string
	Secret    string
	Enabled   bool
}

type OIDCConfig struct {
	IssuerURL  string
	ClientID   string
	AdminGroup string
}

type OrgConfig struct {
	Name         string
	SupportEmail string
	SelfDomain   string
	OTPIssuer    string
}

type RecoveryConfig struct {
	ProtectedGroups []string
	DisabledGroups  []string
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			UseSSL:   cmd.Bool("smtp-ssl"),
		},
		Twilio: TwilioConfig{
			AccountSID: cmd.String("twilio-account-sid"),
			AuthToken:  cmd.String("twilio-auth-token"),
			FromNumber: cmd.String("twilio-from-number"),
			ServiceSID: cmd.String("twilio-service-sid"),
		},
		Directory: DirectoryConfig{
			LDAPURL:      cmd.String("directory-ldap-url"),
			BindDN:       cmd.String("directory-bind-dn"),
			BindPassword: cmd.String("directory-bind-password"),
			UserBase:     cmd.String("directory-user-base"),
			APIBaseURL:   cmd.String("directory-api-base-url"),
			LinkedIDAttr: cmd.String("directory-linked-id-attr"),
		},
		Broker: BrokerConfig{
			BaseURL:       cmd.String("broker-base-url"),
			Realm:         cmd.String("broker-realm"),
			AdminRealm:    cmd.String("broker-admin-realm"),
			AdminUser:     cmd.String("broker-admin-user"),
			AdminPassword: cmd.String("broker-admin-password"),
			AccountSuffix: cmd.String("broker-account-suffix"),
		},
		Captcha: CaptchaConfig{
			VerifyURL: cmd.String("captcha-verify-url"),
			Secret:    cmd.String("captcha-secret"),
			Enabled:   cmd.Bool("captcha-enabled"),
		},
		OIDC: OIDCConfig{
			IssuerURL:  cmd.String("oidc-issuer-url"),
			ClientID:   cmd.String("oidc-client-id"),
			AdminGroup: cmd.String("oidc-admin-group"),
		},
		Org: OrgConfig{
			Name:         cmd.String("org-name"),
			SupportEmail: cmd.String("org-support-email"),
			SelfDomain:   cmd.String("org-self-domain"),
			OTPIssuer:    cmd.String("org-otp-issuer"),
		},
		Recovery: RecoveryConfig{
			ProtectedGroups: splitGroups(cmd.String("recovery-protected-groups")),
			DisabledGroups:  splitGroups(cmd.String("recovery-disabled-groups")),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Org.OTPIssuer == "" {
		cfg.Org.OTPIssuer = cfg.Org.Name
	}

	return cfg
}

// splitGroups parses a comma-separated group list, dropping empty entries.
func splitGroups(raw string) []string {
	var groups []string
	for _, group := range strings.Split(raw, ",") {
		if group = strings.TrimSpace(group); group != "" {
			groups = append(groups, group)
		}
	}
	return groups
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL used in reset links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/selfservice.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Value:   "localhost",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address for recovery mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-ssl",
			Usage:   "Use implicit TLS instead of STARTTLS",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_SSL"), toml.TOML("smtp.ssl", configFile)),
		},
		// Twilio flags
		&cli.StringFlag{
			Name:    "twilio-account-sid",
			Usage:   "Twilio account SID",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TWILIO_ACCOUNT_SID"), toml.TOML("twilio.account_sid", configFile)),
		},
		&cli.StringFlag{
			Name:    "twilio-auth-token",
			Usage:   "Twilio auth token",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TWILIO_AUTH_TOKEN"), toml.TOML("twilio.auth_token", configFile)),
		},
		&cli.StringFlag{
			Name:    "twilio-from-number",
			Usage:   "Twilio sender number",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TWILIO_FROM_NUMBER"), toml.TOML("twilio.from_number", configFile)),
		},
		&cli.StringFlag{
			Name:    "twilio-service-sid",
			Usage:   "Twilio messaging service SID (optional)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TWILIO_SERVICE_SID"), toml.TOML("twilio.service_sid", configFile)),
		},
		// Directory flags
		&cli.StringFlag{
			Name:    "directory-ldap-url",
			Value:   "ldaps://localhost:636",
			Usage:   "Directory LDAP URL",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DIRECTORY_LDAP_URL"), toml.TOML("directory.ldap_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "directory-bind-dn",
			Usage:   "Service account bind DN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DIRECTORY_BIND_DN"), toml.TOML("directory.bind_dn", configFile)),
		},
		&cli.StringFlag{
			Name:    "directory-bind-password",
			Usage:   "Service account bind password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DIRECTORY_BIND_PASSWORD"), toml.TOML("directory.bind_password", configFile)),
		},
		&cli.StringFlag{
			Name:    "directory-user-base",
			Usage:   "Base DN for user entries",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DIRECTORY_USER_BASE"), toml.TOML("directory.user_base", configFile)),
		},
		&cli.StringFlag{
			Name:    "directory-api-base-url",
			Usage:   "Directory HTTP API base URL",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DIRECTORY_API_BASE_URL"), toml.TOML("directory.api_base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "directory-linked-id-attr",
			Usage:   "Attribute holding the linked external identity",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DIRECTORY_LINKED_ID_ATTR"), toml.TOML("directory.linked_id_attr", configFile)),
		},
		// Broker flags
		&cli.StringFlag{
			Name:    "broker-base-url",
			Usage:   "Identity broker base URL",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BROKER_BASE_URL"), toml.TOML("broker.base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "broker-realm",
			Usage:   "Broker realm holding user accounts",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BROKER_REALM"), toml.TOML("broker.realm", configFile)),
		},
		&cli.StringFlag{
			Name:    "broker-admin-realm",
			Value:   "master",
			Usage:   "Broker realm for the admin account",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BROKER_ADMIN_REALM"), toml.TOML("broker.admin_realm", configFile)),
		},
		&cli.StringFlag{
			Name:    "broker-admin-user",
			Usage:   "Broker admin username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BROKER_ADMIN_USER"), toml.TOML("broker.admin_user", configFile)),
		},
		&cli.StringFlag{
			Name:    "broker-admin-password",
			Usage:   "Broker admin password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BROKER_ADMIN_PASSWORD"), toml.TOML("broker.admin_password", configFile)),
		},
		&cli.StringFlag{
			Name:    "broker-account-suffix",
			Usage:   "Suffix appended to usernames at the broker",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BROKER_ACCOUNT_SUFFIX"), toml.TOML("broker.account_suffix", configFile)),
		},
		// Captcha flags
		&cli.StringFlag{
			Name:    "captcha-verify-url",
			Value:   "https://www.google.com/recaptcha/api/siteverify",
			Usage:   "Captcha verification endpoint",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CAPTCHA_VERIFY_URL"), toml.TOML("captcha.verify_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "captcha-secret",
			Usage:   "Captcha shared secret",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CAPTCHA_SECRET"), toml.TOML("captcha.secret", configFile)),
		},
		&cli.BoolFlag{
			Name:    "captcha-enabled",
			Usage:   "Require captcha on recovery start",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CAPTCHA_ENABLED"), toml.TOML("captcha.enabled", configFile)),
		},
		// OIDC flags
		&cli.StringFlag{
			Name:    "oidc-issuer-url",
			Usage:   "OIDC issuer URL for bearer token verification",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OIDC_ISSUER_URL"), toml.TOML("oidc.issuer_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "oidc-client-id",
			Usage:   "Expected audience of bearer tokens",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OIDC_CLIENT_ID"), toml.TOML("oidc.client_id", configFile)),
		},
		&cli.StringFlag{
			Name:    "oidc-admin-group",
			Value:   "admins",
			Usage:   "Group required for admin routes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OIDC_ADMIN_GROUP"), toml.TOML("oidc.admin_group", configFile)),
		},
		// Organization flags
		&cli.StringFlag{
			Name:    "org-name",
			Value:   "Clubhouse",
			Usage:   "Organization name used in notifications",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ORG_NAME"), toml.TOML("org.name", configFile)),
		},
		&cli.StringFlag{
			Name:    "org-support-email",
			Usage:   "Support contact shown in notifications",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ORG_SUPPORT_EMAIL"), toml.TOML("org.support_email", configFile)),
		},
		&cli.StringFlag{
			Name:    "org-self-domain",
			Usage:   "Mail domain of managed accounts, excluded from recovery",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ORG_SELF_DOMAIN"), toml.TOML("org.self_domain", configFile)),
		},
		&cli.StringFlag{
			Name:    "org-otp-issuer",
			Usage:   "Issuer label in authenticator apps (defaults to org name)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ORG_OTP_ISSUER"), toml.TOML("org.otp_issuer", configFile)),
		},
		// Recovery policy flags
		&cli.StringFlag{
			Name:    "recovery-protected-groups",
			Value:   "admins",
			Usage:   "Comma-separated groups excluded from self-service recovery",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RECOVERY_PROTECTED_GROUPS"), toml.TOML("recovery.protected_groups", configFile)),
		},
		&cli.StringFlag{
			Name:    "recovery-disabled-groups",
			Value:   "disabled",
			Usage:   "Comma-separated groups marking deactivated accounts",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RECOVERY_DISABLED_GROUPS"), toml.TOML("recovery.disabled_groups", configFile)),
		},
	}
}
