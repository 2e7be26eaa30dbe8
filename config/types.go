package config

import "time"

type AppConfig struct {
	DBDriver   string        `yaml:"db_driver" env:"RPI_DB_DRIVER" env-default:"sqlite"`
	DBURL      string        `yaml:"db_url" env:"RPI_DB_URL" env-default:"data/rpi.db"`
	ListenAddr string        `yaml:"listen_addr" env:"RPI_LISTEN_ADDR" env-default:"0.0.0.0:8080"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"RPI_SESSION_TTL" env-default:"8h"`
	AppEnv     string        `yaml:"app_env" env:"RPI_APP_ENV"`
	Pepper     string        `yaml:"pepper" env:"RPI_PEPPER"`
	CSRFKey    string        `yaml:"csrf_key" env:"RPI_CSRF_KEY"`
	MediaDir   string        `yaml:"media_dir" env:"RPI_MEDIA_DIR" env-default:"data/media"`
	Shift      ShiftConfig   `yaml:"shift"`
	Reports    ReportsConfig `yaml:"reports"`
	Audit      AuditConfig   `yaml:"audit"`
	Mail       MailConfig    `yaml:"mail"`
}

type ShiftConfig struct {
	// Local zone used to anchor the 07:00-07:00 duty window.
	TimeZone string `yaml:"time_zone" env:"RPI_SHIFT_TIME_ZONE" env-default:"America/Sao_Paulo"`
}

type ReportsConfig struct {
	PDFTitle    string `yaml:"pdf_title" env:"RPI_REPORTS_PDF_TITLE" env-default:"RELATÓRIO DE PLANTÃO INTEGRADO"`
	PDFUnitLine string `yaml:"pdf_unit_line" env:"RPI_REPORTS_PDF_UNIT_LINE" env-default:"AGÊNCIA REGIONAL DE INTELIGÊNCIA - SUL"`
}

type AuditConfig struct {
	RetentionDays int    `yaml:"retention_days" env:"RPI_AUDIT_RETENTION_DAYS" env-default:"180"`
	PurgeSchedule string `yaml:"purge_schedule" env:"RPI_AUDIT_PURGE_SCHEDULE" env-default:"0 3 * * *"`
}

type MailConfig struct {
	Enabled    bool   `yaml:"enabled" env:"RPI_MAIL_ENABLED" env-default:"false"`
	Host       string `yaml:"host" env:"RPI_MAIL_HOST"`
	Port       int    `yaml:"port" env:"RPI_MAIL_PORT" env-default:"587"`
	Username   string `yaml:"username" env:"RPI_MAIL_USERNAME"`
	Password   string `yaml:"password" env:"RPI_MAIL_PASSWORD"`
	From       string `yaml:"from" env:"RPI_MAIL_FROM"`
	AdminEmail string `yaml:"admin_email" env:"RPI_MAIL_ADMIN"`
}

const maxUserSessionTTL = 12 * time.Hour

func (c *AppConfig) EffectiveSessionTTL() time.Duration {
	ttl := maxUserSessionTTL
	if c != nil && c.SessionTTL > 0 {
		ttl = c.SessionTTL
	}
	if ttl > maxUserSessionTTL {
		return maxUserSessionTTL
	}
	return ttl
}
