package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Avatar    AvatarConfig    `mapstructure:"avatar"`
	OAuth     OAuthConfig     `mapstructure:"oauth"`
	Email     EmailConfig     `mapstructure:"email"`
	Mailchimp MailchimpConfig `mapstructure:"mailchimp"`
	Index     IndexConfig     `mapstructure:"index"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Throttle  ThrottleConfig  `mapstructure:"throttle"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Log       LogConfig       `mapstructure:"log"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Mode       string `mapstructure:"mode"`
	PublicURL  string `mapstructure:"public_url"`  // 对外访问地址，用于拼接绝对 URL
	StaticRoot string `mapstructure:"static_root"` // 静态资源目录（默认头像等）
	StaticURL  string `mapstructure:"static_url"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql / postgres / sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret       string `mapstructure:"secret"`
	ExpireHours  int    `mapstructure:"expire_hours"`
	RefreshHours int    `mapstructure:"refresh_hours"`
}

type StorageConfig struct {
	Driver string      `mapstructure:"driver"` // local / oss / gcs
	Local  LocalConfig `mapstructure:"local"`
	OSS    OSSConfig   `mapstructure:"oss"`
	GCS    GCSConfig   `mapstructure:"gcs"`
}

type LocalConfig struct {
	Root     string `mapstructure:"root"`
	MediaURL string `mapstructure:"media_url"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
	PublicURL       string `mapstructure:"public_url"`
}

type AvatarConfig struct {
	GravatarURL   string        `mapstructure:"gravatar_url"`
	Salt          string        `mapstructure:"salt"`
	DefaultCount  int           `mapstructure:"default_count"`
	DefaultPath   string        `mapstructure:"default_path"` // 相对 static_url，含 %d 占位
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	SweepGrace    time.Duration `mapstructure:"sweep_grace"` // 孤儿头像保留时间
	SweepSchedule time.Duration `mapstructure:"sweep_schedule"`
}

type OAuthConfig struct {
	Github      GithubOAuthConfig `mapstructure:"github"`
	StatePrefix string            `mapstructure:"state_prefix"`
	StateTTL    time.Duration     `mapstructure:"state_ttl"` // 授权 state 有效期
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
	ServerURL    string `mapstructure:"server_url"` // 为空时使用 github.com，GitHub Enterprise 时填写
	APIURL       string `mapstructure:"api_url"`
}

type EmailConfig struct {
	Driver         string   `mapstructure:"driver"` // smtp / sendgrid
	SMTPHost       string   `mapstructure:"smtp_host"`
	SMTPPort       int      `mapstructure:"smtp_port"`
	Username       string   `mapstructure:"username"`
	Password       string   `mapstructure:"password"`
	SendgridAPIKey string   `mapstructure:"sendgrid_api_key"`
	From           string   `mapstructure:"from"`
	FromName       string   `mapstructure:"from_name"`
	StaffEmails    []string `mapstructure:"staff_emails"` // 联系表单收件人
	SiteName       string   `mapstructure:"site_name"`
}

type MailchimpConfig struct {
	APIKey  string `mapstructure:"api_key"`
	ListID  string `mapstructure:"list_id"`
	BaseURL string `mapstructure:"base_url"` // 为空时根据 api_key 的数据中心推导
}

type IndexConfig struct {
	Queue           string        `mapstructure:"queue"`
	Async           bool          `mapstructure:"async"`
	Workers         int           `mapstructure:"workers"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RebuildInterval time.Duration `mapstructure:"rebuild_interval"` // 0 表示不做定时全量重建
}

type CORSConfig struct {
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	AllowedMethods []string      `mapstructure:"allowed_methods"`
	AllowedHeaders []string      `mapstructure:"allowed_headers"`
	ExposedHeaders []string      `mapstructure:"exposed_headers"`
	MaxAge         time.Duration `mapstructure:"max_age"` // 预检结果缓存时长
}

type ThrottleConfig struct {
	Window time.Duration  `mapstructure:"window"`
	Limits map[string]int `mapstructure:"limits"` // scope -> 窗口内最大请求数
}

type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize          int64    `mapstructure:"max_size"` // 最大文件大小（字节）
	AllowedMIMETypes []string `mapstructure:"allowed_mime_types"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text / json
}

type SentryConfig struct {
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

func Load(configPath string) (*Config, error) {
	// .env 只用于本地开发，不存在时忽略
	_ = godotenv.Load()

	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.static_root", "./static")
	v.SetDefault("server.static_url", "/static/")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("jwt.refresh_hours", 24*7)
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.root", "./media")
	v.SetDefault("storage.local.media_url", "/media/")
	v.SetDefault("avatar.gravatar_url", "https://www.gravatar.com/avatar/")
	v.SetDefault("avatar.default_count", 8)
	v.SetDefault("avatar.default_path", "comment/avatars/default_avatar_%d.svg")
	v.SetDefault("avatar.fetch_timeout", 5*time.Second)
	v.SetDefault("avatar.sweep_grace", 24*time.Hour)
	v.SetDefault("avatar.sweep_schedule", time.Hour)
	v.SetDefault("oauth.state_prefix", "pec:oauth:state:")
	v.SetDefault("oauth.state_ttl", 10*time.Minute)
	v.SetDefault("email.driver", "smtp")
	v.SetDefault("email.site_name", "Patate & Cornichon")
	v.SetDefault("index.queue", "index:records")
	v.SetDefault("index.async", true)
	v.SetDefault("index.workers", 2)
	v.SetDefault("index.max_retries", 3)
	v.SetDefault("cors.max_age", 24*time.Hour)
	v.SetDefault("throttle.window", time.Hour)
	v.SetDefault("cache.size", 512)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("upload.max_size", 10<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
